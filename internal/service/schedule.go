package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"SolGuard/config"
	"SolGuard/internal/model"
	"SolGuard/internal/model/dto"
	"SolGuard/internal/repository"
	"SolGuard/internal/schedule"
	pkgerrors "SolGuard/pkg/errors"
	"SolGuard/pkg/logger"
	"SolGuard/pkg/snowflake"
	"SolGuard/utils"
)

var (
	scheduleService *ScheduleService
	scheduleSvcOnce sync.Once
)

func GetScheduleService() *ScheduleService {
	scheduleSvcOnce.Do(func() {
		scheduleService = &ScheduleService{
			schedules: repository.Schedules(),
			windows:   repository.Windows(),
			users:     repository.Users(),
		}
	})

	return scheduleService
}

type ScheduleService struct {
	schedules *repository.ScheduleRepo
	windows   *repository.WindowRepo
	users     *repository.UserRepo
}

// Create 创建打卡日程。NextOpenAt 在这里用用户时区的当前时刻播种，
// 之后由评估器推进。
func (s *ScheduleService) Create(ctx context.Context, userID int64, req *dto.CreateScheduleRequest) (*dto.ScheduleItem, error) {
	count, err := s.schedules.CountByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count schedules: %w", err)
	}
	if count >= int64(config.Cfg.MaxSchedulesPerUser) {
		return nil, pkgerrors.ScheduleLimitReached
	}

	grace := config.Cfg.DefaultGraceMinutes
	if req.GraceMinutes != nil {
		grace = *req.GraceMinutes
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	publicID, err := snowflake.NextID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate schedule id: %w", err)
	}

	rule := &model.Schedule{
		PublicID:     publicID,
		UserID:       userID,
		Label:        req.Label,
		TimeOfDay:    req.TimeOfDay,
		Weekdays:     normalizeWeekdays(req.Weekdays),
		Enabled:      enabled,
		GraceMinutes: grace,
	}

	if err := s.validateRule(rule); err != nil {
		return nil, err
	}

	if rule.Enabled {
		if err := s.seedNextOpen(ctx, rule, time.Now()); err != nil {
			return nil, err
		}
	}

	if err := s.schedules.Create(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}

	logger.Logger.Info("schedule created",
		zap.Int64("user_id", userID),
		zap.Int64("schedule_id", rule.PublicID),
		zap.String("time_of_day", rule.TimeOfDay),
	)

	return toScheduleItem(rule), nil
}

// List 返回用户的全部日程
func (s *ScheduleService) List(ctx context.Context, userID int64) ([]*dto.ScheduleItem, error) {
	rules, err := s.schedules.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}

	items := make([]*dto.ScheduleItem, 0, len(rules))
	for _, rule := range rules {
		items = append(items, toScheduleItem(rule))
	}
	return items, nil
}

func (s *ScheduleService) Get(ctx context.Context, userID, schedulePublicID int64) (*dto.ScheduleItem, error) {
	rule, err := s.getRule(ctx, userID, schedulePublicID)
	if err != nil {
		return nil, err
	}
	return toScheduleItem(rule), nil
}

// Update 修改日程。时间、星期或启用状态变化时丢弃旧的 open 窗口并
// 重新播种 NextOpenAt，旧窗口体现的是改之前的规则。
func (s *ScheduleService) Update(ctx context.Context, userID, schedulePublicID int64, req *dto.UpdateScheduleRequest) (*dto.ScheduleItem, error) {
	rule, err := s.getRule(ctx, userID, schedulePublicID)
	if err != nil {
		return nil, err
	}

	timingChanged := false
	if req.Label != nil {
		rule.Label = *req.Label
	}
	if req.TimeOfDay != nil && *req.TimeOfDay != rule.TimeOfDay {
		rule.TimeOfDay = *req.TimeOfDay
		timingChanged = true
	}
	if req.Weekdays != nil {
		rule.Weekdays = normalizeWeekdays(*req.Weekdays)
		timingChanged = true
	}
	if req.GraceMinutes != nil && *req.GraceMinutes != rule.GraceMinutes {
		rule.GraceMinutes = *req.GraceMinutes
		timingChanged = true
	}
	if req.Enabled != nil && *req.Enabled != rule.Enabled {
		rule.Enabled = *req.Enabled
		timingChanged = true
	}

	if err := s.validateRule(rule); err != nil {
		return nil, err
	}

	if timingChanged {
		if err := s.windows.DeleteOpenByRule(ctx, rule.ID); err != nil {
			return nil, fmt.Errorf("failed to drop open windows: %w", err)
		}

		rule.NextOpenAt = nil
		if rule.Enabled {
			if err := s.seedNextOpen(ctx, rule, time.Now()); err != nil {
				return nil, err
			}
		}
	}

	if err := s.schedules.Save(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to update schedule: %w", err)
	}

	return toScheduleItem(rule), nil
}

// Delete 删除日程。open 窗口随之丢弃，终态窗口和账本记录保留。
func (s *ScheduleService) Delete(ctx context.Context, userID, schedulePublicID int64) error {
	rule, err := s.getRule(ctx, userID, schedulePublicID)
	if err != nil {
		return err
	}

	if err := s.windows.DeleteOpenByRule(ctx, rule.ID); err != nil {
		return fmt.Errorf("failed to drop open windows: %w", err)
	}
	if err := s.schedules.Delete(ctx, rule); err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}

	logger.Logger.Info("schedule deleted",
		zap.Int64("user_id", userID),
		zap.Int64("schedule_id", rule.PublicID),
	)

	return nil
}

// NextOccurrence "Next: ..." 展示接口，按用户时区计算下一次触发时刻
func (s *ScheduleService) NextOccurrence(ctx context.Context, userID, schedulePublicID int64) (*dto.NextOccurrenceResponse, error) {
	rule, err := s.getRule(ctx, userID, schedulePublicID)
	if err != nil {
		return nil, err
	}
	if !rule.Enabled {
		return nil, pkgerrors.InvalidRule
	}

	loc := s.userLocation(ctx, userID)
	next, err := schedule.NextOccurrence(rule, time.Now().In(loc))
	if err != nil {
		return nil, err
	}

	return &dto.NextOccurrenceResponse{
		ScheduleID:     strconv.FormatInt(rule.PublicID, 10),
		NextOccurrence: next,
	}, nil
}

func (s *ScheduleService) getRule(ctx context.Context, userID, schedulePublicID int64) (*model.Schedule, error) {
	rule, err := s.schedules.GetByPublicID(ctx, userID, schedulePublicID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.RuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	return rule, nil
}

func (s *ScheduleService) validateRule(rule *model.Schedule) error {
	if len(rule.Label) > 64 {
		return pkgerrors.InvalidRule
	}
	if _, _, err := utils.ParseTimeOfDay(rule.TimeOfDay); err != nil {
		return pkgerrors.InvalidRule
	}
	if len(rule.Weekdays) == 0 {
		return pkgerrors.InvalidRule
	}
	for _, d := range rule.Weekdays {
		if d < 0 || d > 6 {
			return pkgerrors.InvalidRule
		}
	}
	if rule.GraceMinutes < 0 || rule.GraceMinutes > 24*60 {
		return pkgerrors.InvalidRule
	}
	return nil
}

func (s *ScheduleService) seedNextOpen(ctx context.Context, rule *model.Schedule, now time.Time) error {
	loc := s.userLocation(ctx, rule.UserID)

	next, err := schedule.NextOccurrence(rule, now.In(loc))
	if err != nil {
		return pkgerrors.InvalidRule
	}
	rule.NextOpenAt = &next
	return nil
}

// userLocation 加载用户时区，无效或缺失时回退 UTC
func (s *ScheduleService) userLocation(ctx context.Context, userID int64) *time.Location {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return time.UTC
	}
	loc, err := time.LoadLocation(user.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// normalizeWeekdays 去重排序，越界值原样保留给 validateRule 报错
func normalizeWeekdays(days []int) model.Weekdays {
	for _, v := range days {
		if v < 0 || v > 6 {
			return model.Weekdays(days)
		}
	}

	var present [7]bool
	for _, v := range days {
		present[v] = true
	}
	out := make(model.Weekdays, 0, len(days))
	for d := 0; d <= 6; d++ {
		if present[d] {
			out = append(out, d)
		}
	}
	return out
}

func toScheduleItem(rule *model.Schedule) *dto.ScheduleItem {
	return &dto.ScheduleItem{
		ScheduleID:   strconv.FormatInt(rule.PublicID, 10),
		Label:        rule.Label,
		TimeOfDay:    rule.TimeOfDay,
		Weekdays:     []int(rule.Weekdays),
		GraceMinutes: rule.GraceMinutes,
		Enabled:      rule.Enabled,
		NextOpenAt:   rule.NextOpenAt,
	}
}
