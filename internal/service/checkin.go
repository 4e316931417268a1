package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"SolGuard/internal/model/dto"
	"SolGuard/internal/repository"
	"SolGuard/internal/schedule"
	"SolGuard/pkg/logger"
	"SolGuard/pkg/metrics"
)

var (
	checkInService *CheckInService
	checkInOnce    sync.Once
)

func GetCheckInService() *CheckInService {
	checkInOnce.Do(func() {
		checkInService = &CheckInService{
			schedules: repository.Schedules(),
			windows:   repository.Windows(),
			events:    repository.Events(),
			users:     repository.Users(),
		}
	})

	return checkInService
}

type CheckInService struct {
	schedules *repository.ScheduleRepo
	windows   *repository.WindowRepo
	events    *repository.EventRepo
	users     *repository.UserRepo
}

// Complete "我很好"打卡。真正的满足/记账逻辑在评估器里，和评估循环
// 走同一把分布式锁，避免打卡与漏卡判定竞态。
func (s *CheckInService) Complete(ctx context.Context, userID int64) (*dto.CompleteCheckInResponse, error) {
	now := time.Now()

	satisfied, err := schedule.GetRunner().Evaluator().RecordCheckIn(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	if m := metrics.GetMetrics(); m != nil {
		m.RecordCheckIn(ctx, len(satisfied))
	}

	logger.Logger.Info("check-in recorded",
		zap.Int64("user_id", userID),
		zap.Int("satisfied_windows", len(satisfied)),
	)

	windowIDs := make([]string, 0, len(satisfied))
	for _, id := range satisfied {
		windowIDs = append(windowIDs, strconv.FormatInt(id, 10))
	}

	nextDue, err := s.nextCheckInDue(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &dto.CompleteCheckInResponse{
		CheckedInAt:      now,
		SatisfiedWindows: windowIDs,
		NextCheckInDue:   nextDue,
	}, nil
}

// Today 当天打卡状态，"今天"按用户时区切分
func (s *CheckInService) Today(ctx context.Context, userID int64) (*dto.TodayCheckInResponse, error) {
	loc := time.UTC
	if user, err := s.users.GetByID(ctx, userID); err == nil {
		if l, err := time.LoadLocation(user.Timezone); err == nil {
			loc = l
		}
	}

	now := time.Now().In(loc)
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	checkedIn, err := s.events.HasCheckedInSince(ctx, userID, startOfDay)
	if err != nil {
		return nil, fmt.Errorf("failed to query check-in events: %w", err)
	}

	var lastCheckInAt *time.Time
	if latest, err := s.events.LatestCheckIn(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to query latest check-in: %w", err)
	} else if latest != nil {
		t := latest.OccurredAt
		lastCheckInAt = &t
	}

	open, err := s.windows.ListOpenByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list open windows: %w", err)
	}

	publicIDs, err := s.schedulePublicIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]dto.WindowItem, 0, len(open))
	for _, w := range open {
		items = append(items, dto.WindowItem{
			WindowID:   strconv.FormatInt(w.ID, 10),
			ScheduleID: strconv.FormatInt(publicIDs[w.RuleID], 10),
			OpensAt:    w.OpensAt,
			DeadlineAt: w.DeadlineAt,
			State:      string(w.State),
		})
	}

	nextDue, err := s.nextCheckInDue(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &dto.TodayCheckInResponse{
		CheckedIn:      checkedIn,
		LastCheckInAt:  lastCheckInAt,
		OpenWindows:    items,
		NextCheckInDue: nextDue,
	}, nil
}

// History 打卡账本分页查询
func (s *CheckInService) History(ctx context.Context, userID int64, limit, offset int) ([]*dto.CheckInHistoryItem, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	events, err := s.events.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list check-in events: %w", err)
	}

	publicIDs, err := s.schedulePublicIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.CheckInHistoryItem, 0, len(events))
	for _, ev := range events {
		item := &dto.CheckInHistoryItem{
			EventID:    strconv.FormatInt(ev.PublicID, 10),
			Status:     string(ev.Status),
			OccurredAt: ev.OccurredAt,
		}
		// 已删除日程的事件查不到 public_id，schedule_id 留空
		if ev.RuleID != nil {
			if pub, ok := publicIDs[*ev.RuleID]; ok {
				sid := strconv.FormatInt(pub, 10)
				item.ScheduleID = &sid
			}
		}
		items = append(items, item)
	}

	return items, nil
}

// nextCheckInDue 用户所有启用日程里最早的下一个窗口打开时刻
func (s *CheckInService) nextCheckInDue(ctx context.Context, userID int64) (*time.Time, error) {
	rules, err := s.schedules.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}

	var next *time.Time
	for _, rule := range rules {
		if !rule.Enabled || rule.NextOpenAt == nil {
			continue
		}
		if next == nil || rule.NextOpenAt.Before(*next) {
			t := *rule.NextOpenAt
			next = &t
		}
	}
	return next, nil
}

func (s *CheckInService) schedulePublicIDs(ctx context.Context, userID int64) (map[int64]int64, error) {
	rules, err := s.schedules.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}

	ids := make(map[int64]int64, len(rules))
	for _, rule := range rules {
		ids[rule.ID] = rule.PublicID
	}
	return ids, nil
}
