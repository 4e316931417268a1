package repository

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"SolGuard/internal/model"
	"SolGuard/storage/database"
)

var (
	scheduleRepo *ScheduleRepo
	scheduleOnce sync.Once
)

// Schedules 打卡日程仓储单例
func Schedules() *ScheduleRepo {
	scheduleOnce.Do(func() {
		scheduleRepo = &ScheduleRepo{db: database.DB()}
	})

	return scheduleRepo
}

type ScheduleRepo struct {
	db *gorm.DB
}

func (r *ScheduleRepo) ListEnabled(ctx context.Context) ([]*model.Schedule, error) {
	var rules []*model.Schedule
	err := r.db.WithContext(ctx).
		Where("enabled = true").
		Order("id ASC").
		Find(&rules).Error
	return rules, err
}

func (r *ScheduleRepo) ListByUser(ctx context.Context, userID int64) ([]*model.Schedule, error) {
	var rules []*model.Schedule
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("time_of_day ASC, id ASC").
		Find(&rules).Error
	return rules, err
}

func (r *ScheduleRepo) GetByPublicID(ctx context.Context, userID, publicID int64) (*model.Schedule, error) {
	var rule model.Schedule
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND public_id = ?", userID, publicID).
		First(&rule).Error
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *ScheduleRepo) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Schedule{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *ScheduleRepo) Create(ctx context.Context, rule *model.Schedule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

func (r *ScheduleRepo) Save(ctx context.Context, rule *model.Schedule) error {
	return r.db.WithContext(ctx).Save(rule).Error
}

func (r *ScheduleRepo) Delete(ctx context.Context, rule *model.Schedule) error {
	return r.db.WithContext(ctx).Delete(rule).Error
}

// AdvanceNextOpen 推进调度状态到下一个窗口打开时刻
func (r *ScheduleRepo) AdvanceNextOpen(ctx context.Context, ruleID int64, next time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Schedule{}).
		Where("id = ?", ruleID).
		Update("next_open_at", next).Error
}
