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
	windowRepo *WindowRepo
	windowOnce sync.Once
)

// Windows 打卡窗口仓储单例
func Windows() *WindowRepo {
	windowOnce.Do(func() {
		windowRepo = &WindowRepo{db: database.DB()}
	})

	return windowRepo
}

type WindowRepo struct {
	db *gorm.DB
}

func (r *WindowRepo) ListOpen(ctx context.Context) ([]*model.CheckInWindow, error) {
	var windows []*model.CheckInWindow
	err := r.db.WithContext(ctx).
		Where("state = ?", string(model.WindowStateOpen)).
		Order("deadline_at ASC").
		Find(&windows).Error
	return windows, err
}

func (r *WindowRepo) ListOpenByUser(ctx context.Context, userID int64) ([]*model.CheckInWindow, error) {
	var windows []*model.CheckInWindow
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND state = ?", userID, string(model.WindowStateOpen)).
		Order("deadline_at ASC").
		Find(&windows).Error
	return windows, err
}

func (r *WindowRepo) ListMissed(ctx context.Context) ([]*model.CheckInWindow, error) {
	var windows []*model.CheckInWindow
	err := r.db.WithContext(ctx).
		Where("state = ?", string(model.WindowStateMissed)).
		Order("deadline_at ASC").
		Find(&windows).Error
	return windows, err
}

func (r *WindowRepo) GetByID(ctx context.Context, id int64) (*model.CheckInWindow, error) {
	var w model.CheckInWindow
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WindowRepo) Create(ctx context.Context, w *model.CheckInWindow) error {
	return r.db.WithContext(ctx).Create(w).Error
}

// Transition 条件状态迁移（CAS）：WHERE state = from 保证并发下
// 先到者生效，后到者拿到 false
func (r *WindowRepo) Transition(ctx context.Context, windowID int64, from, to model.WindowState, at time.Time) (bool, error) {
	updates := map[string]interface{}{
		"state": string(to),
	}
	switch to {
	case model.WindowStateSatisfied:
		updates["satisfied_at"] = at
	case model.WindowStateEscalated:
		updates["escalated_at"] = at
	}

	res := r.db.WithContext(ctx).
		Model(&model.CheckInWindow{}).
		Where("id = ? AND state = ?", windowID, string(from)).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteOpenByRule 删除规则的 open 窗口（规则被停用或删除时调用，
// 终态窗口保留作历史）
func (r *WindowRepo) DeleteOpenByRule(ctx context.Context, ruleID int64) error {
	return r.db.WithContext(ctx).
		Where("rule_id = ? AND state = ?", ruleID, string(model.WindowStateOpen)).
		Delete(&model.CheckInWindow{}).Error
}
