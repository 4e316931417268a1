package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"

	"SolGuard/internal/model"
	"SolGuard/storage/database"
)

var (
	eventRepo *EventRepo
	eventOnce sync.Once
)

// Events 打卡账本仓储单例。账本只追加，没有 Update/Delete。
func Events() *EventRepo {
	eventOnce.Do(func() {
		eventRepo = &EventRepo{db: database.DB()}
	})

	return eventRepo
}

type EventRepo struct {
	db *gorm.DB
}

func (r *EventRepo) Append(ctx context.Context, ev *model.CheckInEvent) error {
	return r.db.WithContext(ctx).Create(ev).Error
}

// ListByUser 按时间倒序分页返回用户账本
func (r *EventRepo) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*model.CheckInEvent, error) {
	var events []*model.CheckInEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("occurred_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&events).Error
	return events, err
}

// LatestCheckIn 用户最近一次打卡事件，没有则返回 nil
func (r *EventRepo) LatestCheckIn(ctx context.Context, userID int64) (*model.CheckInEvent, error) {
	var ev model.CheckInEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, string(model.CheckInEventCheckedIn)).
		Order("occurred_at DESC").
		First(&ev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// HasCheckedInSince 用户在 since 之后是否打过卡
func (r *EventRepo) HasCheckedInSince(ctx context.Context, userID int64, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.CheckInEvent{}).
		Where("user_id = ? AND status = ? AND occurred_at >= ?",
			userID, string(model.CheckInEventCheckedIn), since).
		Count(&count).Error
	return count > 0, err
}
