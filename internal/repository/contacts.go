package repository

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"SolGuard/internal/model"
	pkgerrors "SolGuard/pkg/errors"
	"SolGuard/storage/database"
)

var (
	contactRepo *ContactRepo
	contactOnce sync.Once
)

// Contacts 紧急联系人仓储单例
func Contacts() *ContactRepo {
	contactOnce.Do(func() {
		contactRepo = &ContactRepo{db: database.DB()}
	})

	return contactRepo
}

type ContactRepo struct {
	db *gorm.DB
}

// ListByUser 主联系人排最前，其余按创建顺序
func (r *ContactRepo) ListByUser(ctx context.Context, userID int64) ([]*model.Contact, error) {
	var contacts []*model.Contact
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_primary DESC, id ASC").
		Find(&contacts).Error
	return contacts, err
}

func (r *ContactRepo) GetByPublicID(ctx context.Context, userID, publicID int64) (*model.Contact, error) {
	var contact model.Contact
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND public_id = ?", userID, publicID).
		First(&contact).Error
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

func (r *ContactRepo) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Contact{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

// Create 新增联系人。首个联系人自动成为主联系人在 service 层决定，
// 这里 setPrimary=true 时在同一事务内先清掉旧的主联系人。
func (r *ContactRepo) Create(ctx context.Context, contact *model.Contact) error {
	if !contact.IsPrimary {
		return r.db.WithContext(ctx).Create(contact).Error
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := clearPrimary(tx, contact.UserID); err != nil {
			return err
		}
		return tx.Create(contact).Error
	})
}

func (r *ContactRepo) Save(ctx context.Context, contact *model.Contact) error {
	return r.db.WithContext(ctx).Save(contact).Error
}

func (r *ContactRepo) Delete(ctx context.Context, contact *model.Contact) error {
	return r.db.WithContext(ctx).Delete(contact).Error
}

// SetPrimary 切换主联系人。单事务先清后设，保证"每用户至多一个
// 主联系人"不变量在任何时刻成立。
func (r *ContactRepo) SetPrimary(ctx context.Context, userID, contactID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := clearPrimary(tx, userID); err != nil {
			return err
		}

		res := tx.Model(&model.Contact{}).
			Where("id = ? AND user_id = ?", contactID, userID).
			Update("is_primary", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return pkgerrors.ContactNotFound
		}
		return nil
	})
}

func clearPrimary(tx *gorm.DB, userID int64) error {
	return tx.Model(&model.Contact{}).
		Where("user_id = ? AND is_primary = true", userID).
		Update("is_primary", false).Error
}

// CreateAttempt 记录一次告警投递尝试
func (r *ContactRepo) CreateAttempt(ctx context.Context, attempt *model.ContactAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

// ListAttemptsByWindow 窗口维度的投递尝试记录（诊断用）
func (r *ContactRepo) ListAttemptsByWindow(ctx context.Context, windowID int64) ([]*model.ContactAttempt, error) {
	var attempts []*model.ContactAttempt
	err := r.db.WithContext(ctx).
		Where("window_id = ?", windowID).
		Order("attempted_at DESC").
		Find(&attempts).Error
	return attempts, err
}
