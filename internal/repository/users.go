package repository

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"SolGuard/internal/model"
	"SolGuard/storage/database"
)

var (
	userRepo *UserRepo
	userOnce sync.Once
)

// Users 用户仓储单例
func Users() *UserRepo {
	userOnce.Do(func() {
		userRepo = &UserRepo{db: database.DB()}
	})

	return userRepo
}

type UserRepo struct {
	db *gorm.DB
}

func (r *UserRepo) GetByDeviceID(ctx context.Context, deviceID string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("device_id = ?", deviceID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByPublicID API 中的 user_id 都是 public_id
func (r *UserRepo) GetByPublicID(ctx context.Context, publicID int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("public_id = ?", publicID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepo) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepo) Updates(ctx context.Context, userID int64, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Updates(updates).Error
}
