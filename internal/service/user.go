package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"SolGuard/internal/model/dto"
	"SolGuard/internal/repository"
	pkgerrors "SolGuard/pkg/errors"
	"SolGuard/utils"
)

var (
	userService *UserService
	userSvcOnce sync.Once
)

func GetUserService() *UserService {
	userSvcOnce.Do(func() {
		userService = &UserService{
			users: repository.Users(),
		}
	})

	return userService
}

type UserService struct {
	users *repository.UserRepo
}

func (s *UserService) GetSettings(ctx context.Context, userID int64) (*dto.UserSettings, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	settings := &dto.UserSettings{
		Nickname: user.Nickname,
		Timezone: user.Timezone,
		Premium:  user.Premium,
	}
	if user.PhoneCipher != "" {
		if plain, err := utils.DecryptPhone(user.PhoneCipher); err == nil {
			settings.PhoneMasked = utils.MaskPhone(plain)
		}
	}

	return settings, nil
}

// UpdateSettings 修改用户设置。时区变化只影响之后播种的窗口，
// 已打开的窗口保持原截止时刻。
func (s *UserService) UpdateSettings(ctx context.Context, userID int64, req *dto.UpdateUserSettingsRequest) (*dto.UserSettings, error) {
	updates := make(map[string]interface{})

	if req.Nickname != nil {
		if len(*req.Nickname) > 64 {
			return nil, fmt.Errorf("nickname too long")
		}
		updates["nickname"] = *req.Nickname
	}
	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil {
			return nil, pkgerrors.InvalidTimezone
		}
		updates["timezone"] = *req.Timezone
	}
	if req.Phone != nil {
		if *req.Phone == "" {
			updates["phone_cipher"] = ""
			updates["phone_hash"] = ""
		} else {
			if !utils.ValidatePhone(*req.Phone) {
				return nil, pkgerrors.InvalidPhone
			}
			cipher, err := utils.EncryptPhone(*req.Phone)
			if err != nil {
				return nil, fmt.Errorf("failed to encrypt phone: %w", err)
			}
			updates["phone_cipher"] = cipher
			updates["phone_hash"] = utils.HashPhone(*req.Phone)
		}
	}
	if req.Premium != nil {
		updates["premium"] = *req.Premium
	}

	if len(updates) > 0 {
		if err := s.users.Updates(ctx, userID, updates); err != nil {
			return nil, fmt.Errorf("failed to update user settings: %w", err)
		}
	}

	return s.GetSettings(ctx, userID)
}
