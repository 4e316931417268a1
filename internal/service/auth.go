package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"SolGuard/internal/model"
	"SolGuard/internal/model/dto"
	"SolGuard/internal/repository"
	pkgerrors "SolGuard/pkg/errors"
	"SolGuard/pkg/logger"
	"SolGuard/pkg/snowflake"
	"SolGuard/pkg/token"
)

var (
	authService *AuthService
	authOnce    sync.Once
)

func GetAuthService() *AuthService {
	authOnce.Do(func() {
		authService = &AuthService{
			users: repository.Users(),
		}
	})

	return authService
}

type AuthService struct {
	users *repository.UserRepo
}

// ExchangeDevice 移动端无账号体系：设备首次调用时创建用户，之后同一
// 设备标识总是换取同一个用户的 token。
func (s *AuthService) ExchangeDevice(ctx context.Context, req *dto.ExchangeDeviceRequest) (*dto.TokenPairResponse, error) {
	if req.DeviceID == "" || len(req.DeviceID) > 128 {
		return nil, pkgerrors.InvalidDevice
	}

	isNew := false
	user, err := s.users.GetByDeviceID(ctx, req.DeviceID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user, err = s.createUser(ctx, req)
		if err != nil {
			return nil, err
		}
		isNew = true
	} else if err != nil {
		return nil, fmt.Errorf("failed to query user by device: %w", err)
	}

	if user.Status == model.UserStatusDisabled {
		return nil, pkgerrors.Unauthorized
	}

	userID := strconv.FormatInt(user.PublicID, 10)
	accessToken, refreshToken, expiresIn, err := token.GenerateTokenPair(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token pair: %w", err)
	}

	logger.Logger.Info("device token exchanged",
		zap.Int64("user_id", user.PublicID),
		zap.Bool("is_new_user", isNew),
	)

	return &dto.TokenPairResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
		UserID:       userID,
		IsNewUser:    isNew,
	}, nil
}

func (s *AuthService) createUser(ctx context.Context, req *dto.ExchangeDeviceRequest) (*model.User, error) {
	publicID, err := snowflake.NextID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user id: %w", err)
	}

	timezone := req.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	user := &model.User{
		PublicID: publicID,
		DeviceID: req.DeviceID,
		Nickname: req.Nickname,
		Status:   model.UserStatusOnboarding,
		Timezone: timezone,
	}

	if err := s.users.Create(ctx, user); err != nil {
		// 并发换取同一设备的 token 时第二个 Create 会撞唯一索引，回读即可
		if existing, getErr := s.users.GetByDeviceID(ctx, req.DeviceID); getErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// RefreshToken 刷新 token 对
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenPairResponse, error) {
	uid, err := token.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, pkgerrors.Unauthorized
	}

	publicID, err := strconv.ParseInt(uid, 10, 64)
	if err != nil {
		return nil, pkgerrors.InvalidUserID
	}

	user, err := s.users.GetByPublicID(ctx, publicID)
	if err != nil {
		return nil, pkgerrors.Unauthorized
	}
	if user.Status == model.UserStatusDisabled {
		return nil, pkgerrors.Unauthorized
	}

	accessToken, newRefreshToken, expiresIn, err := token.GenerateTokenPair(uid)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token pair: %w", err)
	}

	return &dto.TokenPairResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		ExpiresIn:    expiresIn,
		UserID:       uid,
	}, nil
}
