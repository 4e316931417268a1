package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"SolGuard/internal/model/dto"
	"SolGuard/internal/service"
	"SolGuard/pkg/response"
)

// GetUserSettings 用户设置
// GET /v1/users/me/settings
func GetUserSettings(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUserID(ctx, c)
	if !ok {
		return
	}

	settings, err := service.GetUserService().GetSettings(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, settings)
}

// UpdateUserSettings 修改用户设置
// PUT /v1/users/me/settings
func UpdateUserSettings(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUserID(ctx, c)
	if !ok {
		return
	}

	var req dto.UpdateUserSettingsRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	settings, err := service.GetUserService().UpdateSettings(ctx, userID, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, settings)
}
