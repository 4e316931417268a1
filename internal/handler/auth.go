package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"SolGuard/internal/model/dto"
	"SolGuard/internal/service"
	"SolGuard/pkg/response"
)

// ExchangeDeviceToken 设备标识换取 token
// POST /v1/auth/device/exchange
func ExchangeDeviceToken(ctx context.Context, c *app.RequestContext) {
	var req dto.ExchangeDeviceRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := service.GetAuthService().ExchangeDevice(ctx, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// RefreshToken 刷新访问令牌
// POST /v1/auth/token/refresh
func RefreshToken(ctx context.Context, c *app.RequestContext) {
	var req dto.RefreshTokenRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := service.GetAuthService().RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}
