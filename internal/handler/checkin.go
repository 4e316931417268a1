package handler

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"

	"SolGuard/internal/service"
	"SolGuard/pkg/response"
)

// CompleteCheckIn "我很好"打卡
// POST /v1/check-ins/complete
func CompleteCheckIn(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUserID(ctx, c)
	if !ok {
		return
	}

	result, err := service.GetCheckInService().Complete(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// GetTodayCheckIn 查询当天打卡状态，客户端每次进入首页时加载
// GET /v1/check-ins/today
func GetTodayCheckIn(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUserID(ctx, c)
	if !ok {
		return
	}

	result, err := service.GetCheckInService().Today(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// GetCheckInHistory 分页查询打卡账本
// GET /v1/check-ins/history?limit=20&offset=0
func GetCheckInHistory(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUserID(ctx, c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, err := service.GetCheckInService().History(ctx, userID, limit, offset)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.SuccessWithMeta(ctx, c, items, map[string]interface{}{
		"limit":  limit,
		"offset": offset,
	})
}
