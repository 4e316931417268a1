package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"SolGuard/internal/model/dto"
	"SolGuard/internal/service"
	"SolGuard/pkg/response"
)

// ListSchedules 日程列表
// GET /v1/schedules
func ListSchedules(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUserID(ctx, c)
	if !ok {
		return
	}

	items, err := service.GetScheduleService().List(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, items)
}

// CreateSchedule 创建打卡日程
// POST /v1/schedules
func CreateSchedule(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUserID(ctx, c)
	if !ok {
		return
	}

	var req dto.CreateScheduleRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	item, err := service.GetScheduleService().Create(ctx, userID, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, item)
}

// GetSchedule 日程详情
// GET /v1/schedules/:schedule_id
func GetSchedule(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUserID(ctx, c)
	if !ok {
		return
	}
	scheduleID, ok := pathID(ctx, c, "schedule_id")
	if !ok {
		return
	}

	item, err := service.GetScheduleService().Get(ctx, userID, scheduleID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, item)
}

// UpdateSchedule 修改打卡日程
// PATCH /v1/schedules/:schedule_id
func UpdateSchedule(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUserID(ctx, c)
	if !ok {
		return
	}
	scheduleID, ok := pathID(ctx, c, "schedule_id")
	if !ok {
		return
	}

	var req dto.UpdateScheduleRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	item, err := service.GetScheduleService().Update(ctx, userID, scheduleID, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, item)
}

// DeleteSchedule 删除打卡日程
// DELETE /v1/schedules/:schedule_id
func DeleteSchedule(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUserID(ctx, c)
	if !ok {
		return
	}
	scheduleID, ok := pathID(ctx, c, "schedule_id")
	if !ok {
		return
	}

	if err := service.GetScheduleService().Delete(ctx, userID, scheduleID); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.NoContent(ctx, c)
}

// GetNextOccurrence 下一次触发时刻，客户端 "Next: ..." 展示用
// GET /v1/schedules/:schedule_id/next
func GetNextOccurrence(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUserID(ctx, c)
	if !ok {
		return
	}
	scheduleID, ok := pathID(ctx, c, "schedule_id")
	if !ok {
		return
	}

	result, err := service.GetScheduleService().NextOccurrence(ctx, userID, scheduleID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}
