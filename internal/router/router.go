package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"SolGuard/internal/handler"
	"SolGuard/internal/middleware"
)

func Register(h *server.Hertz) {

	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.CORSMiddleware())
	h.Use(middleware.OpenTelemetryMiddleware())

	v1 := h.Group("/v1")

	// 认证相关路由
	auth := v1.Group("/auth")
	auth.Use(middleware.AuthRateLimitMiddleware())
	{
		auth.POST("/device/exchange", handler.ExchangeDeviceToken)
		auth.POST("/token/refresh", handler.RefreshToken)
	}

	// 用户设置路由
	users := v1.Group("/users")
	users.Use(middleware.AuthMiddleware())
	{
		users.GET("/me/settings", handler.GetUserSettings)
		users.PUT("/me/settings", handler.UpdateUserSettings)
	}

	// 打卡日程路由
	schedules := v1.Group("/schedules")
	schedules.Use(middleware.AuthMiddleware())
	{
		schedules.GET("", handler.ListSchedules)
		schedules.POST("", handler.CreateSchedule)
		schedules.GET("/:schedule_id", handler.GetSchedule)
		schedules.PATCH("/:schedule_id", handler.UpdateSchedule)
		schedules.DELETE("/:schedule_id", handler.DeleteSchedule)
		schedules.GET("/:schedule_id/next", handler.GetNextOccurrence)
	}

	// 紧急联系人路由
	contacts := v1.Group("/contacts")
	contacts.Use(middleware.AuthMiddleware())
	{
		contacts.GET("", handler.ListContacts)
		contacts.POST("", handler.CreateContact)
		contacts.PATCH("/:contact_id", handler.UpdateContact)
		contacts.DELETE("/:contact_id", handler.DeleteContact)
		contacts.POST("/:contact_id/primary", handler.SetPrimaryContact)
	}

	// 平安打卡路由
	checkIns := v1.Group("/check-ins")
	checkIns.Use(middleware.AuthMiddleware())
	{
		checkIns.GET("/today", handler.GetTodayCheckIn)
		checkIns.POST("/complete", middleware.CheckInRateLimitMiddleware(), handler.CompleteCheckIn)
		checkIns.GET("/history", handler.GetCheckInHistory)
	}
}
