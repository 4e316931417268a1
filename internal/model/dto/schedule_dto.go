package dto

import "time"

// CreateScheduleRequest 创建打卡日程请求
type CreateScheduleRequest struct {
	Label        string `json:"label"`
	TimeOfDay    string `json:"time_of_day" binding:"required"` // "HH:MM"
	Weekdays     []int  `json:"weekdays" binding:"required"`    // 0=Sun..6=Sat
	GraceMinutes *int   `json:"grace_minutes,omitempty"`
	Enabled      *bool  `json:"enabled,omitempty"`
}

// UpdateScheduleRequest 修改打卡日程请求，nil 字段不变
type UpdateScheduleRequest struct {
	Label        *string `json:"label,omitempty"`
	TimeOfDay    *string `json:"time_of_day,omitempty"`
	Weekdays     *[]int  `json:"weekdays,omitempty"`
	GraceMinutes *int    `json:"grace_minutes,omitempty"`
	Enabled      *bool   `json:"enabled,omitempty"`
}

// ScheduleItem 日程项
type ScheduleItem struct {
	ScheduleID   string     `json:"schedule_id"`
	Label        string     `json:"label"`
	TimeOfDay    string     `json:"time_of_day"`
	Weekdays     []int      `json:"weekdays"`
	GraceMinutes int        `json:"grace_minutes"`
	Enabled      bool       `json:"enabled"`
	NextOpenAt   *time.Time `json:"next_open_at,omitempty"`
}

// NextOccurrenceResponse "Next: ..." 展示用
type NextOccurrenceResponse struct {
	ScheduleID     string    `json:"schedule_id"`
	NextOccurrence time.Time `json:"next_occurrence"`
}
