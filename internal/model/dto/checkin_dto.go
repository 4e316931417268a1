package dto

import "time"

// CompleteCheckInResponse "我很好"打卡响应
type CompleteCheckInResponse struct {
	CheckedInAt      time.Time `json:"checked_in_at"`
	SatisfiedWindows []string  `json:"satisfied_windows"` // 本次打卡满足的窗口
	NextCheckInDue   *time.Time `json:"next_check_in_due,omitempty"`
}

// TodayCheckInResponse 当天打卡状态
type TodayCheckInResponse struct {
	CheckedIn      bool       `json:"checked_in"`
	LastCheckInAt  *time.Time `json:"last_check_in_at,omitempty"`
	OpenWindows    []WindowItem `json:"open_windows"`
	NextCheckInDue *time.Time `json:"next_check_in_due,omitempty"`
}

// WindowItem 窗口项
type WindowItem struct {
	WindowID   string    `json:"window_id"`
	ScheduleID string    `json:"schedule_id"`
	OpensAt    time.Time `json:"opens_at"`
	DeadlineAt time.Time `json:"deadline_at"`
	State      string    `json:"state"`
}

// CheckInHistoryItem 打卡历史项（账本记录）
type CheckInHistoryItem struct {
	EventID    string    `json:"event_id"`
	Status     string    `json:"status"`
	ScheduleID *string   `json:"schedule_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
