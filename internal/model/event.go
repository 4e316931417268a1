package model

import "time"

// CheckInEventStatus 打卡账目状态枚举
type CheckInEventStatus string

const (
	CheckInEventCheckedIn CheckInEventStatus = "checked_in" // 用户完成打卡
	CheckInEventMissed    CheckInEventStatus = "missed"     // 窗口超时未打卡
	CheckInEventAlertSent CheckInEventStatus = "alert_sent" // 已尝试通知联系人
)

// CheckInEvent 打卡账本（append-only），只追加，除整库重置外不改不删
type CheckInEvent struct {
	BaseModel
	PublicID   int64              `gorm:"uniqueIndex;not null" json:"public_id"`
	UserID     int64              `gorm:"not null;index:idx_events_user_time" json:"user_id"`
	RuleID     *int64             `gorm:"index:idx_events_rule" json:"rule_id,omitempty"`
	WindowID   *int64             `gorm:"index:idx_events_window" json:"window_id,omitempty"`
	Status     CheckInEventStatus `gorm:"type:varchar(16);not null;index:idx_events_status" json:"status"`
	OccurredAt time.Time          `gorm:"type:timestamptz;not null;index:idx_events_user_time" json:"occurred_at"`
}

// TableName 指定表名
func (CheckInEvent) TableName() string {
	return "check_in_events"
}
