package model

import "time"

// WindowState 打卡窗口状态枚举
type WindowState string

const (
	WindowStateOpen      WindowState = "open"      // 等待打卡
	WindowStateSatisfied WindowState = "satisfied" // 窗口内完成打卡
	WindowStateMissed    WindowState = "missed"    // 超时未打卡
	WindowStateEscalated WindowState = "escalated" // 已触发联系人告警
)

// Terminal 是否为终态（satisfied / escalated 不再迁移）
func (s WindowState) Terminal() bool {
	return s == WindowStateSatisfied || s == WindowStateEscalated
}

// CheckInWindow 打卡窗口模型
// 不变量：每个日程同一时刻至多一个 open 窗口。
// DeadlineAt = OpensAt + 日程宽限期。
type CheckInWindow struct {
	BaseModel
	RuleID     int64       `gorm:"not null;index:idx_windows_rule_state" json:"rule_id"`
	UserID     int64       `gorm:"not null;index:idx_windows_user" json:"user_id"`
	OpensAt    time.Time   `gorm:"type:timestamptz;not null" json:"opens_at"`
	DeadlineAt time.Time   `gorm:"type:timestamptz;not null;index:idx_windows_deadline" json:"deadline_at"`
	State      WindowState `gorm:"type:varchar(16);not null;default:'open';index:idx_windows_rule_state" json:"state"`

	SatisfiedAt *time.Time `gorm:"type:timestamptz" json:"satisfied_at,omitempty"`
	EscalatedAt *time.Time `gorm:"type:timestamptz" json:"escalated_at,omitempty"`
}

// TableName 指定表名
func (CheckInWindow) TableName() string {
	return "check_in_windows"
}
