package model

// EscalationMessage 漏打卡升级消息
// 评估器在窗口 open→missed 后投递，worker 消费后给联系人发短信
type EscalationMessage struct {
	MessageID  string `json:"message_id"`
	WindowID   int64  `json:"window_id"`
	RuleID     int64  `json:"rule_id"`
	RuleLabel  string `json:"rule_label"`
	UserID     int64  `json:"user_id"`
	OpensAt    string `json:"opens_at"`    // RFC3339
	DeadlineAt string `json:"deadline_at"` // RFC3339
}

// CheckInReminderMessage 打卡提醒消息（延迟投递到截止前）
type CheckInReminderMessage struct {
	MessageID    string `json:"message_id"`
	WindowID     int64  `json:"window_id"`
	RuleID       int64  `json:"rule_id"`
	RuleLabel    string `json:"rule_label"`
	UserID       int64  `json:"user_id"`
	DeadlineAt   string `json:"deadline_at"` // RFC3339
	DelaySeconds int    `json:"delay_seconds"`
}
