package model

import "time"

// Contact 紧急联系人模型
// 不变量：每个用户同一时刻至多一个 IsPrimary=true 的联系人，
// 由 service 在单事务内先清后设保证（单写者更新，而非存储层唯一约束）。
type Contact struct {
	BaseModel
	PublicID     int64  `gorm:"uniqueIndex;not null" json:"public_id"`
	UserID       int64  `gorm:"not null;index:idx_contacts_user" json:"user_id"`
	DisplayName  string `gorm:"type:varchar(64);not null" json:"display_name"`
	Relationship string `gorm:"type:varchar(32);not null;default:''" json:"relationship"`
	PhoneCipher  string `gorm:"type:text;not null" json:"-"` // AES-GCM 密文，base64
	PhoneHash    string `gorm:"type:char(64);not null" json:"-"`
	Email        string `gorm:"type:varchar(128);not null;default:''" json:"email"`
	IsPrimary    bool   `gorm:"not null;default:false;index:idx_contacts_primary" json:"is_primary"`
}

// TableName 指定表名
func (Contact) TableName() string {
	return "contacts"
}

// ContactAttemptStatus 通知尝试状态枚举
type ContactAttemptStatus string

const (
	ContactAttemptStatusPending ContactAttemptStatus = "pending" // 待处理
	ContactAttemptStatusSuccess ContactAttemptStatus = "success" // 成功
	ContactAttemptStatusFailed  ContactAttemptStatus = "failed"  // 失败
)

// ContactAttempt 告警投递尝试记录（诊断用，DispatchFailure 对用户不可见但在这里可查）
type ContactAttempt struct {
	BaseModel
	WindowID         int64                `gorm:"not null;index:idx_contact_attempts_window" json:"window_id"`
	ContactID        int64                `gorm:"not null;index:idx_contact_attempts_contact" json:"contact_id"`
	ContactPhoneHash string               `gorm:"type:char(64);not null" json:"contact_phone_hash"`
	Channel          string               `gorm:"type:varchar(16);not null;default:'sms'" json:"channel"`
	Status           ContactAttemptStatus `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`
	ResponseMessage  *string              `gorm:"type:varchar(255)" json:"response_message,omitempty"`
	AttemptedAt      time.Time            `gorm:"type:timestamptz;not null;default:now()" json:"attempted_at"`
}

// TableName 指定表名
func (ContactAttempt) TableName() string {
	return "contact_attempts"
}
