package model

// UserStatus 用户状态枚举
type UserStatus string

const (
	UserStatusOnboarding UserStatus = "onboarding" // 刚换取 token，尚未配置联系人
	UserStatusActive     UserStatus = "active"     // 正常使用
	UserStatusDisabled   UserStatus = "disabled"   // 已停用
)

// User 用户模型
// 移动端没有账号体系，用设备标识换取 token，服务端以 User 聚合该设备的数据
type User struct {
	BaseModel
	PublicID int64      `gorm:"uniqueIndex;not null" json:"public_id"`
	DeviceID string     `gorm:"uniqueIndex;type:varchar(128);not null" json:"device_id"`
	Nickname string     `gorm:"type:varchar(64);not null;default:''" json:"nickname"`
	Status   UserStatus `gorm:"type:varchar(16);not null;default:'onboarding';index:idx_users_status" json:"status"`

	// 自定义设置部分
	Timezone string `gorm:"type:varchar(64);not null;default:'UTC'" json:"timezone"`
	Premium  bool   `gorm:"not null;default:false" json:"premium"`

	// 用户本人手机号（可选），用于截止前提醒短信。与联系人手机号同样加密存储。
	PhoneCipher string `gorm:"type:text;not null;default:''" json:"-"`
	PhoneHash   string `gorm:"type:char(64);not null;default:''" json:"-"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
