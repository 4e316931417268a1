package dto

// UserSettings 用户设置
type UserSettings struct {
	Nickname    string `json:"nickname"`
	Timezone    string `json:"timezone"`
	Premium     bool   `json:"premium"`
	PhoneMasked string `json:"phone_masked,omitempty"` // 本人手机号（脱敏），提醒短信用
}

// UpdateUserSettingsRequest 修改用户设置请求，nil 字段不变
type UpdateUserSettingsRequest struct {
	Nickname *string `json:"nickname,omitempty"`
	Timezone *string `json:"timezone,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Premium  *bool   `json:"premium,omitempty"`
}
