package dto

import "time"

// CreateContactRequest 创建联系人请求
type CreateContactRequest struct {
	DisplayName  string `json:"display_name" binding:"required"`
	Relationship string `json:"relationship"`
	Phone        string `json:"phone" binding:"required"`
	Email        string `json:"email"`
	IsPrimary    bool   `json:"is_primary"`
}

// UpdateContactRequest 修改联系人请求，nil 字段不变
type UpdateContactRequest struct {
	DisplayName  *string `json:"display_name,omitempty"`
	Relationship *string `json:"relationship,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	Email        *string `json:"email,omitempty"`
}

// ContactItem 紧急联系人项（手机号脱敏返回）
type ContactItem struct {
	ContactID    string    `json:"contact_id"`
	DisplayName  string    `json:"display_name"`
	Relationship string    `json:"relationship"`
	PhoneMasked  string    `json:"phone_masked"`
	Email        string    `json:"email,omitempty"`
	IsPrimary    bool      `json:"is_primary"`
	CreatedAt    time.Time `json:"created_at"`
}
