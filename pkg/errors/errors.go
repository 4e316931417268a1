package errors

import "errors"

func (d Definition) Error() string {
	return d.Message
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

// 认证相关错误。
var (
	Unauthorized  = Definition{Code: "UNAUTHORIZED", Message: "Unauthorized"}
	InvalidUserID = Definition{Code: "INVALID_USER_ID", Message: "Invalid user ID format"}
	InvalidDevice = Definition{Code: "INVALID_DEVICE_ID", Message: "Invalid device ID"}
	TooManyRequests = Definition{Code: "TOO_MANY_REQUESTS", Message: "Too many requests"}
)

// 日程（打卡规则）模块错误。
var (
	InvalidRule          = Definition{Code: "INVALID_RULE", Message: "Invalid recurrence rule"}
	RuleNotFound         = Definition{Code: "RULE_NOT_FOUND", Message: "Schedule not found"}
	ScheduleLimitReached = Definition{Code: "SCHEDULE_LIMIT_REACHED", Message: "Schedule limit reached"}
)

// 联系人模块错误。
var (
	ContactNotFound     = Definition{Code: "CONTACT_NOT_FOUND", Message: "Contact not found"}
	ContactLimitReached = Definition{Code: "CONTACT_LIMIT_REACHED", Message: "Contact limit reached"}
	ContactNameRequired = Definition{Code: "CONTACT_NAME_REQUIRED", Message: "Contact name is required"}
	InvalidPhone        = Definition{Code: "INVALID_PHONE", Message: "Invalid phone number"}
)

// 用户设置模块错误。
var (
	InvalidTimezone = Definition{Code: "INVALID_TIMEZONE", Message: "Invalid IANA timezone"}
	InvalidEmail    = Definition{Code: "INVALID_EMAIL", Message: "Invalid email address"}
)

// 平安打卡模块错误。
var (
	StoreUnavailable = Definition{Code: "STORE_UNAVAILABLE", Message: "Persistence layer unavailable"}
	DispatchFailed   = Definition{Code: "DISPATCH_FAILED", Message: "Alert dispatch failed"}
)

// token 相关哨兵错误（非业务错误码，内部传播用）。
var (
	ErrTokenGeneratorNotInitialized = errors.New("token generator not initialized")
	ErrUnexpectedSigningMethod      = errors.New("unexpected signing method")
	ErrInvalidToken                 = errors.New("invalid token")
	ErrInvalidTokenClaims           = errors.New("invalid token claims")
	ErrInvalidTokenType             = errors.New("invalid token type")
	ErrUserNotFound                 = errors.New("user not found")
)

// SkipMessageError 消费者幂等跳过：消息已处理，ack 而不重投。
type SkipMessageError struct {
	Reason string
}

func (e *SkipMessageError) Error() string {
	return e.Reason
}

// Lookup 提供错误码查询能力。
var Lookup = map[string]Definition{
	Unauthorized.Code:         Unauthorized,
	InvalidUserID.Code:        InvalidUserID,
	InvalidDevice.Code:        InvalidDevice,
	TooManyRequests.Code:      TooManyRequests,
	InvalidRule.Code:          InvalidRule,
	RuleNotFound.Code:         RuleNotFound,
	ScheduleLimitReached.Code: ScheduleLimitReached,
	ContactNotFound.Code:      ContactNotFound,
	ContactLimitReached.Code:  ContactLimitReached,
	ContactNameRequired.Code:  ContactNameRequired,
	InvalidPhone.Code:         InvalidPhone,
	InvalidTimezone.Code:      InvalidTimezone,
	InvalidEmail.Code:         InvalidEmail,
	StoreUnavailable.Code:     StoreUnavailable,
	DispatchFailed.Code:       DispatchFailed,
}

// Get 根据错误码返回 Definition，若不存在则返回空 Definition。
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}
