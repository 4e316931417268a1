package dto

// ExchangeDeviceRequest 设备标识换取 token 请求
type ExchangeDeviceRequest struct {
	DeviceID string `json:"device_id" binding:"required"`
	Nickname string `json:"nickname"`
	Timezone string `json:"timezone"`
}

// TokenPairResponse token 响应
type TokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	UserID       string `json:"user_id"`
	IsNewUser    bool   `json:"is_new_user"`
}

// RefreshTokenRequest 刷新 token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}
