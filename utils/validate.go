package utils

import (
	"regexp"
	"strings"
)

var (
	phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

func ValidatePhone(phone string) bool {
	return phonePattern.MatchString(strings.ReplaceAll(phone, " ", ""))
}

func ValidateEmail(email string) bool {
	if email == "" {
		return true // email 是可选字段
	}
	return emailPattern.MatchString(email)
}

// MaskPhone 脱敏手机号，保留前三位和后两位
func MaskPhone(phone string) string {
	if len(phone) < 6 {
		return "****"
	}
	return phone[:3] + strings.Repeat("*", len(phone)-5) + phone[len(phone)-2:]
}
