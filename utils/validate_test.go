package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePhone(t *testing.T) {
	valid := []string{
		"13812345678",
		"+8613812345678",
		"+14155552671",
		"1381234", // 最短 7 位
	}
	for _, phone := range valid {
		assert.True(t, ValidatePhone(phone), "phone %q should be valid", phone)
	}

	invalid := []string{
		"",
		"123456",            // 太短
		"1234567890123456",  // 太长
		"138-1234-5678",     // 带分隔符
		"abc12345678",
		"+",
	}
	for _, phone := range invalid {
		assert.False(t, ValidatePhone(phone), "phone %q should be invalid", phone)
	}
}

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail(""), "email is optional")
	assert.True(t, ValidateEmail("a@b.co"))
	assert.True(t, ValidateEmail("user.name+tag@example.com"))

	assert.False(t, ValidateEmail("not-an-email"))
	assert.False(t, ValidateEmail("a@b"))
	assert.False(t, ValidateEmail("@example.com"))
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "138******78", MaskPhone("13812345678"))
	assert.Equal(t, "+86*********78", MaskPhone("+8613812345678"))
	assert.Equal(t, "****", MaskPhone("12345"))
	assert.Equal(t, "****", MaskPhone(""))
}
