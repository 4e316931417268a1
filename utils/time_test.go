package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		input  string
		hour   int
		minute int
		ok     bool
	}{
		{"08:00", 8, 0, true},
		{"00:00", 0, 0, true},
		{"23:59", 23, 59, true},
		{"7:05", 7, 5, true}, // time.Parse 对未补零的小时是宽容的
		{"24:00", 0, 0, false},
		{"12:60", 0, 0, false},
		{"12-30", 0, 0, false},
		{"", 0, 0, false},
		{"abc", 0, 0, false},
	}

	for _, tt := range tests {
		hour, minute, err := ParseTimeOfDay(tt.input)
		if !tt.ok {
			assert.Error(t, err, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.hour, hour)
		assert.Equal(t, tt.minute, minute)
	}
}

func TestAtTimeOfDay(t *testing.T) {
	shanghai, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)

	date := time.Date(2026, 8, 31, 15, 30, 45, 123, shanghai)

	got, err := AtTimeOfDay("08:05", date)
	require.NoError(t, err)

	assert.Equal(t, 2026, got.Year())
	assert.Equal(t, time.August, got.Month())
	assert.Equal(t, 31, got.Day())
	assert.Equal(t, 8, got.Hour())
	assert.Equal(t, 5, got.Minute())
	assert.Equal(t, 0, got.Second())
	assert.Equal(t, shanghai, got.Location())
}

func TestAtTimeOfDayInvalid(t *testing.T) {
	date := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	_, err := AtTimeOfDay("25:00", date)
	assert.Error(t, err)
}
