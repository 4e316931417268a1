package utils

import (
	"errors"
	"time"
)

var errInvalidTimeOfDay = errors.New("invalid time of day, expected HH:MM")

// ParseTimeOfDay 解析 "HH:MM" 格式的时间字符串
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, errInvalidTimeOfDay
	}
	return t.Hour(), t.Minute(), nil
}

// AtTimeOfDay 将 "HH:MM" 应用到指定日期，保留该日期的时区
func AtTimeOfDay(s string, date time.Time) (time.Time, error) {
	hour, minute, err := ParseTimeOfDay(s)
	if err != nil {
		return date, err
	}

	return time.Date(
		date.Year(),
		date.Month(),
		date.Day(),
		hour,
		minute,
		0,
		0,
		date.Location(),
	), nil
}
