package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Weekdays 周几集合（0=周日..6=周六），JSONB 存储
type Weekdays []int

func (w Weekdays) Value() (driver.Value, error) {
	if w == nil {
		return "[]", nil
	}
	return json.Marshal(w)
}

func (w *Weekdays) Scan(value interface{}) error {
	if value == nil {
		*w = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal weekdays value")
	}
	return json.Unmarshal(bytes, w)
}

// Contains 判断某个 weekday 是否在集合内
func (w Weekdays) Contains(day time.Weekday) bool {
	for _, d := range w {
		if time.Weekday(d) == day {
			return true
		}
	}
	return false
}

// Schedule 打卡日程（周重复规则）模型
// NextOpenAt 是调度器的持久化状态：下一个窗口的打开时刻。
// 创建/修改时由 service 计算，窗口打开或关闭时由评估器推进。
type Schedule struct {
	BaseModel
	PublicID     int64    `gorm:"uniqueIndex;not null" json:"public_id"`
	UserID       int64    `gorm:"not null;index:idx_schedules_user" json:"user_id"`
	Label        string   `gorm:"type:varchar(64);not null;default:''" json:"label"`
	TimeOfDay    string   `gorm:"type:varchar(5);not null" json:"time_of_day"` // "HH:MM"
	Weekdays     Weekdays `gorm:"type:jsonb;not null;default:'[]'" json:"weekdays"`
	Enabled      bool     `gorm:"not null;default:true;index:idx_schedules_enabled" json:"enabled"`
	GraceMinutes int      `gorm:"type:smallint;not null;default:30" json:"grace_minutes"`

	NextOpenAt *time.Time `gorm:"type:timestamptz;index:idx_schedules_next_open" json:"next_open_at,omitempty"`
}

// TableName 指定表名
func (Schedule) TableName() string {
	return "schedules"
}

// Grace 宽限时长
func (s *Schedule) Grace() time.Duration {
	return time.Duration(s.GraceMinutes) * time.Minute
}
