package model

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel 各表的公共字段。内部自增 ID 只在库内做关联，对外一律
// 暴露各表自己的 snowflake public_id。
type BaseModel struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}
