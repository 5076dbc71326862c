package model

import (
	"time"

	"gorm.io/gorm"
)

// Plan 订阅套餐，价格以最小货币单位（如 paise）存储
type Plan struct {
	ID             int64          `gorm:"primaryKey" json:"id"`
	Title          string         `gorm:"size:200;not null" json:"title"`
	Price          int64          `gorm:"not null" json:"price"`
	DurationInDays int            `gorm:"not null" json:"duration_in_days"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Plan) TableName() string {
	return "plans"
}

// EndDate 从 start 起按自然日累加套餐时长
func (p *Plan) EndDate(start time.Time) time.Time {
	return start.AddDate(0, 0, p.DurationInDays)
}
