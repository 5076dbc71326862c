package model

import (
	"time"
)

type ViewHistory struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	UserID      int64     `gorm:"not null;uniqueIndex:idx_view_user_content" json:"user_id"`
	ContentID   int64     `gorm:"not null;uniqueIndex:idx_view_user_content" json:"content_id"`
	ContentType string    `gorm:"size:30;not null;uniqueIndex:idx_view_user_content" json:"content_type"`
	ViewCount   int       `gorm:"not null;default:0" json:"view_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (ViewHistory) TableName() string {
	return "view_histories"
}
