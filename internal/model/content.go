package model

import (
	"time"
)

type Visibility string

const (
	VisibilityPublic      Visibility = "public"
	VisibilitySubscribers Visibility = "subscribers"
)

// Content 受付费墙控制的内容，由内容系统维护，这里只读（浏览数除外）
type Content struct {
	ID            int64      `gorm:"primaryKey" json:"id"`
	ContentType   string     `gorm:"size:30;not null;index" json:"content_type"` // article, magazine, ...
	Title         string     `gorm:"size:300;not null" json:"title"`
	Body          string     `gorm:"type:longtext" json:"body"`
	Visibility    Visibility `gorm:"size:20;not null;default:public" json:"visibility"`
	FreeViewLimit int        `gorm:"not null;default:0" json:"free_view_limit"`
	ViewCount     int        `gorm:"default:0" json:"view_count"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (Content) TableName() string {
	return "contents"
}
