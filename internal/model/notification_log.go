package model

import (
	"time"
)

type NotificationKind string

const (
	NotificationExpiryReminder NotificationKind = "expiry_reminder"
	NotificationPostExpiry     NotificationKind = "post_expiry"
)

// NotificationLog 定时通知的发送记录，(payment_id, kind, day) 唯一，防止重复发送
type NotificationLog struct {
	ID        int64            `gorm:"primaryKey" json:"id"`
	PaymentID int64            `gorm:"not null;uniqueIndex:idx_notification_once" json:"payment_id"`
	Kind      NotificationKind `gorm:"size:30;not null;uniqueIndex:idx_notification_once" json:"kind"`
	Day       string           `gorm:"size:10;not null;uniqueIndex:idx_notification_once" json:"day"` // 2006-01-02
	CreatedAt time.Time        `json:"created_at"`
}

func (NotificationLog) TableName() string {
	return "notification_logs"
}
