package model

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// SubscriptionStatus 订阅支付记录状态
type SubscriptionStatus string

const (
	StatusPending  SubscriptionStatus = "pending"
	StatusSuccess  SubscriptionStatus = "success"
	StatusFailed   SubscriptionStatus = "failed"
	StatusCanceled SubscriptionStatus = "canceled"
)

// 允许的状态流转
var statusTransitions = map[SubscriptionStatus][]SubscriptionStatus{
	StatusPending: {StatusSuccess, StatusFailed},
	StatusSuccess: {StatusCanceled},
}

// ParseStatus 解析状态字符串，只接受已定义的四种状态
func ParseStatus(s string) (SubscriptionStatus, error) {
	switch st := SubscriptionStatus(s); st {
	case StatusPending, StatusSuccess, StatusFailed, StatusCanceled:
		return st, nil
	}
	return "", fmt.Errorf("unknown subscription status %q", s)
}

// CanTransitionTo 判断是否允许从当前状态流转到 next
func (s SubscriptionStatus) CanTransitionTo(next SubscriptionStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal failed 与 canceled 为终态
func (s SubscriptionStatus) IsTerminal() bool {
	return len(statusTransitions[s]) == 0
}

// SubscriptionPayment 订阅支付记录（账本）
type SubscriptionPayment struct {
	ID               int64              `gorm:"primaryKey" json:"id"`
	UserID           int64              `gorm:"not null;index" json:"user_id"`
	PlanID           int64              `gorm:"not null;index" json:"plan_id"`
	Amount           int64              `gorm:"not null" json:"amount"`
	Currency         string             `gorm:"size:8;not null" json:"currency"`
	Status           SubscriptionStatus `gorm:"size:20;not null;default:pending;index" json:"status"`
	StartDate        time.Time          `gorm:"not null" json:"start_date"`
	EndDate          *time.Time         `gorm:"index" json:"end_date,omitempty"`
	GatewayOrderID   string             `gorm:"size:100;not null;uniqueIndex" json:"gateway_order_id"`
	GatewayPaymentID *string            `gorm:"size:100" json:"gateway_payment_id,omitempty"`
	GatewaySignature *string            `gorm:"size:255" json:"-"`
	CreatedAt        time.Time          `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`

	// 关联
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Plan *Plan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
}

func (SubscriptionPayment) TableName() string {
	return "subscription_payments"
}

// IsActiveAt 是否在 t 时刻有效：支付成功且尚未到期
func (p *SubscriptionPayment) IsActiveAt(t time.Time) bool {
	return p.Status == StatusSuccess && p.EndDate != nil && p.EndDate.After(t)
}

// BeforeSave 时间统一以 UTC 存储
func (p *SubscriptionPayment) BeforeSave(tx *gorm.DB) error {
	p.StartDate = p.StartDate.UTC()
	if p.EndDate != nil {
		end := p.EndDate.UTC()
		p.EndDate = &end
	}
	if !p.CreatedAt.IsZero() {
		p.CreatedAt = p.CreatedAt.UTC()
	}
	return nil
}
