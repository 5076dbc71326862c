package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tacss32/dalitmurasu-sub000/internal/model"
)

var seq int64

func nextSeq() int64 {
	return atomic.AddInt64(&seq, 1)
}

// TestUser 创建测试用户
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	n := nextSeq()
	user := &model.User{
		Username: fmt.Sprintf("testuser_%d", n),
		Email:    fmt.Sprintf("test_%d@example.com", n),
		Role:     model.RoleUser,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithUsername 设置用户名
func WithUsername(username string) func(*model.User) {
	return func(u *model.User) {
		u.Username = username
	}
}

// WithEmail 设置邮箱
func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = email
	}
}

// WithAdmin 设置为管理员
func WithAdmin() func(*model.User) {
	return func(u *model.User) {
		u.Role = model.RoleAdmin
	}
}

// TestPlan 创建测试套餐
func TestPlan(t *testing.T, db *gorm.DB, price int64, days int) *model.Plan {
	t.Helper()

	plan := &model.Plan{
		Title:          fmt.Sprintf("Plan %d days", days),
		Price:          price,
		DurationInDays: days,
	}
	if err := db.Create(plan).Error; err != nil {
		t.Fatalf("Failed to create test plan: %v", err)
	}
	return plan
}

// TestPayment 创建测试订阅记录
func TestPayment(t *testing.T, db *gorm.DB, userID int64, plan *model.Plan, opts ...func(*model.SubscriptionPayment)) *model.SubscriptionPayment {
	t.Helper()

	payment := &model.SubscriptionPayment{
		UserID:         userID,
		PlanID:         plan.ID,
		Amount:         plan.Price,
		Currency:       "INR",
		Status:         model.StatusPending,
		StartDate:      time.Now(),
		GatewayOrderID: fmt.Sprintf("order_test_%d", nextSeq()),
	}

	for _, opt := range opts {
		opt(payment)
	}

	if err := db.Create(payment).Error; err != nil {
		t.Fatalf("Failed to create test payment: %v", err)
	}
	return payment
}

// WithActiveUntil 设置为支付成功且在 end 到期
func WithActiveUntil(start, end time.Time) func(*model.SubscriptionPayment) {
	return func(p *model.SubscriptionPayment) {
		p.Status = model.StatusSuccess
		p.StartDate = start
		p.EndDate = &end
	}
}

// WithPaymentStatus 设置状态
func WithPaymentStatus(status model.SubscriptionStatus) func(*model.SubscriptionPayment) {
	return func(p *model.SubscriptionPayment) {
		p.Status = status
	}
}

// WithOrderID 设置网关订单号
func WithOrderID(orderID string) func(*model.SubscriptionPayment) {
	return func(p *model.SubscriptionPayment) {
		p.GatewayOrderID = orderID
	}
}

// WithCreatedAt 设置创建时间
func WithCreatedAt(createdAt time.Time) func(*model.SubscriptionPayment) {
	return func(p *model.SubscriptionPayment) {
		p.CreatedAt = createdAt
	}
}

// TestContent 创建测试内容
func TestContent(t *testing.T, db *gorm.DB, visibility model.Visibility, freeViewLimit int, body string) *model.Content {
	t.Helper()

	content := &model.Content{
		ContentType:   "article",
		Title:         fmt.Sprintf("Article %d", nextSeq()),
		Body:          body,
		Visibility:    visibility,
		FreeViewLimit: freeViewLimit,
	}
	if err := db.Create(content).Error; err != nil {
		t.Fatalf("Failed to create test content: %v", err)
	}
	return content
}
