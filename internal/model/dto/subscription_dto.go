package dto

// CreateOrderRequest 创建订阅订单请求
type CreateOrderRequest struct {
	PlanID int64 `json:"plan_id" binding:"required,min=1"`
}

// CreateOrderResponse 返回给前端驱动支付界面
type CreateOrderResponse struct {
	OrderID   string    `json:"order_id"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	KeyID     string    `json:"key_id"`
	Plan      *PlanInfo `json:"plan"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
}

// VerifyPaymentRequest 支付网关回调数据
type VerifyPaymentRequest struct {
	OrderID   string `json:"order_id" binding:"required"`
	PaymentID string `json:"payment_id" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

type VerifyPaymentResponse struct {
	PaymentID int64  `json:"payment_id"`
	Status    string `json:"status"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date,omitempty"`
}

// SubscriptionSummary 当前用户的订阅概况
type SubscriptionSummary struct {
	IsActive     bool   `json:"is_active"`
	Count        int    `json:"count"`
	LatestExpiry string `json:"latest_expiry,omitempty"`
}

// ActivateSubscriptionRequest 管理员手动开通
type ActivateSubscriptionRequest struct {
	Email  string `json:"email" binding:"required,email"`
	PlanID int64  `json:"plan_id" binding:"required,min=1"`
}

// SubscriptionFilter 管理后台订阅记录筛选条件
type SubscriptionFilter struct {
	Status    string
	MinAmount *int64
	MaxAmount *int64
	From      string // 2006-01-02
	To        string // 2006-01-02
	Search    string // 用户名或邮箱
	Page      int
	PageSize  int
}

// SubscriptionRecordItem 管理后台列表项
type SubscriptionRecordItem struct {
	ID               int64  `json:"id"`
	UserID           int64  `json:"user_id"`
	Username         string `json:"username,omitempty"`
	Email            string `json:"email,omitempty"`
	PlanID           int64  `json:"plan_id"`
	PlanTitle        string `json:"plan_title,omitempty"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date,omitempty"`
	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id,omitempty"`
	CreatedAt        string `json:"created_at"`
}
