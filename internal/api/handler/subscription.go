package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/tacss32/dalitmurasu-sub000/internal/api/middleware"
	"github.com/tacss32/dalitmurasu-sub000/internal/model/dto"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/response"
	"github.com/tacss32/dalitmurasu-sub000/internal/service"
)

type SubscriptionHandler struct {
	subscriptionService *service.SubscriptionService
	paymentService      *service.PaymentService
}

func NewSubscriptionHandler(subscriptionService *service.SubscriptionService, paymentService *service.PaymentService) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
		paymentService:      paymentService,
	}
}

// CreateOrder 创建订阅订单
// POST /api/v1/subscriptions/orders
func (h *SubscriptionHandler) CreateOrder(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.subscriptionService.CreateOrder(c.Request.Context(), userID, req.PlanID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, resp)
}

// Verify 支付完成后前端回传网关数据
// POST /api/v1/subscriptions/verify
func (h *SubscriptionHandler) Verify(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.paymentService.VerifyPayment(c.Request.Context(), userID, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, resp)
}

// Me 当前用户订阅概况
// GET /api/v1/subscriptions/me
func (h *SubscriptionHandler) Me(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	summary, err := h.subscriptionService.GetSummary(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, summary)
}
