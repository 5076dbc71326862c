package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tacss32/dalitmurasu-sub000/internal/model/dto"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/response"
	"github.com/tacss32/dalitmurasu-sub000/internal/service"
)

type AdminHandler struct {
	adminService *service.AdminService
}

func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
	}
}

// Activate 手动开通订阅
// POST /api/v1/admin/subscriptions/activate
func (h *AdminHandler) Activate(c *gin.Context) {
	var req dto.ActivateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	item, err := h.adminService.ActivateByEmail(c.Request.Context(), req.Email, req.PlanID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, item)
}

// Cancel 取消订阅
// POST /api/v1/admin/subscriptions/:id/cancel
func (h *AdminHandler) Cancel(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的记录ID")
		return
	}

	if err := h.adminService.Cancel(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, nil)
}

// Delete 删除订阅记录
// DELETE /api/v1/admin/subscriptions/:id
func (h *AdminHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的记录ID")
		return
	}

	if err := h.adminService.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, nil)
}

// List 订阅记录列表
// GET /api/v1/admin/subscriptions
func (h *AdminHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	filter := dto.SubscriptionFilter{
		Status:   c.Query("status"),
		From:     c.Query("from"),
		To:       c.Query("to"),
		Search:   c.Query("search"),
		Page:     page,
		PageSize: pageSize,
	}

	var err error
	if filter.MinAmount, err = optionalInt64(c, "min_amount"); err != nil {
		response.ParamError(c, "min_amount 必须是整数")
		return
	}
	if filter.MaxAmount, err = optionalInt64(c, "max_amount"); err != nil {
		response.ParamError(c, "max_amount 必须是整数")
		return
	}

	items, total, err := h.adminService.List(c.Request.Context(), &filter)
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessPage(c, total, filter.Page, filter.PageSize, items)
}

func optionalInt64(c *gin.Context, key string) (*int64, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
