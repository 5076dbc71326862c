package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tacss32/dalitmurasu-sub000/internal/api/middleware"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/response"
	"github.com/tacss32/dalitmurasu-sub000/internal/service"
)

type ContentHandler struct {
	paywallService *service.PaywallService
}

func NewContentHandler(paywallService *service.PaywallService) *ContentHandler {
	return &ContentHandler{
		paywallService: paywallService,
	}
}

// Get 获取内容，未订阅时返回预览和提示信号
// GET /api/v1/contents/:id?words=N
func (h *ContentHandler) Get(c *gin.Context) {
	contentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的内容ID")
		return
	}

	words := 0
	if raw := c.Query("words"); raw != "" {
		words, err = strconv.Atoi(raw)
		if err != nil {
			response.ParamError(c, "words 必须是整数")
			return
		}
	}

	// 获取用户ID（可选）
	var userID *int64
	if id, ok := middleware.GetUserID(c); ok {
		userID = &id
	}

	result, err := h.paywallService.Access(c.Request.Context(), contentID, userID, words)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, result)
}
