package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/logger"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/response"
	"github.com/tacss32/dalitmurasu-sub000/internal/service"
)

// writeError 把服务层错误映射为响应码
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrLimitReached):
		response.LimitError(c, service.ErrLimitReached.Error())
	case errors.Is(err, service.ErrPendingOrder):
		response.PendingOrderError(c, service.ErrPendingOrder.Error())
	case errors.Is(err, service.ErrRaceConflict):
		response.ConflictError(c, service.ErrRaceConflict.Error())
	case errors.Is(err, service.ErrSignatureMismatch):
		response.SignatureError(c, service.ErrSignatureMismatch.Error())
	case errors.Is(err, service.ErrGatewayUnavailable):
		response.GatewayError(c, service.ErrGatewayUnavailable.Error())
	case errors.Is(err, service.ErrInvalidTransition):
		response.TransitionError(c, service.ErrInvalidTransition.Error())
	case errors.Is(err, service.ErrPlanNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrContentNotFound),
		errors.Is(err, service.ErrRecordNotFound):
		response.NotFoundError(c, rootMessage(err))
	case errors.Is(err, service.ErrInvalidPlan),
		errors.Is(err, service.ErrInvalidFilter):
		response.ParamError(c, err.Error())
	default:
		logger.FromContext(c.Request.Context()).Error("request failed", "path", c.FullPath(), "error", err)
		response.ServerError(c, "")
	}
}

// rootMessage 返回被包装的哨兵错误本身的消息
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
