package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 错误码定义
const (
	CodeSuccess            = 0
	CodeParamError         = 1000
	CodeAuthFailed         = 1001
	CodePermissionDenied   = 1002
	CodeResourceNotFound   = 1003
	CodeLimitReached       = 1004
	CodeConflict           = 1005
	CodeSignatureMismatch  = 1006
	CodeInvalidTransition  = 1007
	CodePendingOrder       = 1008
	CodeGatewayUnavailable = 5001
	CodeServerError        = 5000
)

// 错误码对应的默认消息
var codeMessages = map[int]string{
	CodeSuccess:            "success",
	CodeParamError:         "参数错误",
	CodeAuthFailed:         "认证失败",
	CodePermissionDenied:   "权限不足",
	CodeResourceNotFound:   "资源不存在",
	CodeLimitReached:       "有效订阅数量已达上限",
	CodeConflict:           "请求冲突，请稍后重试",
	CodeSignatureMismatch:  "支付签名校验失败",
	CodeInvalidTransition:  "订单状态不允许此操作",
	CodePendingOrder:       "存在未完成支付的订单",
	CodeGatewayUnavailable: "支付网关暂不可用",
	CodeServerError:        "服务器内部错误",
}

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// PageData 分页数据结构
type PageData struct {
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Items    interface{} `json:"items"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// SuccessPage 分页成功响应
func SuccessPage(c *gin.Context, total int64, page, pageSize int, items interface{}) {
	Success(c, PageData{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Items:    items,
	})
}

// Error 错误响应，message 为空时使用错误码默认消息
func Error(c *gin.Context, code int, message string) {
	if message == "" {
		message = codeMessages[code]
	}
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
		Data:    nil,
	})
}

func ParamError(c *gin.Context, message string)      { Error(c, CodeParamError, message) }
func AuthError(c *gin.Context, message string)       { Error(c, CodeAuthFailed, message) }
func PermissionError(c *gin.Context, message string) { Error(c, CodePermissionDenied, message) }
func NotFoundError(c *gin.Context, message string)   { Error(c, CodeResourceNotFound, message) }
func LimitError(c *gin.Context, message string)      { Error(c, CodeLimitReached, message) }
func ConflictError(c *gin.Context, message string)   { Error(c, CodeConflict, message) }
func ServerError(c *gin.Context, message string)     { Error(c, CodeServerError, message) }

// SignatureError 支付回调签名不匹配
func SignatureError(c *gin.Context, message string) {
	Error(c, CodeSignatureMismatch, message)
}

// TransitionError 订单状态流转非法
func TransitionError(c *gin.Context, message string) {
	Error(c, CodeInvalidTransition, message)
}

// PendingOrderError 待支付订单占满名额，完成支付或等待订单过期后可重试
func PendingOrderError(c *gin.Context, message string) {
	Error(c, CodePendingOrder, message)
}

// GatewayError 支付网关不可用，客户端可稍后重试
func GatewayError(c *gin.Context, message string) {
	Error(c, CodeGatewayUnavailable, message)
}
