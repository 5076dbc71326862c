package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(t *testing.T, h gin.HandlerFunc) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	router := gin.New()
	router.GET("/test", h)

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestSuccess(t *testing.T) {
	w, resp := serve(t, func(c *gin.Context) {
		Success(c, gin.H{"key": "value"})
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, CodeSuccess, resp.Code)
	assert.Equal(t, "success", resp.Message)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "value", data["key"])
}

func TestSuccessPage(t *testing.T) {
	_, resp := serve(t, func(c *gin.Context) {
		SuccessPage(c, 100, 2, 10, []string{"a", "b"})
	})

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(100), data["total"])
	assert.Equal(t, float64(2), data["page"])
	assert.Equal(t, float64(10), data["page_size"])
	assert.Len(t, data["items"], 2)
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name     string
		fn       func(*gin.Context, string)
		wantCode int
		wantMsg  string
	}{
		{"param", ParamError, CodeParamError, "参数错误"},
		{"auth", AuthError, CodeAuthFailed, "认证失败"},
		{"permission", PermissionError, CodePermissionDenied, "权限不足"},
		{"not found", NotFoundError, CodeResourceNotFound, "资源不存在"},
		{"limit", LimitError, CodeLimitReached, "有效订阅数量已达上限"},
		{"conflict", ConflictError, CodeConflict, "请求冲突，请稍后重试"},
		{"signature", SignatureError, CodeSignatureMismatch, "支付签名校验失败"},
		{"transition", TransitionError, CodeInvalidTransition, "订单状态不允许此操作"},
		{"pending order", PendingOrderError, CodePendingOrder, "存在未完成支付的订单"},
		{"gateway", GatewayError, CodeGatewayUnavailable, "支付网关暂不可用"},
		{"server", ServerError, CodeServerError, "服务器内部错误"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp := serve(t, func(c *gin.Context) { tt.fn(c, "") })
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, tt.wantMsg, resp.Message)
			assert.Nil(t, resp.Data)

			_, resp = serve(t, func(c *gin.Context) { tt.fn(c, "custom") })
			assert.Equal(t, "custom", resp.Message)
		})
	}
}

func TestError_UnknownCode(t *testing.T) {
	_, resp := serve(t, func(c *gin.Context) {
		Error(c, 9999, "")
	})

	assert.Equal(t, 9999, resp.Code)
	assert.Empty(t, resp.Message)
}
