package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/tacss32/dalitmurasu-sub000/internal/model"
	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/response"
)

type userGetter interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// AdminOnly 必须在 Auth 之后使用
func AdminOnly(users userGetter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			response.AuthError(c, "")
			c.Abort()
			return
		}

		user, err := users.GetByID(c.Request.Context(), userID)
		if err != nil || !user.IsAdmin() {
			response.PermissionError(c, "需要管理员权限")
			c.Abort()
			return
		}

		c.Next()
	}
}
