package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/DEV-OpenSCI/desci-form/pkg/errors"
	"github.com/DEV-OpenSCI/desci-form/pkg/jwt"
	"github.com/DEV-OpenSCI/desci-form/pkg/response"
)

// 上下文键
const (
	SessionIDKey = "session_id"
	LocaleKey    = "locale"
)

// SessionAuth 表单会话认证中间件
// 从 Authorization: Bearer <token> 中提取并验证会话令牌
func SessionAuth(jwtMgr *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.Unauthorized(c, apperrors.CodeUnauthorized, "请先输入填写码")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(token)
		if err != nil {
			response.Unauthorized(c, apperrors.CodeUnauthorized, "会话无效或已过期，请重新输入填写码")
			c.Abort()
			return
		}

		if claims.TokenType != jwt.TokenTypeSession {
			response.Unauthorized(c, apperrors.CodeUnauthorized, "Token 类型无效")
			c.Abort()
			return
		}

		c.Set(SessionIDKey, claims.SessionID)
		c.Set(LocaleKey, claims.Locale)

		c.Next()
	}
}

// OptionalSession 有合法会话令牌时注入会话信息，否则直接放行
func OptionalSession(jwtMgr *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if claims, err := jwtMgr.ParseToken(token); err == nil && claims.TokenType == jwt.TokenTypeSession {
				c.Set(SessionIDKey, claims.SessionID)
				c.Set(LocaleKey, claims.Locale)
			}
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
