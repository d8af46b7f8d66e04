package handler

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/DEV-OpenSCI/desci-form/pkg/errors"
	"github.com/DEV-OpenSCI/desci-form/pkg/response"
)

// 与 middleware 中的上下文键保持一致
const (
	ctxSessionID = "session_id"
	ctxLocale    = "locale"
)

// MustGetSessionID 从 Gin 上下文中安全提取 session_id。
// 如果会话中间件未正确注入 session_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetSessionID(c *gin.Context) (string, bool) {
	s := c.GetString(ctxSessionID)
	if s == "" {
		response.Unauthorized(c, apperrors.CodeUnauthorized, "请先输入填写码")
		return "", false
	}
	return s, true
}

// GetSessionID 可选会话，未认证时返回空串
func GetSessionID(c *gin.Context) string {
	return c.GetString(ctxSessionID)
}

// GetLocale 查询参数优先，其次为会话令牌中的语言
func GetLocale(c *gin.Context) string {
	if l := c.Query("locale"); l == "zh" || l == "en" {
		return l
	}
	return c.GetString(ctxLocale)
}
