package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/DEV-OpenSCI/desci-form/pkg/errors"
	"github.com/DEV-OpenSCI/desci-form/pkg/redis"
	"github.com/DEV-OpenSCI/desci-form/pkg/response"
)

// RateLimit 基于 Redis 滑动窗口的速率限制中间件（用于填写码校验，防止暴力枚举）
// limit: 窗口内允许的最大请求数
// window: 滑动窗口时长
// rdb 为 nil（未配置 Redis）时放行
func RateLimit(rdb *redis.Client, limit int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || limit <= 0 {
			c.Next()
			return
		}

		key := fmt.Sprintf("desci:rate_limit:%s:%s", c.ClientIP(), c.FullPath())
		allowed, err := rdb.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			logger.Warn("限流检查失败，放行请求", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		if !allowed {
			response.Error(c, http.StatusTooManyRequests, apperrors.CodeTooMany, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}
