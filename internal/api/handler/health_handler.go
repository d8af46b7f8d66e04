package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/DEV-OpenSCI/desci-form/internal/dto"
)

// Checker 依赖健康检查（Redis、数据库等）
type Checker func(ctx context.Context) error

// HealthHandler 健康检查 HTTP 处理器
type HealthHandler struct {
	version string
	checks  map[string]Checker
}

// NewHealthHandler 创建 HealthHandler；checks 仅包含已启用的依赖
func NewHealthHandler(version string, checks map[string]Checker) *HealthHandler {
	return &HealthHandler{version: version, checks: checks}
}

// Health 健康检查
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	result := dto.HealthResponse{Status: "ok", Version: h.version}
	status := http.StatusOK
	if len(h.checks) > 0 {
		result.Services = make(map[string]string, len(h.checks))
	}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			result.Services[name] = "down"
			result.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		result.Services[name] = "up"
	}

	c.JSON(status, result)
}
