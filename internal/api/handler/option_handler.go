package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/DEV-OpenSCI/desci-form/internal/model"
	"github.com/DEV-OpenSCI/desci-form/internal/service"
	"github.com/DEV-OpenSCI/desci-form/pkg/response"
)

// OptionHandler 下拉选项 HTTP 处理器
type OptionHandler struct {
	optionSvc   service.OptionService
	fillCodeSvc service.FillCodeService
}

// NewOptionHandler 创建 OptionHandler
func NewOptionHandler(optionSvc service.OptionService, fillCodeSvc service.FillCodeService) *OptionHandler {
	return &OptionHandler{optionSvc: optionSvc, fillCodeSvc: fillCodeSvc}
}

// List 查询某一类选项
// GET /api/v1/options/:type?locale=zh
// 有填写码会话时优先使用后端选项，否则返回本地目录
func (h *OptionHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	var access *model.AccessSession
	if sessionID := GetSessionID(c); sessionID != "" {
		if a, err := h.fillCodeSvc.Current(ctx, sessionID); err == nil {
			access = a
		}
	}

	result, err := h.optionSvc.List(ctx, access, c.Param("type"), GetLocale(c))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, result)
}
