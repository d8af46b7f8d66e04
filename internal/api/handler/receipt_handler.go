package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/DEV-OpenSCI/desci-form/internal/service"
	"github.com/DEV-OpenSCI/desci-form/pkg/response"
)

// ReceiptHandler 提交回执 HTTP 处理器
type ReceiptHandler struct {
	submissionSvc service.SubmissionService
}

// NewReceiptHandler 创建 ReceiptHandler
func NewReceiptHandler(submissionSvc service.SubmissionService) *ReceiptHandler {
	return &ReceiptHandler{submissionSvc: submissionSvc}
}

// Get 按申请编号查询本地回执
// GET /api/v1/receipts/:application_no
func (h *ReceiptHandler) Get(c *gin.Context) {
	if _, ok := MustGetSessionID(c); !ok {
		return
	}

	result, err := h.submissionSvc.Receipt(c.Request.Context(), c.Param("application_no"))
	if err != nil {
		if errors.Is(err, service.ErrReceiptNotFound) {
			response.NotFound(c, 16201, "回执不存在")
			return
		}
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}
