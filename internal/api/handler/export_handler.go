package handler

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/DEV-OpenSCI/desci-form/internal/model"
	"github.com/DEV-OpenSCI/desci-form/internal/service"
	"github.com/DEV-OpenSCI/desci-form/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
	formSvc   service.FormService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService, formSvc service.FormService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc, formSvc: formSvc}
}

// BudgetWorkbook 导出经费预算表
// GET /api/v1/form/export/budget.xlsx
func (h *ExportHandler) BudgetWorkbook(c *gin.Context) {
	h.export(c, contentTypeXLSX, h.exportSvc.BudgetWorkbook)
}

// MilestoneCalendar 导出里程碑日历
// GET /api/v1/form/export/milestones.ics
func (h *ExportHandler) MilestoneCalendar(c *gin.Context) {
	h.export(c, contentTypeICS, h.exportSvc.MilestoneCalendar)
}

type exportFunc func(draft *model.ApplicationDraft, applicationNo, locale string) (*bytes.Buffer, string, error)

func (h *ExportHandler) export(c *gin.Context, contentType string, fn exportFunc) {
	sessionID, ok := MustGetSessionID(c)
	if !ok {
		return
	}

	draft, state, err := h.formSvc.Snapshot(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	buf, filename, err := fn(draft, state.ApplicationNo, GetLocale(c))
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportNoBudget):
		response.NotFound(c, 16101, "草稿中暂无经费条目")
	case errors.Is(err, service.ErrExportNoMilestones):
		response.BadRequest(c, 16102, "里程碑缺少起止日期")
	default:
		response.InternalError(c)
	}
}
