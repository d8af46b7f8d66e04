package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 错误分类
type Kind int

const (
	KindValidation Kind = iota + 1 // 本地字段/分节校验失败，可由用户修正
	KindCredential                 // 填写码无效或已过期
	KindTransport                  // 网络不可达
	KindBusiness                   // 后端明确拒绝（success:false 或 HTTP 4xx/5xx）
	KindIntegrity                  // 后端成功但缺少必要字段
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindCredential:
		return "credential"
	case KindTransport:
		return "transport"
	case KindBusiness:
		return "business"
	case KindIntegrity:
		return "integrity"
	default:
		return "unknown"
	}
}

// 业务错误码，与统一响应结构的 code 字段一致
const (
	CodeInvalidParam  = 10001
	CodeUnauthorized  = 10002
	CodeForbidden     = 10003
	CodeTooMany       = 10004
	CodeBodyTooLarge  = 10005
	CodeValidation    = 20001
	CodeCredential    = 20002
	CodeTransport     = 20003
	CodeBusiness      = 20004
	CodeIntegrity     = 20005
	CodeConflict      = 20009
	CodeInternalError = 50000
)

// AppError 携带分类、业务码与面向用户消息的错误
type AppError struct {
	Kind    Kind
	Code    int
	Status  int // 上游 HTTP 状态（若有）
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// HTTPStatus 映射为本服务对外的 HTTP 状态码
func (e *AppError) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindCredential:
		return http.StatusUnauthorized
	case KindTransport, KindIntegrity:
		return http.StatusBadGateway
	case KindBusiness:
		if e.Status >= 400 && e.Status < 500 {
			return e.Status
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Validation 本地校验错误
func Validation(message string) *AppError {
	return &AppError{Kind: KindValidation, Code: CodeValidation, Message: message}
}

// Credential 填写码错误
func Credential(message string, err error) *AppError {
	return &AppError{Kind: KindCredential, Code: CodeCredential, Message: message, Err: err}
}

// Transport 网络错误
func Transport(message string, err error) *AppError {
	return &AppError{Kind: KindTransport, Code: CodeTransport, Message: message, Err: err}
}

// Business 后端业务拒绝；code 为后端返回的业务码（无则为 HTTP 状态）
func Business(status, code int, message string) *AppError {
	if code == 0 {
		code = CodeBusiness
	}
	return &AppError{Kind: KindBusiness, Code: code, Status: status, Message: message}
}

// Integrity 后端响应缺少必要字段
func Integrity(message string) *AppError {
	return &AppError{Kind: KindIntegrity, Code: CodeIntegrity, Message: message}
}

// As 提取 *AppError
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind 判断错误链中是否存在指定分类的 AppError
func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}

// Message 取面向用户的消息，非 AppError 时返回 fallback
func Message(err error, fallback string) string {
	if appErr, ok := As(err); ok && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}
