package model

import (
	"strings"
	"time"
)

// AccessSession 填写码会话（标签页级别）
type AccessSession struct {
	Code      string    `json:"code"`
	ExpiresAt *string   `json:"expiresAt"` // 免码通道为 nil
	Locale    string    `json:"locale"`
	CreatedAt time.Time `json:"createdAt"`
}

// FillCode 实现出站请求的凭据来源
func (s *AccessSession) FillCode() string {
	if s == nil {
		return ""
	}
	return s.Code
}

// Masked 脱敏后的填写码
func (s *AccessSession) Masked() string {
	return MaskFillCode(s.FillCode())
}

// MaskFillCode 脱敏显示填写码（长于 8 位显示前4位...后4位，否则全部掩码）
// 按字符而非字节计数
func MaskFillCode(code string) string {
	r := []rune(code)
	if len(r) <= 8 {
		return strings.Repeat("*", len(r))
	}
	return string(r[:4]) + "..." + string(r[len(r)-4:])
}

// PreferredLocale 会话界面语言，用于选择错误文案
func (s *AccessSession) PreferredLocale() string {
	if s == nil {
		return ""
	}
	return s.Locale
}
