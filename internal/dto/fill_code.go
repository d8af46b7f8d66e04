package dto

// ── 填写码模块 DTO ──

// ValidateFillCodeRequest 填写码校验请求
type ValidateFillCodeRequest struct {
	Code   string `json:"code"   binding:"required,max=128"`
	Locale string `json:"locale" binding:"omitempty,oneof=zh en"`
}

// FillCodeResponse 填写码会话（脱敏）
type FillCodeResponse struct {
	Token      string  `json:"token,omitempty"` // 仅校验成功时返回
	ExpiresIn  int     `json:"expires_in,omitempty"`
	MaskedCode string  `json:"masked_code"`
	ExpiresAt  *string `json:"expires_at"` // 免码通道为 null
	Locale     string  `json:"locale"`
}
