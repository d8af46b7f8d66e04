package dto

// ── 通用响应 ──

// HealthResponse 健康检查
type HealthResponse struct {
	Status   string            `json:"status"`
	Version  string            `json:"version"`
	Services map[string]string `json:"services,omitempty"`
}

// ReceiptResponse 本地提交回执
type ReceiptResponse struct {
	ApplicationNo   string  `json:"application_no"`
	ProjectName     string  `json:"project_name"`
	TotalDonation   float64 `json:"total_donation"`
	TotalSelfFunded float64 `json:"total_self_funded"`
	SubmittedAt     string  `json:"submitted_at"`
}
