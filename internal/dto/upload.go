package dto

// ── 上传与 AI 解析 DTO ──

// ResumeUploadResponse 简历上传结果
type ResumeUploadResponse struct {
	MemberIndex int    `json:"member_index"`
	ResumeRef   string `json:"resume_ref"` // S3 Key
}

// ParseDocumentRequest AI 文档解析参数（multipart 表单字段）
type ParseDocumentRequest struct {
	Type     string `form:"type"     binding:"required,oneof=introduction background"`
	Language string `form:"language" binding:"omitempty,oneof=zh en"`
}

// ParseDocumentResponse AI 解析结果，已写入草稿对应字段
type ParseDocumentResponse struct {
	Field   string `json:"field"`
	Content string `json:"content"`
}

// OptionsResponse 下拉选项
type OptionsResponse struct {
	Type    string        `json:"type"`
	Locale  string        `json:"locale"`
	Options []OptionEntry `json:"options"`
}

// OptionEntry 单个选项
type OptionEntry struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}
