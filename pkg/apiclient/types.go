package apiclient

// ── 申请后端 API 的请求/响应类型 ──

// FillCodeValidation 填写码校验响应
type FillCodeValidation struct {
	Valid      bool    `json:"valid"`
	ExpireTime *string `json:"expireTime"`
	Message    *string `json:"message"`
}

// SelectOption 下拉选项
type SelectOption struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// PresignedURLRequest 预签名 URL 请求
type PresignedURLRequest struct {
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
	FileSize int64  `json:"fileSize"`
}

// PresignedURLResponse 预签名 URL 响应
type PresignedURLResponse struct {
	UploadURL string `json:"uploadUrl"`
	S3Key     string `json:"s3Key"`
	ExpiresIn int    `json:"expiresIn"`
}

// ParseResponse AI 文档解析响应
type ParseResponse struct {
	Content string `json:"content"`
}

// SubmitResponse 表单提交响应
type SubmitResponse struct {
	ApplicationNo string `json:"applicationNo"`
}

// ApplicationPayload 表单提交请求（后端字段命名）
type ApplicationPayload struct {
	BasicInfo    BasicInfoPayload   `json:"basicInfo"`
	Leader       LeaderPayload      `json:"leader"`
	Members      []MemberPayload    `json:"members"`
	Introduction string             `json:"introduction"`
	Background   string             `json:"background"`
	Milestones   []MilestonePayload `json:"milestones"`
	Budgets      []BudgetPayload    `json:"budgets"`
	Contact      ContactPayload     `json:"contact"`
}

// BasicInfoPayload 项目基本信息
type BasicInfoPayload struct {
	Name          string `json:"name"`
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
	Discipline    string `json:"discipline"`
	ResearchField string `json:"researchField"`
	TeamSize      int    `json:"teamSize"`
}

// LeaderPayload 负责人
type LeaderPayload struct {
	Name      string `json:"name"`
	ORCID     string `json:"orcid,omitempty"`
	Email     string `json:"email"`
	Title     string `json:"title"`
	Education string `json:"education"`
	Bio       string `json:"bio,omitempty"`
}

// MemberPayload 成员
type MemberPayload struct {
	Role        string `json:"role"`
	ResumeS3Key string `json:"resumeS3Key,omitempty"`
}

// MilestonePayload 里程碑
type MilestonePayload struct {
	Phase     string   `json:"phase"`
	StartDate string   `json:"startDate"`
	EndDate   string   `json:"endDate"`
	Content   string   `json:"content"`
	Goals     []string `json:"goals"`
}

// BudgetPayload 经费
type BudgetPayload struct {
	Category         string  `json:"category"`
	DonationAmount   float64 `json:"donationAmount"`
	SelfFundedAmount float64 `json:"selfFundedAmount"`
}

// ContactPayload 联系人
type ContactPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}
