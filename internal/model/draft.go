package model

// ── 申请草稿 ──
//
// validate 标签即字段规则（go-playground/validator），option=<kind> 校验枚举值
// 是否属于注入的选项目录。

// 里程碑阶段，顺序固定
const (
	StageEarly = "early"
	StageMid   = "mid"
	StageLate  = "late"
)

// MilestoneStages 三个阶段的固定顺序
var MilestoneStages = [3]string{StageEarly, StageMid, StageLate}

// ApplicationDraft 一次申请的可变草稿
type ApplicationDraft struct {
	// 第一部分：项目基本信息
	ProjectName string `json:"projectName" yaml:"projectName" validate:"notblank"`
	StartDate   Date   `json:"startDate"   yaml:"startDate"   validate:"required"`
	EndDate     Date   `json:"endDate"     yaml:"endDate"     validate:"required"`
	Discipline  string `json:"discipline"  yaml:"discipline"  validate:"notblank,option=discipline"`
	Field       string `json:"field"       yaml:"field"       validate:"notblank,option=researchField"`
	TeamSize    int    `json:"teamSize"    yaml:"teamSize"    validate:"min=1"`

	// 第二部分：成员信息
	Leader  LeaderInfo   `json:"leader"  yaml:"leader"`
	Members []MemberInfo `json:"members" yaml:"members" validate:"dive"`

	// 第三部分：项目介绍
	ProjectSummary string          `json:"projectSummary" yaml:"projectSummary" validate:"notblank,max=1500"`
	Background     string          `json:"background"     yaml:"background"     validate:"notblank,max=1500"`
	Milestones     []MilestoneInfo `json:"milestones"     yaml:"milestones"     validate:"len=3,dive"`

	// 第四部分：项目经费
	BudgetItems []BudgetLine `json:"budgetItems" yaml:"budgetItems" validate:"min=1,dive"`

	// 第五部分：联系人
	Contact ContactInfo `json:"contact" yaml:"contact"`
}

// LeaderInfo 项目负责人
type LeaderInfo struct {
	Name      string `json:"name"      yaml:"name"      validate:"notblank"`
	ORCID     string `json:"orcid"     yaml:"orcid"`
	Email     string `json:"email"     yaml:"email"     validate:"notblank,email"`
	Title     string `json:"title"     yaml:"title"     validate:"notblank,option=title"`
	Education string `json:"education" yaml:"education" validate:"notblank,option=education"`
	Bio       string `json:"bio"       yaml:"bio"       validate:"max=200"`
}

// MemberInfo 团队成员
type MemberInfo struct {
	Role      string `json:"role"      yaml:"role"      validate:"notblank,option=memberRole"`
	ResumeRef string `json:"resumeRef" yaml:"resumeRef"` // 上传后得到的 S3 Key
}

// MilestoneInfo 里程碑
type MilestoneInfo struct {
	Stage     string `json:"stage"     yaml:"stage"     validate:"oneof=early mid late"`
	StartDate Date   `json:"startDate" yaml:"startDate" validate:"required"`
	EndDate   Date   `json:"endDate"   yaml:"endDate"   validate:"required"`
	Content   string `json:"content"   yaml:"content"   validate:"notblank"`
	Goals     string `json:"goals"     yaml:"goals"     validate:"notblank"` // 换行分隔，提交时拆为数组
}

// BudgetLine 经费条目
type BudgetLine struct {
	Category         string  `json:"category"         yaml:"category"         validate:"notblank,option=budgetCategory"`
	DonationAmount   float64 `json:"donationAmount"   yaml:"donationAmount"   validate:"min=0"`
	SelfFundedAmount float64 `json:"selfFundedAmount" yaml:"selfFundedAmount" validate:"min=0"`
}

// ContactInfo 联系人
type ContactInfo struct {
	Name  string `json:"name"  yaml:"name"  validate:"notblank"`
	Email string `json:"email" yaml:"email" validate:"notblank,email"`
	Phone string `json:"phone" yaml:"phone" validate:"notblank"`
}

// BudgetTotals 经费合计，始终由当前条目即时计算
type BudgetTotals struct {
	Donation   float64 `json:"donation"`
	SelfFunded float64 `json:"selfFunded"`
	Total      float64 `json:"total"`
}

// Totals 计算经费合计
func (d *ApplicationDraft) Totals() BudgetTotals {
	var t BudgetTotals
	for _, b := range d.BudgetItems {
		t.Donation += b.DonationAmount
		t.SelfFunded += b.SelfFundedAmount
	}
	t.Total = t.Donation + t.SelfFunded
	return t
}

// Clone 深拷贝草稿
func (d *ApplicationDraft) Clone() *ApplicationDraft {
	c := *d
	c.Members = append([]MemberInfo(nil), d.Members...)
	c.Milestones = append([]MilestoneInfo(nil), d.Milestones...)
	c.BudgetItems = append([]BudgetLine(nil), d.BudgetItems...)
	return &c
}
