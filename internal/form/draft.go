package form

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/DEV-OpenSCI/desci-form/internal/model"
)

var (
	ErrUnknownPath  = errors.New("未知字段路径")
	ErrOutOfRange   = errors.New("数组下标越界")
	ErrFixedField   = errors.New("字段不可修改")
	ErrInvalidValue = errors.New("字段值类型不匹配")
)

// NewDraft 初始草稿：字符串与数组为空，项目人数为 1，
// 里程碑预置早/中/晚三个阶段。
func NewDraft() *model.ApplicationDraft {
	d := &model.ApplicationDraft{
		TeamSize:    1,
		Members:     []model.MemberInfo{},
		Milestones:  make([]model.MilestoneInfo, 0, len(model.MilestoneStages)),
		BudgetItems: []model.BudgetLine{},
	}
	for _, stage := range model.MilestoneStages {
		d.Milestones = append(d.Milestones, model.MilestoneInfo{Stage: stage})
	}
	return d
}

// Set 按路径更新单个字段。value 可以是 JSON 解码后的值
// （string / float64 / json.Number / nil），也可以是 Go 值（int、time.Time、model.Date）。
func Set(d *model.ApplicationDraft, p Path, value interface{}) error {
	target, err := fieldOf(d, p)
	if err != nil {
		return err
	}

	switch ptr := target.(type) {
	case *string:
		s, err := asString(value)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		*ptr = s
	case *model.Date:
		date, err := asDate(value)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		*ptr = date
	case *int:
		f, err := asNumber(value)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		if f != math.Trunc(f) {
			return fmt.Errorf("%s: %w: 需要整数", p, ErrInvalidValue)
		}
		// float64(math.MaxInt) 向上取整为 2^63，本身已越界
		if f < math.MinInt || f >= math.MaxInt {
			return fmt.Errorf("%s: %w: 超出整数范围", p, ErrInvalidValue)
		}
		*ptr = int(f)
	case *float64:
		f, err := asNumber(value)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		*ptr = f
	}
	return nil
}

// Get 按路径读取字段当前值
func Get(d *model.ApplicationDraft, p Path) (interface{}, error) {
	target, err := fieldOf(d, p)
	if err != nil {
		return nil, err
	}
	switch ptr := target.(type) {
	case *string:
		return *ptr, nil
	case *model.Date:
		return *ptr, nil
	case *int:
		return *ptr, nil
	case *float64:
		return *ptr, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownPath, p)
}

// fieldOf 返回路径对应字段的指针
func fieldOf(d *model.ApplicationDraft, p Path) (interface{}, error) {
	switch p.root {
	case RootProjectName:
		return &d.ProjectName, nil
	case RootStartDate:
		return &d.StartDate, nil
	case RootEndDate:
		return &d.EndDate, nil
	case RootDiscipline:
		return &d.Discipline, nil
	case RootField:
		return &d.Field, nil
	case RootTeamSize:
		return &d.TeamSize, nil
	case RootProjectSummary:
		return &d.ProjectSummary, nil
	case RootBackground:
		return &d.Background, nil

	case RootLeader:
		l := &d.Leader
		switch p.leaf {
		case "name":
			return &l.Name, nil
		case "orcid":
			return &l.ORCID, nil
		case "email":
			return &l.Email, nil
		case "title":
			return &l.Title, nil
		case "education":
			return &l.Education, nil
		case "bio":
			return &l.Bio, nil
		}

	case RootContact:
		c := &d.Contact
		switch p.leaf {
		case "name":
			return &c.Name, nil
		case "email":
			return &c.Email, nil
		case "phone":
			return &c.Phone, nil
		}

	case RootMembers:
		if p.leaf == "" {
			break
		}
		if p.index >= len(d.Members) {
			return nil, fmt.Errorf("%w: %s", ErrOutOfRange, p)
		}
		m := &d.Members[p.index]
		switch p.leaf {
		case "role":
			return &m.Role, nil
		case "resumeRef":
			return &m.ResumeRef, nil
		}

	case RootMilestones:
		if p.leaf == "" {
			break
		}
		if p.index >= len(d.Milestones) {
			return nil, fmt.Errorf("%w: %s", ErrOutOfRange, p)
		}
		m := &d.Milestones[p.index]
		switch p.leaf {
		case "stage":
			return nil, fmt.Errorf("%w: %s", ErrFixedField, p)
		case "startDate":
			return &m.StartDate, nil
		case "endDate":
			return &m.EndDate, nil
		case "content":
			return &m.Content, nil
		case "goals":
			return &m.Goals, nil
		}

	case RootBudgetItems:
		if p.leaf == "" {
			break
		}
		if p.index >= len(d.BudgetItems) {
			return nil, fmt.Errorf("%w: %s", ErrOutOfRange, p)
		}
		b := &d.BudgetItems[p.index]
		switch p.leaf {
		case "category":
			return &b.Category, nil
		case "donationAmount":
			return &b.DonationAmount, nil
		case "selfFundedAmount":
			return &b.SelfFundedAmount, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownPath, p)
}

func asString(v interface{}) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case fmt.Stringer:
		return x.String(), nil
	}
	return "", fmt.Errorf("%w: 需要字符串", ErrInvalidValue)
}

func asDate(v interface{}) (model.Date, error) {
	switch x := v.(type) {
	case nil:
		return model.Date{}, nil
	case model.Date:
		return x, nil
	case time.Time:
		return model.DateOf(x), nil
	case string:
		if strings.TrimSpace(x) == "" {
			return model.Date{}, nil
		}
		d, err := model.ParseDate(x)
		if err != nil {
			return model.Date{}, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return d, nil
	}
	return model.Date{}, fmt.Errorf("%w: 需要日期", ErrInvalidValue)
}

func asNumber(v interface{}) (float64, error) {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0, nil
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		f = parsed
	case string:
		if strings.TrimSpace(x) == "" {
			return 0, nil
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: 需要数字", ErrInvalidValue)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("%w: 需要数字", ErrInvalidValue)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: 需要有限数字", ErrInvalidValue)
	}
	return f, nil
}

// AppendMember 追加空成员，返回新下标
func AppendMember(d *model.ApplicationDraft) int {
	d.Members = append(d.Members, model.MemberInfo{})
	return len(d.Members) - 1
}

// RemoveMember 删除成员，后续下标前移
func RemoveMember(d *model.ApplicationDraft, i int) error {
	if i < 0 || i >= len(d.Members) {
		return fmt.Errorf("%w: members.%d", ErrOutOfRange, i)
	}
	d.Members = append(d.Members[:i], d.Members[i+1:]...)
	return nil
}

// AppendBudgetItem 追加空经费条目，返回新下标
func AppendBudgetItem(d *model.ApplicationDraft) int {
	d.BudgetItems = append(d.BudgetItems, model.BudgetLine{})
	return len(d.BudgetItems) - 1
}

// RemoveBudgetItem 删除经费条目，后续下标前移
func RemoveBudgetItem(d *model.ApplicationDraft, i int) error {
	if i < 0 || i >= len(d.BudgetItems) {
		return fmt.Errorf("%w: budgetItems.%d", ErrOutOfRange, i)
	}
	d.BudgetItems = append(d.BudgetItems[:i], d.BudgetItems[i+1:]...)
	return nil
}

// ExampleDraft 测试模式使用的完整示例草稿，日期相对 now 计算：
// 项目自本月 1 日起两年，三个阶段各约 8 个月。
func ExampleDraft(now time.Time) *model.ApplicationDraft {
	y, m := now.Year(), now.Month()
	monthStart := func(year int, month time.Month) model.Date { return model.NewDate(year, month, 1) }
	monthEnd := func(year int, month time.Month) model.Date { return model.NewDate(year, month+1, 0) }

	start := monthStart(y, m)
	end := monthEnd(y+2, m-1)
	p1End := monthEnd(y, m+7)
	p2Start := p1End.AddDays(1)
	p2End := monthEnd(p2Start.Year, p2Start.Month+7)
	p3Start := p2End.AddDays(1)

	return &model.ApplicationDraft{
		ProjectName: "Decentralized Research Data Sharing Platform",
		StartDate:   start,
		EndDate:     end,
		Discipline:  "engineering",
		Field:       "materials",
		TeamSize:    5,
		Leader: model.LeaderInfo{
			Name:      "Alex Chen",
			ORCID:     "0000-0002-1234-5678",
			Email:     "alex.chen@example.edu.cn",
			Title:     "professor",
			Education: "phd",
			Bio:       "Focused on distributed systems and blockchain research, with multiple publications and project leadership.",
		},
		Members: []model.MemberInfo{
			{Role: "key-member"},
			{Role: "other-member"},
		},
		ProjectSummary: "Research data sharing faces challenges such as lack of trust, weak incentives, and privacy risks. This project proposes a decentralized platform with smart contracts for data ownership, access control, and contribution incentives.",
		Background:     "Research data is increasingly strategic, yet centralized sharing models suffer from silos and weak data protection. Decentralized systems can improve transparency, traceability, and collaboration efficiency.",
		Milestones: []model.MilestoneInfo{
			{
				Stage:     model.StageEarly,
				StartDate: start,
				EndDate:   p1End,
				Content:   "Finalize system architecture and core module development",
				Goals:     "Complete requirements analysis and system design\nSelect and integrate a blockchain framework\nDevelop data ownership smart contracts",
			},
			{
				Stage:     model.StageMid,
				StartDate: p2Start,
				EndDate:   p2End,
				Content:   "Deliver main platform features and testing",
				Goals:     "Implement data sharing and access control modules\nDeliver contribution incentive mechanism\nSubmit 2 conference papers",
			},
			{
				Stage:     model.StageLate,
				StartDate: p3Start,
				EndDate:   end,
				Content:   "Complete integration testing and pilot deployment",
				Goals:     "Optimize performance and conduct security audit\nRun pilots across 3+ research institutions\nFile 2 patent applications",
			},
		},
		BudgetItems: []model.BudgetLine{
			{Category: "equipment", DonationAmount: 50000, SelfFundedAmount: 20000},
			{Category: "materials", DonationAmount: 30000, SelfFundedAmount: 10000},
			{Category: "testing", DonationAmount: 20000, SelfFundedAmount: 5000},
			{Category: "travel", DonationAmount: 15000, SelfFundedAmount: 5000},
			{Category: "conference", DonationAmount: 10000, SelfFundedAmount: 5000},
			{Category: "publication", DonationAmount: 8000, SelfFundedAmount: 2000},
			{Category: "labor", DonationAmount: 60000, SelfFundedAmount: 20000},
		},
		Contact: model.ContactInfo{
			Name:  "Jamie Lee",
			Email: "jamie.lee@example.edu.cn",
			Phone: "13800138000",
		},
	}
}
