package form

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/DEV-OpenSCI/desci-form/internal/model"
	"github.com/DEV-OpenSCI/desci-form/internal/options"
)

// ── 测试辅助 ──

func newTestValidator() *Validator {
	return NewValidator(options.Default())
}

func exampleDraft() *model.ApplicationDraft {
	return ExampleDraft(time.Date(2025, time.March, 15, 10, 0, 0, 0, time.UTC))
}

// ── Path 测试 ──

func TestParsePath(t *testing.T) {
	tests := []struct {
		in   string
		want Path
	}{
		{"projectName", ScalarPath(RootProjectName)},
		{"leader.email", LeaderPath("email")},
		{"contact.phone", ContactPath("phone")},
		{"members.2.role", MemberPath(2, "role")},
		{"milestones[1].goals", MilestonePath(1, "goals")},
		{"budgetItems.0.donationAmount", BudgetPath(0, "donationAmount")},
		{"budgetItems", CollectionPath(RootBudgetItems)},
	}
	for _, tt := range tests {
		got, err := ParsePath(tt.in)
		if err != nil {
			t.Fatalf("ParsePath(%q) 应成功: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParsePath(%q) 期望=%s，实际=%s", tt.in, tt.want, got)
		}
	}

	for _, bad := range []string{"", "leader", "leader.phone", "members.x.role", "members.-1.role", "projectName.x", "budgetItems.0", "unknown"} {
		if _, err := ParsePath(bad); !errors.Is(err, ErrUnknownPath) {
			t.Errorf("ParsePath(%q) 期望 ErrUnknownPath，实际: %v", bad, err)
		}
	}
}

func TestPath_StepOwnership(t *testing.T) {
	tests := []struct {
		p    Path
		want Step
	}{
		{ScalarPath(RootTeamSize), StepBasicInfo},
		{ScalarPath(RootEndDate), StepBasicInfo},
		{LeaderPath("bio"), StepTeam},
		{MemberPath(0, "role"), StepTeam},
		{MilestonePath(2, "goals"), StepProjectIntro},
		{CollectionPath(RootBudgetItems), StepBudget},
		{ContactPath("email"), StepContact},
	}
	for _, tt := range tests {
		if got := tt.p.Step(); got != tt.want {
			t.Errorf("%s 期望属于 %s，实际=%s", tt.p, tt.want, got)
		}
	}
}

// ── Validator 测试 ──

func TestValidateAll_ExampleIsValid(t *testing.T) {
	if errs := newTestValidator().ValidateAll(exampleDraft()); errs != nil {
		t.Fatalf("示例草稿应通过校验，实际: %v", errs.Flat())
	}
}

func TestValidateAll_MilestoneCardinality(t *testing.T) {
	v := newTestValidator()
	for _, n := range []int{0, 2, 4} {
		d := exampleDraft()
		d.Milestones = append([]model.MilestoneInfo(nil), d.Milestones...)
		switch {
		case n < 3:
			d.Milestones = d.Milestones[:n]
		default:
			d.Milestones = append(d.Milestones, d.Milestones[0])
		}
		errs := v.ValidateAll(d)
		if _, ok := errs.Message(CollectionPath(RootMilestones)); !ok {
			t.Errorf("%d 个里程碑应被拒绝，实际错误: %v", n, errs.Flat())
		}
	}
}

func TestValidateAll_EmptyBudget(t *testing.T) {
	d := exampleDraft()
	d.BudgetItems = []model.BudgetLine{}

	if got := d.Totals(); got.Total != 0 {
		t.Errorf("空经费合计期望 0，实际=%v", got.Total)
	}
	errs := newTestValidator().ValidateAll(d)
	msg, ok := errs.Message(CollectionPath(RootBudgetItems))
	if !ok || msg != "请至少添加一项经费" {
		t.Fatalf("期望经费数量错误，实际: %v", errs.Flat())
	}
	if errs.Count() != 1 {
		t.Errorf("期望 1 个错误，实际=%d", errs.Count())
	}
}

func TestValidateAll_Rules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *model.ApplicationDraft)
		path   Path
		msg    string
	}{
		{"空白项目名", func(d *model.ApplicationDraft) { d.ProjectName = "   " }, ScalarPath(RootProjectName), "请输入项目名称"},
		{"人数为0", func(d *model.ApplicationDraft) { d.TeamSize = 0 }, ScalarPath(RootTeamSize), "项目人数至少为1"},
		{"邮箱格式", func(d *model.ApplicationDraft) { d.Leader.Email = "not-an-email" }, LeaderPath("email"), "请输入有效的邮箱地址"},
		{"简介过长", func(d *model.ApplicationDraft) { d.Leader.Bio = strings.Repeat("研", 201) }, LeaderPath("bio"), "简介不能超过200字符"},
		{"背景过长", func(d *model.ApplicationDraft) { d.Background = strings.Repeat("a", 1501) }, ScalarPath(RootBackground), "背景和意义不能超过1500字"},
		{"负数金额", func(d *model.ApplicationDraft) { d.BudgetItems[1].SelfFundedAmount = -1 }, BudgetPath(1, "selfFundedAmount"), "金额不能为负"},
		{"未知专项", func(d *model.ApplicationDraft) { d.Discipline = "alchemy" }, ScalarPath(RootDiscipline), "请从列表中选择有效选项"},
		{"未知角色", func(d *model.ApplicationDraft) { d.Members[1].Role = "mascot" }, MemberPath(1, "role"), "请从列表中选择有效选项"},
		{"缺少日期", func(d *model.ApplicationDraft) { d.Milestones[2].StartDate = model.Date{} }, MilestonePath(2, "startDate"), "请选择开始日期"},
		{"项目日期倒置", func(d *model.ApplicationDraft) { d.EndDate = d.StartDate.AddDays(-1) }, ScalarPath(RootEndDate), "结束日期不能早于开始日期"},
		{"里程碑日期倒置", func(d *model.ApplicationDraft) { d.Milestones[0].EndDate = d.Milestones[0].StartDate.AddDays(-3) }, MilestonePath(0, "endDate"), "结束日期不能早于开始日期"},
		{"联系电话", func(d *model.ApplicationDraft) { d.Contact.Phone = "" }, ContactPath("phone"), "请输入联系电话"},
		{"空白目标", func(d *model.ApplicationDraft) { d.Milestones[1].Goals = " \n\t " }, MilestonePath(1, "goals"), "请输入预期目标"},
		{"全角空格姓名", func(d *model.ApplicationDraft) { d.Contact.Name = "\u3000" }, ContactPath("name"), "请输入姓名"},
		{"空白经费类别", func(d *model.ApplicationDraft) { d.BudgetItems[0].Category = "  " }, BudgetPath(0, "category"), "请选择经费类别"},
	}
	v := newTestValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := exampleDraft()
			tt.mutate(d)
			errs := v.ValidateAll(d)
			if errs.Count() != 1 {
				t.Fatalf("期望恰好 1 个错误，实际: %v", errs.Flat())
			}
			msg, ok := errs.Message(tt.path)
			if !ok || msg != tt.msg {
				t.Errorf("期望 %s=%q，实际: %v", tt.path, tt.msg, errs.Flat())
			}
		})
	}
}

func TestValidateAll_BioRuneBoundary(t *testing.T) {
	d := exampleDraft()
	d.Leader.Bio = strings.Repeat("研", 200)
	if errs := newTestValidator().ValidateAll(d); errs != nil {
		t.Errorf("200 个汉字的简介应通过，实际: %v", errs.Flat())
	}
}

func TestValidateAll_BlankDraftReportsEveryRequiredField(t *testing.T) {
	d := NewDraft()
	d.ProjectName = "   "
	d.Leader.Name = "\t"

	errs := newTestValidator().ValidateAll(d)
	if errs == nil {
		t.Fatal("空白草稿期望校验失败")
	}
	for _, p := range []Path{ScalarPath(RootProjectName), LeaderPath("name"), ContactPath("phone")} {
		if _, ok := errs.Message(p); !ok {
			t.Errorf("期望 %s 报错，实际: %v", p, errs.Flat())
		}
	}
}

func TestValidateAll_DuplicatesAllowed(t *testing.T) {
	d := exampleDraft()
	d.BudgetItems = append(d.BudgetItems, d.BudgetItems[0])
	d.Members = append(d.Members, d.Members[0])
	if errs := newTestValidator().ValidateAll(d); errs != nil {
		t.Errorf("重复类别/角色应允许，实际: %v", errs.Flat())
	}
}

func TestValidateAll_EnglishMessages(t *testing.T) {
	d := exampleDraft()
	d.ProjectName = ""
	errs := newTestValidator().ForLocale("en").ValidateAll(d)
	if msg, _ := errs.Message(ScalarPath(RootProjectName)); msg != "Please enter the project name" {
		t.Errorf("期望英文文案，实际=%q", msg)
	}
}

func TestValidateSection_OnlyOwnFields(t *testing.T) {
	d := NewDraft()
	v := newTestValidator()

	want := map[Step][]string{
		StepBasicInfo:    {"projectName", "startDate", "endDate", "discipline", "field"},
		StepTeam:         {"leader.name", "leader.email", "leader.title", "leader.education"},
		StepProjectIntro: {"projectSummary", "background", "milestones.0.startDate", "milestones.0.endDate", "milestones.0.content", "milestones.0.goals", "milestones.1.startDate", "milestones.1.endDate", "milestones.1.content", "milestones.1.goals", "milestones.2.startDate", "milestones.2.endDate", "milestones.2.content", "milestones.2.goals"},
		StepBudget:       {"budgetItems"},
		StepContact:      {"contact.name", "contact.email", "contact.phone"},
	}
	total := 0
	for step, paths := range want {
		errs := v.ValidateSection(step, d)
		var got []string
		for _, is := range errs.Issues() {
			got = append(got, is.Path.String())
		}
		if diff := cmp.Diff(paths, got); diff != "" {
			t.Errorf("%s 错误字段不符 (-want +got):\n%s", step, diff)
		}
		total += errs.Count()
	}
	if all := v.ValidateAll(d).Count(); all != total {
		t.Errorf("各步骤错误之和应等于整体错误数：%d != %d", total, all)
	}
}

// ── ErrorTree 测试 ──

func TestErrorTree_ShapeAndFirstInvalid(t *testing.T) {
	d := exampleDraft()
	d.Contact.Email = "x"
	d.Milestones[1].Goals = ""
	d.BudgetItems[2].Category = ""
	d.Leader.Name = ""

	errs := newTestValidator().ValidateAll(d)
	if errs.Count() != 4 {
		t.Fatalf("期望 4 个错误，实际: %v", errs.Flat())
	}
	first, ok := errs.FirstInvalid()
	if !ok || first != LeaderPath("name") {
		t.Errorf("首个错误字段期望 leader.name，实际=%s", first)
	}

	b, err := json.Marshal(errs)
	if err != nil {
		t.Fatalf("序列化失败: %v", err)
	}
	var tree map[string]interface{}
	if err := json.Unmarshal(b, &tree); err != nil {
		t.Fatalf("反序列化失败: %v", err)
	}
	want := map[string]interface{}{
		"leader":      map[string]interface{}{"name": "请输入姓名"},
		"milestones":  []interface{}{nil, map[string]interface{}{"goals": "请输入预期目标"}},
		"budgetItems": []interface{}{nil, nil, map[string]interface{}{"category": "请选择经费类别"}},
		"contact":     map[string]interface{}{"email": "请输入有效的邮箱地址"},
	}
	if diff := cmp.Diff(want, tree); diff != "" {
		t.Errorf("错误树结构不符 (-want +got):\n%s", diff)
	}
	if n := CountTree(tree); n != 4 {
		t.Errorf("CountTree 期望 4，实际=%d", n)
	}
}

func TestErrorTree_NilSafe(t *testing.T) {
	var errs *ErrorTree
	if errs.Count() != 0 || !errs.Empty() {
		t.Error("nil 错误树应为空")
	}
	if _, ok := errs.FirstInvalid(); ok {
		t.Error("nil 错误树不应有首个错误")
	}
	if errs.Filter(StepBudget) != nil {
		t.Error("nil 错误树过滤后应为 nil")
	}
}

// ── Draft 测试 ──

func TestNewDraft(t *testing.T) {
	d := NewDraft()
	if d.TeamSize != 1 {
		t.Errorf("期望 teamSize=1，实际=%d", d.TeamSize)
	}
	if len(d.Milestones) != 3 {
		t.Fatalf("期望 3 个里程碑，实际=%d", len(d.Milestones))
	}
	for i, stage := range model.MilestoneStages {
		if d.Milestones[i].Stage != stage || d.Milestones[i].Content != "" {
			t.Errorf("里程碑 %d 期望阶段 %s 且内容为空，实际=%+v", i, stage, d.Milestones[i])
		}
	}
	if len(d.Members) != 0 || len(d.BudgetItems) != 0 {
		t.Error("成员与经费应为空")
	}
}

func TestSet_Coercion(t *testing.T) {
	d := NewDraft()
	AppendBudgetItem(d)

	steps := []struct {
		path  string
		value interface{}
	}{
		{"projectName", "Ocean Sensing"},
		{"startDate", "2025-03-05"},
		{"endDate", time.Date(2026, 1, 31, 23, 0, 0, 0, time.FixedZone("X", -8*3600))},
		{"teamSize", float64(4)},
		{"budgetItems.0.donationAmount", json.Number("1200.5")},
		{"budgetItems.0.selfFundedAmount", "300"},
		{"milestones.2.goals", "a\nb"},
	}
	for _, s := range steps {
		p, err := ParsePath(s.path)
		if err != nil {
			t.Fatalf("ParsePath(%q): %v", s.path, err)
		}
		if err := Set(d, p, s.value); err != nil {
			t.Fatalf("Set(%s) 应成功: %v", s.path, err)
		}
	}

	if d.StartDate.String() != "2025-03-05" || d.EndDate.String() != "2026-01-31" {
		t.Errorf("日期设置错误: %s / %s", d.StartDate, d.EndDate)
	}
	if d.TeamSize != 4 || d.BudgetItems[0].DonationAmount != 1200.5 || d.BudgetItems[0].SelfFundedAmount != 300 {
		t.Errorf("数值设置错误: %+v", d)
	}
	if got := d.Totals(); got.Total != 1500.5 {
		t.Errorf("合计期望 1500.5，实际=%v", got.Total)
	}
}

func TestSet_Errors(t *testing.T) {
	d := NewDraft()
	if err := Set(d, MilestonePath(0, "stage"), "late"); !errors.Is(err, ErrFixedField) {
		t.Errorf("阶段不可修改，实际: %v", err)
	}
	if err := Set(d, MemberPath(0, "role"), "key-member"); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("期望下标越界，实际: %v", err)
	}
	if err := Set(d, ScalarPath(RootTeamSize), 1.5); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("人数需要整数，实际: %v", err)
	}
	for _, huge := range []float64{1e300, -1e300, math.Inf(1), math.NaN(), 1 << 63} {
		if err := Set(d, ScalarPath(RootTeamSize), huge); !errors.Is(err, ErrInvalidValue) {
			t.Errorf("人数 %v 超出整数范围应被拒绝，实际: %v", huge, err)
		}
	}
	if d.TeamSize != 1 {
		t.Errorf("拒绝后人数应保持 1，实际=%d", d.TeamSize)
	}
	if err := Set(d, ScalarPath(RootStartDate), "05/03/2025"); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("期望日期格式错误，实际: %v", err)
	}
	if err := Set(d, CollectionPath(RootMembers), "x"); !errors.Is(err, ErrUnknownPath) {
		t.Errorf("数组整体不可直接赋值，实际: %v", err)
	}
}

func TestRemove_ShiftsIndices(t *testing.T) {
	d := NewDraft()
	for _, role := range []string{"a", "b", "c"} {
		i := AppendMember(d)
		d.Members[i].Role = role
	}
	if err := RemoveMember(d, 1); err != nil {
		t.Fatalf("RemoveMember 应成功: %v", err)
	}
	if diff := cmp.Diff([]model.MemberInfo{{Role: "a"}, {Role: "c"}}, d.Members); diff != "" {
		t.Errorf("删除后成员不符 (-want +got):\n%s", diff)
	}
	if err := RemoveBudgetItem(d, 0); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("空经费删除应越界，实际: %v", err)
	}
}

func TestExampleDraft_Dates(t *testing.T) {
	d := exampleDraft()
	checks := map[string]model.Date{
		"start":   d.StartDate,
		"end":     d.EndDate,
		"p1End":   d.Milestones[0].EndDate,
		"p2Start": d.Milestones[1].StartDate,
		"p3End":   d.Milestones[2].EndDate,
	}
	want := map[string]string{
		"start":   "2025-03-01",
		"end":     "2027-02-28",
		"p1End":   "2025-10-31",
		"p2Start": "2025-11-01",
		"p3End":   "2027-02-28",
	}
	for k, v := range checks {
		if v.String() != want[k] {
			t.Errorf("%s 期望 %s，实际 %s", k, want[k], v)
		}
	}
	if got := d.Totals(); got.Donation != 193000 || got.SelfFunded != 67000 || got.Total != 260000 {
		t.Errorf("示例合计不符: %+v", got)
	}
}
