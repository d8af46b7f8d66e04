package form

import (
	"fmt"
	"strconv"
	"strings"
)

// Root 草稿顶层字段（JSON 名）
type Root string

const (
	RootProjectName    Root = "projectName"
	RootStartDate      Root = "startDate"
	RootEndDate        Root = "endDate"
	RootDiscipline     Root = "discipline"
	RootField          Root = "field"
	RootTeamSize       Root = "teamSize"
	RootLeader         Root = "leader"
	RootMembers        Root = "members"
	RootProjectSummary Root = "projectSummary"
	RootBackground     Root = "background"
	RootMilestones     Root = "milestones"
	RootBudgetItems    Root = "budgetItems"
	RootContact        Root = "contact"
)

// rootOrder 首个错误字段的查找顺序，同时决定字段归属的步骤
var rootOrder = []struct {
	root Root
	step Step
}{
	{RootProjectName, StepBasicInfo},
	{RootStartDate, StepBasicInfo},
	{RootEndDate, StepBasicInfo},
	{RootDiscipline, StepBasicInfo},
	{RootField, StepBasicInfo},
	{RootTeamSize, StepBasicInfo},
	{RootLeader, StepTeam},
	{RootMembers, StepTeam},
	{RootProjectSummary, StepProjectIntro},
	{RootBackground, StepProjectIntro},
	{RootMilestones, StepProjectIntro},
	{RootBudgetItems, StepBudget},
	{RootContact, StepContact},
}

// 各复合字段的叶子，顺序即优先级
var (
	leaderLeaves    = []string{"name", "orcid", "email", "title", "education", "bio"}
	memberLeaves    = []string{"role", "resumeRef"}
	milestoneLeaves = []string{"stage", "startDate", "endDate", "content", "goals"}
	budgetLeaves    = []string{"category", "donationAmount", "selfFundedAmount"}
	contactLeaves   = []string{"name", "email", "phone"}
)

// Path 草稿内的字段路径，只能由下面的构造函数或 ParsePath 得到
type Path struct {
	root  Root
	index int // 数组元素下标，-1 表示无
	leaf  string
}

// ScalarPath 顶层标量字段
func ScalarPath(root Root) Path {
	return Path{root: root, index: -1}
}

// CollectionPath 数组整体（如里程碑数量、经费条目数量）
func CollectionPath(root Root) Path {
	return Path{root: root, index: -1}
}

// LeaderPath leader.<leaf>
func LeaderPath(leaf string) Path {
	return Path{root: RootLeader, index: -1, leaf: leaf}
}

// ContactPath contact.<leaf>
func ContactPath(leaf string) Path {
	return Path{root: RootContact, index: -1, leaf: leaf}
}

// MemberPath members.<i>.<leaf>
func MemberPath(i int, leaf string) Path {
	return Path{root: RootMembers, index: i, leaf: leaf}
}

// MilestonePath milestones.<i>.<leaf>
func MilestonePath(i int, leaf string) Path {
	return Path{root: RootMilestones, index: i, leaf: leaf}
}

// BudgetPath budgetItems.<i>.<leaf>
func BudgetPath(i int, leaf string) Path {
	return Path{root: RootBudgetItems, index: i, leaf: leaf}
}

func (p Path) Root() Root     { return p.root }
func (p Path) Index() int     { return p.index }
func (p Path) Leaf() string   { return p.leaf }
func (p Path) IsZero() bool   { return p.root == "" }
func (p Path) HasIndex() bool { return p.index >= 0 }

// String 点分形式，如 milestones.1.goals
func (p Path) String() string {
	var b strings.Builder
	b.WriteString(string(p.root))
	if p.index >= 0 {
		b.WriteByte('.')
		b.WriteString(strconv.Itoa(p.index))
	}
	if p.leaf != "" {
		b.WriteByte('.')
		b.WriteString(p.leaf)
	}
	return b.String()
}

// Key 去掉下标后的形式，用于查找提示文案
func (p Path) Key() string {
	if p.leaf == "" {
		return string(p.root)
	}
	return string(p.root) + "." + p.leaf
}

// Step 字段所属步骤
func (p Path) Step() Step {
	for _, r := range rootOrder {
		if r.root == p.root {
			return r.step
		}
	}
	return StepBasicInfo
}

// MarshalText 以点分字符串序列化
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText 解析点分字符串
func (p *Path) UnmarshalText(b []byte) error {
	parsed, err := ParsePath(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePath 解析外部传入的点分路径；数组下标也接受 members[0].role 形式
func ParsePath(s string) (Path, error) {
	s = strings.NewReplacer("[", ".", "]", "").Replace(strings.TrimSpace(s))
	parts := strings.Split(s, ".")

	root := Root(parts[0])
	switch root {
	case RootProjectName, RootStartDate, RootEndDate, RootDiscipline, RootField,
		RootTeamSize, RootProjectSummary, RootBackground:
		if len(parts) != 1 {
			break
		}
		return ScalarPath(root), nil

	case RootLeader, RootContact:
		leaves := leaderLeaves
		if root == RootContact {
			leaves = contactLeaves
		}
		if len(parts) == 2 && contains(leaves, parts[1]) {
			return Path{root: root, index: -1, leaf: parts[1]}, nil
		}

	case RootMembers, RootMilestones, RootBudgetItems:
		if len(parts) == 1 {
			return CollectionPath(root), nil
		}
		if len(parts) != 3 {
			break
		}
		i, err := strconv.Atoi(parts[1])
		if err != nil || i < 0 {
			break
		}
		if contains(leavesOf(root), parts[2]) {
			return Path{root: root, index: i, leaf: parts[2]}, nil
		}
	}
	return Path{}, fmt.Errorf("%w: %q", ErrUnknownPath, s)
}

func leavesOf(root Root) []string {
	switch root {
	case RootLeader:
		return leaderLeaves
	case RootMembers:
		return memberLeaves
	case RootMilestones:
		return milestoneLeaves
	case RootBudgetItems:
		return budgetLeaves
	case RootContact:
		return contactLeaves
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// less 按固定优先级比较两个路径
func less(a, b Path) bool {
	ra, rb := rootRank(a.root), rootRank(b.root)
	if ra != rb {
		return ra < rb
	}
	if a.index != b.index {
		return a.index < b.index
	}
	return leafRank(a) < leafRank(b)
}

func rootRank(r Root) int {
	for i, o := range rootOrder {
		if o.root == r {
			return i
		}
	}
	return len(rootOrder)
}

func leafRank(p Path) int {
	if p.leaf == "" {
		return -1
	}
	for i, l := range leavesOf(p.root) {
		if l == p.leaf {
			return i
		}
	}
	return len(leavesOf(p.root))
}
