// Package options 维护下拉选项目录（locale -> kind -> 选项列表）。
// 目录同时服务于展示与校验：校验只比较 value，与语言无关。
package options

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Kind 选项类别
type Kind string

const (
	KindDiscipline     Kind = "discipline"
	KindResearchField  Kind = "researchField"
	KindTitle          Kind = "title"
	KindEducation      Kind = "education"
	KindBudgetCategory Kind = "budgetCategory"
	KindMemberRole     Kind = "memberRole"
	KindMilestoneStage Kind = "milestoneStage"
)

// RemoteKinds 后端 /options/{type} 提供的类别
var RemoteKinds = []Kind{KindDiscipline, KindResearchField, KindTitle, KindEducation, KindBudgetCategory}

// ParseKind 校验类别名
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case KindDiscipline, KindResearchField, KindTitle, KindEducation,
		KindBudgetCategory, KindMemberRole, KindMilestoneStage:
		return k, true
	}
	return "", false
}

// Option 单个选项
type Option struct {
	Value       string `yaml:"value"                 json:"value"`
	Label       string `yaml:"label"                 json:"label"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Lists locale -> kind -> 选项
type Lists map[string]map[Kind][]Option

// FallbackLocale 请求的语言缺失时使用
const FallbackLocale = "zh"

//go:embed defaults.yaml
var defaultsYAML []byte

// Catalog 并发安全的选项目录
type Catalog struct {
	mu    sync.RWMutex
	lists Lists
}

// NewCatalog 以给定列表创建目录
func NewCatalog(lists Lists) *Catalog {
	return &Catalog{lists: copyLists(lists)}
}

// Default 内置默认目录
func Default() *Catalog {
	lists, err := Parse(defaultsYAML)
	if err != nil {
		panic(fmt.Sprintf("内置选项目录损坏: %v", err))
	}
	return NewCatalog(lists)
}

// Parse 解析 YAML 目录
func Parse(data []byte) (Lists, error) {
	var lists Lists
	if err := yaml.Unmarshal(data, &lists); err != nil {
		return nil, fmt.Errorf("解析选项目录失败: %w", err)
	}
	for locale, kinds := range lists {
		for kind, opts := range kinds {
			if _, ok := ParseKind(string(kind)); !ok {
				return nil, fmt.Errorf("选项目录 %s 中存在未知类别 %q", locale, kind)
			}
			for i, o := range opts {
				if o.Value == "" {
					return nil, fmt.Errorf("选项目录 %s/%s 第 %d 项缺少 value", locale, kind, i)
				}
			}
		}
	}
	return lists, nil
}

// List 返回 locale 下某类别的选项副本；locale 缺失时回退到中文
func (c *Catalog) List(locale string, kind Kind) []Option {
	c.mu.RLock()
	defer c.mu.RUnlock()

	kinds, ok := c.lists[locale]
	if !ok {
		kinds = c.lists[FallbackLocale]
	}
	return append([]Option(nil), kinds[kind]...)
}

// Has 判断 value 是否属于该类别（任一语言）
func (c *Catalog) Has(kind Kind, value string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, kinds := range c.lists {
		for _, o := range kinds[kind] {
			if o.Value == value {
				return true
			}
		}
	}
	return false
}

// Label 取展示文本，未找到时返回 value 本身
func (c *Catalog) Label(locale string, kind Kind, value string) string {
	for _, o := range c.List(locale, kind) {
		if o.Value == value {
			return o.Label
		}
	}
	return value
}

// Locales 已配置的语言，按字典序
func (c *Catalog) Locales() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	locales := make([]string, 0, len(c.lists))
	for l := range c.lists {
		locales = append(locales, l)
	}
	sort.Strings(locales)
	return locales
}

// Replace 替换某语言下某类别的选项
func (c *Catalog) Replace(locale string, kind Kind, opts []Option) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lists == nil {
		c.lists = Lists{}
	}
	if c.lists[locale] == nil {
		c.lists[locale] = map[Kind][]Option{}
	}
	c.lists[locale][kind] = append([]Option(nil), opts...)
}

// Merge 以 lists 覆盖目录中出现的 locale/kind，其余保持不变
func (c *Catalog) Merge(lists Lists) {
	for locale, kinds := range lists {
		for kind, opts := range kinds {
			c.Replace(locale, kind, opts)
		}
	}
}

func copyLists(in Lists) Lists {
	out := make(Lists, len(in))
	for locale, kinds := range in {
		out[locale] = make(map[Kind][]Option, len(kinds))
		for kind, opts := range kinds {
			out[locale][kind] = append([]Option(nil), opts...)
		}
	}
	return out
}
