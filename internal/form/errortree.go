package form

import (
	"encoding/json"
	"sort"
)

// Issue 单个字段错误
type Issue struct {
	Path    Path   `json:"path"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ErrorTree 校验错误集合，JSON 形态与草稿结构一致：
// 对象按字段名嵌套，数组按下标嵌套，叶子为提示文案。
type ErrorTree struct {
	issues []Issue
}

func (t *ErrorTree) add(p Path, rule, msg string) {
	for _, is := range t.issues {
		if is.Path == p {
			return
		}
	}
	t.issues = append(t.issues, Issue{Path: p, Rule: rule, Message: msg})
}

// Count 叶子错误数
func (t *ErrorTree) Count() int {
	if t == nil {
		return 0
	}
	return len(t.issues)
}

// Empty 没有任何错误
func (t *ErrorTree) Empty() bool {
	return t.Count() == 0
}

// Issues 按优先级排序的错误列表
func (t *ErrorTree) Issues() []Issue {
	if t == nil {
		return nil
	}
	out := append([]Issue(nil), t.issues...)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i].Path, out[j].Path) })
	return out
}

// FirstInvalid 按固定优先级返回第一个错误字段
func (t *ErrorTree) FirstInvalid() (Path, bool) {
	issues := t.Issues()
	if len(issues) == 0 {
		return Path{}, false
	}
	return issues[0].Path, true
}

// Message 取某路径的错误文案
func (t *ErrorTree) Message(p Path) (string, bool) {
	if t == nil {
		return "", false
	}
	for _, is := range t.issues {
		if is.Path == p {
			return is.Message, true
		}
	}
	return "", false
}

// Filter 只保留属于 step 的错误；结果为空时返回 nil
func (t *ErrorTree) Filter(step Step) *ErrorTree {
	if t == nil {
		return nil
	}
	out := &ErrorTree{}
	for _, is := range t.issues {
		if is.Path.Step() == step {
			out.issues = append(out.issues, is)
		}
	}
	if out.Empty() {
		return nil
	}
	return out
}

// Tree 嵌套形式：map[string]interface{}，数组为 []interface{}（合法元素为 nil）
func (t *ErrorTree) Tree() map[string]interface{} {
	out := map[string]interface{}{}
	if t == nil {
		return out
	}
	for _, is := range t.Issues() {
		p := is.Path
		key := string(p.root)
		switch {
		case p.index >= 0:
			arr, _ := out[key].([]interface{})
			for len(arr) <= p.index {
				arr = append(arr, nil)
			}
			item, _ := arr[p.index].(map[string]interface{})
			if item == nil {
				item = map[string]interface{}{}
			}
			item[p.leaf] = is.Message
			arr[p.index] = item
			out[key] = arr
		case p.leaf != "":
			obj, _ := out[key].(map[string]interface{})
			if obj == nil {
				obj = map[string]interface{}{}
			}
			obj[p.leaf] = is.Message
			out[key] = obj
		default:
			out[key] = is.Message
		}
	}
	return out
}

// MarshalJSON 输出嵌套形式
func (t *ErrorTree) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Tree())
}

// Flat 点分路径到文案的映射（CLI 输出用）
func (t *ErrorTree) Flat() map[string]string {
	out := make(map[string]string, t.Count())
	for _, is := range t.Issues() {
		out[is.Path.String()] = is.Message
	}
	return out
}

func countTree(v interface{}) int {
	switch x := v.(type) {
	case string:
		return 1
	case map[string]interface{}:
		n := 0
		for _, c := range x {
			n += countTree(c)
		}
		return n
	case []interface{}:
		n := 0
		for _, c := range x {
			n += countTree(c)
		}
		return n
	}
	return 0
}

// CountTree 递归统计任意嵌套错误树（如 Tree() 或客户端回传的 JSON）的叶子数
func CountTree(v interface{}) int {
	return countTree(v)
}
