package dto

import (
	"github.com/DEV-OpenSCI/desci-form/internal/form"
	"github.com/DEV-OpenSCI/desci-form/internal/model"
)

// ── 表单模块 DTO ──

// StartFormRequest 开始/重新开始填写
type StartFormRequest struct {
	Test bool `json:"test"` // 测试模式：以示例数据预填
}

// SetFieldRequest 更新单个字段
type SetFieldRequest struct {
	Path  string      `json:"path"  binding:"required,max=64"`
	Value interface{} `json:"value"`
}

// GoToRequest 跳转到指定步骤
type GoToRequest struct {
	Index *int `json:"index" binding:"required,min=0,max=4"`
}

// IndexResponse 新增数组元素后的下标
type IndexResponse struct {
	Index int `json:"index"`
}

// FormResponse 表单当前状态
type FormResponse struct {
	State  form.State              `json:"state"`
	Draft  *model.ApplicationDraft `json:"draft"`
	Totals model.BudgetTotals      `json:"totals"`
}

// ValidationErrorData 校验失败时随响应返回
type ValidationErrorData struct {
	Errors       *form.ErrorTree `json:"errors"`
	ErrorCount   int             `json:"error_count"`
	FirstInvalid string          `json:"first_invalid,omitempty"`
	State        form.State      `json:"state"`
}

// NewValidationErrorData 由错误树构造响应数据
func NewValidationErrorData(errs *form.ErrorTree, state form.State) *ValidationErrorData {
	data := &ValidationErrorData{
		Errors:     errs,
		ErrorCount: errs.Count(),
		State:      state,
	}
	if p, ok := errs.FirstInvalid(); ok {
		data.FirstInvalid = p.String()
	}
	return data
}

// SubmitResponse 提交成功
type SubmitResponse struct {
	ApplicationNo string     `json:"application_no"`
	Countdown     int        `json:"countdown"`
	State         form.State `json:"state"`
}
