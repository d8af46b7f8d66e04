package form

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/DEV-OpenSCI/desci-form/internal/model"
	"github.com/DEV-OpenSCI/desci-form/internal/options"
)

// Validator 草稿校验器。规则来自 model 上的 validate 标签，
// 枚举值通过 option=<kind> 对照注入的选项目录。
type Validator struct {
	v       *validator.Validate
	catalog *options.Catalog
	locale  string
}

// NewValidator 创建校验器
func NewValidator(catalog *options.Catalog) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// 日期零值视为未填写
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(model.Date); ok && !d.IsZero() {
			return d.String()
		}
		return ""
	}, model.Date{})

	fv := &Validator{v: v, catalog: catalog, locale: defaultLocale}

	// notblank 不是内置标签，需显式注册；空白字符串视为未填写
	mustRegister(v, "notblank", validators.NotBlank)
	mustRegister(v, "option", fv.validateOption)
	v.RegisterStructValidation(draftDateOrder, model.ApplicationDraft{})
	v.RegisterStructValidation(milestoneDateOrder, model.MilestoneInfo{})
	return fv
}

// mustRegister 标签注册失败属于编程错误
func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("注册校验规则 %s 失败: %v", tag, err))
	}
}

// ForLocale 返回使用指定语言文案的校验器（共享规则与目录）
func (fv *Validator) ForLocale(locale string) *Validator {
	if _, ok := fieldMessages[locale]; !ok {
		locale = defaultLocale
	}
	return &Validator{v: fv.v, catalog: fv.catalog, locale: locale}
}

// Locale 当前文案语言
func (fv *Validator) Locale() string { return fv.locale }

// ValidateAll 校验整份草稿；合法时返回 nil
func (fv *Validator) ValidateAll(d *model.ApplicationDraft) *ErrorTree {
	if d == nil {
		d = NewDraft()
	}
	var verrs validator.ValidationErrors
	if err := fv.v.Struct(d); !errors.As(err, &verrs) {
		return nil
	}

	tree := &ErrorTree{}
	for _, fe := range verrs {
		p, ok := pathOf(fe.Namespace())
		if !ok {
			continue
		}
		tree.add(p, fe.Tag(), messageFor(fv.locale, p, fe.Tag()))
	}
	if tree.Empty() {
		return nil
	}
	return tree
}

// ValidateSection 只校验 step 拥有的字段；合法时返回 nil
func (fv *Validator) ValidateSection(step Step, d *model.ApplicationDraft) *ErrorTree {
	return fv.ValidateAll(d).Filter(step)
}

func (fv *Validator) validateOption(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		// 必填由 notblank 负责
		return true
	}
	return fv.catalog.Has(options.Kind(fl.Param()), value)
}

func draftDateOrder(sl validator.StructLevel) {
	d := sl.Current().Interface().(model.ApplicationDraft)
	if !d.StartDate.IsZero() && !d.EndDate.IsZero() && d.EndDate.Before(d.StartDate) {
		sl.ReportError(d.EndDate, "endDate", "EndDate", "dateorder", "")
	}
}

func milestoneDateOrder(sl validator.StructLevel) {
	m := sl.Current().Interface().(model.MilestoneInfo)
	if !m.StartDate.IsZero() && !m.EndDate.IsZero() && m.EndDate.Before(m.StartDate) {
		sl.ReportError(m.EndDate, "endDate", "EndDate", "dateorder", "")
	}
}

// pathOf 将 "ApplicationDraft.milestones[1].goals" 转换为 Path
func pathOf(namespace string) (Path, bool) {
	i := strings.IndexByte(namespace, '.')
	if i < 0 {
		return Path{}, false
	}
	p, err := ParsePath(namespace[i+1:])
	if err != nil {
		return Path{}, false
	}
	return p, true
}
