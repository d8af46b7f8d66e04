package form

// 字段提示文案：先按 "路径.规则" 查找，再按规则回退
var fieldMessages = map[string]map[string]string{
	"zh": {
		"projectName.notblank":             "请输入项目名称",
		"startDate.required":               "请选择开始日期",
		"endDate.required":                 "请选择结束日期",
		"endDate.dateorder":                "结束日期不能早于开始日期",
		"discipline.notblank":              "请选择所属专项",
		"field.notblank":                   "请选择所属领域",
		"teamSize.min":                     "项目人数至少为1",
		"leader.name.notblank":             "请输入姓名",
		"leader.email.notblank":            "请输入有效的邮箱地址",
		"leader.email.email":               "请输入有效的邮箱地址",
		"leader.title.notblank":            "请选择职称",
		"leader.education.notblank":        "请选择学历",
		"leader.bio.max":                   "简介不能超过200字符",
		"members.role.notblank":            "请选择角色",
		"projectSummary.notblank":          "请输入项目简介",
		"projectSummary.max":               "项目简介不能超过1500字",
		"background.notblank":              "请输入实施的背景和意义",
		"background.max":                   "背景和意义不能超过1500字",
		"milestones.len":                   "需要填写三个阶段的里程碑",
		"milestones.startDate.required":    "请选择开始日期",
		"milestones.endDate.required":      "请选择结束日期",
		"milestones.endDate.dateorder":     "结束日期不能早于开始日期",
		"milestones.content.notblank":      "请输入主要研究内容",
		"milestones.goals.notblank":        "请输入预期目标",
		"budgetItems.min":                  "请至少添加一项经费",
		"budgetItems.category.notblank":    "请选择经费类别",
		"budgetItems.donationAmount.min":   "金额不能为负",
		"budgetItems.selfFundedAmount.min": "金额不能为负",
		"contact.name.notblank":            "请输入姓名",
		"contact.email.notblank":           "请输入有效的邮箱地址",
		"contact.email.email":              "请输入有效的邮箱地址",
		"contact.phone.notblank":           "请输入联系电话",
	},
	"en": {
		"projectName.notblank":             "Please enter the project name",
		"startDate.required":               "Please select a start date",
		"endDate.required":                 "Please select an end date",
		"endDate.dateorder":                "End date cannot be earlier than start date",
		"discipline.notblank":              "Please select a discipline",
		"field.notblank":                   "Please select a research field",
		"teamSize.min":                     "Team size must be at least 1",
		"leader.name.notblank":             "Please enter a name",
		"leader.email.notblank":            "Please enter a valid email address",
		"leader.email.email":               "Please enter a valid email address",
		"leader.title.notblank":            "Please select a title",
		"leader.education.notblank":        "Please select an education level",
		"leader.bio.max":                   "Bio cannot exceed 200 characters",
		"members.role.notblank":            "Please select a role",
		"projectSummary.notblank":          "Please enter a project summary",
		"projectSummary.max":               "Project summary cannot exceed 1500 characters",
		"background.notblank":              "Please enter the background and significance",
		"background.max":                   "Background cannot exceed 1500 characters",
		"milestones.len":                   "Three milestones are required",
		"milestones.startDate.required":    "Please select a start date",
		"milestones.endDate.required":      "Please select an end date",
		"milestones.endDate.dateorder":     "End date cannot be earlier than start date",
		"milestones.content.notblank":      "Please enter the main research content",
		"milestones.goals.notblank":        "Please enter the expected goals",
		"budgetItems.min":                  "Please add at least one budget item",
		"budgetItems.category.notblank":    "Please select a budget category",
		"budgetItems.donationAmount.min":   "Amount cannot be negative",
		"budgetItems.selfFundedAmount.min": "Amount cannot be negative",
		"contact.name.notblank":            "Please enter a name",
		"contact.email.notblank":           "Please enter a valid email address",
		"contact.email.email":              "Please enter a valid email address",
		"contact.phone.notblank":           "Please enter a phone number",
	},
}

var ruleMessages = map[string]map[string]string{
	"zh": {
		"required":  "此项为必填项",
		"notblank":  "此项为必填项",
		"email":     "请输入有效的邮箱地址",
		"min":       "数值过小",
		"max":       "内容过长",
		"len":       "数量不正确",
		"oneof":     "取值无效",
		"option":    "请从列表中选择有效选项",
		"dateorder": "结束日期不能早于开始日期",
	},
	"en": {
		"required":  "This field is required",
		"notblank":  "This field is required",
		"email":     "Please enter a valid email address",
		"min":       "Value is too small",
		"max":       "Value is too long",
		"len":       "Incorrect number of entries",
		"oneof":     "Invalid value",
		"option":    "Please choose a valid option",
		"dateorder": "End date cannot be earlier than start date",
	},
}

const defaultLocale = "zh"

// messageFor 解析字段提示文案
func messageFor(locale string, p Path, rule string) string {
	if _, ok := fieldMessages[locale]; !ok {
		locale = defaultLocale
	}
	if msg, ok := fieldMessages[locale][p.Key()+"."+rule]; ok {
		return msg
	}
	if msg, ok := ruleMessages[locale][rule]; ok {
		return msg
	}
	return ruleMessages[locale]["required"]
}
