package service

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/DEV-OpenSCI/desci-form/internal/model"
	"github.com/DEV-OpenSCI/desci-form/internal/options"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoBudget     = errors.New("草稿中暂无经费条目")
	ErrExportNoMilestones = errors.New("里程碑尚未填写日期")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

const exportProductID = "-//DEV-OpenSCI//desci-form//CN"

var (
	exportSheetName        = map[string]string{"zh": "经费预算", "en": "Budget"}
	exportUntitled         = map[string]string{"zh": "未命名项目", "en": "Untitled project"}
	exportBudgetHeaders    = map[string][]string{"zh": {"序号", "类别", "说明", "捐赠金额", "自筹金额", "小计"}, "en": {"No.", "Category", "Description", "Donation", "Self-funded", "Subtotal"}}
	exportTotalLabel       = map[string]string{"zh": "合计", "en": "Total"}
	exportMilestoneSummary = map[string]string{"zh": "%s · %s", "en": "%s · %s"}
	exportGoalsLabel       = map[string]string{"zh": "目标", "en": "Goals"}
)

// ExportService 申请打印件导出：经费预算表与里程碑日历
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置响应头后写入 Response。
type ExportService interface {
	// BudgetWorkbook 经费预算表 (.xlsx)
	BudgetWorkbook(draft *model.ApplicationDraft, applicationNo, locale string) (*bytes.Buffer, string, error)
	// MilestoneCalendar 里程碑日历 (.ics)，每个阶段一个全天事件
	MilestoneCalendar(draft *model.ApplicationDraft, applicationNo, locale string) (*bytes.Buffer, string, error)
}

type exportService struct {
	catalog *options.Catalog
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(catalog *options.Catalog, logger *zap.Logger) ExportService {
	return &exportService{catalog: catalog, logger: logger, now: time.Now}
}

// ═══════════════════════════════════════════════════════════
// BudgetWorkbook 导出经费预算表
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 第 1 行：项目名称（合并单元格）
//   - 第 2 行：表头
//   - 数据行：按草稿顺序，每个条目一行
//   - 末行：合计

func (s *exportService) BudgetWorkbook(draft *model.ApplicationDraft, applicationNo, locale string) (*bytes.Buffer, string, error) {
	if len(draft.BudgetItems) == 0 {
		return nil, "", ErrExportNoBudget
	}
	title := projectTitle(draft, locale)
	headers := exportBudgetHeaders[locale]
	if headers == nil {
		headers = exportBudgetHeaders["zh"]
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := localized(exportSheetName, locale)
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, "", ErrExportGenerateFail
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheet, "A", "A", 8)
	f.SetColWidth(sheet, "B", "B", 22)
	f.SetColWidth(sheet, "C", "C", 40)
	f.SetColWidth(sheet, "D", "F", 16)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	moneyStyle, _ := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	totalStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, NumFmt: 4})

	// 标题行
	heading := title
	if applicationNo != "" {
		heading = fmt.Sprintf("%s (%s)", title, applicationNo)
	}
	f.SetCellValue(sheet, "A1", heading)
	f.MergeCell(sheet, "A1", cell(colName(len(headers)-1), 1))
	f.SetCellStyle(sheet, "A1", "A1", headerStyle)

	// 表头
	for i, h := range headers {
		f.SetCellValue(sheet, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheet, "A2", cell(colName(len(headers)-1), 2), headerStyle)

	// 数据行
	row := 3
	for i, b := range draft.BudgetItems {
		label, desc := s.category(locale, b.Category)
		f.SetCellValue(sheet, cell("A", row), i+1)
		f.SetCellValue(sheet, cell("B", row), label)
		f.SetCellValue(sheet, cell("C", row), desc)
		f.SetCellValue(sheet, cell("D", row), b.DonationAmount)
		f.SetCellValue(sheet, cell("E", row), b.SelfFundedAmount)
		f.SetCellValue(sheet, cell("F", row), b.DonationAmount+b.SelfFundedAmount)
		f.SetCellStyle(sheet, cell("D", row), cell("F", row), moneyStyle)
		row++
	}

	// 合计行
	totals := draft.Totals()
	f.SetCellValue(sheet, cell("B", row), localized(exportTotalLabel, locale))
	f.SetCellValue(sheet, cell("D", row), totals.Donation)
	f.SetCellValue(sheet, cell("E", row), totals.SelfFunded)
	f.SetCellValue(sheet, cell("F", row), totals.Total)
	f.SetCellStyle(sheet, cell("B", row), cell("F", row), totalStyle)

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return buf, exportFileName(title, applicationNo, "budget", "xlsx"), nil
}

func (s *exportService) category(locale, value string) (string, string) {
	for _, o := range s.catalog.List(locale, options.KindBudgetCategory) {
		if o.Value == value {
			return o.Label, o.Description
		}
	}
	return value, ""
}

// ═══════════════════════════════════════════════════════════
// MilestoneCalendar 导出里程碑日历
// ═══════════════════════════════════════════════════════════
//
// 每个填写了起止日期的阶段生成一个全天事件；DTEND 为结束日的次日（RFC 5545 不含终点）。
// 描述为阶段内容加逐行目标。

func (s *exportService) MilestoneCalendar(draft *model.ApplicationDraft, applicationNo, locale string) (*bytes.Buffer, string, error) {
	title := projectTitle(draft, locale)
	stamp := s.now().UTC()

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(exportProductID)
	cal.SetXWRCalName(title)

	events := 0
	for _, m := range draft.Milestones {
		if m.StartDate.IsZero() || m.EndDate.IsZero() {
			continue
		}
		uid := fmt.Sprintf("%s-%s@desci-form", eventKey(applicationNo, title), m.Stage)
		event := cal.AddEvent(uid)
		event.SetDtStampTime(stamp)
		event.SetAllDayStartAt(m.StartDate.Time(time.UTC))
		event.SetAllDayEndAt(m.EndDate.AddDays(1).Time(time.UTC))
		stage := s.catalog.Label(locale, options.KindMilestoneStage, m.Stage)
		event.SetSummary(fmt.Sprintf(localized(exportMilestoneSummary, locale), title, stage))
		event.SetDescription(milestoneDescription(m, locale))
		events++
	}
	if events == 0 {
		return nil, "", ErrExportNoMilestones
	}

	buf := bytes.NewBufferString(cal.Serialize())
	return buf, exportFileName(title, applicationNo, "milestones", "ics"), nil
}

func milestoneDescription(m model.MilestoneInfo, locale string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(m.Content))
	if goals := SplitGoals(m.Goals); len(goals) > 0 {
		b.WriteString("\n\n")
		b.WriteString(localized(exportGoalsLabel, locale))
		b.WriteString(":")
		for _, g := range goals {
			b.WriteString("\n- ")
			b.WriteString(g)
		}
	}
	return b.String()
}

// ── 辅助函数 ──

func projectTitle(d *model.ApplicationDraft, locale string) string {
	if name := strings.TrimSpace(d.ProjectName); name != "" {
		return name
	}
	return localized(exportUntitled, locale)
}

func eventKey(applicationNo, title string) string {
	if applicationNo != "" {
		return applicationNo
	}
	return strings.Join(strings.Fields(strings.ToLower(title)), "-")
}

func exportFileName(title, applicationNo, kind, ext string) string {
	base := applicationNo
	if base == "" {
		base = strings.NewReplacer("/", "_", "\\", "_", " ", "_").Replace(title)
	}
	return fmt.Sprintf("%s_%s.%s", base, kind, ext)
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
