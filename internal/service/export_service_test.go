package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"

	"github.com/DEV-OpenSCI/desci-form/internal/form"
	"github.com/DEV-OpenSCI/desci-form/internal/model"
	"github.com/DEV-OpenSCI/desci-form/internal/options"
)

func setupTestExportService() ExportService {
	return NewExportService(options.Default(), nopLogger)
}

// ── BudgetWorkbook 测试 ──

func TestExportService_BudgetWorkbook_NoItems(t *testing.T) {
	svc := setupTestExportService()

	_, _, err := svc.BudgetWorkbook(form.NewDraft(), "", "zh")
	if !errors.Is(err, ErrExportNoBudget) {
		t.Errorf("期望 ErrExportNoBudget，实际: %v", err)
	}
}

func TestExportService_BudgetWorkbook_Success(t *testing.T) {
	svc := setupTestExportService()
	d := form.ExampleDraft(time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC))

	buf, filename, err := svc.BudgetWorkbook(d, "APP-2025-000123", "zh")
	if err != nil {
		t.Fatalf("导出失败: %v", err)
	}
	if filename != "APP-2025-000123_budget.xlsx" {
		t.Errorf("文件名不符: %s", filename)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("无法读取生成的 Excel: %v", err)
	}
	defer f.Close()

	sheet := "经费预算"
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		t.Fatalf("缺少工作表 %s", sheet)
	}
	if v, _ := f.GetCellValue(sheet, "B3"); v != "设备费" {
		t.Errorf("第一行类别期望 设备费，实际=%s", v)
	}
	if v, _ := f.GetCellValue(sheet, "C3"); !strings.Contains(v, "仪器设备") {
		t.Errorf("类别说明缺失: %s", v)
	}

	// 7 个条目 → 合计在第 10 行
	if v, _ := f.GetCellValue(sheet, "B10"); v != "合计" {
		t.Errorf("期望第 10 行为合计，实际=%s", v)
	}
	raw, _ := f.GetCellValue(sheet, "F10", excelize.Options{RawCellValue: true})
	if raw != "260000" {
		t.Errorf("总计期望 260000，实际=%s", raw)
	}
}

// ── MilestoneCalendar 测试 ──

func TestExportService_MilestoneCalendar(t *testing.T) {
	svc := setupTestExportService()
	d := form.ExampleDraft(time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC))

	buf, filename, err := svc.MilestoneCalendar(d, "APP-2025-000123", "zh")
	if err != nil {
		t.Fatalf("导出失败: %v", err)
	}
	if filename != "APP-2025-000123_milestones.ics" {
		t.Errorf("文件名不符: %s", filename)
	}

	cal, err := ics.ParseCalendar(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("无法解析生成的日历: %v", err)
	}
	events := cal.Events()
	if len(events) != 3 {
		t.Fatalf("期望 3 个里程碑事件，实际 %d", len(events))
	}

	first := events[0]
	if got := first.GetProperty(ics.ComponentPropertySummary).Value; !strings.Contains(got, "初期") {
		t.Errorf("事件标题应包含阶段名，实际=%s", got)
	}
	if got := first.GetProperty(ics.ComponentPropertyDtStart).Value; got != "20250301" {
		t.Errorf("初期开始日期期望 20250301，实际=%s", got)
	}
	// 初期结束于 2025-10-31，DTEND 为次日
	if got := first.GetProperty(ics.ComponentPropertyDtEnd).Value; got != "20251101" {
		t.Errorf("初期 DTEND 期望 20251101，实际=%s", got)
	}
}

func TestExportService_MilestoneCalendar_NoDates(t *testing.T) {
	svc := setupTestExportService()
	d := form.NewDraft()
	d.Milestones[0].StartDate = model.NewDate(2025, 1, 1)

	_, _, err := svc.MilestoneCalendar(d, "", "zh")
	if !errors.Is(err, ErrExportNoMilestones) {
		t.Errorf("期望 ErrExportNoMilestones，实际: %v", err)
	}
}
