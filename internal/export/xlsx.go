package export

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"voicebudget/internal/core"
	"voicebudget/internal/log"
)

// ExpenseLister is the slice of the repository the exporter reads from.
type ExpenseLister interface {
	ListExpenses(ctx context.Context, userID string, limit, offset int64) ([]core.Expense, error)
}

// exportPageSize keeps one query from loading an unbounded history.
const exportPageSize = 1000

// XLSXExporter produces a spreadsheet of a user's expenses for download.
type XLSXExporter struct {
	store ExpenseLister
	log   *log.Logger
}

func NewXLSXExporter(store ExpenseLister, logger *log.Logger) *XLSXExporter {
	return &XLSXExporter{
		store: store,
		log:   logger.WithComponent(log.ComponentExport),
	}
}

// ExportExpensesXLSX returns an XLSX workbook as bytes with one row per
// expense, newest first.
func (x *XLSXExporter) ExportExpensesXLSX(ctx context.Context, userID string) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Expenses"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	// Drop excelize's default sheet when it isn't ours.
	if idx, _ := f.GetSheetIndex("Sheet1"); idx != -1 && sheet != "Sheet1" {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{"Date", "Category", "Description", "Amount", "Budgeted", "Transcription"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	total := 0
	var offset int64
	for {
		expenses, err := x.store.ListExpenses(ctx, userID, exportPageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("query expenses: %w", err)
		}
		for _, e := range expenses {
			write := func(col int, v any) {
				cell, _ := excelize.CoordinatesToCellName(col, row)
				_ = f.SetCellValue(sheet, cell, v)
			}
			write(1, e.SpentAt.Format("2006-01-02"))
			write(2, string(e.Category))
			write(3, e.Description)
			write(4, e.Amount.Dollars())
			write(5, e.BudgetID != nil)
			write(6, e.Transcription)
			row++
		}
		total += len(expenses)
		if len(expenses) < exportPageSize {
			break
		}
		offset += exportPageSize
	}

	_ = f.SetColWidth(sheet, "A", "A", 12) // date
	_ = f.SetColWidth(sheet, "B", "B", 18) // category
	_ = f.SetColWidth(sheet, "C", "C", 32) // description
	_ = f.SetColWidth(sheet, "D", "E", 12) // amount, budgeted
	_ = f.SetColWidth(sheet, "F", "F", 60) // transcription

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	x.log.InfoContext(ctx, "expenses exported",
		log.FieldUserID, userID,
		"rows", total,
		log.FieldDuration, time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}
