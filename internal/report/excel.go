// Package report renders the decision ledger as an Excel workbook.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/garyjia/invoice-reimbursement/internal/domain/entity"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	DecisionsSheet  = "Decisions"
	SummarySheet    = "Summary"
	timestampLayout = "2006-01-02 15:04:05"
)

var decisionHeaders = []string{
	"Invoice ID", "Employee", "Source File", "Status", "Category",
	"Requested Amount", "Reimbursed Amount", "Detected Amount",
	"Reason", "Policy References", "Created At",
}

// WorkbookWriter builds ledger exports
type WorkbookWriter struct {
	logger *zap.Logger
}

// NewWorkbookWriter creates a new WorkbookWriter
func NewWorkbookWriter(logger *zap.Logger) *WorkbookWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkbookWriter{logger: logger}
}

// Write renders entries into a two-sheet workbook: one row per decision,
// and per-employee totals.
func (ww *WorkbookWriter) Write(w io.Writer, entries []*entity.DecisionEntry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", DecisionsSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return fmt.Errorf("failed to create amount style: %w", err)
	}

	if err := ww.writeDecisions(f, entries, headerStyle, amountStyle); err != nil {
		return err
	}
	if err := ww.writeSummary(f, entries, headerStyle, amountStyle); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	ww.logger.Info("Decision workbook written", zap.Int("rows", len(entries)))
	return nil
}

func (ww *WorkbookWriter) writeDecisions(f *excelize.File, entries []*entity.DecisionEntry, headerStyle, amountStyle int) error {
	if err := ww.writeRow(f, DecisionsSheet, 1, toCells(decisionHeaders)); err != nil {
		return err
	}

	for i, e := range entries {
		row := i + 2
		cells := []interface{}{
			e.InvoiceID,
			e.Employee,
			e.SourceFile,
			string(e.Status),
			e.Category,
			e.RequestedAmount,
			e.ReimbursedAmount,
			e.DetectedAmount,
			e.Reason,
			strings.Join(e.PolicyReferences, "; "),
			e.CreatedAt.UTC().Format(timestampLayout),
		}
		if err := ww.writeRow(f, DecisionsSheet, row, cells); err != nil {
			return err
		}
	}

	last := len(decisionHeaders)
	lastCol, _ := excelize.ColumnNumberToName(last)
	ww.setStyle(f, DecisionsSheet, "A1", lastCol+"1", headerStyle)
	if len(entries) > 0 {
		ww.setStyle(f, DecisionsSheet, "F2", fmt.Sprintf("H%d", len(entries)+1), amountStyle)
	}
	if err := f.SetColWidth(DecisionsSheet, "A", "C", 24); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(DecisionsSheet, "I", "I", 60); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	return nil
}

type employeeTotals struct {
	invoices   int
	requested  float64
	reimbursed float64
	declined   int
}

func (ww *WorkbookWriter) writeSummary(f *excelize.File, entries []*entity.DecisionEntry, headerStyle, amountStyle int) error {
	totals := make(map[string]*employeeTotals)
	for _, e := range entries {
		t, ok := totals[e.Employee]
		if !ok {
			t = &employeeTotals{}
			totals[e.Employee] = t
		}
		t.invoices++
		t.requested += e.RequestedAmount
		t.reimbursed += e.ReimbursedAmount
		if e.Status == entity.StatusDeclined {
			t.declined++
		}
	}

	employees := make([]string, 0, len(totals))
	for name := range totals {
		employees = append(employees, name)
	}
	sort.Strings(employees)

	headers := []interface{}{"Employee", "Invoices", "Declined", "Requested Total", "Reimbursed Total"}
	if err := ww.writeRow(f, SummarySheet, 1, headers); err != nil {
		return err
	}
	for i, name := range employees {
		t := totals[name]
		row := []interface{}{name, t.invoices, t.declined, t.requested, t.reimbursed}
		if err := ww.writeRow(f, SummarySheet, i+2, row); err != nil {
			return err
		}
	}

	ww.setStyle(f, SummarySheet, "A1", "E1", headerStyle)
	if len(employees) > 0 {
		ww.setStyle(f, SummarySheet, "D2", fmt.Sprintf("E%d", len(employees)+1), amountStyle)
	}
	return nil
}

func (ww *WorkbookWriter) writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d of %s: %w", row, sheet, err)
	}
	return nil
}

// setStyle logs rather than fails; an unstyled export is still usable
func (ww *WorkbookWriter) setStyle(f *excelize.File, sheet, from, to string, style int) {
	if err := f.SetCellStyle(sheet, from, to, style); err != nil {
		ww.logger.Warn("Failed to set cell style",
			zap.String("sheet", sheet),
			zap.String("range", from+":"+to),
			zap.Error(err))
	}
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
