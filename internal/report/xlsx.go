package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	sheetTransactions = "Transactions"
	sheetSummary      = "Summary"
	// excelize built-in format #,##0.00
	numFmtAmount = 4
)

// WriteXLSX writes a workbook with the transaction rows and a summary sheet
// holding totals, the category breakdown and the monthly series.
func WriteXLSX(w io.Writer, d Data) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetTransactions); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: numFmtAmount})
	if err != nil {
		return fmt.Errorf("create amount style: %w", err)
	}

	if err := writeTransactionsSheet(f, d, bold, money); err != nil {
		return err
	}
	if err := writeSummarySheet(f, d, bold, money); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeTransactionsSheet(f *excelize.File, d Data, bold, money int) error {
	header := make([]any, len(csvHeader))
	for i, h := range csvHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetTransactions, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := f.SetCellStyle(sheetTransactions, "A1", "E1", bold); err != nil {
		return err
	}

	loc := d.location()
	for i, tx := range d.Transactions {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		userID := tx.UserID
		if userID == "" {
			userID = d.UserID
		}
		row := []any{userID, tx.Type.String(), tx.Amount.InexactFloat64(), tx.Description, tx.Date.In(loc).Format(isoDate)}
		if err := f.SetSheetRow(sheetTransactions, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if n := len(d.Transactions); n > 0 {
		last, _ := excelize.CoordinatesToCellName(3, n+1)
		if err := f.SetCellStyle(sheetTransactions, "C2", last, money); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheetTransactions, "A", "E", 18)
}

func writeSummarySheet(f *excelize.File, d Data, bold, money int) error {
	snap := d.Snapshot
	rows := [][]any{
		{"Total income", snap.TotalIncome.InexactFloat64()},
		{"Total expense", snap.TotalExpense.InexactFloat64()},
		{"Balance", snap.Balance.InexactFloat64()},
		{"Transactions", snap.Count},
		{},
		{"Category", "Amount"},
	}
	boldRows := []int{6}
	for _, c := range snap.SortedCategories() {
		rows = append(rows, []any{c.Category, c.Amount.InexactFloat64()})
	}
	rows = append(rows, []any{}, []any{"Month", "Income", "Expense"})
	boldRows = append(boldRows, len(rows))
	for _, p := range snap.MonthlySeries {
		rows = append(rows, []any{p.Period.Label(), p.Income.InexactFloat64(), p.Expense.InexactFloat64()})
	}

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheetSummary, cell, &row); err != nil {
			return fmt.Errorf("write summary row %d: %w", i+1, err)
		}
	}
	for _, r := range boldRows {
		if err := f.SetCellStyle(sheetSummary, fmt.Sprintf("A%d", r), fmt.Sprintf("C%d", r), bold); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sheetSummary, "B1", "B3", money); err != nil {
		return err
	}
	return f.SetColWidth(sheetSummary, "A", "C", 18)
}
