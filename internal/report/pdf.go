package report

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

const pdfTitle = "Finance Buddy - Transaction Report"

var (
	pdfHeader = []string{"Type", "Amount (INR)", "Description", "Date"}
	pdfWidths = []float64{28, 42, 82, 38}
)

// WritePDF renders the transaction table on A4 pages with the totals
// underneath. The core fonts cannot encode the rupee sign, so amounts use
// an "Rs." prefix.
func WritePDF(w io.Writer, d Data) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(pdfTitle, false)
	pdf.SetCreator("financebuddy", false)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	tableHeader := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(230, 230, 230)
		for i, h := range pdfHeader {
			pdf.CellFormat(pdfWidths[i], 8, h, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 10)
	}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, pdfTitle, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	who := d.UserID
	if d.Email != "" {
		who = d.Email
	}
	if who != "" {
		pdf.CellFormat(0, 6, tr("User: "+who), "", 1, "L", false, 0, "")
	}
	if !d.GeneratedAt.IsZero() {
		pdf.CellFormat(0, 6, "Generated: "+d.GeneratedAt.In(d.location()).Format(indianDate+" 15:04"), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	tableHeader()
	// Repeat the table header on every following page.
	pdf.SetHeaderFunc(tableHeader)

	loc := d.location()
	for _, tx := range d.Transactions {
		cells := []string{
			tx.Type.String(),
			formatWithSymbol(tx.Amount, "Rs. "),
			fitText(pdf, tr(tx.Description), pdfWidths[2]-2),
			tx.Date.In(loc).Format(indianDate),
		}
		aligns := []string{"L", "R", "L", "C"}
		for i, c := range cells {
			pdf.CellFormat(pdfWidths[i], 7, c, "1", 0, aligns[i], false, 0, "")
		}
		pdf.Ln(-1)
	}

	snap := d.Snapshot
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 11)
	for _, line := range [][2]string{
		{"Total income", formatWithSymbol(snap.TotalIncome, "Rs. ")},
		{"Total expense", formatWithSymbol(snap.TotalExpense, "Rs. ")},
		{"Balance", formatWithSymbol(snap.Balance, "Rs. ")},
	} {
		pdf.CellFormat(50, 7, line[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(50, 7, line[1], "", 1, "R", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

// fitText shortens s with an ellipsis until it fits width. s is already
// translated to the single-byte font encoding.
func fitText(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	b := []byte(s)
	for len(b) > 0 && pdf.GetStringWidth(string(b)+"...") > width {
		b = b[:len(b)-1]
	}
	return string(b) + "..."
}
