package report

import (
	"encoding/csv"
	"fmt"
	"io"
)

var csvHeader = []string{"UserID", "Type", "Amount", "Description", "Date"}

// WriteCSV writes one row per transaction. Dates are calendar days in the
// data's location.
func WriteCSV(w io.Writer, d Data) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	loc := d.location()
	for _, tx := range d.Transactions {
		userID := tx.UserID
		if userID == "" {
			userID = d.UserID
		}
		row := []string{
			userID,
			tx.Type.String(),
			tx.Amount.String(),
			EscapeFormula(tx.Description),
			tx.Date.In(loc).Format(isoDate),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", tx.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
