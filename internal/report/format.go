// Package report renders transactions and their aggregates as downloadable
// documents and chart images.
package report

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"financebuddy/internal/core"
)

const (
	isoDate    = "2006-01-02"
	indianDate = "02-01-2006"
)

// EscapeFormula prefixes free text that a spreadsheet would evaluate as a
// formula with a single quote.
func EscapeFormula(s string) string {
	if s != "" && strings.ContainsRune("=+-@", rune(s[0])) {
		return "'" + s
	}
	return s
}

// FormatRupees formats d with two decimals and Indian digit grouping,
// e.g. ₹12,34,567.89.
func FormatRupees(d decimal.Decimal) string {
	return formatWithSymbol(d, "₹")
}

// formatWithSymbol lets the PDF renderer swap the rupee sign for a prefix
// its core fonts can encode.
func formatWithSymbol(d decimal.Decimal, symbol string) string {
	rounded := d.Round(2)
	s := symbol + groupIndian(rounded.Abs().StringFixed(2))
	if rounded.IsNegative() {
		return "-" + s
	}
	return s
}

func groupIndian(fixed string) string {
	intPart, frac, _ := strings.Cut(fixed, ".")
	if len(intPart) > 3 {
		head, tail := intPart[:len(intPart)-3], intPart[len(intPart)-3:]
		var groups []string
		for len(head) > 2 {
			groups = append([]string{head[len(head)-2:]}, groups...)
			head = head[:len(head)-2]
		}
		if head != "" {
			groups = append([]string{head}, groups...)
		}
		intPart = strings.Join(groups, ",") + "," + tail
	}
	if frac == "" {
		return intPart
	}
	return intPart + "." + frac
}

// Data is everything a document needs.
type Data struct {
	UserID       string
	Email        string
	Transactions []core.Transaction
	Snapshot     core.AggregateSnapshot
	Location     *time.Location
	GeneratedAt  time.Time
}

func (d Data) location() *time.Location {
	if d.Location == nil {
		return core.ReferenceLocation
	}
	return d.Location
}

// NewData aggregates txs for rendering.
func NewData(userID string, txs []core.Transaction, loc *time.Location) Data {
	if loc == nil {
		loc = core.ReferenceLocation
	}
	return Data{
		UserID:       userID,
		Transactions: txs,
		Snapshot:     core.Aggregate(txs, loc),
		Location:     loc,
		GeneratedAt:  time.Now(),
	}
}
