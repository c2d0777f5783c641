package core

import (
	"sort"
	"strings"
	"time"
)

// Criteria narrows a transaction list. A nil field imposes no constraint;
// set fields combine with AND.
type Criteria struct {
	Type                *string
	DescriptionContains *string
	DateFrom            *time.Time
	DateTo              *time.Time
}

// IsZero reports whether no criterion is set.
func (c Criteria) IsZero() bool {
	return c.Type == nil && c.DescriptionContains == nil && c.DateFrom == nil && c.DateTo == nil
}

// Match reports whether tx satisfies every set criterion. Date bounds are
// inclusive.
func (c Criteria) Match(tx Transaction) bool {
	if c.Type != nil && !strings.EqualFold(strings.TrimSpace(*c.Type), string(tx.Type)) {
		return false
	}
	if c.DescriptionContains != nil {
		needle := strings.ToLower(*c.DescriptionContains)
		if needle != "" && tx.Description == "" {
			return false
		}
		if !strings.Contains(strings.ToLower(tx.Description), needle) {
			return false
		}
	}
	if c.DateFrom != nil && tx.Date.Before(*c.DateFrom) {
		return false
	}
	if c.DateTo != nil && tx.Date.After(*c.DateTo) {
		return false
	}
	return true
}

// ApplyFilters returns the matching records in their original order. The
// input slice is never modified.
func ApplyFilters(txs []Transaction, c Criteria) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if c.Match(tx) {
			out = append(out, tx)
		}
	}
	return out
}

// Latest returns up to n records ordered by date, newest first. Records with
// the same instant keep their relative order.
func Latest(txs []Transaction, n int) []Transaction {
	out := make([]Transaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
