package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// CategoryTotal is the summed expense amount of one category label.
type CategoryTotal struct {
	Category string
	Amount   decimal.Decimal
}

// MonthKey identifies a calendar month in the reference location.
type MonthKey struct {
	Year  int
	Month time.Month
}

// MonthlyPoint holds the income and expense sums of one month. Both fields
// are always set, zero when the month has no transaction of that type.
type MonthlyPoint struct {
	Period  MonthKey
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// AggregateSnapshot is derived from a collection on demand and never stored.
type AggregateSnapshot struct {
	TotalIncome       decimal.Decimal
	TotalExpense      decimal.Decimal
	Balance           decimal.Decimal
	CategoryBreakdown []CategoryTotal
	MonthlySeries     []MonthlyPoint
	Count             int
}

// MonthOf returns the calendar month of t in loc.
func MonthOf(t time.Time, loc *time.Location) MonthKey {
	if loc == nil {
		loc = ReferenceLocation
	}
	local := t.In(loc)
	return MonthKey{Year: local.Year(), Month: local.Month()}
}

// Label formats the month as YYYY-MM.
func (k MonthKey) Label() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// Before orders months chronologically.
func (k MonthKey) Before(o MonthKey) bool {
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	return k.Month < o.Month
}

// Start returns the first instant of the month in loc.
func (k MonthKey) Start(loc *time.Location) time.Time {
	if loc == nil {
		loc = ReferenceLocation
	}
	return time.Date(k.Year, k.Month, 1, 0, 0, 0, 0, loc)
}

// Aggregate computes totals, the expense breakdown by category and the
// monthly series. Months are bucketed in loc; a nil loc means
// ReferenceLocation.
func Aggregate(txs []Transaction, loc *time.Location) AggregateSnapshot {
	if loc == nil {
		loc = ReferenceLocation
	}

	income, expense := decimal.Zero, decimal.Zero

	var categories []CategoryTotal
	categoryIdx := make(map[string]int)

	months := make(map[MonthKey]*MonthlyPoint)

	for _, tx := range txs {
		key := MonthOf(tx.Date, loc)
		point, ok := months[key]
		if !ok {
			point = &MonthlyPoint{Period: key, Income: decimal.Zero, Expense: decimal.Zero}
			months[key] = point
		}

		switch tx.Type {
		case Income:
			income = income.Add(tx.Amount)
			point.Income = point.Income.Add(tx.Amount)
		case Expense:
			expense = expense.Add(tx.Amount)
			point.Expense = point.Expense.Add(tx.Amount)

			label := tx.Category()
			if i, seen := categoryIdx[label]; seen {
				categories[i].Amount = categories[i].Amount.Add(tx.Amount)
			} else {
				categoryIdx[label] = len(categories)
				categories = append(categories, CategoryTotal{Category: label, Amount: tx.Amount})
			}
		}
	}

	series := make([]MonthlyPoint, 0, len(months))
	for _, p := range months {
		series = append(series, *p)
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].Period.Before(series[j].Period)
	})

	if categories == nil {
		categories = []CategoryTotal{}
	}

	return AggregateSnapshot{
		TotalIncome:       income,
		TotalExpense:      expense,
		Balance:           income.Sub(expense),
		CategoryBreakdown: categories,
		MonthlySeries:     series,
		Count:             len(txs),
	}
}

// SortedCategories returns the breakdown ordered by amount descending, ties
// broken by label ascending. The snapshot itself is left untouched.
func (s AggregateSnapshot) SortedCategories() []CategoryTotal {
	out := make([]CategoryTotal, len(s.CategoryBreakdown))
	copy(out, s.CategoryBreakdown)
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// Category looks up the expense total of a label.
func (s AggregateSnapshot) Category(label string) (decimal.Decimal, bool) {
	for _, c := range s.CategoryBreakdown {
		if c.Category == label {
			return c.Amount, true
		}
	}
	return decimal.Zero, false
}

// Month looks up one point of the series.
func (s AggregateSnapshot) Month(key MonthKey) (MonthlyPoint, bool) {
	for _, p := range s.MonthlySeries {
		if p.Period == key {
			return p, true
		}
	}
	return MonthlyPoint{}, false
}
