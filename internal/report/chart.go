package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"financebuddy/internal/core"
)

// ErrNoData is returned when a chart would have nothing to draw.
var ErrNoData = errors.New("no data to chart")

var (
	incomeColor  = drawing.ColorFromHex("2e7d32")
	expenseColor = drawing.ColorFromHex("c62828")
)

func chartBackground() chart.Style {
	return chart.Style{
		Padding:   chart.Box{Top: 50, Left: 50, Right: 50, Bottom: 50},
		FillColor: chart.ColorWhite,
	}
}

func rupeeTick(v interface{}) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("Rs. %.0f", f)
	}
	return ""
}

// RenderExpensePie writes a PNG pie of the expense categories, largest
// first. Categories summing to zero are left out.
func RenderExpensePie(w io.Writer, snap core.AggregateSnapshot) error {
	var values []chart.Value
	for _, c := range snap.SortedCategories() {
		if !c.Amount.IsPositive() {
			continue
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s: Rs. %s", c.Category, c.Amount.StringFixed(0)),
			Value: c.Amount.InexactFloat64(),
			Style: chart.Style{FontSize: 11, FontColor: chart.ColorBlack},
		})
	}
	if len(values) == 0 {
		return ErrNoData
	}

	pie := chart.PieChart{
		Title:      "Expenses by category",
		Width:      800,
		Height:     800,
		Values:     values,
		Background: chartBackground(),
	}
	if err := pie.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("failed to render expense pie: %w", err)
	}
	return nil
}

// RenderMonthlyChart writes a PNG bar chart of income and expense per
// month, oldest month on the left. Each month gets an income bar labelled
// with the month followed by an expense bar.
func RenderMonthlyChart(w io.Writer, snap core.AggregateSnapshot) error {
	if len(snap.MonthlySeries) == 0 {
		return ErrNoData
	}

	bars := make([]chart.Value, 0, 2*len(snap.MonthlySeries))
	top := 0.0
	for _, p := range snap.MonthlySeries {
		income := p.Income.InexactFloat64()
		expense := p.Expense.InexactFloat64()
		top = max(top, income, expense)
		bars = append(bars,
			chart.Value{
				Label: p.Period.Label(),
				Value: income,
				Style: chart.Style{FillColor: incomeColor, StrokeColor: incomeColor},
			},
			chart.Value{
				Value: expense,
				Style: chart.Style{FillColor: expenseColor, StrokeColor: expenseColor},
			},
		)
	}
	// An explicit range keeps go-chart from rejecting a flat series.
	if top == 0 {
		top = 1
	}

	graph := chart.BarChart{
		Title:      "Monthly income (green) and expense (red)",
		TitleStyle: chart.Style{FontSize: 14, FontColor: chart.ColorBlack},
		Width:      1200,
		Height:     600,
		BarWidth:   40,
		Background: chartBackground(),
		XAxis:      chart.Style{FontSize: 11, FontColor: chart.ColorBlack},
		YAxis: chart.YAxis{
			ValueFormatter: rupeeTick,
			Range:          &chart.ContinuousRange{Min: 0, Max: top * 1.1},
			Style:          chart.Style{FontSize: 11, FontColor: chart.ColorBlack},
		},
		Bars: bars,
	}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("failed to render monthly chart: %w", err)
	}
	return nil
}
