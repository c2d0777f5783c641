package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"financebuddy/internal/core"
	"financebuddy/internal/report"
	ports "financebuddy/internal/sheets"
)

const (
	maxSheetTitle     = 100
	defaultTitleCache = 5 * time.Minute
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// sheetBase is prefixed to the user id to name each user's tab.
	sheetBase string

	// Known tab titles, refreshed after cacheValidDuration.
	mu                 sync.Mutex
	titles             map[string]struct{}
	cacheExpiresAt     time.Time
	cacheValidDuration time.Duration
}

var _ ports.ReportExporter = (*Client)(nil)

// New creates a Sheets client authenticated with a service account key.
func New(ctx context.Context, spreadsheetID, sheetBase string, credentialsJSON []byte) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if len(credentialsJSON) == 0 {
		return nil, errors.New("missing service account credentials")
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", spreadsheetID)
	return NewWithService(svc, spreadsheetID, sheetBase), nil
}

// NewWithService wraps an existing service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetBase string) *Client {
	if strings.TrimSpace(sheetBase) == "" {
		sheetBase = "Reports"
	}
	return &Client{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		sheetBase:          strings.TrimSpace(sheetBase),
		cacheValidDuration: defaultTitleCache,
	}
}

// Export rewrites the user's tab with the summary block followed by the
// transaction table.
func (c *Client) Export(ctx context.Context, d report.Data) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if d.UserID == "" {
		return "", errors.New("export without user id")
	}
	title := userSheetName(c.sheetBase, d.UserID)
	if err := c.ensureSheet(ctx, title); err != nil {
		return "", err
	}

	quoted := quoteSheet(title)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, quoted+"!A:Z", &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("failed to clear sheet %s: %w", title, err)
	}

	rows := buildRows(d)
	vr := &gsheet.ValueRange{Values: rows}
	resp, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, quoted+"!A1", vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to update sheet %s: %w", title, err)
	}

	ref := resp.UpdatedRange
	if ref == "" {
		ref = fmt.Sprintf("%s!A1:E%d", quoted, len(rows))
	}
	return ref, nil
}

// ensureSheet adds the tab when the spreadsheet does not have it yet.
func (c *Client) ensureSheet(ctx context.Context, title string) error {
	c.mu.Lock()
	valid := time.Now().Before(c.cacheExpiresAt)
	_, known := c.titles[title]
	c.mu.Unlock()
	if valid && known {
		return nil
	}

	if !valid {
		ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to read spreadsheet %s: %w", c.spreadsheetID, err)
		}
		titles := make(map[string]struct{}, len(ss.Sheets))
		for _, sh := range ss.Sheets {
			if sh.Properties != nil {
				titles[sh.Properties.Title] = struct{}{}
			}
		}
		c.mu.Lock()
		c.titles = titles
		c.cacheExpiresAt = time.Now().Add(c.cacheValidDuration)
		_, known = c.titles[title]
		c.mu.Unlock()
		if known {
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		c.invalidateTitleCache()
		return fmt.Errorf("failed to add sheet %s: %w", title, err)
	}
	slog.InfoContext(ctx, "Added report sheet", "sheet", title)

	c.mu.Lock()
	if c.titles == nil {
		c.titles = make(map[string]struct{})
	}
	c.titles[title] = struct{}{}
	c.mu.Unlock()
	return nil
}

func (c *Client) invalidateTitleCache() {
	c.mu.Lock()
	c.cacheExpiresAt = time.Time{}
	c.mu.Unlock()
}

// userSheetName returns "<base> <userID>", trimmed to the title limit.
func userSheetName(base, userID string) string {
	name := strings.TrimSpace(base + " " + userID)
	if r := []rune(name); len(r) > maxSheetTitle {
		name = string(r[:maxSheetTitle])
	}
	return name
}

// quoteSheet quotes a title for A1 notation.
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func buildRows(d report.Data) [][]any {
	loc := d.Location
	if loc == nil {
		loc = core.ReferenceLocation
	}
	snap := d.Snapshot
	rows := [][]any{
		{"Finance Buddy report"},
		{"User", d.UserID},
		{"Generated", d.GeneratedAt.In(loc).Format("2006-01-02 15:04")},
		{""},
		{"Total income", snap.TotalIncome.InexactFloat64()},
		{"Total expense", snap.TotalExpense.InexactFloat64()},
		{"Balance", snap.Balance.InexactFloat64()},
		{""},
		{"Month", "Income", "Expense"},
	}
	for _, p := range snap.MonthlySeries {
		rows = append(rows, []any{p.Period.Label(), p.Income.InexactFloat64(), p.Expense.InexactFloat64()})
	}
	rows = append(rows, []any{""}, []any{"Category", "Amount"})
	for _, ct := range snap.SortedCategories() {
		rows = append(rows, []any{report.EscapeFormula(ct.Category), ct.Amount.InexactFloat64()})
	}
	rows = append(rows, []any{""}, []any{"Type", "Amount", "Description", "Date"})
	for _, tx := range d.Transactions {
		rows = append(rows, []any{
			tx.Type.String(),
			tx.Amount.InexactFloat64(),
			report.EscapeFormula(tx.Description),
			tx.Date.In(loc).Format("2006-01-02"),
		})
	}
	return rows
}
