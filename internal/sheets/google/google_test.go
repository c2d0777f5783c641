package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"financebuddy/internal/core"
	"financebuddy/internal/report"
)

type fakeSheets struct {
	mu      sync.Mutex
	titles  []string
	gets    int
	added   []string
	cleared []string
	updated map[string][][]any
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet:
		f.gets++
		var sheets []map[string]any
		for _, t := range f.titles {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": t}})
		}
		json.NewEncoder(w).Encode(map[string]any{"sheets": sheets})
	case strings.HasSuffix(path, ":batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			f.added = append(f.added, rq.AddSheet.Properties.Title)
			f.titles = append(f.titles, rq.AddSheet.Properties.Title)
		}
		w.Write([]byte(`{}`))
	case strings.HasSuffix(path, ":clear"):
		f.cleared = append(f.cleared, path)
		w.Write([]byte(`{}`))
	case r.Method == http.MethodPut:
		var vr struct {
			Values [][]any `json:"values"`
		}
		json.NewDecoder(r.Body).Decode(&vr)
		if r.URL.Query().Get("valueInputOption") != "USER_ENTERED" {
			http.Error(w, "bad input option", http.StatusBadRequest)
			return
		}
		f.updated[path] = vr.Values
		json.NewEncoder(w).Encode(map[string]any{"updatedRange": "'Reports u1'!A1:E20"})
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	return NewWithService(svc, "sheet-id", "Reports")
}

func testData(t *testing.T) report.Data {
	t.Helper()
	txs, _, err := core.NormalizeAll([]core.RawRecord{
		{"id": "1", "type": "income", "amount": 100.0, "description": "Salary", "date": "2024-01-05T00:00:00Z"},
		{"id": "2", "type": "expense", "amount": 40.0, "description": "=SUM(A1)", "date": "2024-01-06T00:00:00Z"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return report.NewData("u1", txs, nil)
}

func TestExport_CreatesSheetOnce(t *testing.T) {
	fake := &fakeSheets{titles: []string{"Other"}, updated: map[string][][]any{}}
	c := newTestClient(t, fake)

	ref, err := c.Export(context.Background(), testData(t))
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if ref != "'Reports u1'!A1:E20" {
		t.Errorf("unexpected ref %q", ref)
	}
	if _, err := c.Export(context.Background(), testData(t)); err != nil {
		t.Fatalf("second Export() error = %v", err)
	}

	if len(fake.added) != 1 || fake.added[0] != "Reports u1" {
		t.Errorf("expected one added sheet, got %v", fake.added)
	}
	if fake.gets != 1 {
		t.Errorf("sheet titles should be cached, got %d reads", fake.gets)
	}
	if len(fake.cleared) != 2 || len(fake.updated) != 1 {
		t.Errorf("cleared %d, updated %d", len(fake.cleared), len(fake.updated))
	}
}

func TestExport_RequiresUser(t *testing.T) {
	c := NewWithService(nil, "id", "")
	if _, err := c.Export(context.Background(), report.Data{UserID: "u"}); err == nil {
		t.Error("expected error without service")
	}
	if c.sheetBase != "Reports" {
		t.Errorf("default sheet base = %q", c.sheetBase)
	}
}

func TestBuildRows(t *testing.T) {
	rows := buildRows(testData(t))

	find := func(label string) []any {
		for _, r := range rows {
			if len(r) > 0 && r[0] == label {
				return r
			}
		}
		t.Fatalf("row %q not found", label)
		return nil
	}
	if got := find("Balance"); got[1] != 60.0 {
		t.Errorf("balance row = %v", got)
	}
	if got := find("2024-01"); got[1] != 100.0 || got[2] != 40.0 {
		t.Errorf("month row = %v", got)
	}
	last := rows[len(rows)-1]
	if last[2] != "'=SUM(A1)" {
		t.Errorf("formula text must be escaped, got %v", last[2])
	}
	if last[3] != "2024-01-06" {
		t.Errorf("date cell = %v", last[3])
	}
}

func TestUserSheetName(t *testing.T) {
	if got := userSheetName("Reports", "abc"); got != "Reports abc" {
		t.Errorf("got %q", got)
	}
	long := userSheetName("Reports", strings.Repeat("x", 200))
	if len([]rune(long)) != maxSheetTitle {
		t.Errorf("title not trimmed: %d", len(long))
	}
	if got := quoteSheet("it's"); got != "'it''s'" {
		t.Errorf("quoteSheet = %q", got)
	}
}
