package memory

import (
	"context"
	"fmt"
	"sync"

	"financebuddy/internal/report"
	"financebuddy/internal/sheets"
)

// Exporter keeps the latest export per user in memory. The report worker
// falls back to it when no spreadsheet is configured.
type Exporter struct {
	mu      sync.Mutex
	latest  map[string]report.Data
	exports int
}

var _ sheets.ReportExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{latest: make(map[string]report.Data)}
}

// Export stores d and returns a synthetic reference.
func (e *Exporter) Export(_ context.Context, d report.Data) (string, error) {
	if d.UserID == "" {
		return "", fmt.Errorf("export without user id")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.latest[d.UserID] = d
	e.exports++
	return fmt.Sprintf("mem:%s:%d", d.UserID, e.exports), nil
}

// Latest returns the last export for userID.
func (e *Exporter) Latest(userID string) (report.Data, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, ok := e.latest[userID]
	return d, ok
}

// Count returns how many exports were made.
func (e *Exporter) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exports
}
