package sheets

import (
	"context"

	"financebuddy/internal/report"
)

// Ports for outbound adapters.
type (
	// ReportExporter publishes a user's report to a shared spreadsheet.
	ReportExporter interface {
		// Export replaces the user's previous export and returns a reference
		// to the written range.
		Export(ctx context.Context, d report.Data) (ref string, err error)
	}
)
