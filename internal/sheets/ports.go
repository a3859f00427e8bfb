package sheets

import (
	"context"

	"finpal/internal/core"
)

// Ports for outbound adapters.
type (
	// SummaryExporter publishes a user's tax summary and budget comparison
	// somewhere a human can read it. Exports replace earlier ones.
	SummaryExporter interface {
		ExportSummary(ctx context.Context, rec core.UserRecord, cmp core.Comparison) (ref string, err error)
	}
)
