package memory

import (
	"context"
	"fmt"
	"sync"

	"finpal/internal/core"
	"finpal/internal/sheets"
)

// Exporter keeps the latest export per user in memory. It backs the worker
// when no spreadsheet is configured and serves as the test double.
type Exporter struct {
	mu      sync.Mutex
	exports map[string][][]any
	count   int
}

var _ sheets.SummaryExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{exports: make(map[string][][]any)}
}

// ExportSummary stores the rendered rows and returns a synthetic reference.
func (e *Exporter) ExportSummary(_ context.Context, rec core.UserRecord, cmp core.Comparison) (string, error) {
	if err := core.ValidateUsername(rec.Username); err != nil {
		return "", err
	}
	rows := sheets.SummaryRows(rec, cmp)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.exports[rec.Username] = rows
	e.count++
	return fmt.Sprintf("mem:%s:%d", rec.Username, e.count), nil
}

// Rows returns the last export for username.
func (e *Exporter) Rows(username string) ([][]any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rows, ok := e.exports[username]
	return rows, ok
}

// Count is the number of exports performed.
func (e *Exporter) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count
}
