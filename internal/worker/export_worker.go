package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finpal/internal/amqp"
	"finpal/internal/core"
	"finpal/internal/records"
	"finpal/internal/sheets"
)

// UserLister enumerates stored users.
type UserLister interface {
	Usernames(ctx context.Context) ([]string, error)
}

// ExportWorker exports a user's tax summary and budget comparison whenever
// their record is saved.
type ExportWorker struct {
	loader   records.Loader
	lister   UserLister
	exporter sheets.SummaryExporter
}

func NewExportWorker(loader records.Loader, lister UserLister, exporter sheets.SummaryExporter) *ExportWorker {
	return &ExportWorker{
		loader:   loader,
		lister:   lister,
		exporter: exporter,
	}
}

// HandleRecordSaved processes a single record-saved message from AMQP.
// A returned error requeues the message.
func (w *ExportWorker) HandleRecordSaved(ctx context.Context, msg *amqp.RecordSavedMessage) error {
	slog.InfoContext(ctx, "Processing record saved message",
		"id", msg.ID,
		"username", msg.Username,
		"reason", msg.Reason)

	if err := w.export(ctx, msg.Username); err != nil {
		if errors.Is(err, records.ErrNotFound) {
			// Retrying cannot help; the record is gone or was never saved here.
			slog.WarnContext(ctx, "Record not found, dropping message",
				"id", msg.ID, "username", msg.Username)
			return nil
		}
		return err
	}
	return nil
}

// StartupExport exports every stored record once. This is useful to recover
// from missed AMQP messages or worker downtime.
func (w *ExportWorker) StartupExport(ctx context.Context) error {
	if w.lister == nil {
		return nil
	}
	users, err := w.lister.Usernames(ctx)
	if err != nil {
		return fmt.Errorf("list users for startup export: %w", err)
	}

	if len(users) == 0 {
		slog.InfoContext(ctx, "No records found on startup")
		return nil
	}

	successCount := 0
	errorCount := 0
	for _, username := range users {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := w.export(ctx, username); err != nil {
			slog.ErrorContext(ctx, "Failed to export record during startup",
				"username", username, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup export completed",
		"total", len(users),
		"exported", successCount,
		"errors", errorCount)

	return nil
}

func (w *ExportWorker) export(ctx context.Context, username string) error {
	rec, err := w.loader.Load(ctx, username)
	if err != nil {
		return fmt.Errorf("load record %s: %w", username, err)
	}

	ref, err := w.exporter.ExportSummary(ctx, rec, core.Compare(rec))
	if err != nil {
		return fmt.Errorf("export summary for %s: %w", username, err)
	}

	slog.InfoContext(ctx, "Successfully exported summary",
		"username", username,
		"sheets_ref", ref,
		"expense_count", len(rec.Expenses))

	return nil
}
