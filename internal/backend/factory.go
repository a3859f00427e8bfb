package backend

import (
	"context"
	"fmt"
	"log/slog"

	"finpal/internal/amqp"
	"finpal/internal/records/memory"
	"finpal/internal/sheets"
	gsheet "finpal/internal/sheets/google"
	sheetsmem "finpal/internal/sheets/memory"
	"finpal/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var result *BackendResult
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		result = &BackendResult{Backend: repo, Cleanup: repo.Close}
	case MemoryBackend:
		f.logger.Info("Initialized memory backend")
		result = &BackendResult{Backend: memory.New()}
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	// AMQP is optional; failing to connect leaves events disabled.
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			result.Publisher = client
			result.Cleanup = chainCleanup(result.Cleanup, client.Close)
		}
	}

	return result, nil
}

// CreateExporter implements Factory.CreateExporter
func (f *DefaultFactory) CreateExporter(ctx context.Context, config Config) (sheets.SummaryExporter, error) {
	switch config.ExportType {
	case SheetsExport:
		cli, err := gsheet.New(ctx, gsheet.Options{
			SpreadsheetID:   config.GoogleSpreadsheetID,
			SheetPrefix:     config.GoogleSheetPrefix,
			CredentialsJSON: config.GoogleServiceAccountJSON,
			CredentialsFile: config.GoogleServiceAccountFile,
			OAuthClientFile: config.GoogleOAuthClientFile,
			OAuthTokenFile:  config.GoogleOAuthTokenFile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		f.logger.Info("Initialized Google Sheets exporter", "spreadsheet_id", config.GoogleSpreadsheetID)
		return cli, nil
	case MemoryExport, "":
		f.logger.Info("Initialized memory exporter")
		return sheetsmem.New(), nil
	default:
		return nil, fmt.Errorf("unsupported export type: %s", config.ExportType)
	}
}

func chainCleanup(fns ...CleanupFunc) CleanupFunc {
	return func() error {
		var first error
		for _, fn := range fns {
			if fn == nil {
				continue
			}
			if err := fn(); err != nil && first == nil {
				first = err
			}
		}
		return first
	}
}
