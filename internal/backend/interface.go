package backend

import (
	"context"

	"finpal/internal/records"
	"finpal/internal/services"
	"finpal/internal/sheets"
)

// Backend is a record store that can also enumerate its users.
type Backend interface {
	records.Store
	Usernames(ctx context.Context) ([]string, error)
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function.
// Publisher is nil when AMQP is not configured or unreachable.
type BackendResult struct {
	Backend   Backend
	Publisher services.EventPublisher
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a record store based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)

	// CreateExporter creates the summary export target
	CreateExporter(ctx context.Context, config Config) (sheets.SummaryExporter, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// AMQP; applies to every backend type
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Export target
	ExportType               ExportType
	GoogleSpreadsheetID      string
	GoogleSheetPrefix        string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleOAuthClientFile    string
	GoogleOAuthTokenFile     string
}

// BackendType represents the type of record store
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// ExportType represents where summaries are exported
type ExportType string

const (
	SheetsExport ExportType = "sheets"
	MemoryExport ExportType = "memory"
)

// IsValid returns true if the export type is valid
func (et ExportType) IsValid() bool {
	switch et {
	case SheetsExport, MemoryExport:
		return true
	default:
		return false
	}
}
