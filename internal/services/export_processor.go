package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"finpal/internal/core"
	"finpal/internal/records"
	"finpal/internal/sheets"
)

// UserLister enumerates stored users.
type UserLister interface {
	Usernames(ctx context.Context) ([]string, error)
}

// ExportProcessorConfig holds configuration for the export processor
type ExportProcessorConfig struct {
	// PollInterval is how often stored records are checked for changes (default: 30s)
	PollInterval time.Duration

	// BatchSize is the max number of exports per poll cycle (default: 10)
	BatchSize int

	// MaxRetries is how many failed exports of one revision are attempted (default: 3)
	MaxRetries int
}

// DefaultExportProcessorConfig returns sensible defaults
func DefaultExportProcessorConfig() ExportProcessorConfig {
	return ExportProcessorConfig{
		PollInterval: 30 * time.Second,
		BatchSize:    10,
		MaxRetries:   3,
	}
}

// ExportProcessor periodically exports every record whose UpdatedAt moved
// since its last export. It is the polling counterpart of the AMQP worker,
// used when no broker is configured.
type ExportProcessor struct {
	lister   UserLister
	loader   records.Loader
	exporter sheets.SummaryExporter
	config   ExportProcessorConfig

	exported map[string]time.Time
	failures map[string]int

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewExportProcessor creates a new export processor
func NewExportProcessor(lister UserLister, loader records.Loader, exporter sheets.SummaryExporter, config ExportProcessorConfig) *ExportProcessor {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultExportProcessorConfig().PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultExportProcessorConfig().BatchSize
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultExportProcessorConfig().MaxRetries
	}
	return &ExportProcessor{
		lister:   lister,
		loader:   loader,
		exporter: exporter,
		config:   config,
		exported: make(map[string]time.Time),
		failures: make(map[string]int),
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *ExportProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("export processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	stop, done := p.stopCh, p.doneCh
	p.mu.Unlock()

	go p.runLoop(ctx, stop, done)

	slog.InfoContext(ctx, "Export processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)

	return nil
}

// Stop signals the loop and waits for it to finish. Concurrent callers all
// wait on the same loop.
func (p *ExportProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	if p.stopCh != nil {
		close(p.stopCh)
		p.stopCh = nil
	}
	done := p.doneCh
	p.mu.Unlock()

	select {
	case <-done:
		slog.InfoContext(ctx, "Export processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Export processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	if p.doneCh == done {
		p.running = false
	}
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the processor is currently running
func (p *ExportProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *ExportProcessor) runLoop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.ProcessOnce(ctx)

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ProcessOnce(ctx)
		}
	}
}

// ProcessOnce runs a single poll cycle and returns how many records were exported.
func (p *ExportProcessor) ProcessOnce(ctx context.Context) int {
	users, err := p.lister.Usernames(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list users for export", "error", err)
		return 0
	}

	exported := 0
	for _, username := range users {
		if exported >= p.config.BatchSize {
			break
		}
		if ctx.Err() != nil {
			return exported
		}

		rec, err := p.loader.Load(ctx, username)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load record for export", "username", username, "error", err)
			continue
		}
		if !p.due(rec) {
			continue
		}

		ref, err := p.exporter.ExportSummary(ctx, rec, core.Compare(rec))
		if err != nil {
			p.handleFailure(ctx, rec, err)
			continue
		}

		p.mu.Lock()
		p.exported[username] = rec.UpdatedAt
		delete(p.failures, username)
		p.mu.Unlock()
		exported++

		slog.InfoContext(ctx, "Exported summary", "username", username, "sheets_ref", ref)
	}
	return exported
}

// due reports whether rec changed since its last export and has retries left.
func (p *ExportProcessor) due(rec core.UserRecord) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	last, ok := p.exported[rec.Username]
	if ok && !rec.UpdatedAt.After(last) {
		return false
	}
	return p.failures[rec.Username] < p.config.MaxRetries
}

func (p *ExportProcessor) handleFailure(ctx context.Context, rec core.UserRecord, exportErr error) {
	p.mu.Lock()
	p.failures[rec.Username]++
	attempts := p.failures[rec.Username]
	if attempts >= p.config.MaxRetries {
		// Park this revision; the next save makes it due again.
		p.exported[rec.Username] = rec.UpdatedAt
		delete(p.failures, rec.Username)
	}
	p.mu.Unlock()

	if attempts >= p.config.MaxRetries {
		slog.ErrorContext(ctx, "Export failed permanently after max retries",
			"username", rec.Username, "attempts", attempts, "error", exportErr)
		return
	}
	slog.WarnContext(ctx, "Export failed",
		"username", rec.Username, "attempt", attempts, "error", exportErr)
}
