package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finpal/internal/core"
	"finpal/internal/records/memory"
	sheetsmem "finpal/internal/sheets/memory"
)

type flakyExporter struct {
	calls int
	err   error
}

func (e *flakyExporter) ExportSummary(context.Context, core.UserRecord, core.Comparison) (string, error) {
	e.calls++
	return "", e.err
}

func TestDefaultExportProcessorConfig(t *testing.T) {
	config := DefaultExportProcessorConfig()
	assert.Equal(t, 30*time.Second, config.PollInterval)
	assert.Equal(t, 10, config.BatchSize)
	assert.Equal(t, 3, config.MaxRetries)
}

func TestNewExportProcessorFillsDefaults(t *testing.T) {
	p := NewExportProcessor(nil, nil, nil, ExportProcessorConfig{})
	assert.Equal(t, DefaultExportProcessorConfig(), p.config)
	assert.False(t, p.IsRunning(), "processor should not be running initially")
}

func TestExportProcessor_ExportsChangedRecordsOnce(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	exporter := sheetsmem.New()
	p := NewExportProcessor(store, store, exporter, DefaultExportProcessorConfig())

	for _, u := range []string{"alice", "bob"} {
		require.NoError(t, store.Save(ctx, core.NewUserRecord(u)))
	}

	assert.Equal(t, 2, p.ProcessOnce(ctx))
	assert.Equal(t, 0, p.ProcessOnce(ctx), "unchanged records were exported again")

	time.Sleep(2 * time.Millisecond)
	rec, err := store.Load(ctx, "alice")
	require.NoError(t, err)
	rec.Budget["Rent"] = core.Money{Cents: 100_000}
	require.NoError(t, store.Save(ctx, rec))

	assert.Equal(t, 1, p.ProcessOnce(ctx), "changed record should be exported")
	assert.Equal(t, 3, exporter.Count())
}

func TestExportProcessor_BatchSize(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	for _, u := range []string{"a", "b", "c"} {
		require.NoError(t, store.Save(ctx, core.NewUserRecord(u)))
	}
	config := DefaultExportProcessorConfig()
	config.BatchSize = 2
	p := NewExportProcessor(store, store, sheetsmem.New(), config)

	assert.Equal(t, 2, p.ProcessOnce(ctx))
	assert.Equal(t, 1, p.ProcessOnce(ctx))
}

func TestExportProcessor_GivesUpAfterMaxRetries(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Save(ctx, core.NewUserRecord("alice")))
	exporter := &flakyExporter{err: errors.New("quota exceeded")}
	p := NewExportProcessor(store, store, exporter, DefaultExportProcessorConfig())

	for i := 0; i < 5; i++ {
		p.ProcessOnce(ctx)
	}
	assert.Equal(t, 3, exporter.calls)
}

func newPollingProcessor() *ExportProcessor {
	store := memory.New()
	config := DefaultExportProcessorConfig()
	config.PollInterval = 10 * time.Millisecond
	return NewExportProcessor(store, store, sheetsmem.New(), config)
}

func TestExportProcessor_StartStop(t *testing.T) {
	p := newPollingProcessor()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, p.Start(ctx))
	assert.Error(t, p.Start(ctx), "starting twice should fail")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	require.NoError(t, p.Stop(stopCtx))
	assert.False(t, p.IsRunning())
	assert.NoError(t, p.Stop(stopCtx), "stopping a stopped processor is a no-op")

	// It can be started again after a stop.
	require.NoError(t, p.Start(ctx))
	require.NoError(t, p.Stop(stopCtx))
}

func TestExportProcessor_ConcurrentStop(t *testing.T) {
	p := newPollingProcessor()
	require.NoError(t, p.Start(context.Background()))

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, p.Stop(stopCtx))
		}()
	}
	wg.Wait()
	assert.False(t, p.IsRunning())
}
