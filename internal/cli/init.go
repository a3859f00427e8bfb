// Package cli provides common CLI initialization utilities shared by
// cmd/finpal, cmd/finpal-worker and cmd/finpalctl.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finpal/internal/config"
	"finpal/internal/log"
	"finpal/internal/storage"
	"finpal/internal/tax"
)

// SetupLogger initializes structured logging at the given LOG_LEVEL and
// installs it as the default logger.
func SetupLogger(level, component string) *log.Logger {
	logger := log.NewText(os.Stdout, log.ParseLevel(level), component)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// LoadTaxRegistry reads the bracket table at path, or the embedded 2024 table
// when path is empty.
func LoadTaxRegistry(path string) (*tax.Registry, error) {
	if path == "" {
		return tax.DefaultRegistry()
	}
	reg, err := tax.LoadRegistryFile(path)
	if err != nil {
		return nil, fmt.Errorf("load tax brackets %s: %w", path, err)
	}
	return reg, nil
}

// InitCalculator builds the tax calculator or exits: serving requests with a
// broken bracket table would silently compute wrong taxes.
func InitCalculator(logger *log.Logger, path string) *tax.Calculator {
	reg, err := LoadTaxRegistry(path)
	if err != nil {
		logger.Error("Failed to load tax brackets", log.FieldError, err, "path", path)
		os.Exit(1)
	}
	logger.Info("Loaded tax brackets", "jurisdictions", len(reg.Jurisdictions()), "path", path)
	return tax.NewCalculator(reg)
}

// InitSQLite initializes a SQLite repository with the given path.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	sqliteRepo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return sqliteRepo
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete. cleanup receives a
// context bounded by timeout.
func GracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		cancel()

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
