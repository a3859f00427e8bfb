package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finpal/internal/backend"
	"finpal/internal/cache"
	"finpal/internal/cli"
	"finpal/internal/core"
	apphttp "finpal/internal/http"
	"finpal/internal/log"
	"finpal/internal/services"
)

func main() {
	cli.LoadEnvFile()

	bootstrap := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(bootstrap)
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentApp)

	calc := cli.InitCalculator(logger, cfg.TaxBracketsPath)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	factory := backend.NewFactory(logger.Logger)
	res, err := factory.CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	recordCache := cache.NewLRUCache[core.UserRecord](cfg.CacheSize, cfg.CacheTTL)
	cacheManager := cache.NewManager(logger.Logger)
	cacheManager.Register(recordCache)
	cacheManager.StartCleanup(cfg.CacheTTL)

	opts := []services.Option{services.WithCache(recordCache), services.WithLogger(logger)}
	if res.Publisher != nil {
		opts = append(opts, services.WithPublisher(res.Publisher))
	}
	svc := services.NewBudgetService(res.Backend, calc, opts...)

	// Without a broker, exports run in-process by polling for changed records.
	var processor *services.ExportProcessor
	if res.Publisher == nil && cfg.ExportBackend == string(backend.SheetsExport) {
		exporter, err := factory.CreateExporter(context.Background(), backendCfg)
		if err != nil {
			logger.Error("Failed to initialize exporter", log.FieldError, err)
			os.Exit(1)
		}
		processor = services.NewExportProcessor(res.Backend, res.Backend, exporter, services.DefaultExportProcessorConfig())
		if err := processor.Start(context.Background()); err != nil {
			logger.Error("Failed to start export processor", log.FieldError, err)
			os.Exit(1)
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	ctx, done := cli.GracefulShutdown(logger.Logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if processor != nil {
			if err := processor.Stop(ctx); err != nil {
				logger.Error("Export processor shutdown error", log.FieldError, err)
			}
		}
		cacheManager.Stop()
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", log.FieldError, err)
			}
		}
	})

	logger.Info("Starting finpal server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events", res.Publisher != nil,
		"export", cfg.ExportBackend)

	start := time.Now()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully", "uptime", time.Since(start).Round(time.Second))
}
