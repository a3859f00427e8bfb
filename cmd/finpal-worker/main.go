package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"finpal/internal/amqp"
	"finpal/internal/backend"
	"finpal/internal/cli"
	"finpal/internal/log"
	"finpal/internal/services"
	"finpal/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	bootstrap := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(bootstrap)
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentWorker)

	logger.Info("Starting finpal-worker", "export", cfg.ExportBackend, "events", cfg.AMQPEnabled())

	// The worker reads what the server wrote, so it needs the shared database.
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	exporter, err := backend.NewFactory(logger.Logger).CreateExporter(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize exporter", log.FieldError, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()

		exportWorker := worker.NewExportWorker(repo, repo, exporter)

		// Catch up on records saved while the worker was down.
		logger.Info("Performing startup export")
		if err := exportWorker.StartupExport(gctx); err != nil {
			logger.Error("Startup export failed", log.FieldError, err)
		}

		g.Go(func() error {
			return client.ConsumeRecordSaved(gctx, exportWorker.HandleRecordSaved)
		})
	} else {
		logger.Info("AMQP disabled, polling for changed records")
		processor := services.NewExportProcessor(repo, repo, exporter, services.DefaultExportProcessorConfig())
		if err := processor.Start(gctx); err != nil {
			logger.Error("Failed to start export processor", log.FieldError, err)
			os.Exit(1)
		}
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			return processor.Stop(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
