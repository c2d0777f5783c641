package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"financebuddy/internal/amqp"
	"financebuddy/internal/backend"
	"financebuddy/internal/cli"
	"financebuddy/internal/config"
	"financebuddy/internal/log"
	gsheet "financebuddy/internal/sheets/google"
	"financebuddy/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	// The worker loads books with a user id only; it has no caller token to
	// forward and no access to another process's memory.
	switch backend.BackendType(cfg.DataBackend) {
	case backend.RemoteBackend:
		logger.Warn("Remote backend requires caller tokens; refreshes will be refused", log.FieldBackend, cfg.DataBackend)
	case backend.MemoryBackend:
		logger.Warn("Memory backend is private to this process; exports only cover the seed file", log.FieldBackend, cfg.DataBackend)
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	svc, store := cli.InitBackend(ctx, logger, cfg, nil)
	defer func() {
		if err := store.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	creds, err := cfg.GoogleCredentialsJSON()
	if err != nil {
		logger.Error("Failed to read Google credentials", log.FieldError, err, log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	exporter, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, creds)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets exporter initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	w := worker.NewReportWorker(svc, exporter, worker.Config{
		RefreshInterval: cfg.RefreshInterval,
		Location:        svc.Location(),
	}, logger)

	g, gctx := errgroup.WithContext(ctx)
	if err := w.Start(gctx); err != nil {
		logger.Error("Failed to start report worker", log.FieldError, err)
		os.Exit(1)
	}
	g.Go(func() error {
		return client.ConsumeTransactionEvents(gctx, w.HandleEvent)
	})

	err = g.Wait()
	shutdownCtx, cancel := cli.ShutdownContext(shutdownTimeout)
	defer cancel()
	if stopErr := w.Stop(shutdownCtx); stopErr != nil {
		logger.Warn("Report worker did not stop cleanly", log.FieldError, stopErr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Report worker stopped", "users", len(w.Users()))
}
