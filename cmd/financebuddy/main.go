package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"financebuddy/internal/amqp"
	"financebuddy/internal/backend"
	"financebuddy/internal/cli"
	apphttp "financebuddy/internal/http"
	"financebuddy/internal/log"
	"financebuddy/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext()
	defer stop()

	// Publishing is optional: without a broker the API still works and the
	// report worker simply hears nothing.
	var events services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, transaction events disabled", log.FieldError, err)
		} else {
			defer client.Close()
			events = client
			logger.Info("AMQP publisher ready", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	svc, store := cli.InitBackend(ctx, logger, cfg, events)
	defer func() {
		if err := store.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	idcfg, err := backend.IdentityFromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid identity configuration", log.FieldError, err, log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	verifier, err := backend.NewFactory(logger).CreateVerifier(ctx, idcfg)
	if err != nil {
		logger.Error("Failed to initialize identity verifier", log.FieldError, err, log.FieldErrorType, log.ErrorTypeAuth)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, verifier, apphttp.PingFunc(store.Ping), apphttp.Options{
		AllowedOrigin:      cfg.AllowedOrigin,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting financebuddy API",
			"port", cfg.Port,
			log.FieldBackend, cfg.DataBackend,
			"identity", cfg.IdentityProvider,
			"timezone", cfg.ReportTimezone)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := cli.ShutdownContext(shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
