package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"moneta/internal/amqp"
	"moneta/internal/backend"
	"moneta/internal/config"
	apphttp "moneta/internal/http"
	applog "moneta/internal/log"
	"moneta/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	factory := backend.NewFactory(logger.Logger)
	result, err := factory.CreateBackend(cfg)
	if err != nil {
		logger.Error("Failed to initialize data backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", "error", err)
			}
		}
	}()

	var publisher apphttp.ChangePublisher
	if result.AMQPClient != nil {
		publisher = result.AMQPClient
	}

	srv := apphttp.NewServer(":"+cfg.Port, result.Backend, publisher, apphttp.Options{
		TrendMonths:    cfg.TrendMonths,
		CacheSize:      cfg.ReportCacheSize,
		CacheTTL:       cfg.ReportCacheTTL,
		ExportRowLimit: cfg.ExportRowLimit,
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// When a broker is available, changes published by other writers
	// refresh this server's report cache too.
	if result.AMQPClient != nil {
		refresher := worker.NewRefreshWorker(srv.Orchestrator(), srv.Snapshots())
		go func() {
			err := result.AMQPClient.ConsumeTransactionChanges(ctx, func(msg *amqp.TransactionChangeMessage) error {
				return refresher.HandleChangeMessage(ctx, msg)
			})
			if err != nil && err != context.Canceled {
				logger.Error("Change consumption stopped", "error", err)
			}
		}()
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting moneta server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
