package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"moneta/internal/amqp"
	"moneta/internal/cache"
	"moneta/internal/config"
	applog "moneta/internal/log"
	"moneta/internal/report"
	"moneta/internal/storage"
	"moneta/internal/worker"
)

// report-worker consumes transaction change messages and keeps a warm
// report snapshot computed against the shared SQLite database. It lets
// mutations from any writer trigger recomputation without a running
// server instance.
func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	cfgLog := applog.DefaultConfig()
	cfgLog.Component = applog.ComponentWorker
	logger := applog.New(cfgLog)
	applog.SetDefault(logger)

	logger.Info("Starting report-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the report worker")
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orchestrator := report.NewOrchestrator(repo, cfg.TrendMonths)
	snapshots := cache.NewLRUCache[*report.Snapshot](cfg.ReportCacheSize, cfg.ReportCacheTTL)
	refresher := worker.NewRefreshWorker(orchestrator, snapshots)

	// Compute the unfiltered report once so the cache starts warm.
	if err := refresher.WarmStart(ctx); err != nil {
		logger.Error("Warm start failed", "error", err)
		// Keep running; the next change message retries the computation.
	}

	go func() {
		err := amqpClient.ConsumeTransactionChanges(ctx, func(msg *amqp.TransactionChangeMessage) error {
			return refresher.HandleChangeMessage(ctx, msg)
		})
		if err != nil && err != context.Canceled {
			logger.Error("Message consumption failed", "error", err)
		}
		cancel()
	}()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()
	logger.Info("Shutting down worker...")
	time.Sleep(time.Second)
	logger.Info("Worker shutdown complete")
}
