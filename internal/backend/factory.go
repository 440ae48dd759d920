package backend

import (
	"fmt"
	"log/slog"

	"moneta/internal/amqp"
	"moneta/internal/config"
	"moneta/internal/memory"
	"moneta/internal/storage"
)

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (t BackendType) IsValid() bool {
	switch t {
	case SQLiteBackend, MemoryBackend:
		return true
	}
	return false
}

// BackendResult bundles a constructed backend with its optional AMQP
// client and cleanup.
type BackendResult struct {
	Backend    Backend
	AMQPClient *amqp.Client
	Cleanup    CleanupFunc
}

// Factory builds data backends from application config.
type Factory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

// CreateBackend builds the backend selected by cfg.DataBackend. The AMQP
// client is optional for every backend type: without it, mutation events
// simply stay local.
func (f *Factory) CreateBackend(cfg *config.Config) (*BackendResult, error) {
	backendType := BackendType(cfg.DataBackend)
	if !backendType.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", cfg.DataBackend)
	}

	amqpClient := f.connectAMQP(cfg)

	switch backendType {
	case SQLiteBackend:
		return f.createSQLiteBackend(cfg, amqpClient)
	case MemoryBackend:
		return f.createMemoryBackend(cfg, amqpClient)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", backendType)
	}
}

// connectAMQP dials the broker when configured. A broken broker never
// blocks startup; the server degrades to local-only invalidation.
func (f *Factory) connectAMQP(cfg *config.Config) *amqp.Client {
	if cfg.AMQPURL == "" {
		return nil
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without change events", "error", err)
		return nil
	}

	f.logger.Info("Initialized AMQP client",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)
	return client
}

func (f *Factory) createSQLiteBackend(cfg *config.Config, amqpClient *amqp.Client) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		if amqpClient != nil {
			amqpClient.Close()
		}
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend",
		"db_path", cfg.SQLiteDBPath,
		"amqp_enabled", amqpClient != nil)

	cleanup := func() error {
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				f.logger.Warn("Failed to close AMQP client", "error", err)
			}
		}
		return repo.Close()
	}

	return &BackendResult{
		Backend:    repo,
		AMQPClient: amqpClient,
		Cleanup:    cleanup,
	}, nil
}

func (f *Factory) createMemoryBackend(_ *config.Config, amqpClient *amqp.Client) (*BackendResult, error) {
	store := memory.NewStore()

	f.logger.Info("Initialized memory backend", "amqp_enabled", amqpClient != nil)

	var cleanup CleanupFunc
	if amqpClient != nil {
		cleanup = amqpClient.Close
	}

	return &BackendResult{
		Backend:    store,
		AMQPClient: amqpClient,
		Cleanup:    cleanup,
	}, nil
}
