package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"suryasakshi/internal/amqp"
	"suryasakshi/internal/services"
	"suryasakshi/internal/storage"
	"suryasakshi/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result *BackendResult
		err    error
	)
	switch config.Type {
	case SQLiteBackend:
		result, err = f.createSQLiteBackend(config)
	case MemoryBackend:
		result, err = f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if err := f.attachAMQP(ctx, config, result); err != nil {
		if result.Cleanup != nil {
			_ = result.Cleanup()
		}
		return nil, err
	}
	return result, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Repositories: services.Repositories{
			SilageSales:      repo.SilageSales(),
			MaizePurchases:   repo.MaizePurchases(),
			OtherExpenses:    repo.OtherExpenses(),
			SoybeanPurchases: repo.SoybeanPurchases(),
			SoybeanSales:     repo.SoybeanSales(),
			Purchases:        repo.Purchases(),
			Activity:         repo,
		},
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store := memory.New()
	if config.MemorySeedFile != "" {
		seeded, err := memory.NewFromFile(config.MemorySeedFile)
		if err != nil {
			return nil, fmt.Errorf("failed to seed memory backend: %w", err)
		}
		store = seeded
	}

	f.logger.Info("Initialized memory backend", "seed_file", config.MemorySeedFile)

	return &BackendResult{
		Repositories: services.Repositories{
			SilageSales:      store.SilageSales(),
			MaizePurchases:   store.MaizePurchases(),
			OtherExpenses:    store.OtherExpenses(),
			SoybeanPurchases: store.SoybeanPurchases(),
			SoybeanSales:     store.SoybeanSales(),
			Purchases:        store.Purchases(),
			Activity:         store,
		},
	}, nil
}

// attachAMQP connects the optional broker client and chains its Close into
// the result's cleanup.
func (f *DefaultFactory) attachAMQP(ctx context.Context, config Config, result *BackendResult) error {
	if config.AMQPURL == "" {
		f.logger.InfoContext(ctx, "AMQP disabled - no AMQP_URL provided")
		return nil
	}

	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		if config.RequireAMQP {
			return fmt.Errorf("failed to initialize AMQP client: %w", err)
		}
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without publishing", "error", err)
		return nil
	}

	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)

	result.AMQP = client
	prev := result.Cleanup
	result.Cleanup = func() error {
		var errs []error
		if err := client.Close(); err != nil {
			errs = append(errs, err)
		}
		if prev != nil {
			if err := prev(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	return nil
}
