package backend

import (
	"context"
	"errors"
	"fmt"

	"backoffice/internal/amqp"
	"backoffice/internal/blob"
	"backoffice/internal/cache"
	"backoffice/internal/catalog"
	"backoffice/internal/catalog/memory"
	"backoffice/internal/catalog/seed"
	"backoffice/internal/client"
	"backoffice/internal/core"
	"backoffice/internal/log"
	"backoffice/internal/services"
	"backoffice/internal/sheets"
	gsheet "backoffice/internal/sheets/google"
	sheetsmem "backoffice/internal/sheets/memory"
	"backoffice/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case RemoteBackend:
		return f.createRemoteBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store := memory.New()
	result, err := f.local(ctx, config, store)
	if err != nil {
		return nil, err
	}

	if config.SeedMemory {
		sum, err := seed.Run(ctx, result.Backend, seed.DefaultOptions(), f.logger)
		if err != nil {
			_ = result.Close()
			return nil, fmt.Errorf("seed memory backend: %w", err)
		}
		f.logger.Info("Memory backend seeded", "orders", sum.Orders)
	}

	f.logger.Info("Initialized memory backend")
	return result, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	result, err := f.local(ctx, config, repo)
	if err != nil {
		repo.Close()
		return nil, err
	}
	result.Ready = repo.Ping
	closeService := result.Cleanup
	result.Cleanup = func() error {
		return errors.Join(closeService(), repo.Close())
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return result, nil
}

func (f *DefaultFactory) createRemoteBackend(config Config) (*BackendResult, error) {
	c := client.New(config.APIBaseURL, config.HTTPClientTimeout, f.logger)

	f.logger.Info("Initialized remote backend", "base_url", config.APIBaseURL)
	return &BackendResult{
		Backend: c,
		Ready: func(ctx context.Context) error {
			_, err := c.ListCategories(ctx)
			return err
		},
	}, nil
}

// local wires the catalog service and the order processor around a store.
func (f *DefaultFactory) local(ctx context.Context, config Config, repo catalog.Repository) (*BackendResult, error) {
	reports := cache.NewLRUCache[core.SalesReport](config.ReportCacheSize, config.ReportCacheTTL)
	opts := []services.Option{services.WithReportCache(reports)}

	if config.BlobEnabled {
		store, err := blob.New(ctx, config.Blob)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize blob store: %w", err)
		}
		opts = append(opts, services.WithBlobStore(store))
		f.logger.Info("Initialized blob store", "bucket", config.Blob.Bucket)
	}

	if config.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, orders will be processed by the sweep", log.FieldError, err)
		} else {
			opts = append(opts, services.WithPublisher(amqpClient))
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	exporter, err := f.exporter(ctx, config)
	if err != nil {
		return nil, err
	}

	svc := services.NewCatalogService(repo, f.logger, opts...)
	return &BackendResult{
		Backend:     svc,
		Repository:  repo,
		Processor:   services.NewOrderProcessor(repo, exporter, f.logger, services.DefaultOrderProcessorConfig()),
		ReportCache: reports,
		Ready:       func(context.Context) error { return nil },
		Cleanup:     svc.Close,
	}, nil
}

func (f *DefaultFactory) exporter(ctx context.Context, config Config) (sheets.OrderExporter, error) {
	if !config.SheetsEnabled {
		f.logger.Info("Google Sheets export disabled, keeping processed orders in memory")
		return sheetsmem.New(), nil
	}
	c, err := gsheet.New(ctx, config.Sheets)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets export", "spreadsheet_id", config.Sheets.SpreadsheetID)
	return c, nil
}
