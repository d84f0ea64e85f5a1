package server

import (
	"context"
	"fmt"

	"github.com/hongminglow/custody-be/internal/config"
	"github.com/hongminglow/custody-be/internal/storage"
	"github.com/hongminglow/custody-be/internal/storage/memory"
	"github.com/hongminglow/custody-be/internal/storage/mongo"
	"github.com/hongminglow/custody-be/internal/storage/postgres"
)

// OpenStore connects the configured driver and bounds it with the dependency
// timeout.
func OpenStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	var (
		inner storage.Store
		err   error
	)
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		inner, err = postgres.NewStore(ctx, cfg.DatabaseURL)
	case config.DriverMongo:
		inner, err = mongo.NewStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case config.DriverMemory:
		inner = memory.New()
	default:
		err = fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StorageDriver, err)
	}
	return storage.NewBounded(inner, cfg.DependencyTimeout), nil
}
