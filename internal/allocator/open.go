package allocator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/miniworld/modgen/internal/database"
)

// Options selects and configures a Store backend.
type Options struct {
	Backend     string
	RedisURL    string
	RedisPrefix string
	DatabaseURL string
	SQLitePath  string
}

// Open connects the configured backend. Postgres runs the embedded
// migrations before the first draw.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (Store, error) {
	backend, err := ParseBackend(opts.Backend)
	if err != nil {
		return nil, err
	}

	switch backend {
	case BackendRedis:
		rdb, err := database.ConnectRedis(ctx, opts.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("allocator: %w", err)
		}
		logger.Info("allocator backed by redis", zap.String("prefix", opts.RedisPrefix))
		return NewRedis(rdb, opts.RedisPrefix), nil

	case BackendPostgres:
		version, err := database.Migrate(opts.DatabaseURL, logger)
		if err != nil {
			return nil, fmt.Errorf("allocator: %w", err)
		}
		db, err := database.ConnectPostgres(ctx, opts.DatabaseURL, database.DefaultPoolOptions)
		if err != nil {
			return nil, fmt.Errorf("allocator: %w", err)
		}
		store, err := NewPostgres(ctx, db, DefaultStateName)
		if err != nil {
			db.Close()
			return nil, err
		}
		total, _ := db.Stats()
		logger.Info("allocator backed by postgres", zap.Uint("schema", version), zap.Int32("conns", total))
		return store, nil

	case BackendSQLite:
		store, err := OpenSQLite(ctx, opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("allocator backed by sqlite", zap.String("path", opts.SQLitePath))
		return store, nil

	default:
		logger.Info("allocator backed by memory")
		return NewMemory(), nil
	}
}
