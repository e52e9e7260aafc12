package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolOptions bounds the allocator's Postgres pool. Draws are single-row
// UPDATE ... RETURNING statements, so a small pool is enough.
type PoolOptions struct {
	MaxConns    int32
	MaxIdleTime time.Duration
}

var DefaultPoolOptions = PoolOptions{MaxConns: 8, MaxIdleTime: 5 * time.Minute}

// Postgres holds the pool shared by the allocator_state queries.
type Postgres struct {
	pool *pgxpool.Pool
}

// ConnectPostgres opens a pool and waits for the first successful ping.
func ConnectPostgres(ctx context.Context, databaseURL string, opts PoolOptions) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("database: parse postgres url: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MaxIdleTime > 0 {
		cfg.MaxConnIdleTime = opts.MaxIdleTime
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database: open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database: ping postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Pool() *pgxpool.Pool { return p.pool }

func (p *Postgres) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

// Stats reports total and idle connections for health output.
func (p *Postgres) Stats() (total, idle int32) {
	s := p.pool.Stat()
	return s.TotalConns(), s.IdleConns()
}

func (p *Postgres) Close() { p.pool.Close() }
