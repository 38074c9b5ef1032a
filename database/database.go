package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultMaxConns        int32         = 10
	defaultConnectTimeout  time.Duration = 5 * time.Second
	defaultMaxConnIdleTime time.Duration = 5 * time.Minute
)

// Config holds the process wide connection pool configuration.
type Config struct {
	URL             string
	MaxConns        int32
	ConnectTimeout  time.Duration
	MaxConnIdleTime time.Duration
}

var (
	once    sync.Once
	pool    *pgxpool.Pool
	initErr error
)

// Pool lazily initializes the process wide connection pool on first use and
// returns the same instance on subsequent calls. Pair it with Close at
// shutdown so connections are not leaked.
func Pool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	once.Do(func() {
		cfg = applyDefaults(cfg)
		pc, err := pgxpool.ParseConfig(cfg.URL)
		if err != nil {
			initErr = fmt.Errorf("could not parse the database url: %w", err)
			return
		}
		pc.MaxConns = cfg.MaxConns
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
		pc.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

		pool, initErr = pgxpool.NewWithConfig(ctx, pc)
	})
	return pool, initErr
}

// Close tears down the pool. It is safe to call even when the pool was never
// initialized.
func Close() {
	if pool != nil {
		pool.Close()
	}
}

func applyDefaults(cfg Config) Config {
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = defaultMaxConns
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.MaxConnIdleTime <= 0 {
		cfg.MaxConnIdleTime = defaultMaxConnIdleTime
	}
	return cfg
}
