// Package db builds the pgx connection pool for the postgres store.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool limits are deliberately modest. The read path is served entirely
// from the in-memory snapshot, so the database only sees admin writes and
// snapshot rebuilds.
const (
	maxConns         = 8
	minIdleConns     = 1
	connectTimeout   = 5 * time.Second
	healthCheckEvery = time.Minute
)

// NewPool connects to postgres and verifies the connection with a ping, so
// a bad DSN or unreachable host fails at startup rather than on the first
// admin write.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database DSN: %w", err)
	}
	poolCfg.MaxConns = maxConns
	poolCfg.MinConns = minIdleConns
	poolCfg.HealthCheckPeriod = healthCheckEvery
	poolCfg.ConnConfig.ConnectTimeout = connectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("build connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
