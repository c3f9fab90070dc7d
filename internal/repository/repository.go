// Package repository persists audit runs, their result documents, and
// service keys in PostgreSQL.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool sizing: traffic here is a handful of API requests plus one audit
// worker polling every few seconds. Result documents are large JSONB
// rows, so the cap keeps concurrent fat writes bounded rather than
// serving high request volume.
const (
	maxConns          = 8
	minConns          = 2
	maxConnIdleTime   = 5 * time.Minute
	healthCheckPeriod = time.Minute
)

// Repository provides access to the audit run and service key tables.
type Repository struct {
	pool *pgxpool.Pool
}

// New opens a connection pool and verifies it with a ping. The audit
// worker is useless without the run queue, so startup fails hard when
// the database is unreachable.
func New(ctx context.Context, databaseURL string) (*Repository, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	config.MaxConns = maxConns
	config.MinConns = minConns
	config.MaxConnIdleTime = maxConnIdleTime
	config.HealthCheckPeriod = healthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Repository{pool: pool}, nil
}

// Ping checks database connectivity, for the readiness probe.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close drains and closes the connection pool.
func (r *Repository) Close() {
	r.pool.Close()
}

// Pool exposes the underlying pool for test helpers and migrations.
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}
