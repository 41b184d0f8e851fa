// Package db builds the shared backing-store handles for the funnel service.
// A single pgx pool serves both the leads store and the vacancy catalog; a
// single Redis client backs the context fast tier, the dedupe guard and the
// stage-change notifications. Both are verified at startup so a broken
// connection string never reaches the event loop.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPostgresPool opens the pool over the leads and vacancies tables
// (db/schema.sql) and pings it before handing it out.
func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return pool, nil
}
