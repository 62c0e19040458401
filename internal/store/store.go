// Package store provides the process-wide handle to the document store.
// The Postgres pool is created lazily on first use and memoized; when no
// connection string is configured the handle reports domain.ErrUnavailable,
// which callers treat as a normal, checked condition.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pkordes/tripwise/internal/domain"
)

// Handle lazily opens and memoizes a *pgxpool.Pool.
// The zero value is not usable; construct it with New.
type Handle struct {
	dsn string

	once sync.Once
	pool *pgxpool.Pool
	err  error
}

// New returns a Handle for dsn. No connection is attempted until Pool is called.
func New(dsn string) *Handle {
	return &Handle{dsn: dsn}
}

// Configured reports whether a connection string was supplied.
func (h *Handle) Configured() bool {
	return h.dsn != ""
}

// Pool returns the shared pool, opening and pinging it on the first call.
// The outcome of the first call, success or failure, is returned forever after.
func (h *Handle) Pool(ctx context.Context) (*pgxpool.Pool, error) {
	h.once.Do(func() {
		if h.dsn == "" {
			h.err = fmt.Errorf("store: no DATABASE_URL configured: %w", domain.ErrUnavailable)
			return
		}
		pool, err := pgxpool.New(ctx, h.dsn)
		if err != nil {
			h.err = fmt.Errorf("store: create pool: %w", err)
			return
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			h.err = fmt.Errorf("store: ping: %w", err)
			return
		}
		h.pool = pool
	})
	return h.pool, h.err
}

// Close releases the pool if it was ever opened.
func (h *Handle) Close() {
	if h.pool != nil {
		h.pool.Close()
	}
}
