package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// ErrNotConfigured marks storage calls made without a database DSN. The
// flows run fine without persistence; reconciliation requires it.
var ErrNotConfigured = errors.New("storage: database not configured")

// Options configures the connection pool.
type Options struct {
	DSN             string
	MaxOpenConns    int32
	MinIdleConns    int32
	ConnMaxLifetime time.Duration
}

// Store owns the pgx pool.
type Store struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// Open connects and pings. An empty DSN returns ErrNotConfigured so callers
// can degrade to memory-only operation.
func Open(ctx context.Context, opts Options, logger zerolog.Logger) (*Store, error) {
	if opts.DSN == "" {
		return nil, ErrNotConfigured
	}
	cfg, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("storage: parse dsn: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		cfg.MaxConns = opts.MaxOpenConns
	}
	if opts.MinIdleConns > 0 {
		cfg.MinConns = opts.MinIdleConns
	}
	if opts.ConnMaxLifetime > 0 {
		cfg.MaxConnLifetime = opts.ConnMaxLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}
	return &Store{
		pool:   pool,
		logger: logger.With().Str("component", "storage").Logger(),
	}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// TryAdvisoryLock attempts a session-scoped advisory lock. Only one process
// holds a given key at a time, which keeps concurrent reconcilers from
// double-resolving attempts.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	var acquired bool
	err := s.pool.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&acquired)
	if err != nil {
		return false, fmt.Errorf("storage: advisory lock: %w", err)
	}
	return acquired, nil
}

// AdvisoryUnlock releases a previously acquired lock key.
func (s *Store) AdvisoryUnlock(ctx context.Context, key int64) error {
	if _, err := s.pool.Exec(ctx, "SELECT pg_advisory_unlock($1)", key); err != nil {
		return fmt.Errorf("storage: advisory unlock: %w", err)
	}
	return nil
}
