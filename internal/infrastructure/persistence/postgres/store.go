// Package postgres implements the portal's persistent cache store on
// PostgreSQL. It offers the same string-keyed document contract as the redis
// store, backed by a single upsert table, for deployments that already run
// Postgres and do not want a second datastore.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrNotFound is returned when the requested key does not exist.
	ErrNotFound = errors.New("postgres store: key not found")

	// ErrMigrationFailed indicates the schema could not be prepared.
	ErrMigrationFailed = errors.New("postgres store: migration failed")
)

// ══════════════════════════════════════════════════════════════════════════════
// STORE
// ══════════════════════════════════════════════════════════════════════════════

const schema = `
CREATE TABLE IF NOT EXISTS portal_cache (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Store is a string-keyed document store backed by a PostgreSQL table.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to PostgreSQL with the given connection URL and prepares
// the cache table.
func NewStore(ctx context.Context, url string) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("postgres store: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", ErrMigrationFailed, err)
	}

	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Get returns the document stored under key, or ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM portal_cache WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("postgres store: get %q: %w", key, err)
	}
	return value, nil
}

// Set stores a document under key, overwriting any previous value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO portal_cache (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value)
	if err != nil {
		return fmt.Errorf("postgres store: set %q: %w", key, err)
	}
	return nil
}

// Contains reports whether a document exists under key.
func (s *Store) Contains(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM portal_cache WHERE key = $1)`, key).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres store: contains %q: %w", key, err)
	}
	return exists, nil
}
