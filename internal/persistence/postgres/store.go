package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/goshak24/ScolioFrontend-sub001/internal/domain"
)

const schema = `CREATE TABLE IF NOT EXISTS adherence_kv (
    kv_key     TEXT PRIMARY KEY,
    kv_value   TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Store provides Postgres-backed durable key-value persistence.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the backing table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("%w: create adherence_kv: %v", domain.ErrStorageFailure, err)
	}
	return nil
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	const query = `SELECT kv_value FROM adherence_kv WHERE kv_key=$1`

	var value string
	if err := s.pool.QueryRow(ctx, query, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: get %s: %v", domain.ErrStorageFailure, key, err)
	}
	return value, true, nil
}

// Set upserts value under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	const stmt = `INSERT INTO adherence_kv (kv_key, kv_value, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (kv_key) DO UPDATE SET kv_value = EXCLUDED.kv_value, updated_at = EXCLUDED.updated_at`

	if _, err := s.pool.Exec(ctx, stmt, key, value); err != nil {
		return fmt.Errorf("%w: set %s: %v", domain.ErrStorageFailure, key, err)
	}
	return nil
}

// Remove deletes key. Removing an absent key is not an error.
func (s *Store) Remove(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM adherence_kv WHERE kv_key=$1`, key); err != nil {
		return fmt.Errorf("%w: remove %s: %v", domain.ErrStorageFailure, key, err)
	}
	return nil
}
