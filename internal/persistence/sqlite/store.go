// Package sqlite provides the device-local Store backed by SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/goshak24/ScolioFrontend-sub001/internal/domain"
)

const schema = `CREATE TABLE IF NOT EXISTS kv (
    kv_key     TEXT PRIMARY KEY,
    kv_value   TEXT NOT NULL,
    updated_at INTEGER NOT NULL DEFAULT (unixepoch())
)`

// Store provides SQLite-backed key-value persistence.
type Store struct {
	sqlDB *sql.DB
}

// Open opens (creating when needed) a SQLite store at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer keeps WAL commits ordered.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if s == nil || s.sqlDB == nil {
		return "", false, fmt.Errorf("%w: storage is not configured", domain.ErrStorageFailure)
	}

	var value string
	row := s.sqlDB.QueryRowContext(ctx, `SELECT kv_value FROM kv WHERE kv_key = ?`, key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: get %s: %v", domain.ErrStorageFailure, key, err)
	}
	return value, true, nil
}

// Set upserts value under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("%w: storage is not configured", domain.ErrStorageFailure)
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO kv (kv_key, kv_value, updated_at) VALUES (?, ?, unixepoch())
		 ON CONFLICT(kv_key) DO UPDATE SET kv_value = excluded.kv_value, updated_at = excluded.updated_at`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("%w: set %s: %v", domain.ErrStorageFailure, key, err)
	}
	return nil
}

// Remove deletes key.
func (s *Store) Remove(ctx context.Context, key string) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("%w: storage is not configured", domain.ErrStorageFailure)
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM kv WHERE kv_key = ?`, key); err != nil {
		return fmt.Errorf("%w: remove %s: %v", domain.ErrStorageFailure, key, err)
	}
	return nil
}
