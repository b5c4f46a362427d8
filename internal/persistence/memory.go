package persistence

import (
	"context"
	"fmt"
	"sync"

	"github.com/goshak24/ScolioFrontend-sub001/internal/domain"
)

// Memory is an in-process Store used for tests and ephemeral deployments.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory constructs an empty Memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

// Get implements Store.
func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, fmt.Errorf("%w: get %s: %w", domain.ErrStorageFailure, key, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	return value, ok, nil
}

// Set implements Store.
func (m *Memory) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: set %s: %w", domain.ErrStorageFailure, key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Remove implements Store.
func (m *Memory) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: remove %s: %w", domain.ErrStorageFailure, key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Keys returns a snapshot of the stored keys.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.values))
	for key := range m.values {
		out = append(out, key)
	}
	return out
}
