// Package persistence defines the durable key-value contract every subsystem persists through.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/goshak24/ScolioFrontend-sub001/internal/domain"
)

// Store is an at-least-once durable key-value store. Writes to different keys are not transactional.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// ErrCorruptValue marks a stored value that could not be decoded.
var ErrCorruptValue = errors.New("corrupt stored value")

// Well-known keys.
const (
	KeyStreakState = "streak:state"
	KeyProfile     = "profile"
)

// ResetMarkerKey returns the key holding a subsystem's last reset date.
func ResetMarkerKey(subsystem string) string {
	return "lastResetDate:" + subsystem
}

// TrackingKey returns the key holding a subsystem's cached counters.
func TrackingKey(subsystem string) string {
	return "tracking:" + subsystem
}

// GetJSON decodes the value stored under key into target. found is false when the key is absent.
func GetJSON(ctx context.Context, store Store, key string, target any) (bool, error) {
	raw, found, err := store.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return false, fmt.Errorf("%w: %w: %s: %v", domain.ErrStorageFailure, ErrCorruptValue, key, err)
	}
	return true, nil
}

// SetJSON encodes value and stores it under key.
func SetJSON(ctx context.Context, store Store, key string, value any) error {
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", domain.ErrStorageFailure, key, err)
	}
	return store.Set(ctx, key, string(body))
}

// Prefixed namespaces every key of store under prefix.
func Prefixed(store Store, prefix string) Store {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return store
	}
	return prefixedStore{inner: store, prefix: prefix + "/"}
}

type prefixedStore struct {
	inner  Store
	prefix string
}

func (p prefixedStore) Get(ctx context.Context, key string) (string, bool, error) {
	return p.inner.Get(ctx, p.prefix+key)
}

func (p prefixedStore) Set(ctx context.Context, key, value string) error {
	return p.inner.Set(ctx, p.prefix+key, value)
}

func (p prefixedStore) Remove(ctx context.Context, key string) error {
	return p.inner.Remove(ctx, p.prefix+key)
}
