package tracking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goshak24/ScolioFrontend-sub001/internal/persistence"
)

// ErrTimerNotRunning is returned by Stop when the brace timer was never started.
var ErrTimerNotRunning = errors.New("brace timer not running")

type braceState struct {
	StartedAt      *time.Time `json:"started_at,omitempty"`
	ElapsedSeconds int64      `json:"elapsed_seconds"`
}

// BraceTimer measures brace wear time. The start instant is persisted so the
// timer survives the app being killed while the brace is on.
type BraceTimer struct {
	mu    sync.Mutex
	store persistence.Store
}

// NewBraceTimer constructs a BraceTimer.
func NewBraceTimer(store persistence.Store) *BraceTimer {
	return &BraceTimer{store: store}
}

// Name implements rollover.Subsystem.
func (b *BraceTimer) Name() string { return SubsystemBrace }

// Start begins a wear interval. Starting a running timer is a no-op.
func (b *BraceTimer) Start(ctx context.Context, now time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, err := b.load(ctx)
	if err != nil {
		return err
	}
	if state.StartedAt != nil {
		return nil
	}
	started := now.UTC()
	state.StartedAt = &started
	return b.save(ctx, state)
}

// Stop closes the running interval and returns its length in hours.
func (b *BraceTimer) Stop(ctx context.Context, now time.Time) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, err := b.load(ctx)
	if err != nil {
		return 0, err
	}
	if state.StartedAt == nil {
		return 0, ErrTimerNotRunning
	}
	interval := now.Sub(*state.StartedAt)
	if interval < 0 {
		interval = 0
	}
	state.ElapsedSeconds += int64(interval / time.Second)
	state.StartedAt = nil
	if err := b.save(ctx, state); err != nil {
		return 0, err
	}
	return interval.Hours(), nil
}

// Elapsed returns the wear time accumulated today, including a running interval.
func (b *BraceTimer) Elapsed(ctx context.Context, now time.Time) (time.Duration, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, err := b.load(ctx)
	if err != nil {
		return 0, false, err
	}
	elapsed := time.Duration(state.ElapsedSeconds) * time.Second
	running := state.StartedAt != nil
	if running && now.After(*state.StartedAt) {
		elapsed += now.Sub(*state.StartedAt)
	}
	return elapsed, running, nil
}

// Reset clears the elapsed timer, including any running interval.
func (b *BraceTimer) Reset(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.save(ctx, braceState{})
}

func (b *BraceTimer) load(ctx context.Context) (braceState, error) {
	var state braceState
	_, err := persistence.GetJSON(ctx, b.store, persistence.TrackingKey(SubsystemBrace), &state)
	return state, err
}

func (b *BraceTimer) save(ctx context.Context, state braceState) error {
	return persistence.SetJSON(ctx, b.store, persistence.TrackingKey(SubsystemBrace), state)
}
