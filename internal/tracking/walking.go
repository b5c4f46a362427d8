// Package tracking holds the locally persisted daily counters of each tracked subsystem.
package tracking

import (
	"context"
	"fmt"
	"sync"

	"github.com/goshak24/ScolioFrontend-sub001/internal/persistence"
)

// Subsystem names double as rollover marker suffixes.
const (
	SubsystemWalking  = "walking"
	SubsystemRecovery = "recovery"
	SubsystemBrace    = "brace"
)

type walkingState struct {
	Minutes int `json:"minutes"`
}

// WalkingLog tracks walking minutes for the current day.
type WalkingLog struct {
	mu    sync.Mutex
	store persistence.Store
}

// NewWalkingLog constructs a WalkingLog.
func NewWalkingLog(store persistence.Store) *WalkingLog {
	return &WalkingLog{store: store}
}

// Name implements rollover.Subsystem.
func (w *WalkingLog) Name() string { return SubsystemWalking }

// Minutes returns today's walking minutes.
func (w *WalkingLog) Minutes(ctx context.Context) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	state, err := w.load(ctx)
	return state.Minutes, err
}

// Add records additional walking minutes and returns the new total.
func (w *WalkingLog) Add(ctx context.Context, minutes int) (int, error) {
	if minutes <= 0 {
		return 0, fmt.Errorf("minutes must be > 0")
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	state, err := w.load(ctx)
	if err != nil {
		return 0, err
	}
	state.Minutes += minutes
	if err := persistence.SetJSON(ctx, w.store, persistence.TrackingKey(SubsystemWalking), state); err != nil {
		return 0, err
	}
	return state.Minutes, nil
}

// Reset clears today's minutes.
func (w *WalkingLog) Reset(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return persistence.SetJSON(ctx, w.store, persistence.TrackingKey(SubsystemWalking), walkingState{})
}

func (w *WalkingLog) load(ctx context.Context) (walkingState, error) {
	var state walkingState
	_, err := persistence.GetJSON(ctx, w.store, persistence.TrackingKey(SubsystemWalking), &state)
	return state, err
}
