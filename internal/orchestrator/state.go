package orchestrator

import (
	"sync"

	"github.com/goshak24/ScolioFrontend-sub001/internal/badge"
	"github.com/goshak24/ScolioFrontend-sub001/internal/domain"
)

// State is the observable view the UI renders from.
type State struct {
	SuccessMessage         string             `json:"success_message,omitempty"`
	StreakAnimationVisible bool               `json:"streak_animation_visible"`
	ActiveBadge            *domain.Badge      `json:"active_badge,omitempty"`
	PendingBadges          int                `json:"pending_badges"`
	IsBusy                 bool               `json:"is_busy"`
	ProfileLoaded          bool               `json:"profile_loaded"`
	Phase                  string             `json:"phase"`
	Display                string             `json:"display"`
	AccountType            domain.AccountType `json:"account_type"`
	Streak                 domain.StreakState `json:"streak"`
	Progress               domain.Progress    `json:"progress"`
}

// Snapshot returns the current observable state.
func (o *Orchestrator) Snapshot() State {
	display := o.queue.Snapshot()

	o.mu.Lock()
	defer o.mu.Unlock()
	return State{
		SuccessMessage:         o.message,
		StreakAnimationVisible: display.State == badge.StreakAnimating,
		ActiveBadge:            display.Active,
		PendingBadges:          display.Pending,
		IsBusy:                 o.phase != PhaseIdle,
		ProfileLoaded:          o.profileLoaded,
		Phase:                  o.phase.String(),
		Display:                display.State.String(),
		AccountType:            o.profile.AccountType,
		Streak:                 o.profile.Streak,
		Progress:               o.progress,
	}
}

// Subscribe returns a channel that receives the latest State after every
// change. Slow readers only see the most recent state. The returned func
// unsubscribes and closes the channel.
func (o *Orchestrator) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)
	o.subs.add(ch)
	return ch, func() { o.subs.remove(ch) }
}

// publish snapshots and sends under the subscriber lock, so concurrent
// transitions reach the channels in the order their snapshots were taken.
func (o *Orchestrator) publish() {
	o.subs.mu.Lock()
	defer o.subs.mu.Unlock()
	if len(o.subs.set) == 0 {
		return
	}
	o.subs.sendLocked(o.Snapshot())
}

type subscribers struct {
	mu  sync.Mutex
	set map[chan State]struct{}
}

func (s *subscribers) init() {
	s.set = make(map[chan State]struct{})
}

func (s *subscribers) add(ch chan State) {
	s.mu.Lock()
	s.set[ch] = struct{}{}
	s.mu.Unlock()
}

func (s *subscribers) remove(ch chan State) {
	s.mu.Lock()
	if _, ok := s.set[ch]; ok {
		delete(s.set, ch)
		close(ch)
	}
	s.mu.Unlock()
}

func (s *subscribers) sendLocked(state State) {
	for ch := range s.set {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- state:
		default:
		}
	}
}
