// Package badge sequences badge popups against the streak animation.
package badge

import (
	"fmt"
	"sync"

	"github.com/goshak24/ScolioFrontend-sub001/internal/domain"
)

// DisplayState is what the UI is currently showing. At most one of
// StreakAnimating and BadgeShowing holds at any time.
type DisplayState int

const (
	Idle DisplayState = iota
	StreakAnimating
	BadgeShowing
)

// String returns the display state name.
func (s DisplayState) String() string {
	switch s {
	case Idle:
		return "idle"
	case StreakAnimating:
		return "streak_animating"
	case BadgeShowing:
		return "badge_showing"
	default:
		return fmt.Sprintf("display_state(%d)", int(s))
	}
}

// Display is a point-in-time view of the queue.
type Display struct {
	State         DisplayState
	Active        *domain.Badge
	Pending       int
	StreakPending bool
}

// Queue is a FIFO of earned badges drawn from only when nothing else is on screen.
// A requested streak animation always goes before any queued badge.
type Queue struct {
	mu              sync.Mutex
	pending         []domain.Badge
	state           DisplayState
	active          *domain.Badge
	streakRequested bool
	onChange        func(Display)
}

// NewQueue constructs an idle Queue. onChange, when non-nil, is called after
// every transition, outside the queue lock.
func NewQueue(onChange func(Display)) *Queue {
	return &Queue{onChange: onChange}
}

// Enqueue appends badges without drawing from the queue. Empty input is a no-op.
func (q *Queue) Enqueue(badges ...domain.Badge) {
	if len(badges) == 0 {
		return
	}
	q.mu.Lock()
	q.pending = append(q.pending, badges...)
	enqueuedCounter.Add(float64(len(badges)))
	q.unlockAndNotify()
}

// Admit records the outcome of one activity cycle atomically: badges are
// appended and, when withStreak is set, the streak animation is requested
// before anything can be drawn, so those badges wait for it.
func (q *Queue) Admit(badges []domain.Badge, withStreak bool) {
	q.mu.Lock()
	q.pending = append(q.pending, badges...)
	enqueuedCounter.Add(float64(len(badges)))
	if withStreak {
		q.streakRequested = true
	}
	q.advanceLocked()
	q.unlockAndNotify()
}

// TryDrain shows the head badge when the display is idle and no streak
// animation is pending. It reports whether a badge was popped.
func (q *Queue) TryDrain() bool {
	q.mu.Lock()
	before := q.active
	q.advanceLocked()
	popped := q.active != nil && q.active != before
	q.unlockAndNotify()
	return popped
}

// StartStreakAnimation requests the streak animation. It starts immediately
// when idle, otherwise as soon as the current badge closes.
func (q *Queue) StartStreakAnimation() {
	q.mu.Lock()
	q.streakRequested = true
	q.advanceLocked()
	q.unlockAndNotify()
}

// EndStreakAnimation is the UI's acknowledgement that the animation finished.
func (q *Queue) EndStreakAnimation() bool {
	q.mu.Lock()
	if q.state != StreakAnimating {
		q.mu.Unlock()
		return false
	}
	q.state = Idle
	q.advanceLocked()
	q.unlockAndNotify()
	return true
}

// CancelStreakAnimation withdraws a pending or running streak animation and
// lets queued badges through. Used when the streak advance fails.
func (q *Queue) CancelStreakAnimation() {
	q.mu.Lock()
	q.streakRequested = false
	if q.state == StreakAnimating {
		q.state = Idle
	}
	q.advanceLocked()
	q.unlockAndNotify()
}

// EndBadgeDisplay is the UI's acknowledgement that the active badge popup closed.
func (q *Queue) EndBadgeDisplay() bool {
	q.mu.Lock()
	if q.state != BadgeShowing {
		q.mu.Unlock()
		return false
	}
	q.state = Idle
	q.active = nil
	q.advanceLocked()
	q.unlockAndNotify()
	return true
}

// Snapshot returns the current display.
func (q *Queue) Snapshot() Display {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

// advanceLocked performs the single Idle transition allowed: a pending streak
// animation first, otherwise the head badge.
func (q *Queue) advanceLocked() {
	if q.state != Idle {
		return
	}
	if q.streakRequested {
		q.streakRequested = false
		q.state = StreakAnimating
		streakAnimationCounter.Inc()
		return
	}
	if len(q.pending) == 0 {
		return
	}
	head := q.pending[0]
	q.pending = q.pending[1:]
	q.active = &head
	q.state = BadgeShowing
	displayedCounter.Inc()
}

func (q *Queue) snapshotLocked() Display {
	d := Display{
		State:         q.state,
		Pending:       len(q.pending),
		StreakPending: q.streakRequested,
	}
	if q.active != nil {
		active := *q.active
		d.Active = &active
	}
	return d
}

func (q *Queue) unlockAndNotify() {
	snap := q.snapshotLocked()
	q.mu.Unlock()
	if q.onChange != nil {
		q.onChange(snap)
	}
}
