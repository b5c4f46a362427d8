package badge

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/goshak24/ScolioFrontend-sub001/internal/domain"
)

func badges(ids ...string) []domain.Badge {
	out := make([]domain.Badge, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Badge{ID: id, Name: "Badge " + id})
	}
	return out
}

func TestEnqueueDoesNotDrainUntilAsked(t *testing.T) {
	q := NewQueue(nil)
	q.Enqueue(badges("a", "b")...)
	q.Enqueue()

	snap := q.Snapshot()
	require.Equal(t, Idle, snap.State)
	require.Equal(t, 2, snap.Pending)

	require.True(t, q.TryDrain())
	snap = q.Snapshot()
	require.Equal(t, BadgeShowing, snap.State)
	require.Equal(t, "a", snap.Active.ID)
	require.Equal(t, 1, snap.Pending)

	require.False(t, q.TryDrain(), "only one badge may be on screen")
}

func TestBadgesDrainInFIFOOrder(t *testing.T) {
	q := NewQueue(nil)
	q.Admit(badges("a", "b", "c"), false)

	var shown []string
	for q.Snapshot().State == BadgeShowing {
		shown = append(shown, q.Snapshot().Active.ID)
		require.True(t, q.EndBadgeDisplay())
	}
	require.Equal(t, []string{"a", "b", "c"}, shown)
	require.Equal(t, Idle, q.Snapshot().State)
	require.False(t, q.EndBadgeDisplay())
}

func TestStreakAnimationPrecedesCycleBadges(t *testing.T) {
	q := NewQueue(nil)
	q.Admit(badges("first", "second"), true)

	snap := q.Snapshot()
	require.Equal(t, StreakAnimating, snap.State)
	require.Nil(t, snap.Active)
	require.Equal(t, 2, snap.Pending)
	require.False(t, q.TryDrain())

	// Badges returned by the streak advance itself also wait.
	q.Enqueue(badges("third")...)
	require.False(t, q.TryDrain())

	require.True(t, q.EndStreakAnimation())
	require.Equal(t, "first", q.Snapshot().Active.ID)
	require.True(t, q.EndBadgeDisplay())
	require.Equal(t, "second", q.Snapshot().Active.ID)
	require.True(t, q.EndBadgeDisplay())
	require.Equal(t, "third", q.Snapshot().Active.ID)
	require.True(t, q.EndBadgeDisplay())
	require.Equal(t, Idle, q.Snapshot().State)
}

func TestStreakRequestedWhileBadgeShowingWaitsForIt(t *testing.T) {
	q := NewQueue(nil)
	q.Admit(badges("earlier"), false)
	require.Equal(t, BadgeShowing, q.Snapshot().State)

	q.Admit(badges("later"), true)
	snap := q.Snapshot()
	require.Equal(t, BadgeShowing, snap.State)
	require.True(t, snap.StreakPending)

	require.True(t, q.EndBadgeDisplay())
	require.Equal(t, StreakAnimating, q.Snapshot().State)
	require.True(t, q.EndStreakAnimation())
	require.Equal(t, "later", q.Snapshot().Active.ID)
}

func TestCancelStreakReleasesBadges(t *testing.T) {
	q := NewQueue(nil)
	q.Admit(badges("held"), true)
	require.Equal(t, StreakAnimating, q.Snapshot().State)

	q.CancelStreakAnimation()
	snap := q.Snapshot()
	require.Equal(t, BadgeShowing, snap.State)
	require.Equal(t, "held", snap.Active.ID)
	require.False(t, snap.StreakPending)

	require.False(t, q.EndStreakAnimation())
}

func TestOnChangeObservesTransitions(t *testing.T) {
	var states []DisplayState
	q := NewQueue(func(d Display) { states = append(states, d.State) })

	q.Admit(badges("a"), true)
	q.EndStreakAnimation()
	q.EndBadgeDisplay()

	require.Equal(t, []DisplayState{StreakAnimating, BadgeShowing, Idle}, states)
}

// Any interleaving of enqueues, drains, and animation events shows every badge exactly once, in order.
func TestNoBadgeLossUnderRandomInterleaving(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 50; round++ {
		q := NewQueue(nil)
		var (
			enqueued []string
			shown    []string
			next     int
		)
		record := func() {
			if snap := q.Snapshot(); snap.State == BadgeShowing {
				id := snap.Active.ID
				if len(shown) == 0 || shown[len(shown)-1] != id {
					shown = append(shown, id)
				}
			}
		}

		for step := 0; step < 200; step++ {
			switch rng.Intn(6) {
			case 0:
				n := rng.Intn(3)
				ids := make([]string, 0, n)
				for i := 0; i < n; i++ {
					ids = append(ids, fmt.Sprintf("b%d", next))
					next++
				}
				enqueued = append(enqueued, ids...)
				q.Enqueue(badges(ids...)...)
			case 1:
				q.TryDrain()
			case 2:
				q.StartStreakAnimation()
			case 3:
				q.EndStreakAnimation()
			case 4:
				q.EndBadgeDisplay()
			case 5:
				q.Admit(badges(fmt.Sprintf("b%d", next)), rng.Intn(2) == 0)
				enqueued = append(enqueued, fmt.Sprintf("b%d", next))
				next++
			}
			record()
		}

		// Settle: acknowledge everything until the queue is empty.
		for i := 0; i < len(enqueued)*2+4; i++ {
			q.EndStreakAnimation()
			record()
			q.EndBadgeDisplay()
			record()
			q.TryDrain()
			record()
		}

		require.Equal(t, enqueued, shown, "round %d", round)
		require.Equal(t, Idle, q.Snapshot().State)
		require.Zero(t, q.Snapshot().Pending)
	}
}
