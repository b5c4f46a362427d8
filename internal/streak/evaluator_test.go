package streak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/goshak24/ScolioFrontend-sub001/internal/domain"
)

// 2025-10-20 is a Monday.
const monday = domain.CalendarDate("2025-10-20")

func plan() domain.Plan {
	return domain.Plan{
		BraceTargetHours: 16,
		PhysioSchedule:   map[time.Weekday]int{time.Monday: 2},
	}
}

func TestIsEligible(t *testing.T) {
	cases := []struct {
		name     string
		account  domain.AccountType
		date     domain.CalendarDate
		progress domain.Progress
		want     bool
	}{
		{"brace below target", domain.AccountBrace, monday, domain.Progress{Date: monday, BraceHours: 14}, false},
		{"brace at target", domain.AccountBrace, monday, domain.Progress{Date: monday, BraceHours: 16}, true},
		{"physio short", domain.AccountPhysio, monday, domain.Progress{Date: monday, PhysioSessions: 1}, false},
		{"physio met", domain.AccountPhysio, monday, domain.Progress{Date: monday, PhysioSessions: 2}, true},
		{"physio none scheduled", domain.AccountPhysio, monday.AddDays(1), domain.Progress{}, true},
		{"brace+physio needs both", domain.AccountBracePhysio, monday, domain.Progress{Date: monday, BraceHours: 17, PhysioSessions: 1}, false},
		{"brace+physio both met", domain.AccountBracePhysio, monday, domain.Progress{Date: monday, BraceHours: 17, PhysioSessions: 2}, true},
		{"pre-surgery unsupported", domain.AccountPreSurgery, monday, domain.Progress{Date: monday, BraceHours: 24, PhysioSessions: 9}, false},
		{"post-surgery tasks open", domain.AccountPostSurgery, monday, domain.Progress{Date: monday, PhysioSessions: 2, RecoveryCompleted: 2, RecoveryTotal: 3}, false},
		{"post-surgery all done", domain.AccountPostSurgery, monday, domain.Progress{Date: monday, PhysioSessions: 2, RecoveryCompleted: 3, RecoveryTotal: 3}, true},
		{"post-surgery physio short", domain.AccountPostSurgery, monday, domain.Progress{Date: monday, PhysioSessions: 1, RecoveryCompleted: 3, RecoveryTotal: 3}, false},
		{"unknown fails open", domain.AccountUnknown, monday, domain.Progress{}, true},
		{"stale progress ignored", domain.AccountBrace, monday, domain.Progress{Date: monday.AddDays(-1), BraceHours: 20}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := IsEligible(tc.account, tc.date, Snapshot{Plan: plan(), Progress: tc.progress})
			require.Equal(t, tc.want, got)
		})
	}
}

func TestFoldBraceUsesConfirmedTotal(t *testing.T) {
	progress := domain.Progress{Date: monday, BraceHours: 14}
	evt := domain.NewActivityEvent(domain.ActivityBrace, monday).WithHours(3)

	require.InDelta(t, 17.0, Fold(progress, evt, Confirmed{}).BraceHours, 0.001)
	require.InDelta(t, 18.5, Fold(progress, evt, Confirmed{BraceTotalHours: 18.5}).BraceHours, 0.001)
}

func TestFoldPhysioIsOptimistic(t *testing.T) {
	progress := domain.Progress{Date: monday, PhysioSessions: 1}
	evt := domain.NewActivityEvent(domain.ActivityPhysio, monday)

	folded := Fold(progress, evt, Confirmed{})
	require.Equal(t, 2, folded.PhysioSessions)
	require.True(t, IsEligible(domain.AccountPhysio, monday, Snapshot{Plan: plan(), Progress: folded}))

	require.Equal(t, 1, progress.PhysioSessions, "fold must not mutate its input")
}

func TestFoldBracePlusPhysioDispatchesOnHours(t *testing.T) {
	progress := domain.Progress{Date: monday, BraceHours: 10, PhysioSessions: 0}

	withHours := Fold(progress, domain.NewActivityEvent(domain.ActivityBracePlusPhysio, monday).WithHours(2), Confirmed{})
	require.InDelta(t, 12.0, withHours.BraceHours, 0.001)
	require.Zero(t, withHours.PhysioSessions)

	session := Fold(progress, domain.NewActivityEvent(domain.ActivityBracePlusPhysio, monday), Confirmed{})
	require.Equal(t, 1, session.PhysioSessions)
}

func TestFoldRecoveryTaskCapsAtTotal(t *testing.T) {
	progress := domain.Progress{Date: monday, RecoveryCompleted: 2, RecoveryTotal: 2}
	evt := domain.NewActivityEvent(domain.ActivityPostSurgeryTask, monday).WithTask("walk")

	require.Equal(t, 2, Fold(progress, evt, Confirmed{TaskNewlyDone: true}).RecoveryCompleted)

	progress.RecoveryCompleted = 1
	require.Equal(t, 2, Fold(progress, evt, Confirmed{TaskNewlyDone: true}).RecoveryCompleted)
	require.Equal(t, 1, Fold(progress, evt, Confirmed{}).RecoveryCompleted)
}

func TestFoldStartsFreshOnNewDay(t *testing.T) {
	progress := domain.Progress{Date: monday.AddDays(-1), PhysioSessions: 3, RecoveryTotal: 4}
	folded := Fold(progress, domain.NewActivityEvent(domain.ActivityPhysio, monday), Confirmed{})
	require.Equal(t, monday, folded.Date)
	require.Equal(t, 1, folded.PhysioSessions)
	require.Equal(t, 4, folded.RecoveryTotal)
}
