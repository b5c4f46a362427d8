package orchestrator

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/goshak24/ScolioFrontend-sub001/internal/domain"
	"github.com/goshak24/ScolioFrontend-sub001/internal/events"
	"github.com/goshak24/ScolioFrontend-sub001/internal/persistence"
	"github.com/goshak24/ScolioFrontend-sub001/internal/remote"
	"github.com/goshak24/ScolioFrontend-sub001/internal/tracking"
)

// Monday.
const today = domain.CalendarDate("2025-10-20")

type fakeRemote struct {
	mu sync.Mutex

	brace       remote.BraceResult
	physio      remote.PhysioResult
	task        remote.TaskResult
	advance     remote.StreakResult
	profile     remote.ProfileResult
	dispatchErr error
	advanceErr  error
	profileErr  error

	block       chan struct{}
	entered     chan struct{}
	advanceCall int
	taskIDs     []string
}

func (f *fakeRemote) wait() {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
}

func (f *fakeRemote) IncrementBraceHours(context.Context, domain.CalendarDate, float64) (remote.BraceResult, error) {
	f.wait()
	return f.brace, f.dispatchErr
}

func (f *fakeRemote) LogPhysioSession(context.Context, domain.CalendarDate) (remote.PhysioResult, error) {
	f.wait()
	return f.physio, f.dispatchErr
}

func (f *fakeRemote) UpdateRecoveryTask(_ context.Context, _ domain.CalendarDate, taskID string) (remote.TaskResult, error) {
	f.mu.Lock()
	f.taskIDs = append(f.taskIDs, taskID)
	f.mu.Unlock()
	return f.task, f.dispatchErr
}

func (f *fakeRemote) AdvanceStreak(context.Context, domain.CalendarDate) (remote.StreakResult, error) {
	f.mu.Lock()
	f.advanceCall++
	f.mu.Unlock()
	return f.advance, f.advanceErr
}

func (f *fakeRemote) FetchProfile(context.Context, domain.CalendarDate) (remote.ProfileResult, error) {
	return f.profile, f.profileErr
}

func (f *fakeRemote) ResetDaily(context.Context, string, domain.CalendarDate) error { return nil }

func (f *fakeRemote) UpdateWalkingMinutes(context.Context, domain.CalendarDate, int) error {
	return nil
}

func (f *fakeRemote) advances() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.advanceCall
}

type recordingSink struct {
	mu        sync.Mutex
	envelopes []events.Envelope
}

func (s *recordingSink) Enqueue(envelope events.Envelope) {
	s.mu.Lock()
	s.envelopes = append(s.envelopes, envelope)
	s.mu.Unlock()
}

func (s *recordingSink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.envelopes))
	for _, env := range s.envelopes {
		out = append(out, env.Type)
	}
	return out
}

func quietLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newOrchestrator(client remote.Client, store persistence.Store, opts ...Option) *Orchestrator {
	base := []Option{
		WithLogger(quietLogger()),
		WithClock(func() time.Time { return time.Date(2025, time.October, 20, 9, 0, 0, 0, time.UTC) }),
		WithLocation(time.UTC),
		WithMessageTTL(0),
	}
	return New(client, store, append(base, opts...)...)
}

func badges(ids ...string) []domain.Badge {
	out := make([]domain.Badge, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Badge{ID: id, Name: id})
	}
	return out
}

func TestBraceTargetReachedAdvancesStreakBeforeBadges(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewMemory()
	fake := &fakeRemote{
		brace:   remote.BraceResult{Success: true, TotalHoursToday: 17, NewAchievements: badges("brace-17")},
		advance: remote.StreakResult{Success: true, CurrentStreakDays: 5},
	}
	sink := &recordingSink{}
	o := newOrchestrator(fake, store, WithEventSink(sink, "patient-1"))
	o.SetProfile(domain.Profile{
		AccountType: domain.AccountBrace,
		Plan:        domain.Plan{BraceTargetHours: 16},
		Streak:      domain.StreakState{CurrentStreakDays: 4, LastAdvancedDate: today.AddDays(-1)},
	}, domain.Progress{Date: today, BraceHours: 14})

	res, err := o.ReportActivity(ctx, domain.NewActivityEvent(domain.ActivityBrace, today).WithHours(3))
	require.NoError(t, err)
	require.Equal(t, OutcomeStreakAdvanced, res.Outcome)
	require.Equal(t, 5, res.Streak.CurrentStreakDays)
	require.Equal(t, "Brace time logged!", res.SuccessMessage)

	state := o.Snapshot()
	require.True(t, state.StreakAnimationVisible)
	require.Nil(t, state.ActiveBadge)
	require.Equal(t, 1, state.PendingBadges)
	require.False(t, state.IsBusy)
	require.Equal(t, 17.0, state.Progress.BraceHours)

	require.True(t, o.StreakAnimationEnded())
	state = o.Snapshot()
	require.False(t, state.StreakAnimationVisible)
	require.NotNil(t, state.ActiveBadge)
	require.Equal(t, "brace-17", state.ActiveBadge.ID)

	var cached domain.StreakState
	found, err := persistence.GetJSON(ctx, store, persistence.KeyStreakState, &cached)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, domain.StreakState{CurrentStreakDays: 5, LastAdvancedDate: today}, cached)

	require.Equal(t, []string{
		events.TypeActivityReported,
		events.TypeBadgeAwarded,
		events.TypeStreakAdvanced,
	}, sink.types())
}

func TestPhysioOptimisticCountReachesSchedule(t *testing.T) {
	fake := &fakeRemote{
		physio:  remote.PhysioResult{Success: true},
		advance: remote.StreakResult{Success: true},
	}
	o := newOrchestrator(fake, persistence.NewMemory())
	o.SetProfile(domain.Profile{
		AccountType: domain.AccountPhysio,
		Plan:        domain.Plan{PhysioSchedule: map[time.Weekday]int{time.Monday: 2}},
	}, domain.Progress{Date: today, PhysioSessions: 1})

	res, err := o.ReportActivity(context.Background(), domain.NewActivityEvent(domain.ActivityPhysio, today))
	require.NoError(t, err)
	require.Equal(t, OutcomeStreakAdvanced, res.Outcome)
	require.Equal(t, 1, res.Streak.CurrentStreakDays)
	require.Equal(t, 1, fake.advances())
}

func TestPhysioBelowScheduleDrainsBadgesImmediately(t *testing.T) {
	fake := &fakeRemote{physio: remote.PhysioResult{Success: true, NewAchievements: badges("first-session")}}
	o := newOrchestrator(fake, persistence.NewMemory())
	o.SetProfile(domain.Profile{
		AccountType: domain.AccountPhysio,
		Plan:        domain.Plan{PhysioSchedule: map[time.Weekday]int{time.Monday: 2}},
	}, domain.Progress{Date: today})

	res, err := o.ReportActivity(context.Background(), domain.NewActivityEvent(domain.ActivityPhysio, today))
	require.NoError(t, err)
	require.Equal(t, OutcomeCompleted, res.Outcome)
	require.Zero(t, fake.advances())

	state := o.Snapshot()
	require.False(t, state.StreakAnimationVisible)
	require.NotNil(t, state.ActiveBadge)
	require.Equal(t, "first-session", state.ActiveBadge.ID)
}

func TestBadgesFromStreakCycleWaitForAnimationInOrder(t *testing.T) {
	fake := &fakeRemote{
		physio:  remote.PhysioResult{Success: true, NewAchievements: badges("b1", "b2")},
		advance: remote.StreakResult{Success: true, CurrentStreakDays: 3, NewAchievements: badges("b3")},
	}
	o := newOrchestrator(fake, persistence.NewMemory())
	o.SetProfile(domain.Profile{AccountType: domain.AccountPhysio}, domain.Progress{Date: today})

	_, err := o.ReportActivity(context.Background(), domain.NewActivityEvent(domain.ActivityPhysio, today))
	require.NoError(t, err)

	state := o.Snapshot()
	require.True(t, state.StreakAnimationVisible)
	require.Equal(t, 3, state.PendingBadges)
	require.False(t, o.BadgeDisplayEnded())

	require.True(t, o.StreakAnimationEnded())
	var shown []string
	for o.Snapshot().ActiveBadge != nil {
		shown = append(shown, o.Snapshot().ActiveBadge.ID)
		require.True(t, o.BadgeDisplayEnded())
	}
	require.Equal(t, []string{"b1", "b2", "b3"}, shown)
}

func TestStreakAdvancesAtMostOncePerDay(t *testing.T) {
	fake := &fakeRemote{
		physio:  remote.PhysioResult{Success: true},
		advance: remote.StreakResult{Success: true, CurrentStreakDays: 7},
	}
	o := newOrchestrator(fake, persistence.NewMemory())
	o.SetProfile(domain.Profile{AccountType: domain.AccountPhysio}, domain.Progress{Date: today})

	first, err := o.ReportActivity(context.Background(), domain.NewActivityEvent(domain.ActivityPhysio, today))
	require.NoError(t, err)
	require.Equal(t, OutcomeStreakAdvanced, first.Outcome)
	require.True(t, o.StreakAnimationEnded())

	second, err := o.ReportActivity(context.Background(), domain.NewActivityEvent(domain.ActivityPhysio, today))
	require.NoError(t, err)
	require.Equal(t, OutcomeCompleted, second.Outcome)
	require.Equal(t, 1, fake.advances())
	require.False(t, o.Snapshot().StreakAnimationVisible)
}

func TestBackfilledActivityNeverAdvancesStreak(t *testing.T) {
	fake := &fakeRemote{physio: remote.PhysioResult{Success: true}}
	o := newOrchestrator(fake, persistence.NewMemory())
	o.SetProfile(domain.Profile{AccountType: domain.AccountPhysio}, domain.Progress{Date: today})

	res, err := o.ReportActivity(context.Background(), domain.NewActivityEvent(domain.ActivityPhysio, today.AddDays(-1)))
	require.NoError(t, err)
	require.Equal(t, OutcomeCompleted, res.Outcome)
	require.Zero(t, fake.advances())
	require.Zero(t, o.Snapshot().Progress.PhysioSessions)
}

func TestConcurrentReportIsRejectedAsBusy(t *testing.T) {
	fake := &fakeRemote{
		physio:  remote.PhysioResult{Success: true},
		block:   make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	o := newOrchestrator(fake, persistence.NewMemory())
	o.SetProfile(domain.Profile{AccountType: domain.AccountPreSurgery}, domain.Progress{Date: today})

	done := make(chan error, 1)
	go func() {
		_, err := o.ReportActivity(context.Background(), domain.NewActivityEvent(domain.ActivityPhysio, today))
		done <- err
	}()
	<-fake.entered
	require.True(t, o.Snapshot().IsBusy)

	res, err := o.ReportActivity(context.Background(), domain.NewActivityEvent(domain.ActivityBrace, today).WithHours(1))
	require.ErrorIs(t, err, domain.ErrBusy)
	require.Equal(t, OutcomeBusy, res.Outcome)

	close(fake.block)
	require.NoError(t, <-done)
	require.False(t, o.Snapshot().IsBusy)
}

func TestDispatchFailureSetsNoMessage(t *testing.T) {
	fake := &fakeRemote{dispatchErr: domain.ErrNetworkFailure}
	o := newOrchestrator(fake, persistence.NewMemory(), WithMessageTTL(time.Minute))
	o.SetProfile(domain.Profile{AccountType: domain.AccountUnknown}, domain.Progress{Date: today})

	res, err := o.ReportActivity(context.Background(), domain.NewActivityEvent(domain.ActivityPhysio, today))
	require.ErrorIs(t, err, domain.ErrNetworkFailure)
	require.Equal(t, OutcomeFailed, res.Outcome)
	require.Empty(t, o.Snapshot().SuccessMessage)
	require.Zero(t, fake.advances())
	require.False(t, o.Snapshot().IsBusy)
}

func TestInvalidEventIsRejectedWithoutDispatch(t *testing.T) {
	fake := &fakeRemote{entered: make(chan struct{}, 1)}
	o := newOrchestrator(fake, persistence.NewMemory())

	res, err := o.ReportActivity(context.Background(), domain.NewActivityEvent(domain.ActivityBrace, today))
	require.ErrorIs(t, err, domain.ErrInvalidEvent)
	require.Equal(t, OutcomeRejected, res.Outcome)
	require.Empty(t, fake.entered)
}

func TestStreakAdvanceFailureReleasesQueuedBadges(t *testing.T) {
	store := persistence.NewMemory()
	fake := &fakeRemote{
		physio:     remote.PhysioResult{Success: true, NewAchievements: badges("b1")},
		advanceErr: domain.ErrNetworkFailure,
	}
	o := newOrchestrator(fake, store)
	o.SetProfile(domain.Profile{AccountType: domain.AccountPhysio}, domain.Progress{Date: today})

	res, err := o.ReportActivity(context.Background(), domain.NewActivityEvent(domain.ActivityPhysio, today))
	require.ErrorIs(t, err, domain.ErrNetworkFailure)
	require.Equal(t, OutcomeStreakFailed, res.Outcome)

	state := o.Snapshot()
	require.False(t, state.StreakAnimationVisible)
	require.NotNil(t, state.ActiveBadge)
	require.Equal(t, "b1", state.ActiveBadge.ID)
	require.Zero(t, state.Streak.CurrentStreakDays)

	_, found, err := store.Get(context.Background(), persistence.KeyStreakState)
	require.NoError(t, err)
	require.False(t, found)
}

func TestPreSurgeryNeverAdvances(t *testing.T) {
	fake := &fakeRemote{task: remote.TaskResult{Success: true}}
	o := newOrchestrator(fake, persistence.NewMemory())
	o.SetProfile(domain.Profile{AccountType: domain.AccountPreSurgery}, domain.Progress{Date: today})

	res, err := o.ReportActivity(context.Background(), domain.NewActivityEvent(domain.ActivityPreSurgery, today).WithTask("fast"))
	require.NoError(t, err)
	require.Equal(t, OutcomeCompleted, res.Outcome)
	require.Equal(t, "Task completed!", res.SuccessMessage)
	require.Zero(t, fake.advances())
}

func TestPostSurgeryAdvancesWhenChecklistComplete(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewMemory()
	checklist := tracking.NewRecoveryChecklist(store)
	require.NoError(t, checklist.SetTasks(ctx, []tracking.RecoveryTask{
		{ID: "walk", Title: "Walk 10 minutes"},
		{ID: "stretch", Title: "Stretch", Completed: true},
	}))

	fake := &fakeRemote{
		task:    remote.TaskResult{Success: true},
		advance: remote.StreakResult{Success: true, CurrentStreakDays: 2},
	}
	o := newOrchestrator(fake, store, WithTaskTracker(checklist))
	o.SetProfile(domain.Profile{AccountType: domain.AccountPostSurgery}, domain.Progress{Date: today, RecoveryCompleted: 1, RecoveryTotal: 2})

	res, err := o.ReportActivity(ctx, domain.NewActivityEvent(domain.ActivityPostSurgeryTask, today).WithTask("walk"))
	require.NoError(t, err)
	require.Equal(t, OutcomeStreakAdvanced, res.Outcome)
	require.Equal(t, []string{"walk"}, fake.taskIDs)

	completed, total, err := checklist.Counts(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, completed)
	require.Equal(t, 2, total)
}

func TestSuccessMessageClearsAfterTTL(t *testing.T) {
	fake := &fakeRemote{physio: remote.PhysioResult{Success: true}}
	o := newOrchestrator(fake, persistence.NewMemory(), WithMessageTTL(20*time.Millisecond))
	o.SetProfile(domain.Profile{AccountType: domain.AccountPreSurgery}, domain.Progress{Date: today})

	_, err := o.ReportActivity(context.Background(), domain.NewActivityEvent(domain.ActivityPhysio, today))
	require.NoError(t, err)
	require.Equal(t, "Physio session completed!", o.Snapshot().SuccessMessage)

	require.Eventually(t, func() bool {
		return o.Snapshot().SuccessMessage == ""
	}, time.Second, 5*time.Millisecond)
}

func TestRefreshKeepsLocalAdvanceWhenBackendLags(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewMemory()
	require.NoError(t, persistence.SetJSON(ctx, store, persistence.KeyStreakState,
		domain.StreakState{CurrentStreakDays: 9, LastAdvancedDate: today}))

	fake := &fakeRemote{profile: remote.ProfileResult{
		Success: true,
		Profile: domain.Profile{
			AccountType: domain.AccountBrace,
			Streak:      domain.StreakState{CurrentStreakDays: 8, LastAdvancedDate: today.AddDays(-1)},
		},
		Progress: domain.Progress{BraceHours: 3},
	}}
	o := newOrchestrator(fake, store)

	require.NoError(t, o.Refresh(ctx))
	require.Equal(t, 9, o.Streak().CurrentStreakDays)
	require.Equal(t, domain.AccountBrace, o.Profile().AccountType)
	require.Equal(t, 3.0, o.Snapshot().Progress.BraceHours)

	var cached domain.Profile
	found, err := persistence.GetJSON(ctx, store, persistence.KeyProfile, &cached)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, domain.AccountBrace, cached.AccountType)
}

func TestRefreshFallsBackToCache(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewMemory()
	require.NoError(t, persistence.SetJSON(ctx, store, persistence.KeyProfile,
		domain.Profile{AccountType: domain.AccountPhysio}))

	o := newOrchestrator(&fakeRemote{profileErr: domain.ErrNetworkFailure}, store)
	require.NoError(t, o.Refresh(ctx))
	require.Equal(t, domain.AccountPhysio, o.Profile().AccountType)
}

func TestSubscribeReceivesLatestState(t *testing.T) {
	fake := &fakeRemote{physio: remote.PhysioResult{Success: true, NewAchievements: badges("b1")}}
	o := newOrchestrator(fake, persistence.NewMemory())
	o.SetProfile(domain.Profile{AccountType: domain.AccountPreSurgery}, domain.Progress{Date: today})

	updates, cancel := o.Subscribe()
	defer cancel()

	_, err := o.ReportActivity(context.Background(), domain.NewActivityEvent(domain.ActivityPhysio, today))
	require.NoError(t, err)

	select {
	case state := <-updates:
		require.False(t, state.IsBusy)
		require.NotNil(t, state.ActiveBadge)
	case <-time.After(time.Second):
		t.Fatal("no state published")
	}
}

func TestNoStreakAdvanceBeforeProfileLoaded(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewMemory()
	require.NoError(t, persistence.SetJSON(ctx, store, persistence.KeyStreakState,
		domain.StreakState{CurrentStreakDays: 4, LastAdvancedDate: today.AddDays(-1)}))

	fake := &fakeRemote{
		profileErr: domain.ErrNetworkFailure,
		brace:      remote.BraceResult{Success: true, TotalHoursToday: 1},
		advance:    remote.StreakResult{Success: true, CurrentStreakDays: 5},
	}
	o := newOrchestrator(fake, store)

	err := o.Refresh(ctx)
	require.ErrorIs(t, err, domain.ErrNetworkFailure)
	require.ErrorIs(t, err, ErrNoCachedProfile)
	require.False(t, o.ProfileLoaded())
	require.Equal(t, 4, o.Streak().CurrentStreakDays)

	res, err := o.ReportActivity(ctx, domain.NewActivityEvent(domain.ActivityBrace, today).WithHours(1))
	require.NoError(t, err)
	require.Equal(t, OutcomeCompleted, res.Outcome)
	require.Zero(t, fake.advanceCall)
	require.False(t, o.Snapshot().StreakAnimationVisible)
}

func TestConcurrentPublishesLeaveLatestState(t *testing.T) {
	o := newOrchestrator(&fakeRemote{}, persistence.NewMemory())
	updates, cancel := o.Subscribe()
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(days int) {
			defer wg.Done()
			o.SetProfile(domain.Profile{
				AccountType: domain.AccountPhysio,
				Streak:      domain.StreakState{CurrentStreakDays: days},
			}, domain.Progress{Date: today})
		}(i)
		go func() {
			defer wg.Done()
			o.BadgeDisplayEnded()
			o.StreakAnimationEnded()
		}()
	}
	wg.Wait()

	select {
	case state := <-updates:
		require.Equal(t, o.Snapshot(), state)
	case <-time.After(time.Second):
		t.Fatal("no state published")
	}
}
