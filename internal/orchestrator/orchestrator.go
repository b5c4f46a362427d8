// Package orchestrator serializes activity reporting, streak eligibility, and
// the sequencing of streak animations and badge popups.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/goshak24/ScolioFrontend-sub001/internal/badge"
	"github.com/goshak24/ScolioFrontend-sub001/internal/domain"
	"github.com/goshak24/ScolioFrontend-sub001/internal/events"
	"github.com/goshak24/ScolioFrontend-sub001/internal/persistence"
	"github.com/goshak24/ScolioFrontend-sub001/internal/remote"
	"github.com/goshak24/ScolioFrontend-sub001/internal/streak"
	"github.com/goshak24/ScolioFrontend-sub001/internal/tracking"
)

// Phase is the orchestrator's position in one reporting cycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDispatching
	PhaseAdvancingStreak
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDispatching:
		return "dispatching"
	case PhaseAdvancingStreak:
		return "advancing_streak"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Outcome classifies how a ReportActivity call ended.
type Outcome string

const (
	OutcomeBusy           Outcome = "busy"
	OutcomeRejected       Outcome = "rejected"
	OutcomeFailed         Outcome = "failed"
	OutcomeCompleted      Outcome = "completed"
	OutcomeStreakAdvanced Outcome = "streak_advanced"
	OutcomeStreakFailed   Outcome = "streak_failed"
)

// ErrNoCachedProfile is returned by LoadCached when the store holds no profile.
var ErrNoCachedProfile = errors.New("no cached profile")

// Result describes one reporting cycle.
type Result struct {
	Outcome        Outcome
	SuccessMessage string
	Badges         []domain.Badge
	Streak         domain.StreakState
}

// TaskTracker is the local checklist the orchestrator marks recovery tasks on.
type TaskTracker interface {
	Complete(ctx context.Context, taskID string) (bool, error)
	Counts(ctx context.Context) (completed, total int, err error)
}

// EventSink receives events for asynchronous delivery. It must not block.
type EventSink interface {
	Enqueue(envelope events.Envelope)
}

// Option configures optional behaviour for the Orchestrator.
type Option func(*Orchestrator)

// WithLogger overrides the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithClock overrides the wall clock.
func WithClock(clock func() time.Time) Option {
	return func(o *Orchestrator) { o.clock = clock }
}

// WithLocation sets the location whose calendar day is "today".
func WithLocation(loc *time.Location) Option {
	return func(o *Orchestrator) { o.loc = loc }
}

// WithMessageTTL sets how long a success message stays visible.
func WithMessageTTL(ttl time.Duration) Option {
	return func(o *Orchestrator) { o.messageTTL = ttl }
}

// WithTaskTracker wires the local recovery checklist.
func WithTaskTracker(tracker TaskTracker) Option {
	return func(o *Orchestrator) { o.tasks = tracker }
}

// WithEventSink publishes orchestrator events.
func WithEventSink(sink EventSink, patientID string) Option {
	return func(o *Orchestrator) {
		o.sink = sink
		o.patientID = patientID
	}
}

// Orchestrator is the single entry point UI subsystems report completed activities to.
type Orchestrator struct {
	remote     remote.Client
	store      persistence.Store
	tasks      TaskTracker
	sink       EventSink
	patientID  string
	logger     logrus.FieldLogger
	clock      func() time.Time
	loc        *time.Location
	messageTTL time.Duration

	queue *badge.Queue
	subs  subscribers

	mu            sync.Mutex
	phase         Phase
	profile       domain.Profile
	profileLoaded bool
	progress      domain.Progress
	message       string
	messageGen    uint64
}

// New constructs an Orchestrator. No I/O happens until Refresh or ReportActivity.
func New(client remote.Client, store persistence.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		remote:     client,
		store:      store,
		logger:     logrus.StandardLogger(),
		clock:      time.Now,
		loc:        time.Local,
		messageTTL: 3 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.queue = badge.NewQueue(func(badge.Display) { o.publish() })
	o.subs.init()
	return o
}

// Today returns the current calendar day in the configured location.
func (o *Orchestrator) Today() domain.CalendarDate {
	return domain.Today(o.clock(), o.loc)
}

// ReportActivity runs one reporting cycle. A cycle already in flight makes it
// return OutcomeBusy with domain.ErrBusy and no side effects. Network, storage
// and auth failures are logged and returned with OutcomeFailed; no success
// message is set for them.
func (o *Orchestrator) ReportActivity(ctx context.Context, event domain.ActivityEvent) (Result, error) {
	if err := event.Validate(); err != nil {
		return Result{Outcome: OutcomeRejected}, err
	}
	if !o.begin() {
		recordReport(event.Kind, OutcomeBusy)
		return Result{Outcome: OutcomeBusy}, domain.ErrBusy
	}
	defer o.finish()

	logger := o.logger.WithFields(logrus.Fields{
		"event_id": event.ID,
		"kind":     event.Kind.String(),
		"date":     event.Date,
	})

	start := time.Now()
	dispatched, err := o.dispatch(ctx, event)
	observeDispatch(event.Kind, time.Since(start))
	if err != nil {
		logger.WithError(err).Warn("activity report failed")
		recordReport(event.Kind, OutcomeFailed)
		return Result{Outcome: OutcomeFailed}, err
	}

	today := o.Today()
	o.mu.Lock()
	if event.Date == today {
		o.progress = streak.Fold(o.progress.ForDate(today), event, dispatched.confirmed)
		if dispatched.recoveryTotal >= 0 {
			o.progress.RecoveryCompleted = dispatched.recoveryCompleted
			o.progress.RecoveryTotal = dispatched.recoveryTotal
		}
	}
	profile := o.profile
	snapshot := streak.Snapshot{Plan: profile.Plan, Progress: o.progress}
	alreadyAdvanced := profile.Streak.AdvancedOn(today)
	profileLoaded := o.profileLoaded
	eligible := profileLoaded && event.Date == today && !alreadyAdvanced &&
		streak.IsEligible(profile.AccountType, today, snapshot)
	if eligible {
		o.phase = PhaseAdvancingStreak
	}
	o.mu.Unlock()

	o.setMessage(dispatched.message)
	o.queue.Admit(dispatched.badges, eligible)
	o.emitActivity(event, eligible)
	o.emitBadges(dispatched.badges)

	result := Result{
		Outcome:        OutcomeCompleted,
		SuccessMessage: dispatched.message,
		Badges:         dispatched.badges,
		Streak:         profile.Streak,
	}
	if !eligible {
		logger.WithFields(logrus.Fields{
			"already_advanced": alreadyAdvanced,
			"profile_loaded":   profileLoaded,
		}).Debug("activity reported without streak advance")
		recordReport(event.Kind, OutcomeCompleted)
		return result, nil
	}

	advanced, err := o.advanceStreak(ctx, today)
	if err != nil {
		logger.WithError(err).Warn("streak advance failed")
		o.queue.CancelStreakAnimation()
		result.Outcome = OutcomeStreakFailed
		recordReport(event.Kind, OutcomeStreakFailed)
		return result, err
	}

	result.Outcome = OutcomeStreakAdvanced
	result.Streak = advanced.state
	result.Badges = append(append([]domain.Badge(nil), result.Badges...), advanced.badges...)
	logger.WithField("streak_days", advanced.state.CurrentStreakDays).Info("streak advanced")
	recordReport(event.Kind, OutcomeStreakAdvanced)
	return result, nil
}

// StreakAnimationEnded acknowledges the end of the streak animation.
func (o *Orchestrator) StreakAnimationEnded() bool {
	return o.queue.EndStreakAnimation()
}

// BadgeDisplayEnded acknowledges that the active badge popup was dismissed.
func (o *Orchestrator) BadgeDisplayEnded() bool {
	return o.queue.EndBadgeDisplay()
}

// Streak returns the locally known streak state.
func (o *Orchestrator) Streak() domain.StreakState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.profile.Streak
}

// Profile returns the locally known profile.
func (o *Orchestrator) Profile() domain.Profile {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.profile
}

// ProfileLoaded reports whether a profile was set from the backend or the cache.
// Streaks are never advanced before that.
func (o *Orchestrator) ProfileLoaded() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.profileLoaded
}

// SetProfile replaces the profile and today's progress, e.g. after an out-of-band refresh.
func (o *Orchestrator) SetProfile(profile domain.Profile, progress domain.Progress) {
	o.mu.Lock()
	o.profile = profile
	o.profileLoaded = true
	o.progress = progress.ForDate(o.Today())
	o.mu.Unlock()
	o.publish()
}

// Refresh loads the profile from the backend, falling back to the local cache
// when the backend is unreachable. Without either the error wraps both causes
// and the orchestrator stays without a profile.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	today := o.Today()
	res, err := o.remote.FetchProfile(ctx, today)
	if err != nil {
		o.logger.WithError(err).Warn("profile refresh failed, using cached profile")
		if cacheErr := o.LoadCached(ctx); cacheErr != nil {
			return errors.Join(err, cacheErr)
		}
		return nil
	}

	profile := res.Profile
	var cached domain.StreakState
	if found, cacheErr := persistence.GetJSON(ctx, o.store, persistence.KeyStreakState, &cached); cacheErr == nil && found {
		// The backend may lag behind an advance this device already made today.
		if cached.AdvancedOn(today) && !profile.Streak.AdvancedOn(today) {
			profile.Streak = cached
		}
	}

	progress := res.Progress
	if progress.Date.IsZero() {
		progress.Date = today
	}
	progress = progress.ForDate(today)
	if o.tasks != nil {
		if completed, total, countErr := o.tasks.Counts(ctx); countErr == nil {
			progress.RecoveryCompleted, progress.RecoveryTotal = completed, total
		}
	}

	o.SetProfile(profile, progress)
	if err := persistence.SetJSON(ctx, o.store, persistence.KeyProfile, profile); err != nil {
		o.logger.WithError(err).Warn("profile cache write failed")
	}
	return nil
}

// LoadCached restores the profile and streak state from the local store.
// ErrNoCachedProfile is returned when no profile was cached; a cached streak
// state is still applied.
func (o *Orchestrator) LoadCached(ctx context.Context) error {
	var profile domain.Profile
	found, err := persistence.GetJSON(ctx, o.store, persistence.KeyProfile, &profile)
	if err != nil {
		return err
	}
	var cached domain.StreakState
	streakFound, err := persistence.GetJSON(ctx, o.store, persistence.KeyStreakState, &cached)
	if err != nil {
		return err
	}
	if !found {
		if streakFound {
			o.mu.Lock()
			o.profile.Streak = cached
			o.mu.Unlock()
			o.publish()
		}
		return ErrNoCachedProfile
	}
	if streakFound && (profile.Streak.LastAdvancedDate.Before(cached.LastAdvancedDate) || profile.Streak.LastAdvancedDate.IsZero()) {
		profile.Streak = cached
	}

	progress := domain.Progress{Date: o.Today()}
	if o.tasks != nil {
		if completed, total, countErr := o.tasks.Counts(ctx); countErr == nil {
			progress.RecoveryCompleted, progress.RecoveryTotal = completed, total
		}
	}
	o.SetProfile(profile, progress)
	return nil
}

func (o *Orchestrator) begin() bool {
	o.mu.Lock()
	if o.phase != PhaseIdle {
		o.mu.Unlock()
		return false
	}
	o.phase = PhaseDispatching
	o.mu.Unlock()
	o.publish()
	return true
}

func (o *Orchestrator) finish() {
	o.mu.Lock()
	o.phase = PhaseIdle
	o.mu.Unlock()
	o.publish()
}

type dispatchResult struct {
	badges            []domain.Badge
	confirmed         streak.Confirmed
	message           string
	recoveryCompleted int
	recoveryTotal     int
}

func (o *Orchestrator) dispatch(ctx context.Context, event domain.ActivityEvent) (dispatchResult, error) {
	out := dispatchResult{recoveryTotal: -1}

	switch event.Kind {
	case domain.ActivityBrace:
		return o.dispatchBrace(ctx, event, out)
	case domain.ActivityBracePlusPhysio:
		if event.HoursDelta > 0 {
			return o.dispatchBrace(ctx, event, out)
		}
		return o.dispatchPhysio(ctx, event, out)
	case domain.ActivityPhysio:
		return o.dispatchPhysio(ctx, event, out)
	case domain.ActivityPreSurgery, domain.ActivityPostSurgeryTask:
		res, err := o.remote.UpdateRecoveryTask(ctx, event.Date, event.TaskID)
		if err != nil {
			return out, err
		}
		out.badges = res.NewAchievements
		out.message = "Task completed!"
		if o.tasks == nil {
			out.confirmed.TaskNewlyDone = true
			return out, nil
		}
		changed, err := o.tasks.Complete(ctx, event.TaskID)
		switch {
		case errors.Is(err, tracking.ErrUnknownTask):
			o.logger.WithField("task_id", event.TaskID).Debug("task not on local checklist")
		case err != nil:
			return out, err
		}
		out.confirmed.TaskNewlyDone = changed
		if completed, total, err := o.tasks.Counts(ctx); err == nil {
			out.recoveryCompleted, out.recoveryTotal = completed, total
		}
		return out, nil
	default:
		return out, fmt.Errorf("%w: unsupported kind %s", domain.ErrInvalidEvent, event.Kind)
	}
}

func (o *Orchestrator) dispatchBrace(ctx context.Context, event domain.ActivityEvent, out dispatchResult) (dispatchResult, error) {
	res, err := o.remote.IncrementBraceHours(ctx, event.Date, event.HoursDelta)
	if err != nil {
		return out, err
	}
	out.badges = res.NewAchievements
	out.confirmed.BraceTotalHours = res.TotalHoursToday
	out.message = "Brace time logged!"
	return out, nil
}

func (o *Orchestrator) dispatchPhysio(ctx context.Context, event domain.ActivityEvent, out dispatchResult) (dispatchResult, error) {
	res, err := o.remote.LogPhysioSession(ctx, event.Date)
	if err != nil {
		return out, err
	}
	out.badges = res.NewAchievements
	out.confirmed.PhysioSessions = res.SessionsToday
	out.message = "Physio session completed!"
	return out, nil
}

type advanceResult struct {
	state  domain.StreakState
	badges []domain.Badge
}

func (o *Orchestrator) advanceStreak(ctx context.Context, today domain.CalendarDate) (advanceResult, error) {
	res, err := o.remote.AdvanceStreak(ctx, today)
	if err != nil {
		return advanceResult{}, err
	}

	o.mu.Lock()
	o.profile.Streak = o.profile.Streak.Advance(today, res.CurrentStreakDays)
	state := o.profile.Streak
	o.mu.Unlock()

	// Drawn immediately only if the animation already ended.
	o.queue.Admit(res.NewAchievements, false)
	recordStreakAdvance()

	if err := persistence.SetJSON(ctx, o.store, persistence.KeyStreakState, state); err != nil {
		o.logger.WithError(err).Warn("streak state cache write failed")
	}
	o.emit(events.TypeStreakAdvanced, events.StreakAdvanced{
		PatientID:         o.patientID,
		Date:              today.String(),
		CurrentStreakDays: state.CurrentStreakDays,
		OccurredAt:        o.clock().UTC(),
	})
	o.emitBadges(res.NewAchievements)
	return advanceResult{state: state, badges: res.NewAchievements}, nil
}

func (o *Orchestrator) setMessage(message string) {
	if message == "" {
		return
	}
	o.mu.Lock()
	o.messageGen++
	gen := o.messageGen
	o.message = message
	o.mu.Unlock()

	if o.messageTTL > 0 {
		time.AfterFunc(o.messageTTL, func() {
			o.mu.Lock()
			cleared := o.messageGen == gen
			if cleared {
				o.message = ""
			}
			o.mu.Unlock()
			if cleared {
				o.publish()
			}
		})
	}
}

func (o *Orchestrator) emitActivity(event domain.ActivityEvent, eligible bool) {
	o.emit(events.TypeActivityReported, events.ActivityReported{
		EventID:    event.ID,
		PatientID:  o.patientID,
		Kind:       event.Kind.String(),
		Date:       event.Date.String(),
		TaskID:     event.TaskID,
		HoursDelta: event.HoursDelta,
		Eligible:   eligible,
		OccurredAt: o.clock().UTC(),
	})
}

func (o *Orchestrator) emitBadges(badges []domain.Badge) {
	for _, b := range badges {
		o.emit(events.TypeBadgeAwarded, events.BadgeAwarded{
			PatientID:  o.patientID,
			BadgeID:    b.ID,
			Name:       b.Name,
			EarnedAt:   b.EarnedAt,
			OccurredAt: o.clock().UTC(),
		})
	}
}

func (o *Orchestrator) emit(eventType string, payload any) {
	if o.sink == nil {
		return
	}
	o.sink.Enqueue(events.Envelope{Type: eventType, PatientID: o.patientID, Payload: payload})
}
