// Package session keeps one orchestrator bundle per authenticated patient.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/goshak24/ScolioFrontend-sub001/internal/domain"
	"github.com/goshak24/ScolioFrontend-sub001/internal/events"
	"github.com/goshak24/ScolioFrontend-sub001/internal/observability"
	"github.com/goshak24/ScolioFrontend-sub001/internal/orchestrator"
	"github.com/goshak24/ScolioFrontend-sub001/internal/persistence"
	"github.com/goshak24/ScolioFrontend-sub001/internal/remote"
	"github.com/goshak24/ScolioFrontend-sub001/internal/rollover"
	"github.com/goshak24/ScolioFrontend-sub001/internal/tracking"
)

// ClientFactory builds the remote client for one patient.
type ClientFactory func(credentials remote.CredentialSource) remote.Client

// Config holds the settings shared by every session.
type Config struct {
	Location   *time.Location
	MessageTTL time.Duration
	Clock      func() time.Time
}

// Registry creates sessions lazily and reuses them across requests.
type Registry struct {
	store     persistence.Store
	newClient ClientFactory
	sink      orchestrator.EventSink
	cfg       Config
	logger    logrus.FieldLogger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry constructs a Registry. sink may be nil.
func NewRegistry(store persistence.Store, newClient ClientFactory, sink orchestrator.EventSink, cfg Config, logger logrus.FieldLogger) *Registry {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Registry{
		store:     store,
		newClient: newClient,
		sink:      sink,
		cfg:       cfg,
		logger:    logger,
		sessions:  make(map[string]*Session),
	}
}

// For returns the session of subject, refreshing its token. Every subsystem is
// rolled over and the profile is loaded once per calendar day. A failed load is
// logged and retried on the next call; until a profile is known the session
// records activities without advancing the streak.
func (r *Registry) For(ctx context.Context, subject, token string) (*Session, error) {
	if subject == "" {
		return nil, domain.ErrAuthMissing
	}

	r.mu.Lock()
	s, ok := r.sessions[subject]
	if !ok {
		s = r.build(subject, token)
		r.sessions[subject] = s
		observability.SetActiveSessions(len(r.sessions))
	}
	r.mu.Unlock()

	if ok && token != "" {
		s.Tokens.Update(token)
	}
	if err := s.EnsureToday(ctx); err != nil {
		s.logger.WithError(err).Warn("session rollover incomplete")
	}
	if err := s.load(ctx); err != nil {
		s.logger.WithError(err).Warn("profile unavailable, streak advances suspended")
	}
	return s, nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close waits for background notifications of every session.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()
	for _, s := range sessions {
		s.Rollover.Wait()
	}
}

func (r *Registry) build(subject, token string) *Session {
	logger := r.logger.WithField("patient_id", subject)
	store := persistence.Prefixed(r.store, subject)
	tokens := remote.NewTokenHolder(token)
	client := r.newClient(tokens)

	s := &Session{
		PatientID: subject,
		Tokens:    tokens,
		Remote:    client,
		Brace:     tracking.NewBraceTimer(store),
		Recovery:  tracking.NewRecoveryChecklist(store, tracking.WithRecoveryLogger(logger)),
		Walking:   tracking.NewWalkingLog(store),
		clock:     r.cfg.Clock,
		logger:    logger,
	}

	opts := []orchestrator.Option{
		orchestrator.WithLogger(logger),
		orchestrator.WithClock(r.cfg.Clock),
		orchestrator.WithLocation(r.cfg.Location),
		orchestrator.WithTaskTracker(s.Recovery),
	}
	if r.cfg.MessageTTL > 0 {
		opts = append(opts, orchestrator.WithMessageTTL(r.cfg.MessageTTL))
	}
	if r.sink != nil {
		opts = append(opts, orchestrator.WithEventSink(r.sink, subject))
	}
	s.Orchestrator = orchestrator.New(client, store, opts...)

	s.Rollover = rollover.NewStore(store, client,
		rollover.WithLogger(logger),
		rollover.WithResetHook(r.resetHook(subject)),
	)
	s.Rollover.Register(s.Walking, s.Recovery, s.Brace)
	return s
}

func (r *Registry) resetHook(subject string) func(string, domain.CalendarDate) {
	return func(subsystem string, date domain.CalendarDate) {
		if r.sink == nil {
			return
		}
		r.sink.Enqueue(events.Envelope{
			Type:      events.TypeDailyReset,
			PatientID: subject,
			Payload: events.DailyReset{
				PatientID:  subject,
				Subsystem:  subsystem,
				Date:       date.String(),
				OccurredAt: r.cfg.Clock().UTC(),
			},
		})
	}
}

// Session bundles one patient's orchestrator, rollover store and tracking subsystems.
type Session struct {
	PatientID    string
	Tokens       *remote.TokenHolder
	Remote       remote.Client
	Orchestrator *orchestrator.Orchestrator
	Rollover     *rollover.Store
	Brace        *tracking.BraceTimer
	Recovery     *tracking.RecoveryChecklist
	Walking      *tracking.WalkingLog

	clock  func() time.Time
	logger logrus.FieldLogger

	mu       sync.Mutex
	rolledOn domain.CalendarDate
	loadedOn domain.CalendarDate
}

// load refreshes the profile when it was not loaded yet today.
func (s *Session) load(ctx context.Context) error {
	today := s.Orchestrator.Today()

	s.mu.Lock()
	loaded := s.loadedOn == today
	s.mu.Unlock()
	if loaded {
		return nil
	}
	if err := s.Orchestrator.Refresh(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.loadedOn = today
	s.mu.Unlock()
	return nil
}

// EnsureToday rolls every subsystem over when the calendar day changed since the last check.
func (s *Session) EnsureToday(ctx context.Context) error {
	today := s.Orchestrator.Today()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rolledOn == today {
		return nil
	}
	_, err := s.Rollover.EnsureAll(ctx, today)
	if err == nil {
		s.rolledOn = today
	}
	return err
}

// RolloverNow runs EnsureAll for today regardless of the cached day and returns the reset subsystems.
func (s *Session) RolloverNow(ctx context.Context) ([]string, error) {
	today := s.Orchestrator.Today()

	s.mu.Lock()
	defer s.mu.Unlock()
	reset, err := s.Rollover.EnsureAll(ctx, today)
	if err == nil {
		s.rolledOn = today
	}
	return reset, err
}

// StartBrace starts the brace timer.
func (s *Session) StartBrace(ctx context.Context) error {
	return s.Brace.Start(ctx, s.clock())
}

// StopBrace stops the brace timer and reports the worn hours as a brace activity.
func (s *Session) StopBrace(ctx context.Context) (float64, orchestrator.Result, error) {
	hours, err := s.Brace.Stop(ctx, s.clock())
	if err != nil {
		return 0, orchestrator.Result{}, err
	}
	if hours <= 0 {
		return 0, orchestrator.Result{Outcome: orchestrator.OutcomeCompleted}, nil
	}
	event := domain.NewActivityEvent(domain.ActivityBrace, s.Orchestrator.Today()).WithHours(hours)
	res, err := s.Orchestrator.ReportActivity(ctx, event)
	return hours, res, err
}

// AddWalking records minutes locally and pushes the new total to the backend.
// A failed push is logged; the local total stands.
func (s *Session) AddWalking(ctx context.Context, minutes int) (int, error) {
	if minutes <= 0 {
		return 0, fmt.Errorf("%w: walking minutes must be positive", domain.ErrInvalidEvent)
	}
	total, err := s.Walking.Add(ctx, minutes)
	if err != nil {
		return 0, err
	}
	if err := s.Remote.UpdateWalkingMinutes(ctx, s.Orchestrator.Today(), total); err != nil {
		level := logrus.WarnLevel
		if errors.Is(err, domain.ErrAuthMissing) {
			level = logrus.InfoLevel
		}
		s.logger.WithError(err).WithField("minutes", total).Log(level, "walking sync failed")
	}
	return total, nil
}
