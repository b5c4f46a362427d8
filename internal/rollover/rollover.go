// Package rollover resets each subsystem's daily counters once per calendar day.
package rollover

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/goshak24/ScolioFrontend-sub001/internal/domain"
	"github.com/goshak24/ScolioFrontend-sub001/internal/persistence"
)

// Subsystem is an independently persisted set of daily counters.
type Subsystem interface {
	Name() string
	Reset(ctx context.Context) error
}

// Notifier receives best-effort notice of a local reset.
type Notifier interface {
	ResetDaily(ctx context.Context, subsystem string, date domain.CalendarDate) error
}

// Result reports the outcome of EnsureRolledOver.
type Result struct {
	WasReset bool
}

// Option configures optional behaviour for the Store.
type Option func(*Store)

// WithLogger overrides the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithNotifyTimeout bounds the fire-and-forget remote notification.
func WithNotifyTimeout(timeout time.Duration) Option {
	return func(s *Store) {
		if timeout > 0 {
			s.notifyTimeout = timeout
		}
	}
}

// WithResetHook registers a callback invoked after each completed reset.
func WithResetHook(hook func(subsystem string, date domain.CalendarDate)) Option {
	return func(s *Store) {
		s.onReset = hook
	}
}

// Store guarantees each registered subsystem is reset at most once per day.
type Store struct {
	store         persistence.Store
	notifier      Notifier
	logger        logrus.FieldLogger
	notifyTimeout time.Duration
	onReset       func(string, domain.CalendarDate)

	mu         sync.Mutex
	subsystems map[string]Subsystem
	order      []string
	locks      map[string]*sync.Mutex
	notifies   sync.WaitGroup
}

// NewStore constructs a Store. notifier may be nil.
func NewStore(store persistence.Store, notifier Notifier, opts ...Option) *Store {
	s := &Store{
		store:         store,
		notifier:      notifier,
		logger:        logrus.StandardLogger(),
		notifyTimeout: 10 * time.Second,
		subsystems:    make(map[string]Subsystem),
		locks:         make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds subsystems. Registering a name twice replaces the earlier subsystem.
func (s *Store) Register(subsystems ...Subsystem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range subsystems {
		name := sub.Name()
		if _, exists := s.subsystems[name]; !exists {
			s.order = append(s.order, name)
		}
		s.subsystems[name] = sub
	}
}

// Subsystems returns registered names in registration order.
func (s *Store) Subsystems() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// EnsureRolledOver resets subsystem when its stored marker does not match today.
// A marker read failure is treated as "needs reset" so stale completions are never carried over.
func (s *Store) EnsureRolledOver(ctx context.Context, subsystem string, today domain.CalendarDate) (Result, error) {
	sub, lock, err := s.lookup(subsystem)
	if err != nil {
		return Result{}, err
	}

	lock.Lock()
	defer lock.Unlock()

	key := persistence.ResetMarkerKey(subsystem)
	last, found, err := s.store.Get(ctx, key)
	if err != nil {
		s.logger.WithError(err).WithField("subsystem", subsystem).Warn("rollover: marker read failed, resetting")
		recordMarkerReadFailure(subsystem)
	} else if found && domain.CalendarDate(last) == today {
		return Result{WasReset: false}, nil
	}

	if err := sub.Reset(ctx); err != nil {
		return Result{}, fmt.Errorf("reset %s: %w", subsystem, err)
	}

	s.notify(subsystem, today)

	if err := s.store.Set(ctx, key, today.String()); err != nil {
		return Result{}, fmt.Errorf("persist %s marker: %w", subsystem, err)
	}

	recordReset(subsystem)
	s.logger.WithFields(logrus.Fields{
		"subsystem":  subsystem,
		"previous":   last,
		"reset_date": today,
	}).Info("rollover: daily counters reset")
	if s.onReset != nil {
		s.onReset(subsystem, today)
	}
	return Result{WasReset: true}, nil
}

// EnsureAll rolls over every registered subsystem and returns the names that were reset.
// Every subsystem is attempted even when an earlier one fails.
func (s *Store) EnsureAll(ctx context.Context, today domain.CalendarDate) ([]string, error) {
	var (
		reset    []string
		firstErr error
	)
	for _, name := range s.Subsystems() {
		res, err := s.EnsureRolledOver(ctx, name, today)
		if err != nil {
			s.logger.WithError(err).WithField("subsystem", name).Error("rollover: failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if res.WasReset {
			reset = append(reset, name)
		}
	}
	return reset, firstErr
}

// LastResetDate returns the stored marker for subsystem.
func (s *Store) LastResetDate(ctx context.Context, subsystem string) (domain.DailyResetMarker, bool, error) {
	value, found, err := s.store.Get(ctx, persistence.ResetMarkerKey(subsystem))
	if err != nil || !found {
		return domain.DailyResetMarker{}, false, err
	}
	return domain.DailyResetMarker{Subsystem: subsystem, LastResetDate: domain.CalendarDate(value)}, true, nil
}

// Wait blocks until in-flight remote notifications finish.
func (s *Store) Wait() {
	s.notifies.Wait()
}

func (s *Store) lookup(subsystem string) (Subsystem, *sync.Mutex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subsystems[subsystem]
	if !ok {
		return nil, nil, fmt.Errorf("unknown subsystem %q", subsystem)
	}
	lock, ok := s.locks[subsystem]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[subsystem] = lock
	}
	return sub, lock, nil
}

func (s *Store) notify(subsystem string, today domain.CalendarDate) {
	if s.notifier == nil {
		return
	}
	s.notifies.Add(1)
	go func() {
		defer s.notifies.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()
		if err := s.notifier.ResetDaily(ctx, subsystem, today); err != nil {
			recordNotifyFailure(subsystem)
			s.logger.WithError(err).WithField("subsystem", subsystem).Warn("rollover: remote reset notification failed")
		}
	}()
}
