package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/goshak24/ScolioFrontend-sub001/internal/persistence"
)

// ErrUnknownTask is returned when completing a task that is not on the checklist.
var ErrUnknownTask = errors.New("unknown recovery task")

// RecoveryTask is one item of the pre/post-surgery checklist.
type RecoveryTask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

type recoveryState struct {
	Tasks []RecoveryTask `json:"tasks"`
}

// RecoveryOption customises a RecoveryChecklist.
type RecoveryOption func(*RecoveryChecklist)

// WithRecoveryLogger sets the logger used to report a discarded checklist.
func WithRecoveryLogger(logger logrus.FieldLogger) RecoveryOption {
	return func(c *RecoveryChecklist) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// RecoveryChecklist tracks which checklist tasks were completed today.
type RecoveryChecklist struct {
	mu     sync.Mutex
	store  persistence.Store
	logger logrus.FieldLogger
}

// NewRecoveryChecklist constructs a RecoveryChecklist.
func NewRecoveryChecklist(store persistence.Store, opts ...RecoveryOption) *RecoveryChecklist {
	c := &RecoveryChecklist{store: store, logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements rollover.Subsystem.
func (c *RecoveryChecklist) Name() string { return SubsystemRecovery }

// SetTasks replaces the checklist, keeping completion flags of tasks that survive.
func (c *RecoveryChecklist) SetTasks(ctx context.Context, tasks []RecoveryTask) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, err := c.load(ctx)
	if err != nil {
		return err
	}
	done := make(map[string]bool, len(state.Tasks))
	for _, task := range state.Tasks {
		done[task.ID] = task.Completed
	}
	next := make([]RecoveryTask, 0, len(tasks))
	for _, task := range tasks {
		task.Completed = task.Completed || done[task.ID]
		next = append(next, task)
	}
	return c.save(ctx, recoveryState{Tasks: next})
}

// Tasks returns the checklist.
func (c *RecoveryChecklist) Tasks(ctx context.Context) ([]RecoveryTask, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, err := c.load(ctx)
	return state.Tasks, err
}

// Counts returns completed and total task counts.
func (c *RecoveryChecklist) Counts(ctx context.Context) (completed, total int, err error) {
	tasks, err := c.Tasks(ctx)
	if err != nil {
		return 0, 0, err
	}
	for _, task := range tasks {
		if task.Completed {
			completed++
		}
	}
	return completed, len(tasks), nil
}

// Complete marks taskID as completed. changed is false when it already was.
func (c *RecoveryChecklist) Complete(ctx context.Context, taskID string) (changed bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, err := c.load(ctx)
	if err != nil {
		return false, err
	}
	for i := range state.Tasks {
		if state.Tasks[i].ID != taskID {
			continue
		}
		if state.Tasks[i].Completed {
			return false, nil
		}
		state.Tasks[i].Completed = true
		return true, c.save(ctx, state)
	}
	return false, fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
}

// Reset unchecks every task.
func (c *RecoveryChecklist) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, err := c.load(ctx)
	if err != nil {
		return err
	}
	for i := range state.Tasks {
		state.Tasks[i].Completed = false
	}
	return c.save(ctx, state)
}

// load treats an undecodable checklist as empty so rollover and completion keep working.
func (c *RecoveryChecklist) load(ctx context.Context) (recoveryState, error) {
	var state recoveryState
	_, err := persistence.GetJSON(ctx, c.store, persistence.TrackingKey(SubsystemRecovery), &state)
	if errors.Is(err, persistence.ErrCorruptValue) {
		c.logger.WithError(err).Warn("discarding corrupt recovery checklist")
		return recoveryState{}, nil
	}
	return state, err
}

func (c *RecoveryChecklist) save(ctx context.Context, state recoveryState) error {
	return persistence.SetJSON(ctx, c.store, persistence.TrackingKey(SubsystemRecovery), state)
}
