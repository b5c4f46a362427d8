package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ActivityKind enumerates the tracked activities a UI subsystem can report.
type ActivityKind int

const (
	ActivityPhysio ActivityKind = iota + 1
	ActivityBrace
	ActivityBracePlusPhysio
	ActivityPreSurgery
	ActivityPostSurgeryTask
)

var activityKindNames = map[ActivityKind]string{
	ActivityPhysio:          "physio",
	ActivityBrace:           "brace",
	ActivityBracePlusPhysio: "brace_physio",
	ActivityPreSurgery:      "pre_surgery",
	ActivityPostSurgeryTask: "post_surgery_task",
}

// String returns the wire name of the kind.
func (k ActivityKind) String() string {
	if name, ok := activityKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("activity_kind(%d)", int(k))
}

// ParseActivityKind maps a wire name back to an ActivityKind.
func ParseActivityKind(value string) (ActivityKind, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	for kind, name := range activityKindNames {
		if name == value {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown activity kind %q", ErrInvalidEvent, value)
}

// ActivityEvent is emitted each time a user action plausibly completes a tracked activity.
type ActivityEvent struct {
	ID         string
	Kind       ActivityKind
	Date       CalendarDate
	TaskID     string
	HoursDelta float64
}

// NewActivityEvent stamps a fresh event identifier.
func NewActivityEvent(kind ActivityKind, date CalendarDate) ActivityEvent {
	return ActivityEvent{ID: uuid.NewString(), Kind: kind, Date: date}
}

// WithTask returns a copy carrying a checklist task identifier.
func (e ActivityEvent) WithTask(taskID string) ActivityEvent {
	e.TaskID = taskID
	return e
}

// WithHours returns a copy carrying a brace hours delta.
func (e ActivityEvent) WithHours(hours float64) ActivityEvent {
	e.HoursDelta = hours
	return e
}

// Validate ensures the event carries the payload its kind requires.
func (e ActivityEvent) Validate() error {
	if _, ok := activityKindNames[e.Kind]; !ok {
		return fmt.Errorf("%w: unknown activity kind %d", ErrInvalidEvent, int(e.Kind))
	}
	if e.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidEvent)
	}
	if _, err := ParseCalendarDate(string(e.Date)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	switch e.Kind {
	case ActivityBrace:
		if e.HoursDelta <= 0 {
			return fmt.Errorf("%w: hours_delta must be > 0", ErrInvalidEvent)
		}
	case ActivityBracePlusPhysio:
		if e.HoursDelta < 0 {
			return fmt.Errorf("%w: hours_delta must be >= 0", ErrInvalidEvent)
		}
	case ActivityPreSurgery, ActivityPostSurgeryTask:
		if strings.TrimSpace(e.TaskID) == "" {
			return fmt.Errorf("%w: task_id is required", ErrInvalidEvent)
		}
	}
	return nil
}
