// Package remote talks to the adherence backend that owns brace, physio, recovery and streak records.
package remote

import (
	"context"

	"github.com/goshak24/ScolioFrontend-sub001/internal/domain"
)

// Client is the Remote Sync Client consumed by the orchestrator and rollover store.
// Any success=false response is returned as an error wrapping domain.ErrNetworkFailure.
type Client interface {
	IncrementBraceHours(ctx context.Context, date domain.CalendarDate, hoursDelta float64) (BraceResult, error)
	LogPhysioSession(ctx context.Context, date domain.CalendarDate) (PhysioResult, error)
	UpdateRecoveryTask(ctx context.Context, date domain.CalendarDate, taskID string) (TaskResult, error)
	AdvanceStreak(ctx context.Context, date domain.CalendarDate) (StreakResult, error)
	FetchProfile(ctx context.Context, date domain.CalendarDate) (ProfileResult, error)
	ResetDaily(ctx context.Context, subsystem string, date domain.CalendarDate) error
	UpdateWalkingMinutes(ctx context.Context, date domain.CalendarDate, minutes int) error
}

// BraceResult is returned by IncrementBraceHours.
type BraceResult struct {
	Success         bool           `json:"success"`
	TotalHoursToday float64        `json:"total_hours_today"`
	NewAchievements []domain.Badge `json:"new_achievements,omitempty"`
}

// PhysioResult is returned by LogPhysioSession.
type PhysioResult struct {
	Success         bool           `json:"success"`
	SessionsToday   int            `json:"sessions_today,omitempty"`
	NewAchievements []domain.Badge `json:"new_achievements,omitempty"`
}

// TaskResult is returned by UpdateRecoveryTask.
type TaskResult struct {
	Success         bool           `json:"success"`
	NewAchievements []domain.Badge `json:"new_achievements,omitempty"`
}

// StreakResult is returned by AdvanceStreak.
type StreakResult struct {
	Success           bool           `json:"success"`
	CurrentStreakDays int            `json:"current_streak_days"`
	NewAchievements   []domain.Badge `json:"new_achievements,omitempty"`
}

// ProfileResult carries the account profile plus the backend's view of today's progress.
type ProfileResult struct {
	Success  bool            `json:"success"`
	Profile  domain.Profile  `json:"profile"`
	Progress domain.Progress `json:"progress"`
}

type ackResult struct {
	Success bool `json:"success"`
}
