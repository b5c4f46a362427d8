package domain

import (
	"strings"
	"time"
)

// AccountType is the closed set of treatment plans a patient account can follow.
type AccountType int

const (
	AccountUnknown AccountType = iota
	AccountBrace
	AccountPhysio
	AccountBracePhysio
	AccountPreSurgery
	AccountPostSurgery
)

// String returns the backend representation of the account type.
func (a AccountType) String() string {
	switch a {
	case AccountBrace:
		return "brace"
	case AccountPhysio:
		return "physio"
	case AccountBracePhysio:
		return "brace + physio"
	case AccountPreSurgery:
		return "pre-surgery"
	case AccountPostSurgery:
		return "post-surgery"
	default:
		return "unknown"
	}
}

// ParseAccountType maps backend strings onto AccountType. Unrecognised values become AccountUnknown.
func ParseAccountType(value string) AccountType {
	normalized := strings.ToLower(strings.Join(strings.Fields(value), " "))
	switch normalized {
	case "brace":
		return AccountBrace
	case "physio":
		return AccountPhysio
	case "brace + physio", "brace+physio", "brace_physio":
		return AccountBracePhysio
	case "pre-surgery", "pre_surgery", "presurgery":
		return AccountPreSurgery
	case "post-surgery", "post_surgery", "postsurgery":
		return AccountPostSurgery
	default:
		return AccountUnknown
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a AccountType) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *AccountType) UnmarshalText(text []byte) error {
	*a = ParseAccountType(string(text))
	return nil
}

// StreakState is owned by the account record and advanced at most once per calendar day.
type StreakState struct {
	CurrentStreakDays int          `json:"current_streak_days"`
	LastAdvancedDate  CalendarDate `json:"last_advanced_date,omitempty"`
}

// AdvancedOn reports whether the streak was already advanced on date.
func (s StreakState) AdvancedOn(date CalendarDate) bool {
	return !s.LastAdvancedDate.IsZero() && s.LastAdvancedDate == date
}

// Advance returns the state after advancing on date. remoteDays wins when the backend reports a count.
func (s StreakState) Advance(date CalendarDate, remoteDays int) StreakState {
	if s.AdvancedOn(date) {
		return s
	}
	next := s.CurrentStreakDays + 1
	if remoteDays > 0 {
		next = remoteDays
	}
	return StreakState{CurrentStreakDays: next, LastAdvancedDate: date}
}

// Plan describes the adherence targets of a patient.
type Plan struct {
	BraceTargetHours float64              `json:"brace_target_hours"`
	PhysioSchedule   map[time.Weekday]int `json:"physio_schedule,omitempty"`
}

// ScheduledSessions returns the number of physio sessions scheduled for date's weekday.
func (p Plan) ScheduledSessions(date CalendarDate) int {
	if p.PhysioSchedule == nil {
		return 0
	}
	return p.PhysioSchedule[date.Weekday()]
}

// Profile is the account view the orchestrator needs, cached locally between launches.
type Profile struct {
	AccountType AccountType `json:"account_type"`
	Plan        Plan        `json:"plan"`
	Streak      StreakState `json:"streak"`
}

// Progress is today's per-subsystem progress held in memory by the orchestrator.
type Progress struct {
	Date              CalendarDate `json:"date"`
	BraceHours        float64      `json:"brace_hours"`
	PhysioSessions    int          `json:"physio_sessions"`
	RecoveryCompleted int          `json:"recovery_completed"`
	RecoveryTotal     int          `json:"recovery_total"`
}

// ForDate returns p when it belongs to date, otherwise an empty progress for date.
func (p Progress) ForDate(date CalendarDate) Progress {
	if p.Date == date {
		return p
	}
	return Progress{Date: date, RecoveryTotal: p.RecoveryTotal}
}
