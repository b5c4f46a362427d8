// Package events defines the adherence event payloads published to Kafka.
package events

import "time"

// Event types, also used as the Kafka event_type header.
const (
	TypeActivityReported = "adherence.activity_reported"
	TypeStreakAdvanced   = "adherence.streak_advanced"
	TypeBadgeAwarded     = "adherence.badge_awarded"
	TypeDailyReset       = "adherence.daily_reset"
)

// Kafka header keys carried on every published message.
const (
	HeaderEventType = "event_type"
	HeaderPatientID = "patient_id"
)

// ActivityReported is emitted when the backend accepted a completed activity.
type ActivityReported struct {
	EventID    string    `json:"event_id"`
	PatientID  string    `json:"patient_id"`
	Kind       string    `json:"kind"`
	Date       string    `json:"date"`
	TaskID     string    `json:"task_id,omitempty"`
	HoursDelta float64   `json:"hours_delta,omitempty"`
	Eligible   bool      `json:"streak_eligible"`
	OccurredAt time.Time `json:"occurred_at"`
}

// StreakAdvanced is emitted after the daily streak advanced.
type StreakAdvanced struct {
	PatientID         string    `json:"patient_id"`
	Date              string    `json:"date"`
	CurrentStreakDays int       `json:"current_streak_days"`
	OccurredAt        time.Time `json:"occurred_at"`
}

// BadgeAwarded is emitted for every badge queued for display.
type BadgeAwarded struct {
	PatientID  string    `json:"patient_id"`
	BadgeID    string    `json:"badge_id"`
	Name       string    `json:"name"`
	EarnedAt   time.Time `json:"earned_at"`
	OccurredAt time.Time `json:"occurred_at"`
}

// DailyReset is emitted when a subsystem's counters rolled over to a new day.
type DailyReset struct {
	PatientID  string    `json:"patient_id"`
	Subsystem  string    `json:"subsystem"`
	Date       string    `json:"date"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Envelope pairs a payload with its routing metadata.
type Envelope struct {
	Type      string
	PatientID string
	Payload   any
}
