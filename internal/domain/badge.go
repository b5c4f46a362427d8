package domain

import "time"

// Badge is a one-time award surfaced to the user via a popup.
type Badge struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	EarnedAt    time.Time `json:"earned_at"`
}

// DailyResetMarker records the last day a subsystem's counters were reset.
type DailyResetMarker struct {
	Subsystem     string       `json:"subsystem"`
	LastResetDate CalendarDate `json:"last_reset_date"`
}
