package domain

import (
	"fmt"
	"time"
)

const calendarLayout = "2006-01-02"

// CalendarDate is a timezone-naive YYYY-MM-DD day used for streak and reset bookkeeping.
type CalendarDate string

// Today returns the calendar day of now in loc. A nil loc means time.Local.
func Today(now time.Time, loc *time.Location) CalendarDate {
	if loc == nil {
		loc = time.Local
	}
	return CalendarDate(now.In(loc).Format(calendarLayout))
}

// ParseCalendarDate validates a YYYY-MM-DD string.
func ParseCalendarDate(value string) (CalendarDate, error) {
	t, err := time.Parse(calendarLayout, value)
	if err != nil {
		return "", fmt.Errorf("invalid calendar date %q: %w", value, err)
	}
	return CalendarDate(t.Format(calendarLayout)), nil
}

// String implements fmt.Stringer.
func (d CalendarDate) String() string { return string(d) }

// IsZero reports whether the date is unset.
func (d CalendarDate) IsZero() bool { return d == "" }

// Time returns midnight UTC of the date. Only used for arithmetic.
func (d CalendarDate) Time() time.Time {
	t, err := time.Parse(calendarLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

// AddDays shifts the date by n days (negative moves backwards).
func (d CalendarDate) AddDays(n int) CalendarDate {
	t := d.Time()
	if t.IsZero() {
		return d
	}
	return CalendarDate(t.AddDate(0, 0, n).Format(calendarLayout))
}

// Weekday returns the day of week for the date.
func (d CalendarDate) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// Before reports whether d is strictly earlier than other.
func (d CalendarDate) Before(other CalendarDate) bool {
	return d.Time().Before(other.Time())
}

// Week returns the seven days ending on d, oldest first.
func (d CalendarDate) Week() []CalendarDate {
	out := make([]CalendarDate, 0, 7)
	for i := 6; i >= 0; i-- {
		out = append(out, d.AddDays(-i))
	}
	return out
}
