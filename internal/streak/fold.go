package streak

import "github.com/goshak24/ScolioFrontend-sub001/internal/domain"

// Confirmed carries values the backend returned for the activity, when known.
type Confirmed struct {
	BraceTotalHours float64
	PhysioSessions  int
	TaskNewlyDone   bool
}

// Fold returns progress with event applied optimistically, so eligibility can be
// decided without re-fetching. Backend-confirmed totals win over local arithmetic.
func Fold(progress domain.Progress, event domain.ActivityEvent, confirmed Confirmed) domain.Progress {
	next := progress.ForDate(event.Date)

	switch event.Kind {
	case domain.ActivityPhysio:
		next.PhysioSessions = foldPhysio(next.PhysioSessions, confirmed)
	case domain.ActivityBrace:
		next.BraceHours = foldBrace(next.BraceHours, event.HoursDelta, confirmed)
	case domain.ActivityBracePlusPhysio:
		if event.HoursDelta > 0 {
			next.BraceHours = foldBrace(next.BraceHours, event.HoursDelta, confirmed)
		} else {
			next.PhysioSessions = foldPhysio(next.PhysioSessions, confirmed)
		}
	case domain.ActivityPreSurgery, domain.ActivityPostSurgeryTask:
		if confirmed.TaskNewlyDone && next.RecoveryCompleted < next.RecoveryTotal {
			next.RecoveryCompleted++
		}
	}
	return next
}

func foldPhysio(current int, confirmed Confirmed) int {
	if confirmed.PhysioSessions > current {
		return confirmed.PhysioSessions
	}
	return current + 1
}

func foldBrace(current, delta float64, confirmed Confirmed) float64 {
	if confirmed.BraceTotalHours > 0 {
		return confirmed.BraceTotalHours
	}
	return current + delta
}
