// Package streak decides whether today's adherence condition is met for an account type.
// Everything here is pure: callers pass an already-loaded snapshot.
package streak

import "github.com/goshak24/ScolioFrontend-sub001/internal/domain"

// Snapshot is the progress view the rules evaluate. It may be optimistic,
// already including the effect of an activity the backend has not confirmed yet.
type Snapshot struct {
	Plan     domain.Plan
	Progress domain.Progress
}

// Rule decides eligibility for one account type.
type Rule func(date domain.CalendarDate, snap Snapshot) bool

var rules = map[domain.AccountType]Rule{
	domain.AccountBrace:       braceRule,
	domain.AccountPhysio:      physioRule,
	domain.AccountBracePhysio: bracePhysioRule,
	domain.AccountPreSurgery:  preSurgeryRule,
	domain.AccountPostSurgery: postSurgeryRule,
	domain.AccountUnknown:     unknownAccountRule,
}

// IsEligible reports whether the streak may advance on date.
func IsEligible(account domain.AccountType, date domain.CalendarDate, snap Snapshot) bool {
	rule, ok := rules[account]
	if !ok {
		rule = unknownAccountRule
	}
	return rule(date, snap.forDate(date))
}

func (s Snapshot) forDate(date domain.CalendarDate) Snapshot {
	s.Progress = s.Progress.ForDate(date)
	return s
}

func braceRule(_ domain.CalendarDate, snap Snapshot) bool {
	return snap.Progress.BraceHours >= snap.Plan.BraceTargetHours
}

// Zero scheduled sessions is vacuously satisfied.
func physioRule(date domain.CalendarDate, snap Snapshot) bool {
	return snap.Progress.PhysioSessions >= snap.Plan.ScheduledSessions(date)
}

func bracePhysioRule(date domain.CalendarDate, snap Snapshot) bool {
	return braceRule(date, snap) && physioRule(date, snap)
}

// No product rule exists for pre-surgery accounts yet.
func preSurgeryRule(domain.CalendarDate, Snapshot) bool {
	return false
}

func postSurgeryRule(date domain.CalendarDate, snap Snapshot) bool {
	return physioRule(date, snap) && snap.Progress.RecoveryCompleted >= snap.Progress.RecoveryTotal
}

// Untyped accounts fail open so gamification is never blocked for them.
func unknownAccountRule(domain.CalendarDate, Snapshot) bool {
	return true
}
