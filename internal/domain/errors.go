// Package domain defines the adherence data model shared by every subsystem.
package domain

import "errors"

var (
	// ErrAuthMissing indicates no valid session credential is available.
	ErrAuthMissing = errors.New("session credential missing")
	// ErrNetworkFailure wraps remote sync failures, including success=false responses.
	ErrNetworkFailure = errors.New("remote sync failed")
	// ErrStorageFailure wraps persistent store read/write failures.
	ErrStorageFailure = errors.New("storage failure")
	// ErrBusy is returned when an activity report or streak advance is already in flight.
	ErrBusy = errors.New("activity report already in flight")
	// ErrInvalidEvent is returned for malformed activity events.
	ErrInvalidEvent = errors.New("invalid activity event")
)
