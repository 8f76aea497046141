package model

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested booking does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidStatus is returned for payment statuses outside the enum.
var ErrInvalidStatus = errors.New("invalid payment status")

// ErrConcurrentUpdate is returned by a store when a commit lost a race with
// another transaction (serialization failure or exclusion violation). The
// whole check-and-commit unit may be retried.
var ErrConcurrentUpdate = errors.New("concurrent update")

// ValidationError is a business-rule or field violation. Reason is shown to
// the caller verbatim.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Invalidf builds a ValidationError.
func Invalidf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ConflictError reports that the requested dates overlap confirmed bookings.
type ConflictError struct {
	Requested    Range
	Conflicts    []Booking
	Alternatives *Alternatives
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("dates %s to %s conflict with %d confirmed booking(s)",
		e.Requested.Start, e.Requested.End, len(e.Conflicts))
}
