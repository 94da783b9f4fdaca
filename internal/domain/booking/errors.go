package booking

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a booking id does not exist.
	ErrNotFound = errors.New("booking not found")

	// ErrDependencyUnavailable is returned when a collaborator on the critical
	// path (the identity registry) cannot be reached or failed server-side.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

// Validation reason codes.
const (
	ReasonAdvanceWindow   = "advance_window"
	ReasonBusinessHours   = "business_hours"
	ReasonWeekend         = "weekend"
	ReasonDuration        = "duration"
	ReasonInvalidInput    = "invalid_input"
	ReasonSubjectUnknown  = "subject_unknown"
	ReasonSubjectInactive = "subject_inactive"
	ReasonPastBooking     = "past_booking"
	ReasonCheckInDay      = "check_in_day"
	ReasonNoShowTooEarly  = "no_show_too_early"
)

// State conflict reason codes.
const (
	ReasonInvalidTransition  = "invalid_transition"
	ReasonOverlappingBooking = "overlapping_booking"
)

// ValidationError reports a policy violation or malformed input.
type ValidationError struct {
	Reason  string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Reason, e.Message)
}

func newValidationError(reason, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// StateConflictError reports a transition that is not allowed from the current
// status, or a window that overlaps another active booking.
type StateConflictError struct {
	Reason    string
	Status    Status
	Operation Operation
	Message   string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("state conflict (%s): %s", e.Reason, e.Message)
}

func invalidTransition(current Status, op Operation) *StateConflictError {
	msg := fmt.Sprintf("cannot %s a booking in status %s", op, current)
	if current.IsTerminal() {
		msg = fmt.Sprintf("cannot %s a final booking (status %s)", op, current)
	}
	return &StateConflictError{
		Reason:    ReasonInvalidTransition,
		Status:    current,
		Operation: op,
		Message:   msg,
	}
}

func overlapConflict(op Operation, count int) *StateConflictError {
	return &StateConflictError{
		Reason:    ReasonOverlappingBooking,
		Operation: op,
		Message:   fmt.Sprintf("resource has %d conflicting booking(s) at this time", count),
	}
}

// IsValidation reports whether err is a ValidationError and returns it.
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// IsStateConflict reports whether err is a StateConflictError and returns it.
func IsStateConflict(err error) (*StateConflictError, bool) {
	var sc *StateConflictError
	if errors.As(err, &sc) {
		return sc, true
	}
	return nil, false
}

// IsExpected reports whether err is a caller-recoverable rejection that should
// not be logged as an error.
func IsExpected(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	if _, ok := IsValidation(err); ok {
		return true
	}
	_, ok := IsStateConflict(err)
	return ok
}

func concurrentChange(from Status, op Operation) *StateConflictError {
	return &StateConflictError{
		Reason:    ReasonInvalidTransition,
		Status:    from,
		Operation: op,
		Message:   fmt.Sprintf("booking left status %s before it could %s; retry", from, op),
	}
}
