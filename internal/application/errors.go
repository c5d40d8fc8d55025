package application

import (
	"errors"
	"fmt"

	"github.com/example/table-reservations/internal/persistence"
	"github.com/example/table-reservations/internal/scheduler"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a unique value such as an email or table name is taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidCredentials is returned when login credentials do not match.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrAccountDisabled is returned when a disabled account tries to sign in.
	ErrAccountDisabled = errors.New("application: account disabled")
	// ErrSessionExpired is returned for sessions past their expiry.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned for sessions that were signed out.
	ErrSessionRevoked = errors.New("application: session revoked")
	// ErrInvalidTransition is returned when a reservation cannot move to the requested state.
	ErrInvalidTransition = errors.New("application: invalid state transition")
	// ErrCancellationWindow is returned when a customer cancels too close to the start time.
	ErrCancellationWindow = errors.New("application: cancellation window closed")
	// ErrTableInUse is returned when a table still has current or future reservations.
	ErrTableInUse = errors.New("application: table has upcoming reservations")
	// ErrInvalidToken is returned for malformed, expired or mismatched account tokens.
	ErrInvalidToken = errors.New("application: invalid token")
)

// Availability failure sentinels. An *AvailabilityError matches the sentinel
// for its code under errors.Is.
var (
	ErrNoTables             = errors.New("application: no tables configured")
	ErrNoZoneCapacity       = errors.New("application: no active tables in zone")
	ErrInsufficientCapacity = errors.New("application: no table large enough")
	ErrNoAvailability       = errors.New("application: no table available")
	ErrOutOfHours           = errors.New("application: outside operating hours")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error. The first message per field wins.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

// AvailabilityError reports why a reservation could not be given a table.
type AvailabilityError struct {
	Code        scheduler.FailureCode
	MaxCapacity int
	Conflicts   []scheduler.Booking
}

func (e *AvailabilityError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code == scheduler.FailureInsufficientCapacity {
		return fmt.Sprintf("availability: %s (max capacity %d)", e.Code, e.MaxCapacity)
	}
	return fmt.Sprintf("availability: %s", e.Code)
}

// Is matches the per-code sentinel.
func (e *AvailabilityError) Is(target error) bool {
	if e == nil {
		return false
	}
	return availabilitySentinel(e.Code) == target
}

func availabilitySentinel(code scheduler.FailureCode) error {
	switch code {
	case scheduler.FailureNoTables:
		return ErrNoTables
	case scheduler.FailureNoZoneCapacity:
		return ErrNoZoneCapacity
	case scheduler.FailureInsufficientCapacity:
		return ErrInsufficientCapacity
	case scheduler.FailureNoAvailability:
		return ErrNoAvailability
	case scheduler.FailureOutOfHours:
		return ErrOutOfHours
	}
	return nil
}

func newAvailabilityError(failure *scheduler.Failure) *AvailabilityError {
	return &AvailabilityError{
		Code:        failure.Code,
		MaxCapacity: failure.MaxCapacity,
		Conflicts:   failure.Conflicts,
	}
}

// mapRepoError translates storage sentinels into application errors.
func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrOverlap) {
		return &AvailabilityError{Code: scheduler.FailureNoAvailability}
	}
	return err
}
