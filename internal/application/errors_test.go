package application

import (
	"errors"
	"fmt"
	"testing"

	"github.com/example/table-reservations/internal/persistence"
	"github.com/example/table-reservations/internal/scheduler"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	empty := &ValidationError{}
	if got := empty.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for empty error, got %q", got)
	}

	withFields := &ValidationError{FieldErrors: map[string]string{"field": "invalid"}}
	if got := withFields.Error(); got != "validation failed" {
		t.Fatalf("expected consistent message for populated error, got %q", got)
	}
}

func TestValidationError_HasErrors(t *testing.T) {
	t.Parallel()

	if err := (&ValidationError{}).HasErrors(); err {
		t.Fatalf("expected HasErrors to report false for empty error")
	}

	if err := (&ValidationError{FieldErrors: map[string]string{"field": "bad"}}).HasErrors(); !err {
		t.Fatalf("expected HasErrors to report true when fields are present")
	}
}

func TestValidationError_AddAndMerge(t *testing.T) {
	t.Parallel()

	base := &ValidationError{}
	base.add("first", "value")
	if got := base.FieldErrors["first"]; got != "value" {
		t.Fatalf("expected add to populate map, got %q", got)
	}

	other := &ValidationError{FieldErrors: map[string]string{"second": "another"}}
	base.merge(other)
	if got := base.FieldErrors["second"]; got != "another" {
		t.Fatalf("expected merge to copy field, got %q", got)
	}

	base.merge(nil)
	if len(base.FieldErrors) != 2 {
		t.Fatalf("expected merge with nil to leave fields unchanged")
	}
}

func TestValidationError_AddKeepsFirstMessage(t *testing.T) {
	t.Parallel()

	v := &ValidationError{}
	v.add("email", "email is required")
	v.add("email", "email must be a valid address")
	if got := v.FieldErrors["email"]; got != "email is required" {
		t.Fatalf("expected first message to win, got %q", got)
	}
}

func TestAvailabilityError_Is(t *testing.T) {
	t.Parallel()

	cases := map[scheduler.FailureCode]error{
		scheduler.FailureNoTables:             ErrNoTables,
		scheduler.FailureNoZoneCapacity:       ErrNoZoneCapacity,
		scheduler.FailureInsufficientCapacity: ErrInsufficientCapacity,
		scheduler.FailureNoAvailability:       ErrNoAvailability,
		scheduler.FailureOutOfHours:           ErrOutOfHours,
	}
	for code, sentinel := range cases {
		err := fmt.Errorf("wrapped: %w", &AvailabilityError{Code: code})
		if !errors.Is(err, sentinel) {
			t.Errorf("expected %s to match its sentinel", code)
		}
		if code != scheduler.FailureNoTables && errors.Is(err, ErrNoTables) {
			t.Errorf("expected %s not to match ErrNoTables", code)
		}
	}
}

func TestMapRepoError(t *testing.T) {
	t.Parallel()

	if mapRepoError(nil) != nil {
		t.Fatalf("expected nil to stay nil")
	}
	if err := mapRepoError(fmt.Errorf("get: %w", persistence.ErrNotFound)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mapRepoError(persistence.ErrDuplicate); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if err := mapRepoError(persistence.ErrOverlap); !errors.Is(err, ErrNoAvailability) {
		t.Fatalf("expected overlap to surface as NO_AVAILABILITY, got %v", err)
	}
	boom := errors.New("boom")
	if err := mapRepoError(boom); err != boom {
		t.Fatalf("expected unknown errors to pass through, got %v", err)
	}
}
