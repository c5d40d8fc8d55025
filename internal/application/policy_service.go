package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/table-reservations/internal/persistence"
)

// MaxTableCapacity is the largest party a single table can seat.
const MaxTableCapacity = 20

// PolicyRepository stores the singleton booking policy.
type PolicyRepository interface {
	GetPolicy(ctx context.Context) (Policy, error)
	SavePolicy(ctx context.Context, policy Policy) error
}

// PolicyProvider resolves the policy currently in force.
type PolicyProvider interface {
	GetOrInitialize(ctx context.Context) (Policy, error)
}

// PolicyService reads and updates the booking policy.
type PolicyService struct {
	policies PolicyRepository
	now      func() time.Time
	logger   *slog.Logger
}

// NewPolicyService constructs a policy service.
func NewPolicyService(policies PolicyRepository, now func() time.Time) *PolicyService {
	return NewPolicyServiceWithLogger(policies, now, nil)
}

// NewPolicyServiceWithLogger constructs a policy service with a specified logger.
func NewPolicyServiceWithLogger(policies PolicyRepository, now func() time.Time, logger *slog.Logger) *PolicyService {
	if now == nil {
		now = time.Now
	}
	return &PolicyService{policies: policies, now: now, logger: defaultLogger(logger)}
}

func (s *PolicyService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "PolicyService", operation, attrs...)
}

// GetOrInitialize returns the stored policy, saving the defaults first when
// none exists yet.
func (s *PolicyService) GetOrInitialize(ctx context.Context) (Policy, error) {
	if s == nil {
		return Policy{}, fmt.Errorf("PolicyService is nil")
	}
	if s.policies == nil {
		return DefaultPolicy(), nil
	}

	policy, err := s.policies.GetPolicy(ctx)
	if err == nil {
		return policy, nil
	}
	if !errors.Is(err, persistence.ErrNotFound) && !errors.Is(err, ErrNotFound) {
		return Policy{}, err
	}

	policy = DefaultPolicy()
	policy.UpdatedAt = s.now()
	if err := s.policies.SavePolicy(ctx, policy); err != nil {
		return Policy{}, err
	}
	s.loggerWith(ctx, "GetOrInitialize").InfoContext(ctx, "default policy initialised")
	return policy, nil
}

// Update replaces the policy. Administrators only.
func (s *PolicyService) Update(ctx context.Context, principal Principal, input Policy) (policy Policy, err error) {
	if s == nil {
		err = fmt.Errorf("PolicyService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Update", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update policy", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"cutoff_minutes", policy.CancellationCutoffMinutes,
			"max_party_size", policy.MaxPartySize,
		).InfoContext(ctx, "policy updated")
	}()

	if !principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}

	if vErr := validatePolicy(input); vErr.HasErrors() {
		err = vErr
		return
	}

	policy = input
	policy.UpdatedAt = s.now()
	if s.policies != nil {
		err = s.policies.SavePolicy(ctx, policy)
	}
	return
}

// ReplaceDefault applies input only while no administrator has changed the
// policy, that is when nothing is stored or the stored values are the
// defaults. The bool reports whether input was saved.
func (s *PolicyService) ReplaceDefault(ctx context.Context, principal Principal, input Policy) (Policy, bool, error) {
	if s == nil {
		return Policy{}, false, fmt.Errorf("PolicyService is nil")
	}
	if s.policies != nil {
		current, err := s.policies.GetPolicy(ctx)
		switch {
		case err == nil && !sameSettings(current, DefaultPolicy()):
			s.loggerWith(ctx, "ReplaceDefault").DebugContext(ctx, "policy already customised, keeping it")
			return current, false, nil
		case err != nil && !errors.Is(err, persistence.ErrNotFound) && !errors.Is(err, ErrNotFound):
			return Policy{}, false, err
		}
	}
	policy, err := s.Update(ctx, principal, input)
	if err != nil {
		return Policy{}, false, err
	}
	return policy, true, nil
}

func sameSettings(a, b Policy) bool {
	a.UpdatedAt, b.UpdatedAt = time.Time{}, time.Time{}
	return a == b
}

func validatePolicy(p Policy) *ValidationError {
	vErr := &ValidationError{}
	if p.CancellationCutoffMinutes < 0 {
		vErr.add("cancellation_cutoff_minutes", "must not be negative")
	}
	if p.AdvanceNoticeHours < 0 {
		vErr.add("advance_notice_hours", "must not be negative")
	}
	if p.LateToleranceMinutes < 0 {
		vErr.add("late_tolerance_minutes", "must not be negative")
	}
	if p.MaxPartySize < 1 || p.MaxPartySize > MaxTableCapacity {
		vErr.add("max_party_size", fmt.Sprintf("must be between 1 and %d", MaxTableCapacity))
	}
	if p.DefaultDurationMinutes <= 0 {
		vErr.add("default_duration_minutes", "must be positive")
	}
	return vErr
}
