package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/example/table-reservations/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	return logging.Scoped(ctx, base, "service", serviceName, operation, attrs...)
}

var errorKinds = []struct {
	target error
	kind   string
}{
	{ErrUnauthorized, "unauthorized"},
	{ErrNotFound, "not_found"},
	{ErrAlreadyExists, "already_exists"},
	{ErrInvalidCredentials, "invalid_credentials"},
	{ErrAccountDisabled, "account_disabled"},
	{ErrSessionExpired, "session_expired"},
	{ErrSessionRevoked, "session_revoked"},
	{ErrInvalidTransition, "invalid_transition"},
	{ErrCancellationWindow, "cancellation_window"},
	{ErrTableInUse, "table_in_use"},
	{ErrInvalidToken, "invalid_token"},
}

// ErrorKind maps an error to a stable log label. Availability failures are
// labelled with their lower-cased failure code, e.g. "no_availability".
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}

	var aErr *AvailabilityError
	if errors.As(err, &aErr) {
		return strings.ToLower(string(aErr.Code))
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.kind
		}
	}
	return "unexpected"
}
