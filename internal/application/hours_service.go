package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/table-reservations/internal/scheduler"
)

// HoursRepository stores operating-hours windows.
type HoursRepository interface {
	UpsertHours(ctx context.Context, hours OperatingHours) error
	ListHours(ctx context.Context) ([]OperatingHours, error)
	DeleteHours(ctx context.Context, id string) error
}

// HoursChecker decides whether a reservation may start at a given time.
type HoursChecker interface {
	IsWithinHours(ctx context.Context, date string, at scheduler.Clock) (bool, error)
}

// HoursService manages the weekly opening windows.
type HoursService struct {
	hours       HoursRepository
	idGenerator func() string
	logger      *slog.Logger
}

// NewHoursService constructs an hours service.
func NewHoursService(hours HoursRepository, idGenerator func() string) *HoursService {
	return NewHoursServiceWithLogger(hours, idGenerator, nil)
}

// NewHoursServiceWithLogger constructs an hours service with a specified logger.
func NewHoursServiceWithLogger(hours HoursRepository, idGenerator func() string, logger *slog.Logger) *HoursService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	return &HoursService{hours: hours, idGenerator: idGenerator, logger: defaultLogger(logger)}
}

func (s *HoursService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "HoursService", operation, attrs...)
}

// IsWithinHours reports whether at falls inside an active window for the
// weekday of date. With no windows configured the restaurant is closed.
func (s *HoursService) IsWithinHours(ctx context.Context, date string, at scheduler.Clock) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("HoursService is nil")
	}
	if s.hours == nil {
		return false, nil
	}
	windows, err := s.hours.ListHours(ctx)
	if err != nil {
		return false, err
	}
	rules := make([]scheduler.HoursRule, 0, len(windows))
	for _, w := range windows {
		rules = append(rules, scheduler.HoursRule{Weekday: w.Weekday, Open: w.Open, Close: w.Close, Active: w.Active})
	}
	return scheduler.WithinHours(rules, date, at)
}

// List returns every configured window.
func (s *HoursService) List(ctx context.Context, principal Principal) ([]OperatingHours, error) {
	if s == nil {
		return nil, fmt.Errorf("HoursService is nil")
	}
	if !principal.IsStaff() {
		return nil, ErrUnauthorized
	}
	if s.hours == nil {
		return nil, nil
	}
	return s.hours.ListHours(ctx)
}

// Upsert creates a window, or replaces it when input.ID names an existing one.
func (s *HoursService) Upsert(ctx context.Context, principal Principal, input HoursInput) (hours OperatingHours, err error) {
	if s == nil {
		err = fmt.Errorf("HoursService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Upsert", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to save operating hours", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("hours_id", hours.ID, "weekday", int(hours.Weekday)).InfoContext(ctx, "operating hours saved")
	}()

	if !principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}

	var vErr *ValidationError
	hours, vErr = parseHoursInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if hours.ID == "" {
		hours.ID = s.idGenerator()
	}

	if s.hours != nil {
		err = mapRepoError(s.hours.UpsertHours(ctx, hours))
	}
	return
}

// Delete removes a window.
func (s *HoursService) Delete(ctx context.Context, principal Principal, id string) (err error) {
	if s == nil {
		return fmt.Errorf("HoursService is nil")
	}

	logger := s.loggerWith(ctx, "Delete", "principal_id", principal.UserID, "hours_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete operating hours", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "operating hours deleted")
	}()

	if !principal.IsAdmin() {
		return ErrUnauthorized
	}
	if s.hours == nil {
		return fmt.Errorf("hours repository not configured")
	}
	return mapRepoError(s.hours.DeleteHours(ctx, strings.TrimSpace(id)))
}

func parseHoursInput(input HoursInput) (OperatingHours, *ValidationError) {
	vErr := &ValidationError{}
	hours := OperatingHours{ID: strings.TrimSpace(input.ID), Active: input.Active}

	if input.Weekday < 0 || input.Weekday > 6 {
		vErr.add("weekday", "weekday must be between 0 (Sunday) and 6 (Saturday)")
	}
	hours.Weekday = time.Weekday(input.Weekday)

	open, err := scheduler.ParseClock(input.Open)
	if err != nil {
		vErr.add("open", "open must be an HH:MM time")
	}
	closing, err := scheduler.ParseClock(input.Close)
	if err != nil {
		vErr.add("close", "close must be an HH:MM time")
	}
	if !vErr.HasErrors() && open >= closing {
		vErr.add("close", "close must be after open")
	}
	hours.Open = open
	hours.Close = closing
	return hours, vErr
}
