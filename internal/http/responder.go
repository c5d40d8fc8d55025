package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/table-reservations/internal/application"
	"github.com/example/table-reservations/internal/scheduler"
)

var (
	errBadRequestBody      = errors.New("The request body is not valid JSON.")
	errInvalidResourceID   = errors.New("The resource id is missing.")
	errMissingSessionToken = errors.New("Please sign in to continue.")
	errRateLimited         = errors.New("Too many requests. Please wait a moment and try again.")
)

const genericFailureMessage = "Something went wrong on our side. Please try again."

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := statusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   statusMessage(http.StatusUnprocessableEntity),
			Errors:    vErr.FieldErrors,
		})
		return
	}

	var aErr *application.AvailabilityError
	if errors.As(err, &aErr) {
		resp := errorResponse{
			ErrorCode:   string(aErr.Code),
			Message:     availabilityMessage(aErr),
			MaxCapacity: aErr.MaxCapacity,
		}
		for _, c := range aErr.Conflicts {
			resp.Conflicts = append(resp.Conflicts, c.ReservationID)
		}
		r.writeJSON(ctx, w, http.StatusConflict, resp)
		return
	}

	status, code, message := http.StatusInternalServerError, "", genericFailureMessage
	switch {
	case errors.Is(err, application.ErrUnauthorized):
		status, code, message = http.StatusForbidden, "AUTH_FORBIDDEN", statusMessage(http.StatusForbidden)
	case errors.Is(err, application.ErrNotFound):
		status, code, message = http.StatusNotFound, "NOT_FOUND", statusMessage(http.StatusNotFound)
	case errors.Is(err, application.ErrInvalidCredentials):
		status, code, message = http.StatusUnauthorized, "AUTH_INVALID_CREDENTIALS", "The email or password is incorrect."
	case errors.Is(err, application.ErrAccountDisabled):
		status, code, message = http.StatusForbidden, "AUTH_ACCOUNT_DISABLED", "This account has been disabled."
	case errors.Is(err, application.ErrSessionExpired), errors.Is(err, application.ErrSessionRevoked):
		status, code, message = http.StatusUnauthorized, "AUTH_SESSION_EXPIRED", "Your session has ended. Please sign in again."
	case errors.Is(err, application.ErrAlreadyExists):
		status, code, message = http.StatusConflict, "ALREADY_EXISTS", "A record with the same value already exists."
	case errors.Is(err, application.ErrInvalidTransition):
		status, code, message = http.StatusConflict, "INVALID_TRANSITION", "The reservation can no longer be changed that way."
	case errors.Is(err, application.ErrCancellationWindow):
		status, code, message = http.StatusConflict, "CANCELLATION_WINDOW_CLOSED", "It is too close to the reservation time to cancel online. Please call the restaurant."
	case errors.Is(err, application.ErrTableInUse):
		status, code, message = http.StatusConflict, "TABLE_IN_USE", "The table still has upcoming reservations."
	case errors.Is(err, application.ErrInvalidToken):
		status, code, message = http.StatusBadRequest, "INVALID_TOKEN", "The link is invalid or has expired."
	}

	if status == http.StatusInternalServerError {
		r.loggerFor(ctx).ErrorContext(ctx, "unhandled service error", "error", err)
	}
	r.writeJSON(ctx, w, status, errorResponse{ErrorCode: code, Message: message})
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func statusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "The request is not valid."
	case http.StatusUnauthorized:
		return "Please sign in to continue."
	case http.StatusForbidden:
		return "You are not allowed to perform this action."
	case http.StatusNotFound:
		return "The requested resource was not found."
	case http.StatusConflict:
		return "The request conflicts with the current state of the resource."
	case http.StatusUnprocessableEntity:
		return "Some fields are not valid."
	case http.StatusTooManyRequests:
		return errRateLimited.Error()
	default:
		return genericFailureMessage
	}
}

func availabilityMessage(aErr *application.AvailabilityError) string {
	switch aErr.Code {
	case scheduler.FailureNoTables:
		return "No tables have been set up yet."
	case scheduler.FailureNoZoneCapacity:
		return "There are no tables available in that area."
	case scheduler.FailureInsufficientCapacity:
		return fmt.Sprintf("No table in that area seats a party that large. The largest seats %d.", aErr.MaxCapacity)
	case scheduler.FailureNoAvailability:
		return "No table is free at that time. Please choose another time."
	case scheduler.FailureOutOfHours:
		return "The restaurant is closed at that time."
	}
	return statusMessage(http.StatusConflict)
}

type errorResponse struct {
	ErrorCode   string            `json:"error_code,omitempty"`
	Message     string            `json:"message"`
	Errors      map[string]string `json:"errors,omitempty"`
	MaxCapacity int               `json:"max_capacity,omitempty"`
	Conflicts   []string          `json:"conflicts,omitempty"`
}
