package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/table-reservations/internal/application"
)

type hoursService interface {
	List(ctx context.Context, principal application.Principal) ([]application.OperatingHours, error)
	Upsert(ctx context.Context, principal application.Principal, input application.HoursInput) (application.OperatingHours, error)
	Delete(ctx context.Context, principal application.Principal, id string) error
}

type policyService interface {
	GetOrInitialize(ctx context.Context) (application.Policy, error)
	Update(ctx context.Context, principal application.Principal, input application.Policy) (application.Policy, error)
}

// ConfigHandler serves the restaurant's operating hours and booking policy.
type ConfigHandler struct {
	hours     hoursService
	policy    policyService
	responder responder
	logger    *slog.Logger
}

func NewConfigHandler(hours hoursService, policy policyService, logger *slog.Logger) *ConfigHandler {
	base := defaultLogger(logger)
	return &ConfigHandler{hours: hours, policy: policy, responder: newResponder(base), logger: base}
}

func (h *ConfigHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ConfigHandler", operation, attrs...)
}

func (h *ConfigHandler) ListHours(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.hours == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	windows, err := h.hours.List(r.Context(), principal)
	if err != nil {
		h.log(r.Context(), "ListHours", "principal_id", principal.UserID).
			ErrorContext(r.Context(), "hours list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]hoursDTO, 0, len(windows))
	for _, window := range windows {
		out = append(out, toHoursDTO(window))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listHoursResponse{Hours: out})
}

// UpsertHours creates a window, or replaces the one named by id.
func (h *ConfigHandler) UpsertHours(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.hours == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req hoursRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "UpsertHours", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode hours request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	logger := h.log(r.Context(), "UpsertHours", "principal_id", principal.UserID, "weekday", req.Weekday)
	window, err := h.hours.Upsert(r.Context(), principal, application.HoursInput{
		ID:      strings.TrimSpace(req.ID),
		Weekday: req.Weekday,
		Open:    strings.TrimSpace(req.Open),
		Close:   strings.TrimSpace(req.Close),
		Active:  active,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "hours upsert failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("hours_id", window.ID).InfoContext(r.Context(), "hours saved")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, hoursResponse{Hours: toHoursDTO(window)})
}

func (h *ConfigHandler) DeleteHours(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.hours == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.log(r.Context(), "DeleteHours", "error_kind", "bad_request").ErrorContext(r.Context(), "missing hours id for delete")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "DeleteHours", "principal_id", principal.UserID, "hours_id", id)
	if err := h.hours.Delete(r.Context(), principal, id); err != nil {
		logger.ErrorContext(r.Context(), "hours delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "hours deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// GetPolicy is readable by any signed-in account since the booking form depends on it.
func (h *ConfigHandler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.policy == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	policy, err := h.policy.GetOrInitialize(r.Context())
	if err != nil {
		h.log(r.Context(), "GetPolicy").ErrorContext(r.Context(), "policy lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, policyResponse{Policy: toPolicyDTO(policy)})
}

func (h *ConfigHandler) UpdatePolicy(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.policy == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req policyDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "UpdatePolicy", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode policy", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "UpdatePolicy", "principal_id", principal.UserID)
	policy, err := h.policy.Update(r.Context(), principal, application.Policy{
		CancellationCutoffMinutes: req.CancellationCutoffMinutes,
		AdvanceNoticeHours:        req.AdvanceNoticeHours,
		MaxPartySize:              req.MaxPartySize,
		DefaultDurationMinutes:    req.DefaultDurationMinutes,
		LateToleranceMinutes:      req.LateToleranceMinutes,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "policy update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "policy updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, policyResponse{Policy: toPolicyDTO(policy)})
}

type hoursRequest struct {
	ID      string `json:"id"`
	Weekday int    `json:"weekday"`
	Open    string `json:"open"`
	Close   string `json:"close"`
	Active  *bool  `json:"active"`
}

type hoursResponse struct {
	Hours hoursDTO `json:"hours"`
}

type listHoursResponse struct {
	Hours []hoursDTO `json:"hours"`
}

type hoursDTO struct {
	ID          string `json:"id"`
	Weekday     int    `json:"weekday"`
	WeekdayName string `json:"weekday_name"`
	Open        string `json:"open"`
	Close       string `json:"close"`
	Active      bool   `json:"active"`
}

func toHoursDTO(h application.OperatingHours) hoursDTO {
	return hoursDTO{
		ID:          h.ID,
		Weekday:     int(h.Weekday),
		WeekdayName: h.Weekday.String(),
		Open:        h.Open.String(),
		Close:       h.Close.String(),
		Active:      h.Active,
	}
}

type policyResponse struct {
	Policy policyDTO `json:"policy"`
}

type policyDTO struct {
	CancellationCutoffMinutes int    `json:"cancellation_cutoff_minutes"`
	AdvanceNoticeHours        int    `json:"advance_notice_hours"`
	MaxPartySize              int    `json:"max_party_size"`
	DefaultDurationMinutes    int    `json:"default_duration_minutes"`
	LateToleranceMinutes      int    `json:"late_tolerance_minutes"`
	UpdatedAt                 string `json:"updated_at,omitempty"`
}

func toPolicyDTO(p application.Policy) policyDTO {
	dto := policyDTO{
		CancellationCutoffMinutes: p.CancellationCutoffMinutes,
		AdvanceNoticeHours:        p.AdvanceNoticeHours,
		MaxPartySize:              p.MaxPartySize,
		DefaultDurationMinutes:    p.DefaultDurationMinutes,
		LateToleranceMinutes:      p.LateToleranceMinutes,
	}
	if !p.UpdatedAt.IsZero() {
		dto.UpdatedAt = p.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	return dto
}
