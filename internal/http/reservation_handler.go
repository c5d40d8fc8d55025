package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/table-reservations/internal/application"
	"github.com/example/table-reservations/internal/export"
	"github.com/example/table-reservations/internal/scheduler"
)

type reservationService interface {
	Create(ctx context.Context, params application.CreateReservationParams) (application.Reservation, error)
	ChangeState(ctx context.Context, params application.ChangeStateParams) (application.Reservation, error)
	Reschedule(ctx context.Context, params application.RescheduleParams) (application.Reservation, error)
	CancelSelf(ctx context.Context, principal application.Principal, id string) (application.Reservation, error)
	Delete(ctx context.Context, principal application.Principal, id string) error
	GetStatus(ctx context.Context, principal application.Principal, id string) (application.ReservationStatus, error)
	ListMine(ctx context.Context, principal application.Principal) (application.MyReservations, error)
	List(ctx context.Context, principal application.Principal, filter application.ReservationFilter) ([]application.Reservation, error)
}

type policyReader interface {
	GetOrInitialize(ctx context.Context) (application.Policy, error)
}

type tableDirectory interface {
	List(ctx context.Context, principal application.Principal) ([]application.Table, error)
}

type ReservationHandler struct {
	service   reservationService
	policies  policyReader
	tables    tableDirectory
	now       func() time.Time
	responder responder
	logger    *slog.Logger
}

func NewReservationHandler(service reservationService, policies policyReader, tables tableDirectory, logger *slog.Logger) *ReservationHandler {
	base := defaultLogger(logger)
	return &ReservationHandler{
		service:   service,
		policies:  policies,
		tables:    tables,
		now:       time.Now,
		responder: newResponder(base),
		logger:    base,
	}
}

func (h *ReservationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ReservationHandler", operation, attrs...)
}

func (h *ReservationHandler) ready(w http.ResponseWriter) bool {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return false
	}
	return true
}

func (h *ReservationHandler) reservationID(w http.ResponseWriter, r *http.Request, operation string) (string, bool) {
	id, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.log(r.Context(), operation, "error_kind", "bad_request").ErrorContext(r.Context(), "missing reservation id")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return "", false
	}
	return id, true
}

// Create books a table. Customers book for themselves; staff may book for a customer and set the channel.
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode reservation request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input := req.toInput()
	if input.Device == "" {
		input.Device = deviceFromUserAgent(r.UserAgent())
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID, "date", input.Date, "zone", input.Zone)
	reservation, err := h.service.Create(r.Context(), application.CreateReservationParams{
		Principal: principal,
		Input:     input,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "reservation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("reservation_id", reservation.ID, "table_id", reservation.TableID).InfoContext(r.Context(), "reservation created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, reservationResponse{Reservation: toReservationDTO(reservation)})
}

// Options returns what the booking form needs to render.
func (h *ReservationHandler) Options(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.policies == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	policy, err := h.policies.GetOrInitialize(r.Context())
	if err != nil {
		h.log(r.Context(), "Options").ErrorContext(r.Context(), "failed to load policy", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := optionsResponse{
		MaxPartySize:              policy.MaxPartySize,
		AdvanceNoticeHours:        policy.AdvanceNoticeHours,
		CancellationCutoffMinutes: policy.CancellationCutoffMinutes,
		DurationMinutes:           policy.DefaultDurationMinutes,
		Devices:                   application.Devices(),
	}
	for _, z := range scheduler.Zones() {
		resp.Zones = append(resp.Zones, string(z))
	}
	for _, c := range application.Channels() {
		resp.Channels = append(resp.Channels, string(c))
	}
	for _, s := range scheduler.States() {
		resp.States = append(resp.States, string(s))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (h *ReservationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "ListMine", "principal_id", principal.UserID)

	mine, err := h.service.ListMine(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "reservation overview failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, myReservationsResponse{
		Active:    toReservationDTOs(mine.Active),
		Past:      toReservationDTOs(mine.Past),
		Cancelled: toReservationDTOs(mine.Cancelled),
		Notices:   toReservationDTOs(mine.Notices),
	})
}

func (h *ReservationHandler) CancelMine(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, ok := h.reservationID(w, r, "CancelMine")
	if !ok {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "CancelMine", "principal_id", principal.UserID, "reservation_id", id)

	reservation, err := h.service.CancelSelf(r.Context(), principal, id)
	if err != nil {
		logger.ErrorContext(r.Context(), "cancellation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "reservation cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationResponse{Reservation: toReservationDTO(reservation)})
}

// Status serves the polling view used to watch a reservation's state.
func (h *ReservationHandler) Status(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, ok := h.reservationID(w, r, "Status")
	if !ok {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	status, err := h.service.GetStatus(r.Context(), principal, id)
	if err != nil {
		h.log(r.Context(), "Status", "principal_id", principal.UserID, "reservation_id", id).
			ErrorContext(r.Context(), "status lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, statusDTO{
		ID:        status.ID,
		State:     string(status.State),
		Date:      status.Date,
		StartTime: status.Start.String(),
		EndTime:   status.End.String(),
		TableID:   status.TableID,
		TableName: status.TableName,
	})
}

func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	filter := filterFromQuery(r)
	logger := h.log(r.Context(), "List", "principal_id", principal.UserID)

	reservations, err := h.service.List(r.Context(), principal, filter)
	if err != nil {
		logger.ErrorContext(r.Context(), "reservation list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(reservations)).InfoContext(r.Context(), "reservations listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listReservationsResponse{Reservations: toReservationDTOs(reservations)})
}

// Export downloads the filtered listing as a workbook.
func (h *ReservationHandler) Export(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	filter := filterFromQuery(r)
	logger := h.log(r.Context(), "Export", "principal_id", principal.UserID)

	reservations, err := h.service.List(r.Context(), principal, filter)
	if err != nil {
		logger.ErrorContext(r.Context(), "reservation export failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	names := make(map[string]string)
	if h.tables != nil {
		tables, err := h.tables.List(r.Context(), principal)
		if err != nil {
			logger.ErrorContext(r.Context(), "table lookup for export failed", "error", err, "error_kind", application.ErrorKind(err))
			h.responder.handleServiceError(r.Context(), w, err)
			return
		}
		for _, t := range tables {
			names[t.ID] = t.Name
		}
	}

	var buf bytes.Buffer
	if err := export.Reservations(&buf, reservations, names); err != nil {
		logger.ErrorContext(r.Context(), "failed to render workbook", "error", err)
		h.responder.writeJSON(r.Context(), w, http.StatusInternalServerError, errorResponse{Message: genericFailureMessage})
		return
	}

	logger.With("result_count", len(reservations)).InfoContext(r.Context(), "reservations exported")
	writeAttachment(w, export.Filename("reservations", scheduler.FormatDate(h.now())), buf.Bytes())
}

func (h *ReservationHandler) ChangeState(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, ok := h.reservationID(w, r, "ChangeState")
	if !ok {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req stateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "ChangeState", "principal_id", principal.UserID, "reservation_id", id, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode state change", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "ChangeState", "principal_id", principal.UserID, "reservation_id", id, "state", req.State)
	reservation, err := h.service.ChangeState(r.Context(), application.ChangeStateParams{
		Principal:     principal,
		ReservationID: id,
		State:         req.State,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "state change failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "reservation state changed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationResponse{Reservation: toReservationDTO(reservation)})
}

func (h *ReservationHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, ok := h.reservationID(w, r, "Reschedule")
	if !ok {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Reschedule", "principal_id", principal.UserID, "reservation_id", id, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode reschedule", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Reschedule", "principal_id", principal.UserID, "reservation_id", id)
	reservation, err := h.service.Reschedule(r.Context(), application.RescheduleParams{
		Principal:     principal,
		ReservationID: id,
		Date:          req.Date,
		StartTime:     req.StartTime,
		Reason:        req.Reason,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "reschedule failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "reservation rescheduled")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationResponse{Reservation: toReservationDTO(reservation)})
}

func (h *ReservationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, ok := h.reservationID(w, r, "Delete")
	if !ok {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "reservation_id", id)
	if err := h.service.Delete(r.Context(), principal, id); err != nil {
		logger.ErrorContext(r.Context(), "reservation delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "reservation deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func filterFromQuery(r *http.Request) application.ReservationFilter {
	q := r.URL.Query()
	return application.ReservationFilter{
		CustomerID: strings.TrimSpace(q.Get("customer_id")),
		DateFrom:   strings.TrimSpace(q.Get("date_from")),
		DateTo:     strings.TrimSpace(q.Get("date_to")),
		State:      strings.TrimSpace(q.Get("state")),
		TableID:    strings.TrimSpace(q.Get("table_id")),
		Zone:       strings.TrimSpace(q.Get("zone")),
	}
}

// deviceFromUserAgent classifies the client when the form does not say.
func deviceFromUserAgent(ua string) string {
	ua = strings.ToLower(ua)
	switch {
	case ua == "":
		return ""
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet"):
		return "tablet"
	case strings.Contains(ua, "mobi") || strings.Contains(ua, "iphone") || strings.Contains(ua, "android"):
		return "mobile"
	default:
		return "desktop"
	}
}

func writeAttachment(w http.ResponseWriter, filename string, body []byte) {
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", fmt.Sprint(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

type reservationRequest struct {
	CustomerID string `json:"customer_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	PartySize  int    `json:"party_size"`
	Zone       string `json:"zone"`
	Notes      string `json:"notes"`
	Channel    string `json:"channel"`
	Device     string `json:"device"`
}

func (r reservationRequest) toInput() application.ReservationInput {
	return application.ReservationInput{
		CustomerID: strings.TrimSpace(r.CustomerID),
		Name:       r.Name,
		Email:      r.Email,
		Phone:      r.Phone,
		Date:       strings.TrimSpace(r.Date),
		StartTime:  strings.TrimSpace(r.StartTime),
		PartySize:  r.PartySize,
		Zone:       strings.TrimSpace(r.Zone),
		Notes:      r.Notes,
		Channel:    strings.TrimSpace(r.Channel),
		Device:     strings.TrimSpace(r.Device),
	}
}

type stateRequest struct {
	State string `json:"state"`
}

type rescheduleRequest struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	Reason    string `json:"reason"`
}

type reservationResponse struct {
	Reservation reservationDTO `json:"reservation"`
}

type listReservationsResponse struct {
	Reservations []reservationDTO `json:"reservations"`
}

type myReservationsResponse struct {
	Active    []reservationDTO `json:"active"`
	Past      []reservationDTO `json:"past"`
	Cancelled []reservationDTO `json:"cancelled"`
	Notices   []reservationDTO `json:"notices"`
}

type optionsResponse struct {
	Zones                     []string `json:"zones"`
	Channels                  []string `json:"channels"`
	Devices                   []string `json:"devices"`
	States                    []string `json:"states"`
	MaxPartySize              int      `json:"max_party_size"`
	AdvanceNoticeHours        int      `json:"advance_notice_hours"`
	CancellationCutoffMinutes int      `json:"cancellation_cutoff_minutes"`
	DurationMinutes           int      `json:"duration_minutes"`
}

type statusDTO struct {
	ID        string `json:"id"`
	State     string `json:"state"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	TableID   string `json:"table_id,omitempty"`
	TableName string `json:"table_name,omitempty"`
}

type reservationDTO struct {
	ID            string `json:"id"`
	CustomerID    string `json:"customer_id,omitempty"`
	TableID       string `json:"table_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	PartySize     int    `json:"party_size"`
	Zone          string `json:"zone"`
	State         string `json:"state"`
	Channel       string `json:"channel"`
	Device        string `json:"device,omitempty"`
	Notes         string `json:"notes,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

func toReservationDTO(r application.Reservation) reservationDTO {
	return reservationDTO{
		ID:            r.ID,
		CustomerID:    r.CustomerID,
		TableID:       r.TableID,
		CustomerName:  r.CustomerName,
		CustomerEmail: r.CustomerEmail,
		CustomerPhone: r.CustomerPhone,
		Date:          r.Date,
		StartTime:     r.Start.String(),
		EndTime:       r.End.String(),
		PartySize:     r.PartySize,
		Zone:          string(r.Zone),
		State:         string(r.State),
		Channel:       string(r.Channel),
		Device:        r.Device,
		Notes:         r.Notes,
		CreatedAt:     r.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:     r.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toReservationDTOs(reservations []application.Reservation) []reservationDTO {
	out := make([]reservationDTO, 0, len(reservations))
	for _, r := range reservations {
		out = append(out, toReservationDTO(r))
	}
	return out
}
