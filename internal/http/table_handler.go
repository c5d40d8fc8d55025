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

type tableService interface {
	Create(ctx context.Context, principal application.Principal, input application.TableInput) (application.Table, error)
	Update(ctx context.Context, principal application.Principal, id string, input application.TableInput) (application.Table, error)
	Delete(ctx context.Context, principal application.Principal, id string) error
	List(ctx context.Context, principal application.Principal) ([]application.Table, error)
	Occupancy(ctx context.Context, principal application.Principal) ([]application.TableOccupancy, error)
}

type TableHandler struct {
	service   tableService
	responder responder
	logger    *slog.Logger
}

func NewTableHandler(service tableService, logger *slog.Logger) *TableHandler {
	base := defaultLogger(logger)
	return &TableHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *TableHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "TableHandler", operation, attrs...)
}

func (h *TableHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req tableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode table request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID)

	table, err := h.service.Create(r.Context(), principal, req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "table creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("table_id", table.ID).InfoContext(r.Context(), "table created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, tableResponse{Table: toTableDTO(table)})
}

func (h *TableHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	tableID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(tableID) == "" {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "missing table id for update")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req tableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "principal_id", principal.UserID, "table_id", tableID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode table update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID, "table_id", tableID)

	table, err := h.service.Update(r.Context(), principal, tableID, req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "table update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "table updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, tableResponse{Table: toTableDTO(table)})
}

func (h *TableHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	tableID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(tableID) == "" {
		h.log(r.Context(), "Delete", "error_kind", "bad_request").ErrorContext(r.Context(), "missing table id for delete")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "table_id", tableID)
	if err := h.service.Delete(r.Context(), principal, tableID); err != nil {
		logger.ErrorContext(r.Context(), "table delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "table deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok || strings.TrimSpace(principal.UserID) == "" {
		h.log(r.Context(), "List", "error_kind", "unauthorized").ErrorContext(r.Context(), "missing authenticated principal")
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}
	logger := h.log(r.Context(), "List", "principal_id", principal.UserID)
	tables, err := h.service.List(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "table list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(tables)).InfoContext(r.Context(), "tables listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listTablesResponse{Tables: toTableDTOs(tables)})
}

// Occupancy is the floor view: which tables are seated now and who arrives next.
func (h *TableHandler) Occupancy(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Occupancy", "principal_id", principal.UserID)
	floor, err := h.service.Occupancy(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "occupancy lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]occupancyDTO, 0, len(floor))
	for _, o := range floor {
		dto := occupancyDTO{Table: toTableDTO(o.Table), Occupied: o.Occupied}
		if o.Current != nil {
			current := toReservationDTO(*o.Current)
			dto.Current = &current
		}
		if o.Next != nil {
			next := toReservationDTO(*o.Next)
			dto.Next = &next
		}
		out = append(out, dto)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, occupancyResponse{Tables: out})
}

type tableRequest struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	Zone     string `json:"zone"`
	Status   string `json:"status"`
}

func (r tableRequest) toInput() application.TableInput {
	status := strings.TrimSpace(r.Status)
	if status == "" {
		status = "active"
	}
	return application.TableInput{
		Name:     strings.TrimSpace(r.Name),
		Capacity: r.Capacity,
		Zone:     strings.TrimSpace(r.Zone),
		Status:   status,
	}
}

type tableResponse struct {
	Table tableDTO `json:"table"`
}

type listTablesResponse struct {
	Tables []tableDTO `json:"tables"`
}

type occupancyResponse struct {
	Tables []occupancyDTO `json:"tables"`
}

type occupancyDTO struct {
	Table    tableDTO        `json:"table"`
	Occupied bool            `json:"occupied"`
	Current  *reservationDTO `json:"current,omitempty"`
	Next     *reservationDTO `json:"next,omitempty"`
}

type tableDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Capacity  int    `json:"capacity"`
	Zone      string `json:"zone"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toTableDTO(table application.Table) tableDTO {
	return tableDTO{
		ID:        table.ID,
		Name:      table.Name,
		Capacity:  table.Capacity,
		Zone:      string(table.Zone),
		Status:    string(table.Status),
		CreatedAt: table.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: table.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toTableDTOs(tables []application.Table) []tableDTO {
	out := make([]tableDTO, 0, len(tables))
	for _, table := range tables {
		out = append(out, toTableDTO(table))
	}
	return out
}
