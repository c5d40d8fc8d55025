package http

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/table-reservations/internal/application"
	"github.com/example/table-reservations/internal/export"
	"github.com/example/table-reservations/internal/scheduler"
)

type reportService interface {
	Summary(ctx context.Context, principal application.Principal) (application.ReportSummary, error)
	Dashboard(ctx context.Context, principal application.Principal) (application.Dashboard, error)
}

type ReportHandler struct {
	service   reportService
	responder responder
	logger    *slog.Logger
}

func NewReportHandler(service reportService, logger *slog.Logger) *ReportHandler {
	base := defaultLogger(logger)
	return &ReportHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ReportHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ReportHandler", operation, attrs...)
}

func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	summary, err := h.service.Summary(r.Context(), principal)
	if err != nil {
		h.log(r.Context(), "Summary", "principal_id", principal.UserID).
			ErrorContext(r.Context(), "report failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSummaryDTO(summary))
}

func (h *ReportHandler) ExportSummary(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "ExportSummary", "principal_id", principal.UserID)
	summary, err := h.service.Summary(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "report failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Summary(&buf, summary); err != nil {
		logger.ErrorContext(r.Context(), "failed to render workbook", "error", err)
		h.responder.writeJSON(r.Context(), w, http.StatusInternalServerError, errorResponse{Message: genericFailureMessage})
		return
	}

	logger.InfoContext(r.Context(), "report exported")
	writeAttachment(w, export.Filename("summary", scheduler.FormatDate(summary.GeneratedAt)), buf.Bytes())
}

func (h *ReportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	dashboard, err := h.service.Dashboard(r.Context(), principal)
	if err != nil {
		h.log(r.Context(), "Dashboard", "principal_id", principal.UserID).
			ErrorContext(r.Context(), "dashboard failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, dashboardDTO{
		TotalReservations: dashboard.TotalReservations,
		TodayReservations: dashboard.TodayReservations,
		Accounts:          dashboard.Accounts,
	})
}

type countDTO struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type tableUsageDTO struct {
	TableID  string `json:"table_id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	Zone     string `json:"zone"`
	Count    int    `json:"count"`
}

type summaryDTO struct {
	GeneratedAt      string          `json:"generated_at"`
	PerDay           []countDTO      `json:"per_day"`
	TopDays          []countDTO      `json:"top_days"`
	ByWeekday        []countDTO      `json:"by_weekday"`
	ByState          []countDTO      `json:"by_state"`
	ByChannel        []countDTO      `json:"by_channel"`
	TopHours         []countDTO      `json:"top_hours"`
	TableUsage       []tableUsageDTO `json:"table_usage"`
	AveragePartySize float64         `json:"average_party_size"`
	NoShows          int             `json:"no_shows"`
	NoShowRate       float64         `json:"no_show_rate"`
	Total30          int             `json:"total_30_days"`
	Confirmed30      int             `json:"confirmed_30_days"`
	Cancelled90      int             `json:"cancelled_90_days"`
	Total120         int             `json:"total_120_days"`
}

type dashboardDTO struct {
	TotalReservations int `json:"total_reservations"`
	TodayReservations int `json:"today_reservations"`
	Accounts          int `json:"accounts"`
}

func toCountDTOs(entries []application.CountEntry) []countDTO {
	out := make([]countDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, countDTO{Label: e.Label, Count: e.Count})
	}
	return out
}

func toSummaryDTO(s application.ReportSummary) summaryDTO {
	usage := make([]tableUsageDTO, 0, len(s.TableUsage))
	for _, u := range s.TableUsage {
		usage = append(usage, tableUsageDTO{TableID: u.TableID, Name: u.Name, Capacity: u.Capacity, Zone: string(u.Zone), Count: u.Count})
	}
	return summaryDTO{
		GeneratedAt:      s.GeneratedAt.UTC().Format(time.RFC3339),
		PerDay:           toCountDTOs(s.PerDay),
		TopDays:          toCountDTOs(s.TopDays),
		ByWeekday:        toCountDTOs(s.ByWeekday),
		ByState:          toCountDTOs(s.ByState),
		ByChannel:        toCountDTOs(s.ByChannel),
		TopHours:         toCountDTOs(s.TopHours),
		TableUsage:       usage,
		AveragePartySize: s.AveragePartySize,
		NoShows:          s.NoShows,
		NoShowRate:       s.NoShowRate,
		Total30:          s.Total30,
		Confirmed30:      s.Confirmed30,
		Cancelled90:      s.Cancelled90,
		Total120:         s.Total120,
	}
}
