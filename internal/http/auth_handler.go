package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/table-reservations/internal/application"
)

const sessionCookieName = "reservations_session"

type authService interface {
	Authenticate(ctx context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error)
	RevokeSession(ctx context.Context, token string) error
}

// AuthHandler signs customers and staff in and out.
type AuthHandler struct {
	service   authService
	responder responder
	logger    *slog.Logger
}

func NewAuthHandler(service authService, logger *slog.Logger) *AuthHandler {
	base := defaultLogger(logger)
	return &AuthHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AuthHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AuthHandler", operation, attrs...)
}

func (h *AuthHandler) ready(w http.ResponseWriter) bool {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return false
	}
	return true
}

// CreateSession exchanges an email and password for a session token, returned
// both in the body and as an HTTP-only cookie.
func (h *AuthHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "CreateSession", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode sign-in request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "CreateSession", "email", strings.ToLower(strings.TrimSpace(req.Email)))
	result, err := h.service.Authenticate(r.Context(), application.AuthenticateParams{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		level := slog.LevelError
		if errors.Is(err, application.ErrInvalidCredentials) || errors.Is(err, application.ErrAccountDisabled) {
			level = slog.LevelWarn
		}
		logger.Log(r.Context(), level, "sign-in rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	http.SetCookie(w, sessionCookie(result.Session.Token, result.Session.ExpiresAt))
	logger.InfoContext(r.Context(), "signed in", "account_id", result.Account.ID, "role", result.Account.Role)
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, loginResponse{
		Token:     result.Session.Token,
		ExpiresAt: result.Session.ExpiresAt.UTC().Format(time.RFC3339),
		Home:      homeFor(result.Account.Role),
		Account:   toAccountDTO(result.Account),
	})
}

// DeleteCurrentSession revokes the token the request was made with.
func (h *AuthHandler) DeleteCurrentSession(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	logger := h.log(r.Context(), "DeleteCurrentSession")
	token := extractTokenFromRequest(r)
	if token == "" {
		logger.WarnContext(r.Context(), "sign-out without a session token")
		h.responder.writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_SESSION_EXPIRED",
			Message:   errMissingSessionToken.Error(),
		})
		return
	}

	if err := h.service.RevokeSession(r.Context(), token); err != nil {
		logger.ErrorContext(r.Context(), "sign-out failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	http.SetCookie(w, sessionCookie("", time.Time{}))
	logger.InfoContext(r.Context(), "signed out")
	w.WriteHeader(http.StatusNoContent)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string     `json:"token"`
	ExpiresAt string     `json:"expires_at"`
	Home      string     `json:"home"`
	Account   accountDTO `json:"account"`
}

// homeFor is the page a client should open after sign-in.
func homeFor(role application.Role) string {
	switch role {
	case application.RoleAdmin:
		return "/admin/dashboard"
	case application.RoleReceptionist:
		return "/admin/reservations"
	case application.RoleServer:
		return "/tables/occupancy"
	default:
		return "/my-reservations"
	}
}

// sessionCookie carries token until expires. An empty token yields a cookie
// that clears the session in the browser.
func sessionCookie(token string, expires time.Time) *http.Cookie {
	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
	switch {
	case token == "":
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
	case !expires.IsZero():
		cookie.Expires = expires.UTC()
	}
	return cookie
}

// extractTokenFromRequest prefers a bearer Authorization header over the cookie.
func extractTokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
