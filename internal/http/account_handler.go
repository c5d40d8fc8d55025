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

type accountService interface {
	Register(ctx context.Context, params application.RegisterParams) (application.Account, error)
	Confirm(ctx context.Context, token string) (application.Account, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, params application.ResetPasswordParams) error
	CreateStaff(ctx context.Context, params application.CreateStaffParams) (application.Account, error)
	List(ctx context.Context, principal application.Principal) ([]application.Account, error)
	ChangeRole(ctx context.Context, params application.ChangeRoleParams) (application.Account, error)
}

type AccountHandler struct {
	service   accountService
	responder responder
	logger    *slog.Logger
}

func NewAccountHandler(service accountService, logger *slog.Logger) *AccountHandler {
	base := defaultLogger(logger)
	return &AccountHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AccountHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AccountHandler", operation, attrs...)
}

func (h *AccountHandler) ready(w http.ResponseWriter) bool {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return false
	}
	return true
}

// Register handles public sign-up.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Register", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode registration", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Register")
	account, err := h.service.Register(r.Context(), application.RegisterParams{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "registration failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("account_id", account.ID).InfoContext(r.Context(), "account registered")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, accountResponse{Account: toAccountDTO(account)})
}

// Confirm activates an account from the emailed token.
func (h *AccountHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Confirm", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode confirmation", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Confirm")
	account, err := h.service.Confirm(r.Context(), strings.TrimSpace(req.Token))
	if err != nil {
		logger.ErrorContext(r.Context(), "confirmation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("account_id", account.ID).InfoContext(r.Context(), "account confirmed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, accountResponse{Account: toAccountDTO(account)})
}

// RequestPasswordReset always answers 202 so the response does not reveal whether an email is registered.
func (h *AccountHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	var req passwordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "RequestPasswordReset", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode reset request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "RequestPasswordReset")
	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		logger.ErrorContext(r.Context(), "password reset request failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "password reset requested")
	h.responder.writeJSON(r.Context(), w, http.StatusAccepted, messageResponse{
		Message: "If the address is registered, a reset link is on its way.",
	})
}

// ResetPassword completes a password reset.
func (h *AccountHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	var req passwordChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "ResetPassword", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode password change", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "ResetPassword")
	err := h.service.ResetPassword(r.Context(), application.ResetPasswordParams{
		Token:    strings.TrimSpace(req.Token),
		Password: req.Password,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "password reset failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "password reset")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// CreateStaff lets an administrator add a staff account.
func (h *AccountHandler) CreateStaff(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req staffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "CreateStaff", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode staff account", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "CreateStaff", "principal_id", principal.UserID)
	account, err := h.service.CreateStaff(r.Context(), application.CreateStaffParams{
		Principal: principal,
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		Phone:     req.Phone,
		Role:      req.Role,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "staff account creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("account_id", account.ID).InfoContext(r.Context(), "staff account created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, accountResponse{Account: toAccountDTO(account)})
}

func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "List", "principal_id", principal.UserID)

	accounts, err := h.service.List(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "account list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(accounts)).InfoContext(r.Context(), "accounts listed")
	out := make([]accountDTO, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountDTO(a))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listAccountsResponse{Accounts: out})
}

func (h *AccountHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	accountID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(accountID) == "" {
		h.log(r.Context(), "ChangeRole", "error_kind", "bad_request").ErrorContext(r.Context(), "missing account id for role change")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "ChangeRole", "principal_id", principal.UserID, "account_id", accountID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode role change", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "ChangeRole", "principal_id", principal.UserID, "account_id", accountID, "role", req.Role)
	account, err := h.service.ChangeRole(r.Context(), application.ChangeRoleParams{
		Principal: principal,
		AccountID: accountID,
		Role:      req.Role,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "role change failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "role changed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, accountResponse{Account: toAccountDTO(account)})
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

type staffRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

type passwordChangeRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type roleRequest struct {
	Role string `json:"role"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type accountResponse struct {
	Account accountDTO `json:"account"`
}

type listAccountsResponse struct {
	Accounts []accountDTO `json:"accounts"`
}

type accountDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Phone     string `json:"phone,omitempty"`
	Status    string `json:"status"`
	Confirmed bool   `json:"confirmed"`
	CreatedAt string `json:"created_at"`
}

func toAccountDTO(a application.Account) accountDTO {
	return accountDTO{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Role:      string(a.Role),
		Phone:     a.Phone,
		Status:    a.Status,
		Confirmed: a.Confirmed,
		CreatedAt: a.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
