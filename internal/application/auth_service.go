package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const defaultSessionTTL = 24 * time.Hour

// CredentialStore is the account lookup the auth service signs in against.
type CredentialStore interface {
	GetAccountByEmail(ctx context.Context, email string) (Account, error)
	GetAccount(ctx context.Context, id string) (Account, error)
}

// SessionRepository stores the opaque session tokens handed to customers and staff.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// AuthService signs accounts in and resolves session tokens back to the
// principal acting on each request. The role is read from the account on
// every validation, so a role change applies without a new login.
type AuthService struct {
	accounts CredentialStore
	sessions SessionRepository
	verify   PasswordVerifier
	newToken func() string
	now      func() time.Time
	ttl      time.Duration
	logger   *slog.Logger
}

func NewAuthService(accounts CredentialStore, sessions SessionRepository, verify PasswordVerifier, newToken func() string, now func() time.Time, ttl time.Duration) *AuthService {
	return NewAuthServiceWithLogger(accounts, sessions, verify, newToken, now, ttl, nil)
}

func NewAuthServiceWithLogger(accounts CredentialStore, sessions SessionRepository, verify PasswordVerifier, newToken func() string, now func() time.Time, ttl time.Duration, logger *slog.Logger) *AuthService {
	s := &AuthService{
		accounts: accounts,
		sessions: sessions,
		verify:   verify,
		newToken: newToken,
		now:      now,
		ttl:      ttl,
		logger:   defaultLogger(logger),
	}
	if s.verify == nil {
		s.verify = VerifyPassword
	}
	if s.newToken == nil {
		s.newToken = func() string { return "" }
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.ttl <= 0 {
		s.ttl = defaultSessionTTL
	}
	return s
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Authenticate checks an email and password and opens a session for the account.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (result AuthenticateResult, err error) {
	if s == nil {
		return result, fmt.Errorf("AuthService is nil")
	}
	if s.accounts == nil {
		return result, fmt.Errorf("credential store not configured")
	}

	email := strings.ToLower(strings.TrimSpace(params.Email))
	logger := s.loggerWith(ctx, "Authenticate", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "sign in failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"account_id", result.Account.ID,
			"role", result.Account.Role,
			"session_expires_at", result.Session.ExpiresAt,
		).InfoContext(ctx, "signed in")
	}()

	account, err := s.checkCredentials(ctx, email, params.Password)
	if err != nil {
		return result, err
	}
	session, err := s.openSession(ctx, account)
	if err != nil {
		return result, err
	}

	account.PasswordHash = ""
	return AuthenticateResult{Account: account, Session: session}, nil
}

// checkCredentials returns the active account matching email and password.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *AuthService) checkCredentials(ctx context.Context, email, password string) (Account, error) {
	if email == "" || password == "" {
		return Account{}, ErrInvalidCredentials
	}

	account, err := s.accounts.GetAccountByEmail(ctx, email)
	switch {
	case errors.Is(mapRepoError(err), ErrNotFound):
		return Account{}, ErrInvalidCredentials
	case err != nil:
		return Account{}, err
	case account.Status == AccountDisabled:
		return Account{}, ErrAccountDisabled
	}

	if err := s.verify(account.PasswordHash, password); err != nil {
		return Account{}, ErrInvalidCredentials
	}
	return account, nil
}

// openSession sweeps expired sessions and stores a new one for account.
func (s *AuthService) openSession(ctx context.Context, account Account) (Session, error) {
	now := s.now()
	session := Session{
		ID:        s.newToken(),
		AccountID: account.ID,
		Token:     s.newToken(),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if session.Token == "" {
		session.Token = session.ID
	}
	if s.sessions == nil {
		return session, nil
	}

	if err := s.sessions.DeleteExpiredSessions(ctx, now); err != nil {
		return Session{}, err
	}
	return s.sessions.CreateSession(ctx, session)
}

// RevokeSession signs the holder of token out.
func (s *AuthService) RevokeSession(ctx context.Context, token string) (err error) {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.sessions == nil {
		return fmt.Errorf("session repository not configured")
	}

	logger := s.loggerWith(ctx, "RevokeSession")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "sign out failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "signed out")
	}()

	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidCredentials
	}
	if _, err = s.sessions.RevokeSession(ctx, token, s.now()); err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}
	return nil
}

// ValidateSession resolves token to the principal of a live session on an
// active account.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (principal Principal, err error) {
	if s == nil {
		return principal, fmt.Errorf("AuthService is nil")
	}
	if s.sessions == nil || s.accounts == nil {
		return principal, fmt.Errorf("auth stores not configured")
	}

	token = strings.TrimSpace(token)
	logger := s.loggerWith(ctx, "ValidateSession", "token_provided", token != "")
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "session rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "session accepted", "principal_id", principal.UserID, "role", principal.Role)
	}()

	if token == "" {
		return principal, ErrInvalidCredentials
	}

	session, err := s.liveSession(ctx, token)
	if err != nil {
		return principal, err
	}

	account, err := s.accounts.GetAccount(ctx, session.AccountID)
	switch {
	case errors.Is(mapRepoError(err), ErrNotFound):
		return principal, ErrUnauthorized
	case err != nil:
		return principal, err
	case account.Status == AccountDisabled:
		return principal, ErrAccountDisabled
	}
	return Principal{UserID: account.ID, Role: account.Role}, nil
}

func (s *AuthService) liveSession(ctx context.Context, token string) (Session, error) {
	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			return Session{}, ErrUnauthorized
		}
		return Session{}, err
	}
	if session.RevokedAt != nil && !session.RevokedAt.IsZero() {
		return Session{}, ErrSessionRevoked
	}
	if !session.ExpiresAt.IsZero() && !session.ExpiresAt.After(s.now()) {
		return Session{}, ErrSessionExpired
	}
	return session, nil
}
