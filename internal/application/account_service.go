package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	confirmationTokenTTL = 72 * time.Hour
	resetTokenTTL        = time.Hour
)

// AccountRepository captures the persistence operations needed for accounts.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account Account) error
	UpdateAccount(ctx context.Context, account Account) error
	GetAccount(ctx context.Context, id string) (Account, error)
	GetAccountByEmail(ctx context.Context, email string) (Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
	CountAccounts(ctx context.Context) (int, error)
}

// AccountService handles sign-up, email confirmation, password reset and
// staff account administration.
type AccountService struct {
	accounts     AccountRepository
	hashPassword PasswordHasher
	tokens       *AccountTokens
	idGenerator  func() string
	now          func() time.Time
	notifier     Notifier
	logger       *slog.Logger
}

// NewAccountService constructs an account service with the provided dependencies.
func NewAccountService(accounts AccountRepository, hasher PasswordHasher, tokens *AccountTokens, idGenerator func() string, now func() time.Time) *AccountService {
	return NewAccountServiceWithLogger(accounts, hasher, tokens, idGenerator, now, nil)
}

// NewAccountServiceWithLogger constructs an account service with a specified logger.
func NewAccountServiceWithLogger(accounts AccountRepository, hasher PasswordHasher, tokens *AccountTokens, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AccountService {
	if hasher == nil {
		hasher = HashPassword
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AccountService{
		accounts:     accounts,
		hashPassword: hasher,
		tokens:       tokens,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

// WithNotifier sets the notification sender.
func (s *AccountService) WithNotifier(notifier Notifier) *AccountService {
	if s != nil {
		s.notifier = notifier
	}
	return s
}

func (s *AccountService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AccountService", operation, attrs...)
}

// Register creates a customer account and mails a confirmation token.
func (s *AccountService) Register(ctx context.Context, params RegisterParams) (account Account, err error) {
	if s == nil {
		err = fmt.Errorf("AccountService is nil")
		return
	}
	if s.accounts == nil {
		err = fmt.Errorf("account repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "Register")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to register account", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("account_id", account.ID).InfoContext(ctx, "account registered")
	}()

	account, err = s.newAccount(params.Name, params.Email, params.Password, params.Phone, RoleCustomer)
	if err != nil {
		return
	}
	if err = mapRepoError(s.accounts.CreateAccount(ctx, account)); err != nil {
		account = Account{}
		return
	}

	if s.tokens != nil {
		token, tokenErr := s.tokens.Issue(TokenPurposeConfirm, account, confirmationTokenTTL)
		if tokenErr != nil {
			logger.WarnContext(ctx, "confirmation token not issued", "error", tokenErr)
		} else {
			deliver(ctx, s.notifier, logger, Notification{
				Kind:     NotifyAccountConfirmation,
				To:       account.Email,
				Subject:  "Confirm your account",
				Body:     "Use the token below to confirm your email address.",
				Metadata: map[string]string{"token": token},
			})
		}
	}
	account.PasswordHash = ""
	return
}

// Confirm marks the account named by a confirmation token as confirmed.
func (s *AccountService) Confirm(ctx context.Context, token string) (account Account, err error) {
	if s == nil {
		err = fmt.Errorf("AccountService is nil")
		return
	}
	if s.accounts == nil {
		err = fmt.Errorf("account repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "Confirm")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to confirm account", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("account_id", account.ID).InfoContext(ctx, "account confirmed")
	}()

	var accountID string
	if accountID, _, err = s.tokens.Parse(TokenPurposeConfirm, strings.TrimSpace(token)); err != nil {
		return
	}
	if account, err = s.accounts.GetAccount(ctx, accountID); err != nil {
		err = mapRepoError(err)
		return
	}
	if !account.Confirmed {
		account.Confirmed = true
		account.UpdatedAt = s.now()
		if err = mapRepoError(s.accounts.UpdateAccount(ctx, account)); err != nil {
			return
		}
	}
	account.PasswordHash = ""
	return
}

// RequestPasswordReset mails a reset token when email belongs to an account.
// Unknown addresses succeed silently.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	if s == nil {
		return fmt.Errorf("AccountService is nil")
	}
	if s.accounts == nil {
		return fmt.Errorf("account repository not configured")
	}

	logger := s.loggerWith(ctx, "RequestPasswordReset")
	account, err := s.accounts.GetAccountByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if err = mapRepoError(err); errors.Is(err, ErrNotFound) {
			logger.InfoContext(ctx, "password reset requested for unknown email")
			return nil
		}
		logger.ErrorContext(ctx, "failed to look up account", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	token, err := s.tokens.Issue(TokenPurposeReset, account, resetTokenTTL)
	if err != nil {
		logger.ErrorContext(ctx, "failed to issue reset token", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	deliver(ctx, s.notifier, logger, Notification{
		Kind:     NotifyPasswordReset,
		To:       account.Email,
		Subject:  "Reset your password",
		Body:     "Use the token below to choose a new password. It expires in one hour.",
		Metadata: map[string]string{"token": token},
	})
	logger.With("account_id", account.ID).InfoContext(ctx, "password reset issued")
	return nil
}

// ResetPassword sets a new password using a reset token. A token stops
// working once the password it was issued against has changed.
func (s *AccountService) ResetPassword(ctx context.Context, params ResetPasswordParams) (err error) {
	if s == nil {
		return fmt.Errorf("AccountService is nil")
	}
	if s.accounts == nil {
		return fmt.Errorf("account repository not configured")
	}

	var accountID string
	logger := s.loggerWith(ctx, "ResetPassword")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to reset password", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("account_id", accountID).InfoContext(ctx, "password reset")
	}()

	vErr := &ValidationError{}
	validatePassword(vErr, "password", params.Password)
	if vErr.HasErrors() {
		return vErr
	}

	var stamp string
	if accountID, stamp, err = s.tokens.Parse(TokenPurposeReset, strings.TrimSpace(params.Token)); err != nil {
		return err
	}
	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return mapRepoError(err)
	}
	if stamp != passwordStamp(account.PasswordHash) {
		return fmt.Errorf("%w: token already used", ErrInvalidToken)
	}

	if account.PasswordHash, err = s.hashPassword(params.Password); err != nil {
		return err
	}
	account.UpdatedAt = s.now()
	return mapRepoError(s.accounts.UpdateAccount(ctx, account))
}

// CreateStaff creates a confirmed staff account. Administrators only.
func (s *AccountService) CreateStaff(ctx context.Context, params CreateStaffParams) (account Account, err error) {
	if s == nil {
		err = fmt.Errorf("AccountService is nil")
		return
	}
	if s.accounts == nil {
		err = fmt.Errorf("account repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateStaff", "principal_id", params.Principal.UserID, "role", params.Role)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create staff account", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("account_id", account.ID).InfoContext(ctx, "staff account created")
	}()

	if !params.Principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}

	role, ok := ParseRole(strings.TrimSpace(params.Role))
	if !ok || role == RoleCustomer {
		vErr := &ValidationError{}
		vErr.add("role", "role must be admin, receptionist or server")
		err = vErr
		return
	}

	account, err = s.newAccount(params.Name, params.Email, params.Password, params.Phone, role)
	if err != nil {
		return
	}
	account.Confirmed = true
	if err = mapRepoError(s.accounts.CreateAccount(ctx, account)); err != nil {
		account = Account{}
		return
	}
	account.PasswordHash = ""
	return
}

// List returns every account without password hashes. Administrators only.
func (s *AccountService) List(ctx context.Context, principal Principal) ([]Account, error) {
	if s == nil {
		return nil, fmt.Errorf("AccountService is nil")
	}
	if !principal.IsAdmin() {
		return nil, ErrUnauthorized
	}
	if s.accounts == nil {
		return nil, nil
	}

	accounts, err := s.accounts.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		accounts[i].PasswordHash = ""
	}
	return accounts, nil
}

// ChangeRole switches an account between customer and receptionist.
// Administrators only, and never on their own account.
func (s *AccountService) ChangeRole(ctx context.Context, params ChangeRoleParams) (account Account, err error) {
	if s == nil {
		err = fmt.Errorf("AccountService is nil")
		return
	}
	if s.accounts == nil {
		err = fmt.Errorf("account repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "ChangeRole",
		"principal_id", params.Principal.UserID,
		"account_id", params.AccountID,
		"role", params.Role,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to change role", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "role changed")
	}()

	if !params.Principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}

	vErr := &ValidationError{}
	role := Role(strings.TrimSpace(params.Role))
	if role != RoleCustomer && role != RoleReceptionist {
		vErr.add("role", "role must be customer or receptionist")
	}
	if strings.TrimSpace(params.AccountID) == params.Principal.UserID {
		vErr.add("account_id", "administrators cannot change their own role")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if account, err = s.accounts.GetAccount(ctx, strings.TrimSpace(params.AccountID)); err != nil {
		err = mapRepoError(err)
		return
	}
	account.Role = role
	account.UpdatedAt = s.now()
	if err = mapRepoError(s.accounts.UpdateAccount(ctx, account)); err != nil {
		account = Account{}
		return
	}
	account.PasswordHash = ""
	return
}

func (s *AccountService) newAccount(name, email, password, phone string, role Role) (Account, error) {
	vErr := &ValidationError{}
	account := Account{
		ID:     s.idGenerator(),
		Name:   strings.TrimSpace(name),
		Email:  strings.ToLower(strings.TrimSpace(email)),
		Phone:  strings.TrimSpace(phone),
		Role:   role,
		Status: AccountActive,
	}

	if account.Name == "" {
		vErr.add("name", "name is required")
	}
	if !validEmail(account.Email) {
		vErr.add("email", "email must be a valid address")
	}
	if account.Phone != "" && !numeric(account.Phone) {
		vErr.add("phone", "phone must contain digits only")
	}
	validatePassword(vErr, "password", password)
	if vErr.HasErrors() {
		return Account{}, vErr
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return Account{}, err
	}
	account.PasswordHash = hash
	account.CreatedAt = s.now()
	account.UpdatedAt = account.CreatedAt
	return account, nil
}
