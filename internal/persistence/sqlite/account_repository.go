package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/example/table-reservations/internal/persistence"
)

const accountColumns = `id, name, email, password_hash, role, phone, notes, status, confirmed, created_at, updated_at`

// AccountRepository implements persistence.AccountRepository using SQLite
type AccountRepository struct {
	pool *ConnectionPool
}

// NewAccountRepository creates a new SQLite account repository
func NewAccountRepository(pool *ConnectionPool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// CreateAccount inserts a new account. Emails are unique case-insensitively.
func (r *AccountRepository) CreateAccount(ctx context.Context, account persistence.Account) error {
	if account.ID == "" || normalizeEmail(account.Email) == "" {
		return persistence.ErrConstraintViolation
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	if account.UpdatedAt.IsZero() {
		account.UpdatedAt = account.CreatedAt
	}
	if account.Status == "" {
		account.Status = "active"
	}

	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID,
		strings.TrimSpace(account.Name),
		normalizeEmail(account.Email),
		account.PasswordHash,
		account.Role,
		account.Phone,
		account.Notes,
		account.Status,
		boolToInt(account.Confirmed),
		formatTime(account.CreatedAt),
		formatTime(account.UpdatedAt),
	)
	return mapError(err)
}

// UpdateAccount replaces the mutable fields of an account.
func (r *AccountRepository) UpdateAccount(ctx context.Context, account persistence.Account) error {
	if account.ID == "" || normalizeEmail(account.Email) == "" {
		return persistence.ErrConstraintViolation
	}
	if account.UpdatedAt.IsZero() {
		account.UpdatedAt = time.Now().UTC()
	}

	result, err := r.pool.DB().ExecContext(ctx, `
		UPDATE accounts
		SET name = ?, email = ?, password_hash = ?, role = ?, phone = ?, notes = ?,
			status = ?, confirmed = ?, updated_at = ?
		WHERE id = ?`,
		strings.TrimSpace(account.Name),
		normalizeEmail(account.Email),
		account.PasswordHash,
		account.Role,
		account.Phone,
		account.Notes,
		account.Status,
		boolToInt(account.Confirmed),
		formatTime(account.UpdatedAt),
		account.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result)
}

// GetAccount retrieves an account by id.
func (r *AccountRepository) GetAccount(ctx context.Context, id string) (persistence.Account, error) {
	if id == "" {
		return persistence.Account{}, persistence.ErrNotFound
	}
	return r.getOne(ctx, `WHERE id = ?`, id)
}

// GetAccountByEmail retrieves an account by email, ignoring case.
func (r *AccountRepository) GetAccountByEmail(ctx context.Context, email string) (persistence.Account, error) {
	normalized := normalizeEmail(email)
	if normalized == "" {
		return persistence.Account{}, persistence.ErrNotFound
	}
	return r.getOne(ctx, `WHERE email = ?`, normalized)
}

// ListAccounts returns every account ordered by name.
func (r *AccountRepository) ListAccounts(ctx context.Context) ([]persistence.Account, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var accounts []persistence.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return accounts, nil
}

// CountAccounts returns the number of stored accounts.
func (r *AccountRepository) CountAccounts(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count); err != nil {
		return 0, mapError(err)
	}
	return count, nil
}

func (r *AccountRepository) getOne(ctx context.Context, where string, args ...any) (persistence.Account, error) {
	row := r.pool.DB().QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts `+where, args...)
	account, err := scanAccount(row)
	if err != nil {
		return persistence.Account{}, mapError(err)
	}
	return account, nil
}

func scanAccount(row rowScanner) (persistence.Account, error) {
	var (
		account              persistence.Account
		confirmed            int
		createdAt, updatedAt string
	)
	err := row.Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&account.PasswordHash,
		&account.Role,
		&account.Phone,
		&account.Notes,
		&account.Status,
		&confirmed,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Account{}, err
	}

	account.Confirmed = confirmed != 0
	if account.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Account{}, err
	}
	if account.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Account{}, err
	}
	return account, nil
}

// normalizeEmail normalizes email addresses for consistent storage and lookup
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
