package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/table-reservations/internal/persistence"
	"github.com/example/table-reservations/internal/persistence/sqlite/migration"
)

// ConnectionPool wraps the shared database handle and its transaction helpers.
type ConnectionPool struct {
	db     *sql.DB
	config migration.SQLiteConfig
	retry  busyRetry
}

func NewConnectionPool(config migration.SQLiteConfig) (*ConnectionPool, error) {
	db, err := migration.NewConnectionManager(config).GetConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return &ConnectionPool{
		db:     db,
		config: config,
		retry:  defaultBusyRetry(),
	}, nil
}

func (cp *ConnectionPool) DB() *sql.DB {
	return cp.db
}

func (cp *ConnectionPool) Close() error {
	if cp.db != nil {
		return cp.db.Close()
	}
	return nil
}

func (cp *ConnectionPool) Ping(ctx context.Context) error {
	return cp.db.PingContext(ctx)
}

// querier is satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTransaction executes fn within a deferred transaction. The transaction
// is rolled back when fn returns an error or panics.
func (cp *ConnectionPool) WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := cp.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed (rollback error: %v): %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// WithImmediateTransaction runs fn inside BEGIN IMMEDIATE on a dedicated
// connection, so the write lock is held from the first read until commit.
// Acquiring the lock is retried while the database is busy; fn itself runs
// at most once.
func (cp *ConnectionPool) WithImmediateTransaction(ctx context.Context, fn func(q querier) error) error {
	conn, err := cp.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	begin := func() error {
		_, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE")
		return err
	}
	if err := cp.retry.do(ctx, begin); err != nil {
		return fmt.Errorf("failed to begin immediate transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			// context may already be cancelled; rollback must still run
			_, _ = conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK")
		}
	}()

	if err := fn(conn); err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", mapError(err))
	}
	committed = true
	return nil
}

// mapError turns driver errors into persistence sentinels, keeping the
// driver message for logs. The overlap trigger raises "reservation overlap".
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}

	msg := err.Error()
	for _, c := range constraintErrors {
		if strings.Contains(msg, c.marker) {
			return fmt.Errorf("%w: %v", c.sentinel, err)
		}
	}
	return err
}

var constraintErrors = []struct {
	marker   string
	sentinel error
}{
	{"reservation overlap", persistence.ErrOverlap},
	{"UNIQUE constraint failed", persistence.ErrDuplicate},
	{"FOREIGN KEY constraint failed", persistence.ErrForeignKeyViolation},
	{"CHECK constraint failed", persistence.ErrConstraintViolation},
	{"NOT NULL constraint failed", persistence.ErrConstraintViolation},
}

// busyRetry waits out SQLITE_BUSY with doubling delays.
type busyRetry struct {
	attempts int
	delay    time.Duration
	maxDelay time.Duration
}

func defaultBusyRetry() busyRetry {
	return busyRetry{attempts: 4, delay: 50 * time.Millisecond, maxDelay: time.Second}
}

func (b busyRetry) do(ctx context.Context, fn func() error) error {
	delay := b.delay
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil || !isBusy(err) {
			return err
		}
		if attempt >= b.attempts {
			return fmt.Errorf("database still busy after %d attempts: %w", attempt, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, b.maxDelay)
	}
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

const timeLayout = time.RFC3339

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(field, value string) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", field, err)
	}
	return t, nil
}

func nullableString(value *string) sql.NullString {
	if value == nil || *value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// requireAffected converts a zero-row update or delete into ErrNotFound.
func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
