package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/example/table-reservations/internal/persistence"
	"github.com/example/table-reservations/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Storage bundles the SQLite repositories behind one connection pool.
type Storage struct {
	pool *ConnectionPool

	Accounts     *AccountRepository
	Sessions     *SessionRepository
	Tables       *TableRepository
	Reservations *ReservationRepository
	Hours        *HoursRepository
	Policy       *PolicyRepository
}

var (
	_ persistence.AccountRepository     = (*AccountRepository)(nil)
	_ persistence.SessionRepository     = (*SessionRepository)(nil)
	_ persistence.TableRepository       = (*TableRepository)(nil)
	_ persistence.ReservationRepository = (*ReservationRepository)(nil)
	_ persistence.HoursRepository       = (*HoursRepository)(nil)
	_ persistence.PolicyRepository      = (*PolicyRepository)(nil)
)

// Open connects to the database described by config. Call Migrate before use.
func Open(config migration.SQLiteConfig) (*Storage, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	return &Storage{
		pool:         pool,
		Accounts:     NewAccountRepository(pool),
		Sessions:     NewSessionRepository(pool),
		Tables:       NewTableRepository(pool),
		Reservations: NewReservationRepository(pool),
		Hours:        NewHoursRepository(pool),
		Policy:       NewPolicyRepository(pool),
	}, nil
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context, logger *slog.Logger) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("storage is not open")
	}
	manager := migration.NewManager(
		migration.NewDirScanner(migrationFiles, "migrations"),
		migration.NewSQLiteExecutor(s.pool.DB(), logger),
		logger,
	)
	if err := manager.RunMigrations(ctx); err != nil {
		return fmt.Errorf("migrate sqlite schema: %w", err)
	}
	return nil
}

// Ping verifies the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	return s.pool.Close()
}
