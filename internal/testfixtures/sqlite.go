package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/table-reservations/internal/persistence"
	"github.com/example/table-reservations/internal/persistence/sqlite"
	"github.com/example/table-reservations/internal/persistence/sqlite/migration"
)

// SQLiteHarness provides a migrated temporary SQLite storage for
// integration-style tests.
type SQLiteHarness struct {
	Storage *sqlite.Storage

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens a temporary database file and applies every
// migration. Close is registered with tb.Cleanup.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "reservations.db")
	storage, err := sqlite.Open(migration.TempFileTestSQLiteConfig(path))
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := storage.Migrate(context.Background(), logger); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage: storage,
		cleanup: func() {
			_ = storage.Close()
		},
	}
	tb.Cleanup(harness.Close)
	return harness
}

// InsertAccounts stores the given account fixtures.
func (h *SQLiteHarness) InsertAccounts(tb testing.TB, accounts ...AccountFixture) {
	tb.Helper()
	for _, account := range accounts {
		if err := h.Storage.Accounts.CreateAccount(context.Background(), account.Persistence()); err != nil {
			tb.Fatalf("insert account %s: %v", account.ID, err)
		}
	}
}

// InsertTables stores the given table fixtures.
func (h *SQLiteHarness) InsertTables(tb testing.TB, tables ...TableFixture) {
	tb.Helper()
	for _, table := range tables {
		if err := h.Storage.Tables.CreateTable(context.Background(), table.Persistence()); err != nil {
			tb.Fatalf("insert table %s: %v", table.ID, err)
		}
	}
}

// InsertReservations stores the given reservation fixtures without running
// the availability search.
func (h *SQLiteHarness) InsertReservations(tb testing.TB, reservations ...ReservationFixture) {
	tb.Helper()
	err := h.Storage.Reservations.WithAssignment(context.Background(), func(tx persistence.AssignmentTx) error {
		for _, reservation := range reservations {
			if err := tx.InsertReservation(context.Background(), reservation.Persistence()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		tb.Fatalf("insert reservations: %v", err)
	}
}
