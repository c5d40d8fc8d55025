package persistence

import (
	"context"
	"time"
)

// AccountRepository exposes CRUD operations for accounts.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account Account) error
	UpdateAccount(ctx context.Context, account Account) error
	GetAccount(ctx context.Context, id string) (Account, error)
	GetAccountByEmail(ctx context.Context, email string) (Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
	CountAccounts(ctx context.Context) (int, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// TableRepository exposes CRUD operations for dining tables.
type TableRepository interface {
	CreateTable(ctx context.Context, table Table) error
	UpdateTable(ctx context.Context, table Table) error
	GetTable(ctx context.Context, id string) (Table, error)
	ListTables(ctx context.Context) ([]Table, error)
	// DeleteTable removes a table. It fails with ErrForeignKeyViolation while a
	// reservation dated activeFrom or later references the table; older
	// reservations are detached.
	DeleteTable(ctx context.Context, id, activeFrom string) error
}

// ReservationFilter narrows reservation queries. Empty fields do not filter.
type ReservationFilter struct {
	CustomerID string
	TableID    string
	State      string
	Zone       string
	DateFrom   string
	DateTo     string
}

// AssignmentTx is the view of storage available inside a write-locked
// reservation transaction.
type AssignmentTx interface {
	CountTables(ctx context.Context) (int, error)
	ListTablesInZone(ctx context.Context, zone string) ([]Table, error)
	ListTableReservations(ctx context.Context, tableID, date string) ([]Reservation, error)
	GetReservation(ctx context.Context, id string) (Reservation, error)
	InsertReservation(ctx context.Context, reservation Reservation) error
	UpdateReservation(ctx context.Context, reservation Reservation) error
}

// ReservationRepository stores reservations.
type ReservationRepository interface {
	GetReservation(ctx context.Context, id string) (Reservation, error)
	UpdateReservation(ctx context.Context, reservation Reservation) error
	DeleteReservation(ctx context.Context, id string) error
	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
	WithAssignment(ctx context.Context, fn func(tx AssignmentTx) error) error
}

// HoursRepository stores operating hours.
type HoursRepository interface {
	UpsertHours(ctx context.Context, hours OperatingHours) error
	GetHours(ctx context.Context, id string) (OperatingHours, error)
	ListHours(ctx context.Context) ([]OperatingHours, error)
	DeleteHours(ctx context.Context, id string) error
}

// PolicyRepository stores the singleton booking policy.
type PolicyRepository interface {
	GetPolicy(ctx context.Context) (Policy, error)
	SavePolicy(ctx context.Context, policy Policy) error
}
