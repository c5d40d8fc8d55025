package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/table-reservations/internal/application"
	"github.com/example/table-reservations/internal/persistence"
	"github.com/example/table-reservations/internal/scheduler"
)

var (
	accountCounter     uint64
	tableCounter       uint64
	reservationCounter uint64
)

// referenceTime is a Friday morning, before lunch service.
var referenceTime = time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceDate returns ReferenceTime as a reservation date.
func ReferenceDate() string {
	return scheduler.FormatDate(referenceTime)
}

// ----------------------------- Account fixtures -----------------------------

// AccountFixture is a deterministic account record.
type AccountFixture struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         application.Role
	Phone        string
	Status       string
	Confirmed    bool
	CreatedAt    time.Time
}

type AccountOption func(*AccountFixture)

// NewAccountFixture returns a confirmed customer account with optional overrides.
func NewAccountFixture(opts ...AccountOption) AccountFixture {
	idx := atomic.AddUint64(&accountCounter, 1)
	id := fmt.Sprintf("account-%03d", idx)
	fixture := AccountFixture{
		ID:           id,
		Name:         fmt.Sprintf("Guest %03d", idx),
		Email:        fmt.Sprintf("%s@example.com", id),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		Role:         application.RoleCustomer,
		Phone:        fmt.Sprintf("555%04d", idx),
		Status:       application.AccountActive,
		Confirmed:    true,
		CreatedAt:    referenceTime.Add(-time.Duration(idx) * time.Hour),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithAccountID(id string) AccountOption {
	return func(f *AccountFixture) { f.ID = id }
}

func WithAccountEmail(email string) AccountOption {
	return func(f *AccountFixture) { f.Email = email }
}

func WithAccountRole(role application.Role) AccountOption {
	return func(f *AccountFixture) { f.Role = role }
}

// WithAccountPassword stores a real hash of password so the account can sign in.
func WithAccountPassword(password string) AccountOption {
	return func(f *AccountFixture) {
		hash, err := application.HashPassword(password)
		if err != nil {
			panic(fmt.Sprintf("hash fixture password: %v", err))
		}
		f.PasswordHash = hash
	}
}

func WithAccountDisabled() AccountOption {
	return func(f *AccountFixture) { f.Status = application.AccountDisabled }
}

// Principal returns the principal the account acts as.
func (f AccountFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID, Role: f.Role}
}

func (f AccountFixture) Persistence() persistence.Account {
	return persistence.Account{
		ID:           f.ID,
		Name:         f.Name,
		Email:        f.Email,
		PasswordHash: f.PasswordHash,
		Role:         string(f.Role),
		Phone:        f.Phone,
		Status:       f.Status,
		Confirmed:    f.Confirmed,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.CreatedAt,
	}
}

// ----------------------------- Table fixtures -----------------------------

// TableFixture is a deterministic dining table.
type TableFixture struct {
	ID       string
	Name     string
	Capacity int
	Zone     scheduler.Zone
	Status   scheduler.TableStatus
}

type TableOption func(*TableFixture)

// NewTableFixture returns an active four-top in the interior with optional overrides.
func NewTableFixture(opts ...TableOption) TableFixture {
	idx := atomic.AddUint64(&tableCounter, 1)
	fixture := TableFixture{
		ID:       fmt.Sprintf("table-%03d", idx),
		Name:     fmt.Sprintf("T%d", idx),
		Capacity: 4,
		Zone:     scheduler.ZoneInterior,
		Status:   scheduler.TableActive,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithTableID(id string) TableOption {
	return func(f *TableFixture) { f.ID = id }
}

func WithTableName(name string) TableOption {
	return func(f *TableFixture) { f.Name = name }
}

func WithTableCapacity(capacity int) TableOption {
	return func(f *TableFixture) { f.Capacity = capacity }
}

func WithTableZone(zone scheduler.Zone) TableOption {
	return func(f *TableFixture) { f.Zone = zone }
}

func WithTableInactive() TableOption {
	return func(f *TableFixture) { f.Status = scheduler.TableInactive }
}

func (f TableFixture) Persistence() persistence.Table {
	return persistence.Table{
		ID:        f.ID,
		Name:      f.Name,
		Capacity:  f.Capacity,
		Zone:      string(f.Zone),
		Status:    string(f.Status),
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
}

// Scheduler returns the fixture as seen by the availability search.
func (f TableFixture) Scheduler() scheduler.Table {
	return scheduler.Table{ID: f.ID, Name: f.Name, Capacity: f.Capacity, Zone: f.Zone, Status: f.Status}
}

// ----------------------------- Reservation fixtures -----------------------------

// ReservationFixture is a deterministic reservation on a table.
type ReservationFixture struct {
	ID         string
	CustomerID string
	CreatedBy  string
	TableID    string
	Date       string
	Start      string
	Duration   int
	PartySize  int
	Zone       scheduler.Zone
	State      scheduler.State
	Channel    application.Channel
}

type ReservationOption func(*ReservationFixture)

// NewReservationFixture returns a confirmed 19:00 dinner for two on the reference date.
func NewReservationFixture(tableID string, opts ...ReservationOption) ReservationFixture {
	idx := atomic.AddUint64(&reservationCounter, 1)
	fixture := ReservationFixture{
		ID:        fmt.Sprintf("reservation-%03d", idx),
		TableID:   tableID,
		Date:      ReferenceDate(),
		Start:     "19:00",
		Duration:  application.DefaultPolicy().DefaultDurationMinutes,
		PartySize: 2,
		Zone:      scheduler.ZoneInterior,
		State:     scheduler.StateConfirmed,
		Channel:   application.ChannelWeb,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithReservationID(id string) ReservationOption {
	return func(f *ReservationFixture) { f.ID = id }
}

func WithReservationCustomer(id string) ReservationOption {
	return func(f *ReservationFixture) { f.CustomerID = id }
}

// WithReservationCreator sets the account that made the booking. It defaults
// to the customer.
func WithReservationCreator(id string) ReservationOption {
	return func(f *ReservationFixture) { f.CreatedBy = id }
}

func WithReservationSlot(date, start string) ReservationOption {
	return func(f *ReservationFixture) {
		f.Date = date
		f.Start = start
	}
}

func WithReservationState(state scheduler.State) ReservationOption {
	return func(f *ReservationFixture) { f.State = state }
}

func WithReservationParty(size int) ReservationOption {
	return func(f *ReservationFixture) { f.PartySize = size }
}

func WithReservationZone(zone scheduler.Zone) ReservationOption {
	return func(f *ReservationFixture) { f.Zone = zone }
}

// Persistence renders the fixture as a stored row. It panics on a malformed start time.
func (f ReservationFixture) Persistence() persistence.Reservation {
	start, err := scheduler.ParseClock(f.Start)
	if err != nil {
		panic(fmt.Sprintf("reservation fixture %s: %v", f.ID, err))
	}
	interval := scheduler.NewInterval(start, f.Duration)

	var customerID *string
	if f.CustomerID != "" {
		id := f.CustomerID
		customerID = &id
	}
	var tableID *string
	if f.TableID != "" {
		id := f.TableID
		tableID = &id
	}
	creator := f.CreatedBy
	if creator == "" {
		creator = f.CustomerID
	}
	return persistence.Reservation{
		ID:            f.ID,
		CustomerID:    customerID,
		CreatedByID:   creator,
		TableID:       tableID,
		CustomerName:  "Fixture Guest",
		CustomerEmail: "guest@example.com",
		CustomerPhone: "5550000",
		Date:          f.Date,
		StartTime:     interval.Start.String(),
		EndTime:       interval.End.String(),
		PartySize:     f.PartySize,
		Zone:          string(f.Zone),
		State:         string(f.State),
		Channel:       string(f.Channel),
		CreatedAt:     referenceTime,
		UpdatedAt:     referenceTime,
	}
}
