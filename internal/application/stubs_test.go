package application

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/example/table-reservations/internal/persistence"
	"github.com/example/table-reservations/internal/scheduler"
)

var fixedNow = time.Date(2024, time.March, 14, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func sequenceIDs(prefix string) func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}

// memoryStore is an in-memory table and reservation store. WithAssignment
// serialises callers and discards writes made by a failing callback.
type memoryStore struct {
	mu           sync.Mutex
	tables       []Table
	reservations map[string]Reservation

	assignCalls int
	updateErr   error
	deleteErr   error
	listErr     error
	deletedFrom string
}

func newMemoryStore(tables ...Table) *memoryStore {
	return &memoryStore{tables: tables, reservations: map[string]Reservation{}}
}

func (m *memoryStore) add(r Reservation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reservations[r.ID] = r
}

func (m *memoryStore) get(id string) Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reservations[id]
}

func (m *memoryStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reservations)
}

func (m *memoryStore) GetReservation(ctx context.Context, id string) (Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return Reservation{}, persistence.ErrNotFound
	}
	return r, nil
}

func (m *memoryStore) UpdateReservation(ctx context.Context, r Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked(r)
}

func (m *memoryStore) updateLocked(r Reservation) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.reservations[r.ID]; !ok {
		return persistence.ErrNotFound
	}
	m.reservations[r.ID] = r
	return nil
}

func (m *memoryStore) DeleteReservation(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.reservations[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.reservations, id)
	return nil
}

func (m *memoryStore) ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []Reservation
	for _, r := range m.reservations {
		switch {
		case filter.CustomerID != "" && r.CustomerID != filter.CustomerID,
			filter.TableID != "" && r.TableID != filter.TableID,
			filter.State != "" && string(r.State) != filter.State,
			filter.Zone != "" && string(r.Zone) != filter.Zone,
			filter.DateFrom != "" && r.Date < filter.DateFrom,
			filter.DateTo != "" && r.Date > filter.DateTo:
			continue
		}
		out = append(out, r)
	}
	sortReservations(out)
	return out, nil
}

func (m *memoryStore) WithAssignment(ctx context.Context, fn func(tx AssignmentTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignCalls++

	snapshot := make(map[string]Reservation, len(m.reservations))
	for id, r := range m.reservations {
		snapshot[id] = r
	}
	if err := fn(memoryTx{m}); err != nil {
		m.reservations = snapshot
		return err
	}
	return nil
}

func (m *memoryStore) CreateTable(ctx context.Context, table Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tables {
		if t.Name == table.Name {
			return persistence.ErrDuplicate
		}
	}
	m.tables = append(m.tables, table)
	return nil
}

func (m *memoryStore) UpdateTable(ctx context.Context, table Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.tables {
		if t.ID == table.ID {
			m.tables[i] = table
			return nil
		}
	}
	return persistence.ErrNotFound
}

func (m *memoryStore) GetTable(ctx context.Context, id string) (Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tables {
		if t.ID == id {
			return t, nil
		}
	}
	return Table{}, persistence.ErrNotFound
}

func (m *memoryStore) ListTables(ctx context.Context) ([]Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Table, len(m.tables))
	copy(out, m.tables)
	return out, nil
}

func (m *memoryStore) DeleteTable(ctx context.Context, id, activeFrom string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletedFrom = activeFrom
	for _, r := range m.reservations {
		if r.TableID == id && r.Date >= activeFrom {
			return persistence.ErrForeignKeyViolation
		}
	}
	for i, t := range m.tables {
		if t.ID == id {
			m.tables = append(m.tables[:i], m.tables[i+1:]...)
			return nil
		}
	}
	return persistence.ErrNotFound
}

type memoryTx struct {
	m *memoryStore
}

func (tx memoryTx) CountTables(ctx context.Context) (int, error) {
	return len(tx.m.tables), nil
}

func (tx memoryTx) ListTablesInZone(ctx context.Context, zone scheduler.Zone) ([]Table, error) {
	var out []Table
	for _, t := range tx.m.tables {
		if t.Zone == zone {
			out = append(out, t)
		}
	}
	return out, nil
}

func (tx memoryTx) ListTableReservations(ctx context.Context, tableID, date string) ([]Reservation, error) {
	var out []Reservation
	for _, r := range tx.m.reservations {
		if r.TableID == tableID && r.Date == date {
			out = append(out, r)
		}
	}
	sortReservations(out)
	return out, nil
}

func (tx memoryTx) GetReservation(ctx context.Context, id string) (Reservation, error) {
	r, ok := tx.m.reservations[id]
	if !ok {
		return Reservation{}, persistence.ErrNotFound
	}
	return r, nil
}

func (tx memoryTx) InsertReservation(ctx context.Context, r Reservation) error {
	if _, exists := tx.m.reservations[r.ID]; exists {
		return persistence.ErrDuplicate
	}
	tx.m.reservations[r.ID] = r
	return nil
}

func (tx memoryTx) UpdateReservation(ctx context.Context, r Reservation) error {
	return tx.m.updateLocked(r)
}

func sortReservations(list []Reservation) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Date != list[j].Date {
			return list[i].Date < list[j].Date
		}
		if list[i].Start != list[j].Start {
			return list[i].Start < list[j].Start
		}
		return list[i].ID < list[j].ID
	})
}

type hoursStub struct {
	open  bool
	err   error
	calls int
}

func (h *hoursStub) IsWithinHours(ctx context.Context, date string, at scheduler.Clock) (bool, error) {
	h.calls++
	return h.open, h.err
}

type policyStub struct {
	policy Policy
	err    error
}

func (p policyStub) GetOrInitialize(ctx context.Context) (Policy, error) {
	return p.policy, p.err
}

type notifierStub struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (n *notifierStub) Send(ctx context.Context, notification Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
	return n.err
}

type metricsStub struct {
	outcomes []string
}

func (m *metricsStub) ObserveReservation(outcome string) {
	m.outcomes = append(m.outcomes, outcome)
}

func interiorTable(id string, capacity int) Table {
	return Table{
		ID:       id,
		Name:     "T" + id,
		Capacity: capacity,
		Zone:     scheduler.ZoneInterior,
		Status:   scheduler.TableActive,
	}
}

func mustClock(value string) scheduler.Clock {
	c, err := scheduler.ParseClock(value)
	if err != nil {
		panic(err)
	}
	return c
}

var (
	customer     = Principal{UserID: "customer-1", Role: RoleCustomer}
	receptionist = Principal{UserID: "staff-1", Role: RoleReceptionist}
	admin        = Principal{UserID: "admin-1", Role: RoleAdmin}
	server       = Principal{UserID: "server-1", Role: RoleServer}
)

type hoursRepoStub struct {
	windows   []OperatingHours
	upserted  []OperatingHours
	deleted   []string
	listErr   error
	deleteErr error
}

func (h *hoursRepoStub) UpsertHours(ctx context.Context, hours OperatingHours) error {
	h.upserted = append(h.upserted, hours)
	return nil
}

func (h *hoursRepoStub) ListHours(ctx context.Context) ([]OperatingHours, error) {
	if h.listErr != nil {
		return nil, h.listErr
	}
	return h.windows, nil
}

func (h *hoursRepoStub) DeleteHours(ctx context.Context, id string) error {
	if h.deleteErr != nil {
		return h.deleteErr
	}
	h.deleted = append(h.deleted, id)
	return nil
}
