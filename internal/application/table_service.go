package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/table-reservations/internal/persistence"
	"github.com/example/table-reservations/internal/scheduler"
)

// TableRepository captures the persistence operations needed for tables.
type TableRepository interface {
	CreateTable(ctx context.Context, table Table) error
	UpdateTable(ctx context.Context, table Table) error
	GetTable(ctx context.Context, id string) (Table, error)
	ListTables(ctx context.Context) ([]Table, error)
	DeleteTable(ctx context.Context, id, activeFrom string) error
}

// ReservationLister lists reservations matching a filter.
type ReservationLister interface {
	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
}

// TableService manages the dining room layout.
type TableService struct {
	tables       TableRepository
	reservations ReservationLister
	idGenerator  func() string
	now          func() time.Time
	loc          *time.Location
	logger       *slog.Logger
}

// NewTableService constructs a table service with the provided dependencies.
func NewTableService(tables TableRepository, reservations ReservationLister, idGenerator func() string, now func() time.Time) *TableService {
	return NewTableServiceWithLogger(tables, reservations, idGenerator, now, nil)
}

// NewTableServiceWithLogger constructs a table service with a specified logger.
func NewTableServiceWithLogger(tables TableRepository, reservations ReservationLister, idGenerator func() string, now func() time.Time, logger *slog.Logger) *TableService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &TableService{
		tables:       tables,
		reservations: reservations,
		idGenerator:  idGenerator,
		now:          now,
		loc:          time.UTC,
		logger:       defaultLogger(logger),
	}
}

// WithLocation sets the restaurant's wall-clock time zone.
func (s *TableService) WithLocation(loc *time.Location) *TableService {
	if s != nil && loc != nil {
		s.loc = loc
	}
	return s
}

func (s *TableService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "TableService", operation, attrs...)
}

// Create validates input and stores a new table.
func (s *TableService) Create(ctx context.Context, principal Principal, input TableInput) (table Table, err error) {
	if s == nil {
		err = fmt.Errorf("TableService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Create", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create table", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("table_id", table.ID).InfoContext(ctx, "table created")
	}()

	if !principal.IsStaff() {
		err = ErrUnauthorized
		return
	}

	var vErr *ValidationError
	table, vErr = parseTableInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}
	table.ID = s.idGenerator()
	table.CreatedAt = s.now()
	table.UpdatedAt = table.CreatedAt

	if s.tables != nil {
		err = mapTableRepoError(s.tables.CreateTable(ctx, table))
	}
	return
}

// Update validates input and replaces an existing table's fields.
func (s *TableService) Update(ctx context.Context, principal Principal, id string, input TableInput) (table Table, err error) {
	if s == nil {
		err = fmt.Errorf("TableService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Update", "principal_id", principal.UserID, "table_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update table", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "table updated")
	}()

	if !principal.IsStaff() {
		err = ErrUnauthorized
		return
	}
	if s.tables == nil {
		err = fmt.Errorf("table repository not configured")
		return
	}

	var existing Table
	existing, err = s.tables.GetTable(ctx, strings.TrimSpace(id))
	if err != nil {
		err = mapTableRepoError(err)
		return
	}

	var vErr *ValidationError
	table, vErr = parseTableInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}
	table.ID = existing.ID
	table.CreatedAt = existing.CreatedAt
	table.UpdatedAt = s.now()

	err = mapTableRepoError(s.tables.UpdateTable(ctx, table))
	return
}

// Delete removes a table. Tables referenced by a reservation dated today or
// later cannot be removed.
func (s *TableService) Delete(ctx context.Context, principal Principal, id string) (err error) {
	if s == nil {
		return fmt.Errorf("TableService is nil")
	}

	logger := s.loggerWith(ctx, "Delete", "principal_id", principal.UserID, "table_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete table", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "table deleted")
	}()

	if !principal.IsStaff() {
		return ErrUnauthorized
	}
	if s.tables == nil {
		return fmt.Errorf("table repository not configured")
	}

	today := scheduler.FormatDate(s.now().In(s.loc))
	return mapTableRepoError(s.tables.DeleteTable(ctx, strings.TrimSpace(id), today))
}

// List returns every table.
func (s *TableService) List(ctx context.Context, principal Principal) ([]Table, error) {
	if s == nil {
		return nil, fmt.Errorf("TableService is nil")
	}
	if !principal.CanViewFloor() {
		return nil, ErrUnauthorized
	}
	if s.tables == nil {
		return nil, nil
	}
	return s.tables.ListTables(ctx)
}

// Occupancy reports, for every table, the reservation seated at it right now
// and the next one expected today. A party seated late yesterday whose end
// runs past midnight still occupies its table.
func (s *TableService) Occupancy(ctx context.Context, principal Principal) ([]TableOccupancy, error) {
	if s == nil {
		return nil, fmt.Errorf("TableService is nil")
	}
	if !principal.CanViewFloor() {
		return nil, ErrUnauthorized
	}
	if s.tables == nil {
		return nil, nil
	}

	tables, err := s.tables.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().In(s.loc)
	today := scheduler.FormatDate(now)
	yesterday := scheduler.FormatDate(now.AddDate(0, 0, -1))
	var recent []Reservation
	if s.reservations != nil {
		recent, err = s.reservations.ListReservations(ctx, ReservationFilter{DateFrom: yesterday, DateTo: today})
		if err != nil {
			return nil, err
		}
	}

	byTable := make(map[string][]Reservation)
	for _, r := range recent {
		if r.TableID != "" {
			byTable[r.TableID] = append(byTable[r.TableID], r)
		}
	}

	at := scheduler.ClockOf(now)
	result := make([]TableOccupancy, 0, len(tables))
	for _, table := range tables {
		entry := TableOccupancy{Table: table}
		for _, r := range byTable[table.ID] {
			r := r
			// yesterday's clock runs on past 24:00
			point := at
			if r.Date == yesterday {
				point = at + scheduler.MinutesPerDay
			}
			span := scheduler.Interval{Start: r.Start, End: r.End}
			if entry.Current == nil && span.Contains(point) &&
				(r.State == scheduler.StateConfirmed || r.State == scheduler.StateInProgress) {
				entry.Current = &r
				entry.Occupied = true
				continue
			}
			if r.Date == today && r.Start > at &&
				(r.State == scheduler.StatePending || r.State == scheduler.StateConfirmed) &&
				(entry.Next == nil || r.Start < entry.Next.Start) {
				entry.Next = &r
			}
		}
		result = append(result, entry)
	}
	return result, nil
}

func parseTableInput(input TableInput) (Table, *ValidationError) {
	vErr := &ValidationError{}
	table := Table{Name: strings.TrimSpace(input.Name), Capacity: input.Capacity}

	if table.Name == "" {
		vErr.add("name", "name is required")
	}
	if input.Capacity < 1 || input.Capacity > MaxTableCapacity {
		vErr.add("capacity", fmt.Sprintf("capacity must be between 1 and %d", MaxTableCapacity))
	}
	zone, ok := scheduler.ParseZone(strings.TrimSpace(input.Zone))
	if !ok {
		vErr.add("zone", "zone must be one of interior, terrace, bar, private")
	}
	table.Zone = zone

	status := strings.TrimSpace(input.Status)
	if status == "" {
		status = string(scheduler.TableActive)
	}
	parsed, ok := scheduler.ParseTableStatus(status)
	if !ok {
		vErr.add("status", "status must be active or inactive")
	}
	table.Status = parsed
	return table, vErr
}

func mapTableRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		return ErrTableInUse
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("table", "table violates a storage constraint")
		return vErr
	}
	return mapRepoError(err)
}
