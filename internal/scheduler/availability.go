package scheduler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
)

// Zone is a coarse spatial grouping of tables.
type Zone string

const (
	ZoneInterior Zone = "interior"
	ZoneTerrace  Zone = "terrace"
	ZoneBar      Zone = "bar"
	ZonePrivate  Zone = "private"
)

// Zones lists every zone in display order.
func Zones() []Zone {
	return []Zone{ZoneInterior, ZoneTerrace, ZoneBar, ZonePrivate}
}

// ParseZone validates a zone name.
func ParseZone(value string) (Zone, bool) {
	for _, z := range Zones() {
		if string(z) == value {
			return z, true
		}
	}
	return "", false
}

// TableStatus reports whether a table can be assigned.
type TableStatus string

const (
	TableActive   TableStatus = "active"
	TableInactive TableStatus = "inactive"
)

// ParseTableStatus validates a table status.
func ParseTableStatus(value string) (TableStatus, bool) {
	switch TableStatus(value) {
	case TableActive, TableInactive:
		return TableStatus(value), true
	}
	return "", false
}

// State is a reservation lifecycle state.
type State string

const (
	StatePending    State = "pending"
	StateConfirmed  State = "confirmed"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateCancelled  State = "cancelled"
	StateNoShow     State = "no_show"
)

// States lists every lifecycle state.
func States() []State {
	return []State{StatePending, StateConfirmed, StateInProgress, StateCompleted, StateCancelled, StateNoShow}
}

// ParseState validates a lifecycle state name.
func ParseState(value string) (State, bool) {
	for _, s := range States() {
		if string(s) == value {
			return s, true
		}
	}
	return "", false
}

// Terminal reports whether no transition may leave the state.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateCancelled, StateNoShow:
		return true
	}
	return false
}

// BlocksTable reports whether a reservation in this state occupies its table
// slot. Completed reservations keep blocking their historical slot.
func (s State) BlocksTable() bool {
	return s != StateCancelled && s != StateNoShow
}

// CanTransition reports whether a reservation may move from one state to another.
func CanTransition(from, to State) bool {
	if from == to {
		return true
	}
	return !from.Terminal()
}

// Table is the engine's view of a bookable table.
type Table struct {
	ID       string
	Name     string
	Capacity int
	Zone     Zone
	Status   TableStatus
}

// Booking is an existing claim on a table slot.
type Booking struct {
	ReservationID string
	TableID       string
	Date          string
	Interval      Interval
	State         State
}

// Source supplies the storage reads the engine performs. Implementations are
// typically bound to a write-locking transaction so that the check and the
// subsequent insert are atomic.
type Source interface {
	CountTables(ctx context.Context) (int, error)
	ListTablesInZone(ctx context.Context, zone Zone) ([]Table, error)
	ListTableBookings(ctx context.Context, tableID, date string) ([]Booking, error)
}

// FailureCode names why no table could be assigned.
type FailureCode string

const (
	FailureNoTables             FailureCode = "NO_TABLES"
	FailureNoZoneCapacity       FailureCode = "NO_ZONE_CAPACITY"
	FailureInsufficientCapacity FailureCode = "INSUFFICIENT_CAPACITY"
	FailureNoAvailability       FailureCode = "NO_AVAILABILITY"
	FailureOutOfHours           FailureCode = "OUT_OF_HOURS"
)

// Failure is the typed result of an unsuccessful assignment.
type Failure struct {
	Code FailureCode
	// MaxCapacity is the largest active table in the zone, set for
	// FailureInsufficientCapacity.
	MaxCapacity int
	// Conflicts lists the bookings that blocked a single-table check.
	Conflicts []Booking
}

func (f *Failure) Error() string {
	if f == nil {
		return ""
	}
	if f.Code == FailureInsufficientCapacity {
		return fmt.Sprintf("scheduler: %s (max capacity %d)", f.Code, f.MaxCapacity)
	}
	return fmt.Sprintf("scheduler: %s", f.Code)
}

var (
	// ErrInvalidRequest indicates a malformed assignment request.
	ErrInvalidRequest = errors.New("scheduler: invalid request")
	// ErrTableNotEligible means a table can no longer take the request: it is
	// inactive, gone, in another zone or too small for the party.
	ErrTableNotEligible = errors.New("scheduler: table not eligible")
)

// Request describes the slot a party wants.
type Request struct {
	Date            string
	Start           Clock
	PartySize       int
	Zone            Zone
	DurationMinutes int
}

// Interval returns the requested [start, start+duration) span.
func (r Request) Interval() Interval {
	return NewInterval(r.Start, r.DurationMinutes)
}

func (r Request) validate() error {
	if r.PartySize < 1 {
		return fmt.Errorf("%w: party size must be positive", ErrInvalidRequest)
	}
	if r.DurationMinutes <= 0 {
		return fmt.Errorf("%w: duration must be positive", ErrInvalidRequest)
	}
	if _, ok := ParseZone(string(r.Zone)); !ok {
		return fmt.Errorf("%w: unknown zone %q", ErrInvalidRequest, r.Zone)
	}
	if _, err := Weekday(r.Date); err != nil {
		return err
	}
	return nil
}

// FindTable returns the smallest adequate free table in the requested zone.
//
// Checks run in a fixed order and the first failing one decides the result:
// no tables at all, no active table in the zone, no table large enough, and
// finally no candidate free for the interval. Candidates are tried by
// ascending capacity, then ascending id, so the result is deterministic for a
// given storage state.
func FindTable(ctx context.Context, src Source, req Request) (Table, error) {
	if src == nil {
		return Table{}, errors.New("scheduler: source is nil")
	}
	if err := req.validate(); err != nil {
		return Table{}, err
	}

	total, err := src.CountTables(ctx)
	if err != nil {
		return Table{}, err
	}
	if total == 0 {
		return Table{}, &Failure{Code: FailureNoTables}
	}

	tables, err := src.ListTablesInZone(ctx, req.Zone)
	if err != nil {
		return Table{}, err
	}

	var (
		activeCount int
		maxCapacity int
		candidates  []Table
	)
	for _, table := range tables {
		if table.Status != TableActive || table.Zone != req.Zone {
			continue
		}
		activeCount++
		if table.Capacity > maxCapacity {
			maxCapacity = table.Capacity
		}
		if table.Capacity >= req.PartySize {
			candidates = append(candidates, table)
		}
	}
	if activeCount == 0 {
		return Table{}, &Failure{Code: FailureNoZoneCapacity}
	}
	if len(candidates) == 0 {
		return Table{}, &Failure{Code: FailureInsufficientCapacity, MaxCapacity: maxCapacity}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Capacity != candidates[j].Capacity {
			return candidates[i].Capacity < candidates[j].Capacity
		}
		return lessID(candidates[i].ID, candidates[j].ID)
	})

	wanted := Booking{Date: req.Date, Interval: req.Interval(), State: StatePending}
	for _, table := range candidates {
		bookings, err := src.ListTableBookings(ctx, table.ID, req.Date)
		if err != nil {
			return Table{}, err
		}
		wanted.TableID = table.ID
		if len(DetectConflicts(bookings, wanted)) == 0 {
			return table, nil
		}
	}

	return Table{}, &Failure{Code: FailureNoAvailability}
}

// CheckTable verifies that one specific table is still eligible and free for
// the request, ignoring the reservation identified by ignoreID (the one being
// moved).
func CheckTable(ctx context.Context, src Source, tableID string, req Request, ignoreID string) error {
	if src == nil {
		return errors.New("scheduler: source is nil")
	}
	if err := req.validate(); err != nil {
		return err
	}

	tables, err := src.ListTablesInZone(ctx, req.Zone)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(tables, func(t Table) bool { return t.ID == tableID })
	if i < 0 {
		return fmt.Errorf("%w: %s is not in zone %s", ErrTableNotEligible, tableID, req.Zone)
	}
	if table := tables[i]; table.Status != TableActive || table.Zone != req.Zone || table.Capacity < req.PartySize {
		return fmt.Errorf("%w: %s", ErrTableNotEligible, tableID)
	}

	bookings, err := src.ListTableBookings(ctx, tableID, req.Date)
	if err != nil {
		return err
	}

	conflicts := DetectConflicts(bookings, Booking{
		ReservationID: ignoreID,
		TableID:       tableID,
		Date:          req.Date,
		Interval:      req.Interval(),
		State:         StatePending,
	})
	if len(conflicts) > 0 {
		return &Failure{Code: FailureNoAvailability, Conflicts: conflicts}
	}
	return nil
}

// lessID puts numeric ids first in numeric order, then every other id in
// lexical order. Equal numbers such as "7" and "07" fall back to lexical.
func lessID(a, b string) bool {
	ai, aErr := strconv.ParseInt(a, 10, 64)
	bi, bErr := strconv.ParseInt(b, 10, 64)
	switch {
	case aErr == nil && bErr == nil && ai != bi:
		return ai < bi
	case aErr == nil && bErr != nil:
		return true
	case aErr != nil && bErr == nil:
		return false
	}
	return a < b
}
