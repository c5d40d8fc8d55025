package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/table-reservations/internal/persistence"
)

const reservationColumns = `id, customer_id, created_by_id, table_id, customer_name, customer_email, customer_phone,
	date, start_time, end_time, party_size, zone, state, channel, device, notes, created_at, updated_at`

// ReservationRepository implements persistence.ReservationRepository using SQLite
type ReservationRepository struct {
	pool *ConnectionPool
}

// NewReservationRepository creates a new SQLite reservation repository
func NewReservationRepository(pool *ConnectionPool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

// GetReservation retrieves a reservation by id.
func (r *ReservationRepository) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	return getReservation(ctx, r.pool.DB(), id)
}

// UpdateReservation persists every mutable column of reservation.
func (r *ReservationRepository) UpdateReservation(ctx context.Context, reservation persistence.Reservation) error {
	return updateReservation(ctx, r.pool.DB(), reservation)
}

// DeleteReservation hard-deletes a reservation.
func (r *ReservationRepository) DeleteReservation(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	result, err := r.pool.DB().ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result)
}

// ListReservations returns the reservations matching filter ordered by date,
// start time and id.
func (r *ReservationRepository) ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.Reservation, error) {
	var (
		conditions []string
		args       []any
	)
	add := func(condition string, value string) {
		if value == "" {
			return
		}
		conditions = append(conditions, condition)
		args = append(args, value)
	}
	add("customer_id = ?", filter.CustomerID)
	add("table_id = ?", filter.TableID)
	add("state = ?", filter.State)
	add("zone = ?", filter.Zone)
	add("date >= ?", filter.DateFrom)
	add("date <= ?", filter.DateTo)

	clause := ""
	if len(conditions) > 0 {
		clause = "WHERE " + strings.Join(conditions, " AND ")
	}
	return listReservations(ctx, r.pool.DB(), clause+" ORDER BY date ASC, start_time ASC, id ASC", args...)
}

// WithAssignment runs fn inside a write-locking transaction. Everything fn
// reads stays valid until it returns, so a table found free can be inserted
// without racing a concurrent booking.
func (r *ReservationRepository) WithAssignment(ctx context.Context, fn func(tx persistence.AssignmentTx) error) error {
	return r.pool.WithImmediateTransaction(ctx, func(q querier) error {
		return fn(&assignmentTx{q: q})
	})
}

// assignmentTx implements persistence.AssignmentTx on one locked connection.
type assignmentTx struct {
	q querier
}

func (t *assignmentTx) CountTables(ctx context.Context) (int, error) {
	return countTables(ctx, t.q)
}

func (t *assignmentTx) ListTablesInZone(ctx context.Context, zone string) ([]persistence.Table, error) {
	return listTables(ctx, t.q, `WHERE zone = ? ORDER BY capacity ASC, id ASC`, zone)
}

func (t *assignmentTx) ListTableReservations(ctx context.Context, tableID, date string) ([]persistence.Reservation, error) {
	return listReservations(ctx, t.q, `WHERE table_id = ? AND date = ? ORDER BY start_time ASC, id ASC`, tableID, date)
}

func (t *assignmentTx) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	return getReservation(ctx, t.q, id)
}

func (t *assignmentTx) InsertReservation(ctx context.Context, reservation persistence.Reservation) error {
	return insertReservation(ctx, t.q, reservation)
}

func (t *assignmentTx) UpdateReservation(ctx context.Context, reservation persistence.Reservation) error {
	return updateReservation(ctx, t.q, reservation)
}

func getReservation(ctx context.Context, q querier, id string) (persistence.Reservation, error) {
	if id == "" {
		return persistence.Reservation{}, persistence.ErrNotFound
	}
	row := q.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	reservation, err := scanReservation(row)
	if err != nil {
		return persistence.Reservation{}, mapError(err)
	}
	return reservation, nil
}

func insertReservation(ctx context.Context, q querier, reservation persistence.Reservation) error {
	if reservation.ID == "" || reservation.PartySize <= 0 {
		return persistence.ErrConstraintViolation
	}
	if reservation.CreatedAt.IsZero() {
		reservation.CreatedAt = time.Now().UTC()
	}
	if reservation.UpdatedAt.IsZero() {
		reservation.UpdatedAt = reservation.CreatedAt
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO reservations (`+reservationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reservation.ID,
		nullableString(reservation.CustomerID),
		reservation.CreatedByID,
		nullableString(reservation.TableID),
		reservation.CustomerName,
		reservation.CustomerEmail,
		reservation.CustomerPhone,
		reservation.Date,
		reservation.StartTime,
		reservation.EndTime,
		reservation.PartySize,
		reservation.Zone,
		reservation.State,
		reservation.Channel,
		reservation.Device,
		reservation.Notes,
		formatTime(reservation.CreatedAt),
		formatTime(reservation.UpdatedAt),
	)
	return mapError(err)
}

func updateReservation(ctx context.Context, q querier, reservation persistence.Reservation) error {
	if reservation.ID == "" || reservation.PartySize <= 0 {
		return persistence.ErrConstraintViolation
	}
	if reservation.UpdatedAt.IsZero() {
		reservation.UpdatedAt = time.Now().UTC()
	}

	result, err := q.ExecContext(ctx, `
		UPDATE reservations
		SET customer_id = ?, table_id = ?, customer_name = ?, customer_email = ?, customer_phone = ?,
			date = ?, start_time = ?, end_time = ?, party_size = ?, zone = ?, state = ?,
			channel = ?, device = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		nullableString(reservation.CustomerID),
		nullableString(reservation.TableID),
		reservation.CustomerName,
		reservation.CustomerEmail,
		reservation.CustomerPhone,
		reservation.Date,
		reservation.StartTime,
		reservation.EndTime,
		reservation.PartySize,
		reservation.Zone,
		reservation.State,
		reservation.Channel,
		reservation.Device,
		reservation.Notes,
		formatTime(reservation.UpdatedAt),
		reservation.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result)
}

func listReservations(ctx context.Context, q querier, clause string, args ...any) ([]persistence.Reservation, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+reservationColumns+` FROM reservations `+clause, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var reservations []persistence.Reservation
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return reservations, nil
}

func scanReservation(row rowScanner) (persistence.Reservation, error) {
	var (
		reservation          persistence.Reservation
		customerID, tableID  sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(
		&reservation.ID,
		&customerID,
		&reservation.CreatedByID,
		&tableID,
		&reservation.CustomerName,
		&reservation.CustomerEmail,
		&reservation.CustomerPhone,
		&reservation.Date,
		&reservation.StartTime,
		&reservation.EndTime,
		&reservation.PartySize,
		&reservation.Zone,
		&reservation.State,
		&reservation.Channel,
		&reservation.Device,
		&reservation.Notes,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Reservation{}, err
	}

	reservation.CustomerID = stringPtr(customerID)
	reservation.TableID = stringPtr(tableID)
	if reservation.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Reservation{}, err
	}
	if reservation.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Reservation{}, err
	}
	return reservation, nil
}
