package sqlite

import (
	"context"
	"time"

	"github.com/example/table-reservations/internal/persistence"
)

// HoursRepository implements persistence.HoursRepository using SQLite
type HoursRepository struct {
	pool *ConnectionPool
}

// NewHoursRepository creates a new SQLite operating-hours repository
func NewHoursRepository(pool *ConnectionPool) *HoursRepository {
	return &HoursRepository{pool: pool}
}

// UpsertHours inserts a window or replaces the one with the same id.
func (r *HoursRepository) UpsertHours(ctx context.Context, hours persistence.OperatingHours) error {
	if hours.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if hours.CreatedAt.IsZero() {
		hours.CreatedAt = time.Now().UTC()
	}
	if hours.UpdatedAt.IsZero() {
		hours.UpdatedAt = hours.CreatedAt
	}

	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO operating_hours (id, weekday, open_time, close_time, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			weekday = excluded.weekday,
			open_time = excluded.open_time,
			close_time = excluded.close_time,
			active = excluded.active,
			updated_at = excluded.updated_at`,
		hours.ID,
		hours.Weekday,
		hours.OpenTime,
		hours.CloseTime,
		boolToInt(hours.Active),
		formatTime(hours.CreatedAt),
		formatTime(hours.UpdatedAt),
	)
	return mapError(err)
}

// GetHours retrieves one window by id.
func (r *HoursRepository) GetHours(ctx context.Context, id string) (persistence.OperatingHours, error) {
	if id == "" {
		return persistence.OperatingHours{}, persistence.ErrNotFound
	}
	row := r.pool.DB().QueryRowContext(ctx, `
		SELECT id, weekday, open_time, close_time, active, created_at, updated_at
		FROM operating_hours WHERE id = ?`, id)
	hours, err := scanHours(row)
	if err != nil {
		return persistence.OperatingHours{}, mapError(err)
	}
	return hours, nil
}

// ListHours returns every window ordered by weekday and opening time.
func (r *HoursRepository) ListHours(ctx context.Context) ([]persistence.OperatingHours, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT id, weekday, open_time, close_time, active, created_at, updated_at
		FROM operating_hours
		ORDER BY weekday ASC, open_time ASC, id ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var list []persistence.OperatingHours
	for rows.Next() {
		hours, err := scanHours(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, hours)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return list, nil
}

// DeleteHours removes one window.
func (r *HoursRepository) DeleteHours(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	result, err := r.pool.DB().ExecContext(ctx, `DELETE FROM operating_hours WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result)
}

func scanHours(row rowScanner) (persistence.OperatingHours, error) {
	var (
		hours                persistence.OperatingHours
		active               int
		createdAt, updatedAt string
	)
	err := row.Scan(&hours.ID, &hours.Weekday, &hours.OpenTime, &hours.CloseTime, &active, &createdAt, &updatedAt)
	if err != nil {
		return persistence.OperatingHours{}, err
	}
	hours.Active = active != 0
	if hours.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.OperatingHours{}, err
	}
	if hours.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.OperatingHours{}, err
	}
	return hours, nil
}

// PolicyRepository implements persistence.PolicyRepository using SQLite
type PolicyRepository struct {
	pool *ConnectionPool
}

// NewPolicyRepository creates a new SQLite policy repository
func NewPolicyRepository(pool *ConnectionPool) *PolicyRepository {
	return &PolicyRepository{pool: pool}
}

// GetPolicy returns the singleton policy row or ErrNotFound when it has not
// been initialised yet.
func (r *PolicyRepository) GetPolicy(ctx context.Context) (persistence.Policy, error) {
	var (
		policy               persistence.Policy
		createdAt, updatedAt string
	)
	err := r.pool.DB().QueryRowContext(ctx, `
		SELECT cancellation_cutoff_minutes, advance_notice_hours, max_party_size, default_duration_minutes,
			late_tolerance_minutes, created_at, updated_at
		FROM reservation_policy WHERE id = 1`,
	).Scan(
		&policy.CancellationCutoffMinutes,
		&policy.AdvanceNoticeHours,
		&policy.MaxPartySize,
		&policy.DefaultDurationMinutes,
		&policy.LateToleranceMinutes,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Policy{}, mapError(err)
	}
	if policy.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Policy{}, err
	}
	if policy.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Policy{}, err
	}
	return policy, nil
}

// SavePolicy creates or replaces the singleton policy row.
func (r *PolicyRepository) SavePolicy(ctx context.Context, policy persistence.Policy) error {
	if policy.CreatedAt.IsZero() {
		policy.CreatedAt = time.Now().UTC()
	}
	if policy.UpdatedAt.IsZero() {
		policy.UpdatedAt = policy.CreatedAt
	}

	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO reservation_policy (id, cancellation_cutoff_minutes, advance_notice_hours, max_party_size,
			default_duration_minutes, late_tolerance_minutes, created_at, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			cancellation_cutoff_minutes = excluded.cancellation_cutoff_minutes,
			advance_notice_hours = excluded.advance_notice_hours,
			max_party_size = excluded.max_party_size,
			default_duration_minutes = excluded.default_duration_minutes,
			late_tolerance_minutes = excluded.late_tolerance_minutes,
			updated_at = excluded.updated_at`,
		policy.CancellationCutoffMinutes,
		policy.AdvanceNoticeHours,
		policy.MaxPartySize,
		policy.DefaultDurationMinutes,
		policy.LateToleranceMinutes,
		formatTime(policy.CreatedAt),
		formatTime(policy.UpdatedAt),
	)
	return mapError(err)
}
