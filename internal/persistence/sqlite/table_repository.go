package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/table-reservations/internal/persistence"
)

const tableColumns = `id, name, capacity, zone, status, created_at, updated_at`

// TableRepository implements persistence.TableRepository using SQLite
type TableRepository struct {
	pool *ConnectionPool
}

// NewTableRepository creates a new SQLite table repository
func NewTableRepository(pool *ConnectionPool) *TableRepository {
	return &TableRepository{pool: pool}
}

// CreateTable inserts a new dining table.
func (r *TableRepository) CreateTable(ctx context.Context, table persistence.Table) error {
	if table.ID == "" || table.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}
	if table.CreatedAt.IsZero() {
		table.CreatedAt = time.Now().UTC()
	}
	if table.UpdatedAt.IsZero() {
		table.UpdatedAt = table.CreatedAt
	}

	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO restaurant_tables (`+tableColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		table.ID,
		strings.TrimSpace(table.Name),
		table.Capacity,
		table.Zone,
		table.Status,
		formatTime(table.CreatedAt),
		formatTime(table.UpdatedAt),
	)
	return mapError(err)
}

// UpdateTable replaces the mutable fields of a table.
func (r *TableRepository) UpdateTable(ctx context.Context, table persistence.Table) error {
	if table.ID == "" || table.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}
	if table.UpdatedAt.IsZero() {
		table.UpdatedAt = time.Now().UTC()
	}

	result, err := r.pool.DB().ExecContext(ctx, `
		UPDATE restaurant_tables
		SET name = ?, capacity = ?, zone = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		strings.TrimSpace(table.Name),
		table.Capacity,
		table.Zone,
		table.Status,
		formatTime(table.UpdatedAt),
		table.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result)
}

// GetTable retrieves a table by id.
func (r *TableRepository) GetTable(ctx context.Context, id string) (persistence.Table, error) {
	if id == "" {
		return persistence.Table{}, persistence.ErrNotFound
	}
	row := r.pool.DB().QueryRowContext(ctx, `SELECT `+tableColumns+` FROM restaurant_tables WHERE id = ?`, id)
	table, err := scanTable(row)
	if err != nil {
		return persistence.Table{}, mapError(err)
	}
	return table, nil
}

// ListTables returns all tables ordered by zone, capacity and name.
func (r *TableRepository) ListTables(ctx context.Context) ([]persistence.Table, error) {
	return listTables(ctx, r.pool.DB(), `ORDER BY zone ASC, capacity ASC, name ASC, id ASC`)
}

// DeleteTable removes a table unless a reservation dated activeFrom or later
// still references it.
func (r *TableRepository) DeleteTable(ctx context.Context, id, activeFrom string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var upcoming int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM reservations WHERE table_id = ? AND date >= ?`, id, activeFrom,
		).Scan(&upcoming)
		if err != nil {
			return mapError(err)
		}
		if upcoming > 0 {
			return persistence.ErrForeignKeyViolation
		}

		if _, err := tx.ExecContext(ctx, `UPDATE reservations SET table_id = NULL WHERE table_id = ?`, id); err != nil {
			return mapError(err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM restaurant_tables WHERE id = ?`, id)
		if err != nil {
			return mapError(err)
		}
		return requireAffected(result)
	})
}

func countTables(ctx context.Context, q querier) (int, error) {
	var count int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM restaurant_tables`).Scan(&count); err != nil {
		return 0, mapError(err)
	}
	return count, nil
}

func listTables(ctx context.Context, q querier, clause string, args ...any) ([]persistence.Table, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+tableColumns+` FROM restaurant_tables `+clause, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var tables []persistence.Table
	for rows.Next() {
		table, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return tables, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTable(row rowScanner) (persistence.Table, error) {
	var (
		table                persistence.Table
		createdAt, updatedAt string
	)
	if err := row.Scan(&table.ID, &table.Name, &table.Capacity, &table.Zone, &table.Status, &createdAt, &updatedAt); err != nil {
		return persistence.Table{}, err
	}

	var err error
	if table.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Table{}, err
	}
	if table.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Table{}, err
	}
	return table, nil
}
