package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/zaloga/internal/model"
)

const reasonColumns = `id, name, description, active, created_at, updated_at`

// CreateReason adds an active checkout reason.
func CreateReason(ctx context.Context, db *sql.DB, name, description string) (*model.CheckoutReason, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name required", model.ErrInvalidInput)
	}

	ts := now()
	result, err := db.ExecContext(ctx,
		`INSERT INTO checkout_reasons (name, description, active, created_at, updated_at)
		 VALUES (?, ?, 1, ?, ?)`,
		name, nullString(description), ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("creating checkout reason: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting checkout reason id: %w", err)
	}
	return GetReason(ctx, db, id)
}

// GetReason returns a checkout reason by ID, or nil if it doesn't exist.
func GetReason(ctx context.Context, q DBTX, id int64) (*model.CheckoutReason, error) {
	r, err := scanReason(q.QueryRowContext(ctx,
		`SELECT `+reasonColumns+` FROM checkout_reasons WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting checkout reason: %w", err)
	}
	return r, nil
}

// ListReasons returns checkout reasons ordered by name, optionally only the
// active ones.
func ListReasons(ctx context.Context, q DBTX, activeOnly bool) ([]model.CheckoutReason, error) {
	query := `SELECT ` + reasonColumns + ` FROM checkout_reasons`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY name, id`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing checkout reasons: %w", err)
	}
	defer rows.Close()

	var reasons []model.CheckoutReason
	for rows.Next() {
		r, err := scanReason(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning checkout reason: %w", err)
		}
		reasons = append(reasons, *r)
	}
	return reasons, rows.Err()
}

// UpdateReason edits a reason's name, description and active flag.
// Transactions already recorded keep the name they were written with.
func UpdateReason(ctx context.Context, db *sql.DB, id int64, name, description string, active bool) (*model.CheckoutReason, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name required", model.ErrInvalidInput)
	}

	result, err := db.ExecContext(ctx,
		`UPDATE checkout_reasons SET name = ?, description = ?, active = ?, updated_at = ? WHERE id = ?`,
		name, nullString(description), active, now(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating checkout reason: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("checkout reason %d: %w", id, model.ErrNotFound)
	}
	return GetReason(ctx, db, id)
}

// ActiveReason returns the reason a checkout cites. A missing or inactive
// reason yields model.ErrInvalidReason.
func ActiveReason(ctx context.Context, q DBTX, id int64) (*model.CheckoutReason, error) {
	r, err := GetReason(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("checkout reason %d does not exist: %w", id, model.ErrInvalidReason)
	}
	if !r.Active {
		return nil, fmt.Errorf("checkout reason %q is inactive: %w", r.Name, model.ErrInvalidReason)
	}
	return r, nil
}

func scanReason(row rowScanner) (*model.CheckoutReason, error) {
	r := &model.CheckoutReason{}
	var description sql.NullString
	if err := row.Scan(&r.ID, &r.Name, &description, &r.Active, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Description = description.String
	return r, nil
}
