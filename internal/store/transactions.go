package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/zaloga/internal/model"
)

// AppendTransaction writes an audit record and returns it with its ID and
// timestamp set. Transactions are never updated or deleted; the schema
// rejects both with triggers.
func AppendTransaction(ctx context.Context, q DBTX, t *model.Transaction) (*model.Transaction, error) {
	rec := *t
	rec.CreatedAt = now()

	result, err := q.ExecContext(ctx,
		`INSERT INTO transactions (item_id, asset_id, user_id, delta, kind, reason, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		nullInt64(rec.ItemID), nullInt64(rec.AssetID), rec.UserID, rec.Delta, rec.Kind,
		nullString(rec.Reason), nullString(rec.Notes), rec.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("recording transaction: %w", err)
	}

	rec.ID, err = result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting transaction id: %w", err)
	}
	return &rec, nil
}

const transactionSelect = `SELECT t.id, t.item_id, t.asset_id, t.user_id, t.delta, t.kind, t.reason, t.notes,
	        t.created_at,
	        COALESCE(i.name, a.name, ''), COALESCE(i.tracking_id, a.tracking_id, ''),
	        COALESCE(u.username, '')
	 FROM transactions t
	 LEFT JOIN items i ON i.id = t.item_id
	 LEFT JOIN assets a ON a.id = t.asset_id
	 LEFT JOIN users u ON u.id = t.user_id`

// SubjectHistory returns every transaction for an item or asset, most
// recent first. IDs are assigned in commit order, so ordering by ID is
// ordering by commit.
func SubjectHistory(ctx context.Context, q DBTX, ref model.SubjectRef) ([]model.Transaction, error) {
	var column string
	switch ref.Kind {
	case model.SubjectItem:
		column = "t.item_id"
	case model.SubjectAsset:
		column = "t.asset_id"
	default:
		return nil, fmt.Errorf("%w: subject kind %q", model.ErrInvalidInput, ref.Kind)
	}

	rows, err := q.QueryContext(ctx,
		transactionSelect+` WHERE `+column+` = ? ORDER BY t.id DESC`, ref.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("getting subject history: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// HistoryFilter narrows ActorHistory. Zero values mean no filtering.
type HistoryFilter struct {
	Since time.Time
	Kind  string
}

// ActorHistory returns transactions performed by userID, most recent first,
// optionally limited to those at or after f.Since and of kind f.Kind.
func ActorHistory(ctx context.Context, q DBTX, userID int64, f HistoryFilter) ([]model.Transaction, error) {
	query := transactionSelect + ` WHERE t.user_id = ?`
	args := []any{userID}
	if !f.Since.IsZero() {
		query += ` AND t.created_at >= ?`
		args = append(args, f.Since.UTC())
	}
	if f.Kind != "" {
		query += ` AND t.kind = ?`
		args = append(args, f.Kind)
	}
	query += ` ORDER BY t.id DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("getting actor history: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// TransactionFilter narrows ListTransactions. Zero values mean no filtering.
type TransactionFilter struct {
	Kind  string
	Limit int
}

// ListTransactions returns recent transactions across all subjects.
func ListTransactions(ctx context.Context, q DBTX, f TransactionFilter) ([]model.Transaction, error) {
	query := transactionSelect + ` WHERE 1=1`
	var args []any

	if f.Kind != "" {
		query += ` AND t.kind = ?`
		args = append(args, f.Kind)
	}
	query += ` ORDER BY t.id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func scanTransactions(rows *sql.Rows) ([]model.Transaction, error) {
	var transactions []model.Transaction
	for rows.Next() {
		var t model.Transaction
		var reason, notes sql.NullString
		if err := rows.Scan(&t.ID, &t.ItemID, &t.AssetID, &t.UserID, &t.Delta, &t.Kind, &reason, &notes,
			&t.CreatedAt, &t.SubjectName, &t.TrackingID, &t.Username); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		t.Reason = reason.String
		t.Notes = notes.String
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}
