package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/zaloga/internal/model"
)

// LedgerEntry describes one signed quantity change to an item.
type LedgerEntry struct {
	ItemID  int64
	Delta   int
	ActorID int64
	Kind    string
	Reason  string
	Notes   string
}

// AdjustQuantity applies a signed quantity change to an item, recomputes its
// status and appends the matching transaction, all within tx.
//
// The decrement is a single conditional UPDATE that only matches while the
// result stays non-negative, so two concurrent checkouts of the last unit
// cannot both succeed. When nothing matches, the item is re-read to report
// model.ErrNotFound, model.ErrItemRemoved or model.ErrInsufficientStock.
func AdjustQuantity(ctx context.Context, tx *sql.Tx, e LedgerEntry) (*model.Item, *model.Transaction, error) {
	if e.Delta == 0 {
		return nil, nil, fmt.Errorf("%w: delta must be non-zero", model.ErrInvalidInput)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE items SET quantity = quantity + ?, updated_at = ?
		 WHERE id = ? AND status != 'removed' AND quantity + ? >= 0`,
		e.Delta, now(), e.ItemID, e.Delta,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("adjusting quantity: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, nil, fmt.Errorf("adjusting quantity: %w", err)
	}
	if n == 0 {
		return nil, nil, explainRejectedAdjustment(ctx, tx, e)
	}

	var quantity int
	var threshold sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT quantity, reorder_threshold FROM items WHERE id = ?`, e.ItemID,
	).Scan(&quantity, &threshold)
	if err != nil {
		return nil, nil, fmt.Errorf("reading adjusted quantity: %w", err)
	}

	var thresholdPtr *int
	if threshold.Valid {
		v := int(threshold.Int64)
		thresholdPtr = &v
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE items SET status = ? WHERE id = ?`,
		model.StockStatus(quantity, thresholdPtr), e.ItemID,
	); err != nil {
		return nil, nil, fmt.Errorf("updating item status: %w", err)
	}

	itemID := e.ItemID
	t, err := AppendTransaction(ctx, tx, &model.Transaction{
		ItemID: &itemID,
		UserID: e.ActorID,
		Delta:  e.Delta,
		Kind:   e.Kind,
		Reason: e.Reason,
		Notes:  e.Notes,
	})
	if err != nil {
		return nil, nil, err
	}

	item, err := GetItem(ctx, tx, e.ItemID)
	if err != nil {
		return nil, nil, err
	}
	return item, t, nil
}

func explainRejectedAdjustment(ctx context.Context, tx *sql.Tx, e LedgerEntry) error {
	var quantity int
	var status string
	err := tx.QueryRowContext(ctx,
		`SELECT quantity, status FROM items WHERE id = ?`, e.ItemID,
	).Scan(&quantity, &status)
	if err == sql.ErrNoRows {
		return fmt.Errorf("item %d: %w", e.ItemID, model.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("checking item: %w", err)
	}
	if status == model.ItemStatusRemoved {
		return fmt.Errorf("item %d: %w", e.ItemID, model.ErrItemRemoved)
	}
	return fmt.Errorf("item %d has %d, change of %d: %w", e.ItemID, quantity, e.Delta, model.ErrInsufficientStock)
}
