package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/zaloga/internal/model"
)

// NewItem holds the fields an operator supplies when cataloguing an item.
type NewItem struct {
	Name             string
	Description      string
	CategoryID       *int64
	Quantity         int
	ReorderThreshold *int
	MinimumQuantity  *int
}

// ItemFilter narrows ListItems. Zero values mean no filtering.
type ItemFilter struct {
	Status     string
	CategoryID int64
	TagID      int64
	Search     string

	// Limit and Offset page through the results; a zero Limit returns all.
	Limit  int
	Offset int
}

const itemColumns = `i.id, i.tracking_id, i.name, i.description, i.category_id, i.quantity,
	i.reorder_threshold, i.minimum_quantity, i.status, i.image_mime, i.created_by,
	i.created_at, i.updated_at`

// CreateItem catalogues a new item with a freshly allocated tracking id. A
// positive starting quantity is booked through the stock ledger as an
// adjustment by actorID.
func CreateItem(ctx context.Context, db *sql.DB, ids *TrackingIDs, in NewItem, actorID int64) (*model.Item, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name required", model.ErrInvalidInput)
	}
	if in.Quantity < 0 || (in.ReorderThreshold != nil && *in.ReorderThreshold < 0) ||
		(in.MinimumQuantity != nil && *in.MinimumQuantity < 0) {
		return nil, fmt.Errorf("%w: quantities must not be negative", model.ErrInvalidInput)
	}

	var item *model.Item
	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		if err := requireCategory(ctx, tx, in.CategoryID); err != nil {
			return err
		}

		trackingID, err := ids.Next(ctx, tx)
		if err != nil {
			return err
		}

		ts := now()
		result, err := tx.ExecContext(ctx,
			`INSERT INTO items (tracking_id, name, description, category_id, quantity,
			                    reorder_threshold, minimum_quantity, status, created_by, created_at, updated_at)
			 VALUES (?, ?, ?, ?, 0, ?, ?, ?, ?, ?, ?)`,
			trackingID, in.Name, nullString(in.Description), nullInt64(in.CategoryID),
			nullInt(in.ReorderThreshold), nullInt(in.MinimumQuantity),
			model.StockStatus(0, in.ReorderThreshold), actorID, ts, ts,
		)
		if err != nil {
			return fmt.Errorf("creating item: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting item id: %w", err)
		}

		if in.Quantity > 0 {
			item, _, err = AdjustQuantity(ctx, tx, LedgerEntry{
				ItemID:  id,
				Delta:   in.Quantity,
				ActorID: actorID,
				Kind:    model.TxAdjustment,
				Notes:   "initial stock",
			})
			return err
		}

		item, err = GetItem(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// GetItem returns an item by ID with its tags, or nil if it doesn't exist.
func GetItem(ctx context.Context, q DBTX, id int64) (*model.Item, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items i WHERE i.id = ?`, id,
	)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}

	item.Tags, err = TagsFor(ctx, q, model.SubjectRef{Kind: model.SubjectItem, ID: id})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ListItems returns items ordered by name. Removed items are only included
// when explicitly filtered for.
func ListItems(ctx context.Context, q DBTX, f ItemFilter) ([]model.Item, error) {
	where, args := itemConditions(f)
	query := `SELECT ` + itemColumns + ` FROM items i` + where + ` ORDER BY i.name, i.id`
	query, args = paginate(query, args, f.Limit, f.Offset)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// CountItems returns how many items ListItems would return without Limit
// and Offset.
func CountItems(ctx context.Context, q DBTX, f ItemFilter) (int, error) {
	where, args := itemConditions(f)
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM items i`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting items: %w", err)
	}
	return n, nil
}

func itemConditions(f ItemFilter) (string, []any) {
	where := ` WHERE 1=1`
	var args []any

	if f.Status != "" {
		where += ` AND i.status = ?`
		args = append(args, f.Status)
	} else {
		where += ` AND i.status != 'removed'`
	}
	if f.CategoryID > 0 {
		where += ` AND i.category_id = ?`
		args = append(args, f.CategoryID)
	}
	if f.TagID > 0 {
		where += ` AND EXISTS (SELECT 1 FROM item_tags it WHERE it.item_id = i.id AND it.tag_id = ?)`
		args = append(args, f.TagID)
	}
	if f.Search != "" {
		where += ` AND (i.name LIKE ? OR i.tracking_id LIKE ?)`
		like := "%" + f.Search + "%"
		args = append(args, like, like)
	}
	return where, args
}

// ItemsNeedingRestock returns every non-removed item whose status is restock
// or out_of_stock.
func ItemsNeedingRestock(ctx context.Context, q DBTX) ([]model.Item, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items i
		 WHERE i.status IN ('restock', 'out_of_stock')
		 ORDER BY i.quantity, i.name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing items needing restock: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// ItemUpdate holds the editable catalog fields of an item. Quantity is not
// editable here; it only changes through the stock ledger.
type ItemUpdate struct {
	Name             string
	Description      string
	CategoryID       *int64
	ReorderThreshold *int
	MinimumQuantity  *int
}

// UpdateItem updates an item's catalog fields and recomputes its status,
// since the status depends on the reorder threshold.
func UpdateItem(ctx context.Context, db *sql.DB, id int64, u ItemUpdate) (*model.Item, error) {
	if strings.TrimSpace(u.Name) == "" {
		return nil, fmt.Errorf("%w: name required", model.ErrInvalidInput)
	}
	if (u.ReorderThreshold != nil && *u.ReorderThreshold < 0) || (u.MinimumQuantity != nil && *u.MinimumQuantity < 0) {
		return nil, fmt.Errorf("%w: thresholds must not be negative", model.ErrInvalidInput)
	}

	var item *model.Item
	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		current, err := GetItem(ctx, tx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("item %d: %w", id, model.ErrNotFound)
		}
		if err := requireCategory(ctx, tx, u.CategoryID); err != nil {
			return err
		}

		status := current.Status
		if status != model.ItemStatusRemoved {
			status = model.StockStatus(current.Quantity, u.ReorderThreshold)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE items SET name = ?, description = ?, category_id = ?, reorder_threshold = ?,
			                  minimum_quantity = ?, status = ?, updated_at = ?
			 WHERE id = ?`,
			u.Name, nullString(u.Description), nullInt64(u.CategoryID), nullInt(u.ReorderThreshold),
			nullInt(u.MinimumQuantity), status, now(), id,
		)
		if err != nil {
			return fmt.Errorf("updating item: %w", err)
		}

		item, err = GetItem(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// RemoveItem moves an item to the terminal removed status and records the
// change. Removed items reject every further ledger adjustment.
func RemoveItem(ctx context.Context, tx *sql.Tx, id, actorID int64, notes string) (*model.Item, *model.Transaction, error) {
	result, err := tx.ExecContext(ctx,
		`UPDATE items SET status = 'removed', updated_at = ? WHERE id = ? AND status != 'removed'`,
		now(), id,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("removing item: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		current, err := GetItem(ctx, tx, id)
		if err != nil {
			return nil, nil, err
		}
		if current == nil {
			return nil, nil, fmt.Errorf("item %d: %w", id, model.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("item %d: %w", id, model.ErrItemRemoved)
	}

	itemID := id
	t, err := AppendTransaction(ctx, tx, &model.Transaction{
		ItemID: &itemID,
		UserID: actorID,
		Kind:   model.TxAdjustment,
		Notes:  notes,
	})
	if err != nil {
		return nil, nil, err
	}

	item, err := GetItem(ctx, tx, id)
	if err != nil {
		return nil, nil, err
	}
	return item, t, nil
}

// DeleteItem permanently deletes an item that has no transaction history,
// together with its tag associations. Items with history must be removed
// instead.
func DeleteItem(ctx context.Context, db *sql.DB, id int64) error {
	return WithTx(ctx, db, func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, `SELECT EXISTS (SELECT 1 FROM items WHERE id = ?)`, id)
		if err != nil {
			return fmt.Errorf("checking item: %w", err)
		}
		if !ok {
			return fmt.Errorf("item %d: %w", id, model.ErrNotFound)
		}

		history, err := exists(ctx, tx, `SELECT EXISTS (SELECT 1 FROM transactions WHERE item_id = ?)`, id)
		if err != nil {
			return fmt.Errorf("checking item history: %w", err)
		}
		if history {
			return fmt.Errorf("item %d: %w", id, model.ErrHasHistory)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM item_tags WHERE item_id = ?`, id); err != nil {
			return fmt.Errorf("detaching item tags: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting item: %w", err)
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*model.Item, error) {
	item := &model.Item{}
	var description, imageMime sql.NullString
	var threshold, minimum sql.NullInt64
	err := row.Scan(&item.ID, &item.TrackingID, &item.Name, &description, &item.CategoryID,
		&item.Quantity, &threshold, &minimum, &item.Status, &imageMime, &item.CreatedBy,
		&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	item.Description = description.String
	item.ImageMime = imageMime.String
	if threshold.Valid {
		v := int(threshold.Int64)
		item.ReorderThreshold = &v
	}
	if minimum.Valid {
		v := int(minimum.Int64)
		item.MinimumQuantity = &v
	}
	return item, nil
}
