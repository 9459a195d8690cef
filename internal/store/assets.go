package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/zaloga/internal/model"
)

// NewAsset holds the fields an operator supplies when cataloguing an asset.
type NewAsset struct {
	Name        string
	Description string
	CategoryID  *int64
}

// AssetFilter narrows ListAssets. Zero values mean no filtering.
type AssetFilter struct {
	Status   string
	HolderID int64
	TagID    int64
	Search   string

	// Limit and Offset page through the results; a zero Limit returns all.
	Limit  int
	Offset int
}

const assetColumns = `a.id, a.tracking_id, a.name, a.description, a.category_id, a.status,
	a.holder_id, a.checked_out_at, a.checkout_reason, a.image_mime, a.created_by,
	a.created_at, a.updated_at, COALESCE(u.username, '')`

const assetFrom = ` FROM assets a LEFT JOIN users u ON u.id = a.holder_id`

// CreateAsset catalogues a new available asset with a freshly allocated
// tracking id.
func CreateAsset(ctx context.Context, db *sql.DB, ids *TrackingIDs, in NewAsset, actorID int64) (*model.Asset, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name required", model.ErrInvalidInput)
	}

	var asset *model.Asset
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
			`INSERT INTO assets (tracking_id, name, description, category_id, created_by, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			trackingID, in.Name, nullString(in.Description), nullInt64(in.CategoryID), actorID, ts, ts,
		)
		if err != nil {
			return fmt.Errorf("creating asset: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting asset id: %w", err)
		}

		asset, err = GetAsset(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return asset, nil
}

// GetAsset returns an asset by ID with its tags, or nil if it doesn't exist.
func GetAsset(ctx context.Context, q DBTX, id int64) (*model.Asset, error) {
	row := q.QueryRowContext(ctx, `SELECT `+assetColumns+assetFrom+` WHERE a.id = ?`, id)
	asset, err := scanAsset(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting asset: %w", err)
	}

	asset.Tags, err = TagsFor(ctx, q, model.SubjectRef{Kind: model.SubjectAsset, ID: id})
	if err != nil {
		return nil, err
	}
	return asset, nil
}

// ListAssets returns assets ordered by name. Removed assets are only
// included when explicitly filtered for.
func ListAssets(ctx context.Context, q DBTX, f AssetFilter) ([]model.Asset, error) {
	where, args := assetConditions(f)
	query := `SELECT ` + assetColumns + assetFrom + where + ` ORDER BY a.name, a.id`
	query, args = paginate(query, args, f.Limit, f.Offset)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}
	defer rows.Close()

	var assets []model.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning asset: %w", err)
		}
		assets = append(assets, *asset)
	}
	return assets, rows.Err()
}

// CountAssets returns how many assets ListAssets would return without
// Limit and Offset.
func CountAssets(ctx context.Context, q DBTX, f AssetFilter) (int, error) {
	where, args := assetConditions(f)
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM assets a`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting assets: %w", err)
	}
	return n, nil
}

func assetConditions(f AssetFilter) (string, []any) {
	where := ` WHERE 1=1`
	var args []any

	if f.Status != "" {
		where += ` AND a.status = ?`
		args = append(args, f.Status)
	} else {
		where += ` AND a.status != 'removed'`
	}
	if f.HolderID > 0 {
		where += ` AND a.holder_id = ?`
		args = append(args, f.HolderID)
	}
	if f.TagID > 0 {
		where += ` AND EXISTS (SELECT 1 FROM asset_tags at WHERE at.asset_id = a.id AND at.tag_id = ?)`
		args = append(args, f.TagID)
	}
	if f.Search != "" {
		where += ` AND (a.name LIKE ? OR a.tracking_id LIKE ?)`
		like := "%" + f.Search + "%"
		args = append(args, like, like)
	}
	return where, args
}

// UpdateAsset updates an asset's catalog fields. Possession state is not
// editable here.
func UpdateAsset(ctx context.Context, db *sql.DB, id int64, in NewAsset) (*model.Asset, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name required", model.ErrInvalidInput)
	}

	var asset *model.Asset
	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		if err := requireCategory(ctx, tx, in.CategoryID); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE assets SET name = ?, description = ?, category_id = ?, updated_at = ? WHERE id = ?`,
			in.Name, nullString(in.Description), nullInt64(in.CategoryID), now(), id,
		)
		if err != nil {
			return fmt.Errorf("updating asset: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fmt.Errorf("asset %d: %w", id, model.ErrNotFound)
		}

		asset, err = GetAsset(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return asset, nil
}

// CheckOutAsset hands an available asset to actorID and records the
// checkout. Any other status yields model.ErrAssetUnavailable.
func CheckOutAsset(ctx context.Context, tx *sql.Tx, assetID, actorID int64, reason, notes string) (*model.Asset, *model.Transaction, error) {
	ts := now()
	result, err := tx.ExecContext(ctx,
		`UPDATE assets SET status = 'checked_out', holder_id = ?, checked_out_at = ?, checkout_reason = ?, updated_at = ?
		 WHERE id = ? AND status = 'available'`,
		actorID, ts, nullString(reason), ts, assetID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("checking out asset: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, nil, explainPossession(ctx, tx, assetID, model.ErrAssetUnavailable)
	}

	return recordPossession(ctx, tx, assetID, &model.Transaction{
		UserID: actorID,
		Kind:   model.TxCheckout,
		Reason: reason,
		Notes:  notes,
	})
}

// CheckInAsset returns a checked-out asset, clearing its holder, and records
// the check-in. disposition selects the resulting status: available when
// empty, or maintenance/retired. An asset that is not checked out yields
// model.ErrAssetNotCheckedOut.
func CheckInAsset(ctx context.Context, tx *sql.Tx, assetID, actorID int64, disposition, notes string) (*model.Asset, *model.Transaction, error) {
	if !model.ValidCheckinDisposition(disposition) {
		return nil, nil, fmt.Errorf("%w: disposition %q", model.ErrInvalidInput, disposition)
	}
	if disposition == "" {
		disposition = model.AssetStatusAvailable
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE assets SET status = ?, holder_id = NULL, checked_out_at = NULL, checkout_reason = NULL, updated_at = ?
		 WHERE id = ? AND status = 'checked_out'`,
		disposition, now(), assetID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("checking in asset: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, nil, explainPossession(ctx, tx, assetID, model.ErrAssetNotCheckedOut)
	}

	return recordPossession(ctx, tx, assetID, &model.Transaction{
		UserID: actorID,
		Kind:   model.TxCheckin,
		Notes:  notes,
	})
}

// SetAssetStatus moves an asset that is not checked out between available,
// maintenance and retired, or to the terminal removed status, and records
// the change as an adjustment. Setting the status an asset already has is
// rejected with model.ErrInvalidInput and records nothing.
func SetAssetStatus(ctx context.Context, tx *sql.Tx, assetID, actorID int64, status, notes string) (*model.Asset, *model.Transaction, error) {
	switch status {
	case model.AssetStatusAvailable, model.AssetStatusMaintenance, model.AssetStatusRetired, model.AssetStatusRemoved:
	default:
		return nil, nil, fmt.Errorf("%w: asset status %q", model.ErrInvalidInput, status)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE assets SET status = ?, updated_at = ?
		 WHERE id = ? AND status NOT IN ('checked_out', 'removed') AND status != ?`,
		status, now(), assetID, status,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("updating asset status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		var current string
		err := tx.QueryRowContext(ctx, `SELECT status FROM assets WHERE id = ?`, assetID).Scan(&current)
		if err == nil && current == status {
			return nil, nil, fmt.Errorf("%w: asset %d is already %s", model.ErrInvalidInput, assetID, status)
		}
		return nil, nil, explainPossession(ctx, tx, assetID, model.ErrAssetUnavailable)
	}

	return recordPossession(ctx, tx, assetID, &model.Transaction{
		UserID: actorID,
		Kind:   model.TxAdjustment,
		Notes:  notes,
	})
}

// DeleteAsset permanently deletes an asset that has no transaction history,
// together with its tag associations.
func DeleteAsset(ctx context.Context, db *sql.DB, id int64) error {
	return WithTx(ctx, db, func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, `SELECT EXISTS (SELECT 1 FROM assets WHERE id = ?)`, id)
		if err != nil {
			return fmt.Errorf("checking asset: %w", err)
		}
		if !ok {
			return fmt.Errorf("asset %d: %w", id, model.ErrNotFound)
		}

		history, err := exists(ctx, tx, `SELECT EXISTS (SELECT 1 FROM transactions WHERE asset_id = ?)`, id)
		if err != nil {
			return fmt.Errorf("checking asset history: %w", err)
		}
		if history {
			return fmt.Errorf("asset %d: %w", id, model.ErrHasHistory)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM asset_tags WHERE asset_id = ?`, id); err != nil {
			return fmt.Errorf("detaching asset tags: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM assets WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting asset: %w", err)
		}
		return nil
	})
}

func recordPossession(ctx context.Context, tx *sql.Tx, assetID int64, t *model.Transaction) (*model.Asset, *model.Transaction, error) {
	t.AssetID = &assetID
	t, err := AppendTransaction(ctx, tx, t)
	if err != nil {
		return nil, nil, err
	}

	asset, err := GetAsset(ctx, tx, assetID)
	if err != nil {
		return nil, nil, err
	}
	return asset, t, nil
}

// explainPossession distinguishes a missing asset from a state mismatch.
func explainPossession(ctx context.Context, tx *sql.Tx, assetID int64, mismatch error) error {
	var status string
	err := tx.QueryRowContext(ctx, `SELECT status FROM assets WHERE id = ?`, assetID).Scan(&status)
	if err == sql.ErrNoRows {
		return fmt.Errorf("asset %d: %w", assetID, model.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("checking asset: %w", err)
	}
	return fmt.Errorf("asset %d is %s: %w", assetID, status, mismatch)
}

func scanAsset(row rowScanner) (*model.Asset, error) {
	a := &model.Asset{}
	var description, reason, imageMime sql.NullString
	err := row.Scan(&a.ID, &a.TrackingID, &a.Name, &description, &a.CategoryID, &a.Status,
		&a.HolderID, &a.CheckedOutAt, &reason, &imageMime, &a.CreatedBy,
		&a.CreatedAt, &a.UpdatedAt, &a.HolderName)
	if err != nil {
		return nil, err
	}
	a.Description = description.String
	a.CheckoutReason = reason.String
	a.ImageMime = imageMime.String
	return a, nil
}
