// Package checkout is the single entry point through which the operator,
// kiosk and mobile gateways change stock and possession state.
package checkout

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/erazemk/zaloga/internal/alert"
	"github.com/erazemk/zaloga/internal/metrics"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/store"
)

// Coordinator applies checkout, check-in and adjustment requests atomically
// and reports the outcome to alerts and metrics after commit.
type Coordinator struct {
	DB      *sql.DB
	Alerts  *alert.Trigger
	Metrics *metrics.Metrics
}

// Request asks for a subject to be checked out.
type Request struct {
	Subject  model.SubjectRef
	ActorID  int64
	Quantity int // items only; 0 means 1
	ReasonID int64
	Notes    string
}

// CheckinRequest asks for a subject to be returned.
type CheckinRequest struct {
	Subject     model.SubjectRef
	ActorID     int64
	Quantity    int    // items only; 0 means 1
	Disposition string // assets only: "", maintenance or retired
	Notes       string
}

// AdjustRequest is an operator correction to an item's quantity.
type AdjustRequest struct {
	ItemID  int64
	ActorID int64
	Delta   int
	Notes   string
}

// Result is the committed outcome of a mutation.
type Result struct {
	Subject     model.Subject      `json:"subject"`
	Transaction *model.Transaction `json:"transaction"`
	Alerted     bool               `json:"alerted"`
}

// ProcessCheckout validates and applies a checkout. Checks run in a fixed
// order: subject, actor, reason, then the type-specific availability rule.
func (c *Coordinator) ProcessCheckout(ctx context.Context, settings store.Settings, req Request) (*Result, error) {
	var res Result
	err := store.WithTx(ctx, c.DB, func(tx *sql.Tx) error {
		subject, err := loadSubject(ctx, tx, req.Subject)
		if err != nil {
			return err
		}
		if _, err := store.ActiveUser(ctx, tx, req.ActorID); err != nil {
			return err
		}
		reason, err := store.ActiveReason(ctx, tx, req.ReasonID)
		if err != nil {
			return err
		}

		switch s := subject.(type) {
		case *model.Item:
			qty, err := unitCount(req.Quantity)
			if err != nil {
				return err
			}
			res.Subject, res.Transaction, err = itemResult(store.AdjustQuantity(ctx, tx, store.LedgerEntry{
				ItemID:  s.ID,
				Delta:   -qty,
				ActorID: req.ActorID,
				Kind:    model.TxCheckout,
				Reason:  reason.Name,
				Notes:   req.Notes,
			}))
			return err
		case *model.Asset:
			// Quantity is ignored: an asset is always exactly one unit.
			res.Subject, res.Transaction, err = assetResult(store.CheckOutAsset(ctx, tx, s.ID, req.ActorID, reason.Name, req.Notes))
			return err
		}
		return fmt.Errorf("%w: subject kind %q", model.ErrInvalidInput, req.Subject.Kind)
	})
	if err != nil {
		c.reject(ctx, "checkout", req.Subject, req.ActorID, err)
		return nil, err
	}

	c.commit(ctx, settings, &res)
	return &res, nil
}

// ProcessCheckin returns stock or an asset. Any active user may return an
// asset on behalf of its holder.
func (c *Coordinator) ProcessCheckin(ctx context.Context, settings store.Settings, req CheckinRequest) (*Result, error) {
	var res Result
	err := store.WithTx(ctx, c.DB, func(tx *sql.Tx) error {
		subject, err := loadSubject(ctx, tx, req.Subject)
		if err != nil {
			return err
		}
		if _, err := store.ActiveUser(ctx, tx, req.ActorID); err != nil {
			return err
		}

		switch s := subject.(type) {
		case *model.Item:
			if req.Disposition != "" {
				return fmt.Errorf("%w: disposition applies to assets only", model.ErrInvalidInput)
			}
			qty, err := unitCount(req.Quantity)
			if err != nil {
				return err
			}
			res.Subject, res.Transaction, err = itemResult(store.AdjustQuantity(ctx, tx, store.LedgerEntry{
				ItemID:  s.ID,
				Delta:   qty,
				ActorID: req.ActorID,
				Kind:    model.TxCheckin,
				Notes:   req.Notes,
			}))
			return err
		case *model.Asset:
			res.Subject, res.Transaction, err = assetResult(store.CheckInAsset(ctx, tx, s.ID, req.ActorID, req.Disposition, req.Notes))
			return err
		}
		return fmt.Errorf("%w: subject kind %q", model.ErrInvalidInput, req.Subject.Kind)
	})
	if err != nil {
		c.reject(ctx, "checkin", req.Subject, req.ActorID, err)
		return nil, err
	}

	c.commit(ctx, settings, &res)
	return &res, nil
}

// Adjust applies an operator correction to an item's quantity. Negative
// deltas are bound by the same non-negativity rule as checkouts.
func (c *Coordinator) Adjust(ctx context.Context, settings store.Settings, req AdjustRequest) (*Result, error) {
	ref := model.SubjectRef{Kind: model.SubjectItem, ID: req.ItemID}

	var res Result
	err := store.WithTx(ctx, c.DB, func(tx *sql.Tx) error {
		if _, err := store.ActiveUser(ctx, tx, req.ActorID); err != nil {
			return err
		}
		var err error
		res.Subject, res.Transaction, err = itemResult(store.AdjustQuantity(ctx, tx, store.LedgerEntry{
			ItemID:  req.ItemID,
			Delta:   req.Delta,
			ActorID: req.ActorID,
			Kind:    model.TxAdjustment,
			Notes:   req.Notes,
		}))
		return err
	})
	if err != nil {
		c.reject(ctx, "adjust", ref, req.ActorID, err)
		return nil, err
	}

	c.commit(ctx, settings, &res)
	return &res, nil
}

// SetAssetStatus moves an asset that is not checked out between available,
// maintenance and retired.
func (c *Coordinator) SetAssetStatus(ctx context.Context, assetID, actorID int64, status, notes string) (*Result, error) {
	ref := model.SubjectRef{Kind: model.SubjectAsset, ID: assetID}
	if status == model.AssetStatusRemoved {
		return c.Remove(ctx, ref, actorID, notes)
	}

	var res Result
	err := store.WithTx(ctx, c.DB, func(tx *sql.Tx) error {
		if _, err := store.ActiveUser(ctx, tx, actorID); err != nil {
			return err
		}
		var err error
		res.Subject, res.Transaction, err = assetResult(store.SetAssetStatus(ctx, tx, assetID, actorID, status, notes))
		return err
	})
	if err != nil {
		c.reject(ctx, "set_status", ref, actorID, err)
		return nil, err
	}

	c.commit(ctx, store.Settings{}, &res)
	return &res, nil
}

// Remove retires a subject permanently. The record and its history stay.
func (c *Coordinator) Remove(ctx context.Context, ref model.SubjectRef, actorID int64, notes string) (*Result, error) {
	var res Result
	err := store.WithTx(ctx, c.DB, func(tx *sql.Tx) error {
		if _, err := store.ActiveUser(ctx, tx, actorID); err != nil {
			return err
		}
		var err error
		switch ref.Kind {
		case model.SubjectItem:
			res.Subject, res.Transaction, err = itemResult(store.RemoveItem(ctx, tx, ref.ID, actorID, notes))
		case model.SubjectAsset:
			res.Subject, res.Transaction, err = assetResult(store.SetAssetStatus(ctx, tx, ref.ID, actorID, model.AssetStatusRemoved, notes))
		default:
			err = fmt.Errorf("%w: subject kind %q", model.ErrInvalidInput, ref.Kind)
		}
		return err
	})
	if err != nil {
		c.reject(ctx, "remove", ref, actorID, err)
		return nil, err
	}

	c.commit(ctx, store.Settings{}, &res)
	return &res, nil
}

// commit records a successful mutation and fires the low-stock trigger
// when an item ends in restock or out_of_stock and alerts are enabled.
// Alert failures are logged and never undo the mutation.
func (c *Coordinator) commit(ctx context.Context, settings store.Settings, res *Result) {
	c.Metrics.ObserveMutation(res.Transaction)

	ref := res.Transaction.Subject()
	slog.Info("ledger mutation",
		"kind", res.Transaction.Kind,
		"subject", ref.Kind,
		"id", ref.ID,
		"delta", res.Transaction.Delta,
		"actor", res.Transaction.UserID,
		"status", res.Subject.SubjectStatus(),
	)

	if !settings.LowStockAlerts || ref.Kind != model.SubjectItem {
		return
	}
	if !model.NeedsRestock(res.Subject.SubjectStatus()) {
		return
	}

	if err := c.Alerts.Fire(ctx); err != nil {
		slog.Error("low stock alert failed", "error", err)
		return
	}
	res.Alerted = c.Alerts != nil
}

func (c *Coordinator) reject(ctx context.Context, op string, ref model.SubjectRef, actorID int64, err error) {
	c.Metrics.ObserveRejection(err)

	if code := model.ErrorCode(err); code != "" {
		slog.WarnContext(ctx, "ledger mutation rejected",
			"op", op, "subject", ref.Kind, "id", ref.ID, "actor", actorID, "code", code, "error", err)
		return
	}
	slog.ErrorContext(ctx, "ledger mutation failed",
		"op", op, "subject", ref.Kind, "id", ref.ID, "actor", actorID, "error", err)
}

// loadSubject resolves a reference to its concrete item or asset.
func loadSubject(ctx context.Context, q store.DBTX, ref model.SubjectRef) (model.Subject, error) {
	switch ref.Kind {
	case model.SubjectItem:
		item, err := store.GetItem(ctx, q, ref.ID)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, fmt.Errorf("item %d: %w", ref.ID, model.ErrNotFound)
		}
		return item, nil
	case model.SubjectAsset:
		asset, err := store.GetAsset(ctx, q, ref.ID)
		if err != nil {
			return nil, err
		}
		if asset == nil {
			return nil, fmt.Errorf("asset %d: %w", ref.ID, model.ErrNotFound)
		}
		return asset, nil
	}
	return nil, fmt.Errorf("%w: subject kind %q", model.ErrInvalidInput, ref.Kind)
}

func unitCount(quantity int) (int, error) {
	switch {
	case quantity < 0:
		return 0, fmt.Errorf("%w: quantity must be positive", model.ErrInvalidInput)
	case quantity == 0:
		return 1, nil
	}
	return quantity, nil
}

func itemResult(item *model.Item, t *model.Transaction, err error) (model.Subject, *model.Transaction, error) {
	if err != nil {
		return nil, nil, err
	}
	return item, t, nil
}

func assetResult(asset *model.Asset, t *model.Transaction, err error) (model.Subject, *model.Transaction, error) {
	if err != nil {
		return nil, nil, err
	}
	return asset, t, nil
}
