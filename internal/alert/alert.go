// Package alert notifies interested parties when stock runs low.
package alert

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/store"
)

// Notifier receives the full list of items that currently need restocking.
// Implementations must tolerate being called with items they were already
// told about.
type Notifier interface {
	NotifyLowStock(ctx context.Context, items []model.Item) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, items []model.Item) error

// NotifyLowStock calls f.
func (f NotifierFunc) NotifyLowStock(ctx context.Context, items []model.Item) error {
	return f(ctx, items)
}

// Multi fans a notification out to every notifier, joining their errors.
type Multi []Notifier

// NotifyLowStock notifies each member in order.
func (m Multi) NotifyLowStock(ctx context.Context, items []model.Item) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyLowStock(ctx, items); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes low-stock batches to a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

// NotifyLowStock logs one summary line and one line per item.
func (n LogNotifier) NotifyLowStock(ctx context.Context, items []model.Item) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.WarnContext(ctx, "low stock", "items", len(items))
	for _, it := range items {
		logger.WarnContext(ctx, "item needs restock",
			"tracking_id", it.TrackingID,
			"name", it.Name,
			"quantity", it.Quantity,
			"status", it.Status,
		)
	}
	return nil
}

// Trigger loads the current restock list and hands it to a Notifier.
type Trigger struct {
	DB       *sql.DB
	Notifier Notifier
}

// Fire notifies about every item needing restock, not only the one that
// just crossed its threshold.
func (t *Trigger) Fire(ctx context.Context) error {
	if t == nil || t.Notifier == nil {
		return nil
	}

	items, err := store.ItemsNeedingRestock(ctx, t.DB)
	if err != nil {
		return fmt.Errorf("loading low stock items: %w", err)
	}
	if len(items) == 0 {
		return nil
	}

	if err := t.Notifier.NotifyLowStock(ctx, items); err != nil {
		return fmt.Errorf("sending low stock alert: %w", err)
	}
	return nil
}
