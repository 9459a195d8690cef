package alert

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/erazemk/zaloga/internal/db"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/store"
)

type recorder struct {
	batches [][]model.Item
}

func (r *recorder) NotifyLowStock(_ context.Context, items []model.Item) error {
	r.batches = append(r.batches, items)
	return nil
}

func TestTriggerSendsFullList(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, database, "alice", "hash", model.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	threshold := 5
	for _, in := range []store.NewItem{
		{Name: "Empty", Quantity: 0},
		{Name: "Low", Quantity: 3, ReorderThreshold: &threshold},
		{Name: "Plenty", Quantity: 50, ReorderThreshold: &threshold},
	} {
		if _, err := store.CreateItem(ctx, database, &store.TrackingIDs{}, in, user.ID); err != nil {
			t.Fatalf("CreateItem: %v", err)
		}
	}

	rec := &recorder{}
	trigger := &Trigger{DB: database, Notifier: rec}
	if err := trigger.Fire(ctx); err != nil {
		t.Fatalf("Fire: %v", err)
	}

	if len(rec.batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(rec.batches))
	}
	if len(rec.batches[0]) != 2 {
		t.Errorf("expected 2 items needing restock, got %d", len(rec.batches[0]))
	}
}

func TestTriggerSkipsEmptyList(t *testing.T) {
	database := db.NewTestDB(t)

	rec := &recorder{}
	trigger := &Trigger{DB: database, Notifier: rec}
	if err := trigger.Fire(context.Background()); err != nil {
		t.Fatalf("Fire: %v", err)
	}
	if len(rec.batches) != 0 {
		t.Errorf("expected no notification, got %d", len(rec.batches))
	}

	var nilTrigger *Trigger
	if err := nilTrigger.Fire(context.Background()); err != nil {
		t.Errorf("nil trigger: %v", err)
	}
}

func TestMultiJoinsErrors(t *testing.T) {
	boom := errors.New("smtp down")
	rec := &recorder{}
	m := Multi{
		NotifierFunc(func(context.Context, []model.Item) error { return boom }),
		rec,
	}

	err := m.NotifyLowStock(context.Background(), []model.Item{{Name: "x"}})
	if !errors.Is(err, boom) {
		t.Errorf("expected joined error to wrap %v, got %v", boom, err)
	}
	if len(rec.batches) != 1 {
		t.Error("expected later notifiers to run after a failure")
	}
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := LogNotifier{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	n.NotifyLowStock(context.Background(), []model.Item{{TrackingID: "TC-AAAAAAAA", Name: "Tape", Status: model.ItemStatusRestock}})

	out := buf.String()
	if !strings.Contains(out, "items=1") || !strings.Contains(out, "tracking_id=TC-AAAAAAAA") {
		t.Errorf("unexpected log output:\n%s", out)
	}
}
