package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/erazemk/zaloga/internal/db"
	"github.com/erazemk/zaloga/internal/model"
)

func checkOut(ctx context.Context, database *sql.DB, assetID, actorID int64) (*model.Asset, error) {
	var asset *model.Asset
	err := WithTx(ctx, database, func(tx *sql.Tx) error {
		var err error
		asset, _, err = CheckOutAsset(ctx, tx, assetID, actorID, "Field work", "")
		return err
	})
	return asset, err
}

func checkIn(ctx context.Context, database *sql.DB, assetID, actorID int64, disposition string) (*model.Asset, error) {
	var asset *model.Asset
	err := WithTx(ctx, database, func(tx *sql.Tx) error {
		var err error
		asset, _, err = CheckInAsset(ctx, tx, assetID, actorID, disposition, "")
		return err
	})
	return asset, err
}

func TestAssetPossessionExclusive(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	alice := newTestUser(t, database, "alice")
	bob := newTestUser(t, database, "bob")
	asset := newTestAsset(t, database, alice.ID, "Drill")

	got, err := checkOut(ctx, database, asset.ID, alice.ID)
	if err != nil {
		t.Fatalf("CheckOutAsset: %v", err)
	}
	if got.Status != model.AssetStatusCheckedOut {
		t.Errorf("expected checked_out, got %q", got.Status)
	}
	if got.HolderID == nil || *got.HolderID != alice.ID || got.CheckedOutAt == nil {
		t.Errorf("expected alice to hold the asset, got %+v", got)
	}
	if got.HolderName != "alice" || got.CheckoutReason != "Field work" {
		t.Errorf("unexpected holder %q or reason %q", got.HolderName, got.CheckoutReason)
	}

	if _, err := checkOut(ctx, database, asset.ID, bob.ID); !errors.Is(err, model.ErrAssetUnavailable) {
		t.Fatalf("expected ErrAssetUnavailable, got %v", err)
	}

	still, _ := GetAsset(ctx, database, asset.ID)
	if *still.HolderID != alice.ID {
		t.Errorf("holder changed after rejected checkout: %d", *still.HolderID)
	}
}

func TestAssetCheckin(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := newTestUser(t, database, "alice")
	asset := newTestAsset(t, database, user.ID, "Ladder")

	if _, err := checkIn(ctx, database, asset.ID, user.ID, ""); !errors.Is(err, model.ErrAssetNotCheckedOut) {
		t.Fatalf("expected ErrAssetNotCheckedOut, got %v", err)
	}

	if _, err := checkOut(ctx, database, asset.ID, user.ID); err != nil {
		t.Fatalf("CheckOutAsset: %v", err)
	}

	got, err := checkIn(ctx, database, asset.ID, user.ID, model.AssetStatusMaintenance)
	if err != nil {
		t.Fatalf("CheckInAsset: %v", err)
	}
	if got.Status != model.AssetStatusMaintenance {
		t.Errorf("expected maintenance, got %q", got.Status)
	}
	if got.HolderID != nil || got.CheckedOutAt != nil || got.CheckoutReason != "" {
		t.Errorf("expected possession fields cleared, got %+v", got)
	}

	if _, err := checkOut(ctx, database, asset.ID, user.ID); !errors.Is(err, model.ErrAssetUnavailable) {
		t.Errorf("expected maintenance asset to be unavailable, got %v", err)
	}

	history, _ := SubjectHistory(ctx, database, model.SubjectRef{Kind: model.SubjectAsset, ID: asset.ID})
	if len(history) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(history))
	}
	if history[0].Kind != model.TxCheckin || history[1].Kind != model.TxCheckout {
		t.Errorf("expected checkin then checkout (newest first), got %s, %s", history[0].Kind, history[1].Kind)
	}
	for _, tx := range history {
		if tx.Delta != 0 {
			t.Errorf("asset transaction has delta %d", tx.Delta)
		}
	}
}

func TestAssetCheckinRejectsBadDisposition(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := newTestUser(t, database, "alice")
	asset := newTestAsset(t, database, user.ID, "Camera")
	checkOut(ctx, database, asset.ID, user.ID)

	if _, err := checkIn(ctx, database, asset.ID, user.ID, model.AssetStatusCheckedOut); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSetAssetStatus(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := newTestUser(t, database, "alice")
	asset := newTestAsset(t, database, user.ID, "Projector")

	setStatus := func(status string) error {
		return WithTx(ctx, database, func(tx *sql.Tx) error {
			_, _, err := SetAssetStatus(ctx, tx, asset.ID, user.ID, status, "")
			return err
		})
	}

	if err := setStatus(model.AssetStatusRetired); err != nil {
		t.Fatalf("SetAssetStatus retired: %v", err)
	}
	if err := setStatus(model.AssetStatusCheckedOut); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for checked_out, got %v", err)
	}
	if err := setStatus(model.AssetStatusAvailable); err != nil {
		t.Fatalf("SetAssetStatus available: %v", err)
	}

	checkOut(ctx, database, asset.ID, user.ID)
	if err := setStatus(model.AssetStatusMaintenance); !errors.Is(err, model.ErrAssetUnavailable) {
		t.Errorf("expected checked-out asset to reject status edits, got %v", err)
	}
}

func TestSetAssetStatusUnchangedRecordsNothing(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := newTestUser(t, database, "alice")
	asset := newTestAsset(t, database, user.ID, "Ladder")
	ref := model.SubjectRef{Kind: model.SubjectAsset, ID: asset.ID}

	err := WithTx(ctx, database, func(tx *sql.Tx) error {
		_, _, err := SetAssetStatus(ctx, tx, asset.ID, user.ID, model.AssetStatusAvailable, "")
		return err
	})
	if !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for an unchanged status, got %v", err)
	}

	history, err := SubjectHistory(ctx, database, ref)
	if err != nil {
		t.Fatalf("SubjectHistory: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("expected no transactions, got %d", len(history))
	}

	err = WithTx(ctx, database, func(tx *sql.Tx) error {
		_, _, err := SetAssetStatus(ctx, tx, asset.ID, user.ID, model.AssetStatusMaintenance, "")
		return err
	})
	if err != nil {
		t.Fatalf("SetAssetStatus maintenance: %v", err)
	}
	history, _ = SubjectHistory(ctx, database, ref)
	if len(history) != 1 {
		t.Errorf("expected one transaction after a real change, got %d", len(history))
	}
}

func TestDeleteAssetWithHistory(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := newTestUser(t, database, "alice")

	fresh := newTestAsset(t, database, user.ID, "Unused")
	if err := DeleteAsset(ctx, database, fresh.ID); err != nil {
		t.Fatalf("DeleteAsset: %v", err)
	}

	used := newTestAsset(t, database, user.ID, "Used")
	checkOut(ctx, database, used.ID, user.ID)
	if err := DeleteAsset(ctx, database, used.ID); !errors.Is(err, model.ErrHasHistory) {
		t.Errorf("expected ErrHasHistory, got %v", err)
	}
	if err := DeleteAsset(ctx, database, 9999); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListAssetsByHolder(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	alice := newTestUser(t, database, "alice")
	bob := newTestUser(t, database, "bob")

	a := newTestAsset(t, database, alice.ID, "A")
	newTestAsset(t, database, alice.ID, "B")
	checkOut(ctx, database, a.ID, bob.ID)

	held, err := ListAssets(ctx, database, AssetFilter{HolderID: bob.ID})
	if err != nil {
		t.Fatalf("ListAssets: %v", err)
	}
	if len(held) != 1 || held[0].ID != a.ID {
		t.Errorf("expected bob to hold only A, got %+v", held)
	}

	all, _ := ListAssets(ctx, database, AssetFilter{})
	if len(all) != 2 {
		t.Errorf("expected 2 assets, got %d", len(all))
	}
}
