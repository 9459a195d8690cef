package store

import (
	"context"
	"testing"

	"github.com/erazemk/zaloga/internal/db"
)

func TestGetJWTSecret_GeneratesAndPersists(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	secret1, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if len(secret1) != 64 { // 32 bytes = 64 hex chars
		t.Fatalf("expected 64 hex chars, got %d", len(secret1))
	}

	secret2, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if secret1 != secret2 {
		t.Fatalf("expected same secret, got %q and %q", secret1, secret2)
	}
}

func TestSettingsDefaultsAndSave(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	s, err := LoadSettings(ctx, database)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if !s.LowStockAlerts {
		t.Error("expected low stock alerts enabled by default")
	}

	if err := SaveSettings(ctx, database, Settings{LowStockAlerts: false}); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	s, _ = LoadSettings(ctx, database)
	if s.LowStockAlerts {
		t.Error("expected low stock alerts disabled after save")
	}

	if err := SaveSettings(ctx, database, Settings{LowStockAlerts: true}); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	s, _ = LoadSettings(ctx, database)
	if !s.LowStockAlerts {
		t.Error("expected low stock alerts re-enabled")
	}
}
