package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strconv"
)

const settingLowStockAlerts = "low_stock_alerts"

// Settings is a snapshot of the runtime settings that influence mutations.
// It is loaded once per request and passed down explicitly.
type Settings struct {
	LowStockAlerts bool `json:"low_stock_alerts"`
}

// DefaultSettings returns the settings used when nothing is stored.
func DefaultSettings() Settings {
	return Settings{LowStockAlerts: true}
}

// GetJWTSecret retrieves the JWT secret from the database.
// If no secret exists, it generates one, stores it, and returns it.
// Uses INSERT OR IGNORE + re-SELECT to avoid TOCTOU race on concurrent startup.
func GetJWTSecret(ctx context.Context, db *sql.DB) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	candidate := hex.EncodeToString(buf)

	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES ('jwt_secret', ?)`,
		candidate,
	)
	if err != nil {
		return "", fmt.Errorf("storing jwt_secret: %w", err)
	}

	// Either our insert or the existing value.
	var secret string
	err = db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = 'jwt_secret'`,
	).Scan(&secret)
	if err != nil {
		return "", fmt.Errorf("querying jwt_secret: %w", err)
	}

	return secret, nil
}

// LoadSettings reads the current settings, falling back to defaults for
// keys that were never written.
func LoadSettings(ctx context.Context, q DBTX) (Settings, error) {
	s := DefaultSettings()

	var raw string
	err := q.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, settingLowStockAlerts,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("loading settings: %w", err)
	}

	enabled, err := strconv.ParseBool(raw)
	if err != nil {
		return s, fmt.Errorf("parsing %s: %w", settingLowStockAlerts, err)
	}
	s.LowStockAlerts = enabled
	return s, nil
}

// SaveSettings persists every setting in s.
func SaveSettings(ctx context.Context, db *sql.DB, s Settings) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		settingLowStockAlerts, strconv.FormatBool(s.LowStockAlerts),
	)
	if err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}
