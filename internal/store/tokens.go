package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RevokeToken adds an operator token's JTI to the revocation list until the
// token would have expired anyway.
func RevokeToken(ctx context.Context, db *sql.DB, jti string, expiresAt time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO revoked_tokens (jti, expires_at) VALUES (?, ?)`,
		jti, expiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}

	// Expired revocations can never match a valid token again.
	if _, err := PurgeRevokedTokens(ctx, db); err != nil {
		return err
	}
	return nil
}

// PurgeRevokedTokens deletes revocations whose tokens have expired and
// returns how many were removed.
func PurgeRevokedTokens(ctx context.Context, db *sql.DB) (int64, error) {
	result, err := db.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at < ?`, now(),
	)
	if err != nil {
		return 0, fmt.Errorf("purging revoked tokens: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// IsTokenRevoked checks if a token's JTI has been revoked.
func IsTokenRevoked(ctx context.Context, q DBTX, jti string) (bool, error) {
	revoked, err := exists(ctx, q, `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = ?)`, jti)
	if err != nil {
		return false, fmt.Errorf("checking token revocation: %w", err)
	}
	return revoked, nil
}
