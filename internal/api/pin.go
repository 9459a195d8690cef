package api

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/erazemk/zaloga/internal/auth"
	"github.com/erazemk/zaloga/internal/kiosk"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/store"
)

type pinLoginRequest struct {
	Username string `json:"username" validate:"required"`
	PIN      string `json:"pin" validate:"required,len=6,numeric"`
}

// authenticatePIN returns the active user whose PIN matches, or nil when
// the credentials are wrong. Kiosk and mobile logins share it.
func authenticatePIN(ctx context.Context, db *sql.DB, req pinLoginRequest, remote string) (*model.User, error) {
	user, err := store.GetUserByUsername(ctx, db, req.Username)
	if err != nil {
		return nil, err
	}
	if user == nil || !auth.CheckSecret(user.PINHash, req.PIN) {
		slog.Warn("PIN login failed", "username", req.Username, "remote", remote)
		return nil, nil
	}
	return user, nil
}

// storePIN validates, hashes and saves a PIN, then ends the user's kiosk
// sessions.
func storePIN(r *http.Request, db *sql.DB, sessions *kiosk.Manager, userID int64, pin string) error {
	if err := model.ValidatePIN(pin); err != nil {
		return fmt.Errorf("%w: %s", model.ErrInvalidInput, err)
	}

	hash, err := auth.HashSecret(pin)
	if err != nil {
		return err
	}
	if err := store.SetUserPIN(r.Context(), db, userID, hash); err != nil {
		return err
	}

	if sessions != nil {
		sessions.CloseUser(userID)
	}
	return nil
}
