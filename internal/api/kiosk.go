package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/zaloga/internal/kiosk"
	"github.com/erazemk/zaloga/internal/store"
)

// KioskHandler handles the walk-up kiosk gateway. Checkout and check-in go
// through CheckoutHandler with the session as the actor.
type KioskHandler struct {
	DB       *sql.DB
	Sessions *kiosk.Manager
}

// Login handles POST /api/kiosk/login. The returned session id is sent
// back in the X-Kiosk-Session header.
func (h *KioskHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req pinLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "username and 6-digit PIN required")
		return
	}

	user, err := authenticatePIN(r.Context(), h.DB, req, r.RemoteAddr)
	if err != nil {
		writeError(w, err, "look up user")
		return
	}
	if user == nil {
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	session := h.Sessions.Open(user)
	slog.Info("kiosk session opened", "user", user.Username, "remote", r.RemoteAddr)
	jsonResponse(w, http.StatusOK, session)
}

// Logout handles POST /api/kiosk/logout.
func (h *KioskHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := GetKioskSession(r.Context())
	h.Sessions.Close(session.ID)

	slog.Info("kiosk session closed", "user", session.Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Me handles GET /api/kiosk/me: the session and the assets its user holds.
func (h *KioskHandler) Me(w http.ResponseWriter, r *http.Request) {
	session := GetKioskSession(r.Context())

	held, err := store.ListAssets(r.Context(), h.DB, store.AssetFilter{HolderID: session.UserID})
	if err != nil {
		writeError(w, err, "list held assets")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"session": session,
		"assets":  emptyIfNil(held),
	})
}
