package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/zaloga/internal/store"
)

// SettingsHandler handles runtime settings (admin only).
type SettingsHandler struct {
	DB *sql.DB
}

type settingsRequest struct {
	LowStockAlerts *bool `json:"low_stock_alerts" validate:"required"`
}

// Get handles GET /api/settings.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := store.LoadSettings(r.Context(), h.DB)
	if err != nil {
		writeError(w, err, "load settings")
		return
	}
	jsonResponse(w, http.StatusOK, s)
}

// Update handles PUT /api/settings.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, "decode request")
		return
	}

	s := store.Settings{LowStockAlerts: *req.LowStockAlerts}
	if err := store.SaveSettings(r.Context(), h.DB, s); err != nil {
		writeError(w, err, "save settings")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("settings updated", "user", claims.Username, "low_stock_alerts", s.LowStockAlerts)
	jsonResponse(w, http.StatusOK, s)
}
