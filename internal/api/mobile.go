package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/erazemk/zaloga/internal/auth"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/store"
)

// MobileHandler handles token issuance for mobile clients. Mobile tokens
// are not revocable and end only by expiring.
type MobileHandler struct {
	DB        *sql.DB
	JWTSecret string
	TokenTTL  time.Duration
}

type mobileUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type mobileTokenResponse struct {
	tokenResponse
	User mobileUser `json:"user"`
}

// Login handles POST /api/mobile/auth/login with a username and PIN.
func (h *MobileHandler) Login(w http.ResponseWriter, r *http.Request) {
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

	token, claims, err := auth.GenerateToken(h.JWTSecret, h.TokenTTL, user, auth.ScopeMobile)
	if err != nil {
		writeError(w, err, "generate token")
		return
	}

	slog.Info("mobile login", "user", user.Username)
	jsonResponse(w, http.StatusOK, mobileTokenResponse{
		tokenResponse: tokenResponse{Token: token, ExpiresAt: claims.ExpiresAt.Time},
		User:          mobileUser{ID: user.ID, Username: user.Username, Role: user.Role},
	})
}

// Refresh handles POST /api/mobile/auth/refresh, exchanging a valid mobile
// token for a fresh one. Deleted users cannot refresh.
func (h *MobileHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	user, err := store.ActiveUser(r.Context(), h.DB, claims.UserID)
	if err != nil {
		writeError(w, err, "look up user")
		return
	}

	token, fresh, err := auth.GenerateToken(h.JWTSecret, h.TokenTTL, user, auth.ScopeMobile)
	if err != nil {
		writeError(w, err, "generate token")
		return
	}
	jsonResponse(w, http.StatusOK, mobileTokenResponse{
		tokenResponse: tokenResponse{Token: token, ExpiresAt: fresh.ExpiresAt.Time},
		User:          mobileUser{ID: user.ID, Username: user.Username, Role: user.Role},
	})
}

// Verify handles GET /api/mobile/auth/verify.
func (h *MobileHandler) Verify(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	user, err := store.ActiveUser(r.Context(), h.DB, claims.UserID)
	if err != nil {
		writeError(w, err, "look up user")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"valid":      true,
		"user":       mobileUser{ID: user.ID, Username: user.Username, Role: user.Role},
		"expires_at": claims.ExpiresAt.Time,
	})
}

// Mobile history and search defaults.
const (
	mobileHistoryWindow  = 30 * 24 * time.Hour
	mobileSearchLimit    = 20
	mobileSearchMaxLimit = 50
)

// History handles GET /api/mobile/checkout/history?since=RFC3339&kind=, the
// caller's own transactions. By default it returns checkouts from the last
// 30 days; kind=all returns every kind.
func (h *MobileHandler) History(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	since, err := parseSince(r)
	if err != nil {
		writeError(w, err, "parse since")
		return
	}
	if since.IsZero() {
		since = time.Now().Add(-mobileHistoryWindow)
	}

	kind := r.URL.Query().Get("kind")
	switch {
	case kind == "":
		kind = model.TxCheckout
	case kind == "all":
		kind = ""
	case !model.ValidTransactionKind(kind):
		writeError(w, errInvalid("unknown transaction kind"), "parse kind")
		return
	}

	history, err := store.ActorHistory(r.Context(), h.DB, claims.UserID, store.HistoryFilter{Since: since, Kind: kind})
	if err != nil {
		writeError(w, err, "get history")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(history))
}

type searchPage struct {
	Results     any  `json:"results"`
	Total       int  `json:"total"`
	Pages       int  `json:"pages"`
	CurrentPage int  `json:"current_page"`
	HasNext     bool `json:"has_next"`
	HasPrev     bool `json:"has_prev"`
}

// searchParams reads q, page and limit. q is required, page starts at 1 and
// limit is capped at mobileSearchMaxLimit.
func searchParams(r *http.Request) (query string, page, limit int, err error) {
	query = strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		return "", 0, 0, errInvalid("search query is required")
	}

	p, err := queryInt64(r, "page")
	if err != nil || p < 0 {
		return "", 0, 0, errInvalid("invalid page")
	}
	l, err := queryInt64(r, "limit")
	if err != nil || l < 0 {
		return "", 0, 0, errInvalid("invalid limit")
	}

	page, limit = int(p), int(l)
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = mobileSearchLimit
	}
	return query, page, min(limit, mobileSearchMaxLimit), nil
}

func newSearchPage(results any, total, page, limit int) searchPage {
	pages := (total + limit - 1) / limit
	return searchPage{
		Results:     results,
		Total:       total,
		Pages:       pages,
		CurrentPage: page,
		HasNext:     page < pages,
		HasPrev:     page > 1,
	}
}

// SearchItems handles GET /api/mobile/items/search?q=&page=&limit=,
// matching item names and tracking ids.
func (h *MobileHandler) SearchItems(w http.ResponseWriter, r *http.Request) {
	query, page, limit, err := searchParams(r)
	if err != nil {
		writeError(w, err, "parse search")
		return
	}

	f := store.ItemFilter{Search: query, Limit: limit, Offset: (page - 1) * limit}
	total, err := store.CountItems(r.Context(), h.DB, f)
	if err != nil {
		writeError(w, err, "search items")
		return
	}
	items, err := store.ListItems(r.Context(), h.DB, f)
	if err != nil {
		writeError(w, err, "search items")
		return
	}
	jsonResponse(w, http.StatusOK, newSearchPage(emptyIfNil(items), total, page, limit))
}

// SearchAssets handles GET /api/mobile/assets/search?q=&page=&limit=,
// matching asset names and tracking ids.
func (h *MobileHandler) SearchAssets(w http.ResponseWriter, r *http.Request) {
	query, page, limit, err := searchParams(r)
	if err != nil {
		writeError(w, err, "parse search")
		return
	}

	f := store.AssetFilter{Search: query, Limit: limit, Offset: (page - 1) * limit}
	total, err := store.CountAssets(r.Context(), h.DB, f)
	if err != nil {
		writeError(w, err, "search assets")
		return
	}
	assets, err := store.ListAssets(r.Context(), h.DB, f)
	if err != nil {
		writeError(w, err, "search assets")
		return
	}
	jsonResponse(w, http.StatusOK, newSearchPage(emptyIfNil(assets), total, page, limit))
}
