package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/zaloga/internal/checkout"
	"github.com/erazemk/zaloga/internal/store"
)

// AssetsHandler handles asset catalog endpoints.
type AssetsHandler struct {
	DB          *sql.DB
	Coordinator *checkout.Coordinator
	TrackingIDs *store.TrackingIDs
}

type assetRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	CategoryID  *int64 `json:"category_id"`
}

type assetStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=available maintenance retired removed"`
	Notes  string `json:"notes" validate:"max=1000"`
}

// List handles GET /api/assets?status=&holder=&tag=&q=.
func (h *AssetsHandler) List(w http.ResponseWriter, r *http.Request) {
	holderID, err := queryInt64(r, "holder")
	if err != nil {
		writeError(w, err, "parse filter")
		return
	}
	tagID, err := queryInt64(r, "tag")
	if err != nil {
		writeError(w, err, "parse filter")
		return
	}

	assets, err := store.ListAssets(r.Context(), h.DB, store.AssetFilter{
		Status:   r.URL.Query().Get("status"),
		HolderID: holderID,
		TagID:    tagID,
		Search:   r.URL.Query().Get("q"),
	})
	if err != nil {
		writeError(w, err, "list assets")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(assets))
}

// Create handles POST /api/assets.
func (h *AssetsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req assetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, "decode request")
		return
	}

	claims := GetClaims(r.Context())
	asset, err := store.CreateAsset(r.Context(), h.DB, h.TrackingIDs, store.NewAsset{
		Name:        req.Name,
		Description: req.Description,
		CategoryID:  req.CategoryID,
	}, claims.UserID)
	if err != nil {
		writeError(w, err, "create asset")
		return
	}

	slog.Info("asset created", "user", claims.Username, "asset", asset.TrackingID)
	jsonResponse(w, http.StatusCreated, asset)
}

// Get handles GET /api/assets/{id}.
func (h *AssetsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err, "parse asset id")
		return
	}

	asset, err := store.GetAsset(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, err, "get asset")
		return
	}
	if asset == nil {
		jsonError(w, http.StatusNotFound, "asset not found")
		return
	}

	if asset.CategoryID != nil {
		asset.CategoryPath, err = store.FullPath(r.Context(), h.DB, *asset.CategoryID)
		if err != nil {
			writeError(w, err, "get category path")
			return
		}
	}
	jsonResponse(w, http.StatusOK, asset)
}

// Update handles PUT /api/assets/{id}.
func (h *AssetsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err, "parse asset id")
		return
	}

	var req assetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, "decode request")
		return
	}

	asset, err := store.UpdateAsset(r.Context(), h.DB, id, store.NewAsset{
		Name:        req.Name,
		Description: req.Description,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		writeError(w, err, "update asset")
		return
	}
	jsonResponse(w, http.StatusOK, asset)
}

// SetStatus handles PUT /api/assets/{id}/status for assets that are not
// checked out.
func (h *AssetsHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err, "parse asset id")
		return
	}

	var req assetStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, "decode request")
		return
	}

	claims := GetClaims(r.Context())
	res, err := h.Coordinator.SetAssetStatus(r.Context(), id, claims.UserID, req.Status, req.Notes)
	if err != nil {
		writeError(w, err, "set asset status")
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

// Delete handles DELETE /api/assets/{id}.
func (h *AssetsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err, "parse asset id")
		return
	}

	if err := store.DeleteAsset(r.Context(), h.DB, id); err != nil {
		writeError(w, err, "delete asset")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("asset deleted", "user", claims.Username, "asset", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "asset deleted"})
}
