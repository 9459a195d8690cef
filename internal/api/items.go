package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/zaloga/internal/checkout"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/store"
)

// ItemsHandler handles item catalog endpoints.
type ItemsHandler struct {
	DB          *sql.DB
	Coordinator *checkout.Coordinator
	TrackingIDs *store.TrackingIDs
}

type createItemRequest struct {
	Name             string `json:"name" validate:"required,max=200"`
	Description      string `json:"description" validate:"max=2000"`
	CategoryID       *int64 `json:"category_id"`
	Quantity         int    `json:"quantity" validate:"min=0"`
	ReorderThreshold *int   `json:"reorder_threshold" validate:"omitempty,min=0"`
	MinimumQuantity  *int   `json:"minimum_quantity" validate:"omitempty,min=0"`
}

type updateItemRequest struct {
	Name             string `json:"name" validate:"required,max=200"`
	Description      string `json:"description" validate:"max=2000"`
	CategoryID       *int64 `json:"category_id"`
	ReorderThreshold *int   `json:"reorder_threshold" validate:"omitempty,min=0"`
	MinimumQuantity  *int   `json:"minimum_quantity" validate:"omitempty,min=0"`
}

type adjustRequest struct {
	Delta int    `json:"delta" validate:"required"`
	Notes string `json:"notes" validate:"max=1000"`
}

// List handles GET /api/items?status=&category=&tag=&q=.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	categoryID, err := queryInt64(r, "category")
	if err != nil {
		writeError(w, err, "parse filter")
		return
	}
	tagID, err := queryInt64(r, "tag")
	if err != nil {
		writeError(w, err, "parse filter")
		return
	}

	items, err := store.ListItems(r.Context(), h.DB, store.ItemFilter{
		Status:     r.URL.Query().Get("status"),
		CategoryID: categoryID,
		TagID:      tagID,
		Search:     r.URL.Query().Get("q"),
	})
	if err != nil {
		writeError(w, err, "list items")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(items))
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, "decode request")
		return
	}

	claims := GetClaims(r.Context())
	item, err := store.CreateItem(r.Context(), h.DB, h.TrackingIDs, store.NewItem{
		Name:             req.Name,
		Description:      req.Description,
		CategoryID:       req.CategoryID,
		Quantity:         req.Quantity,
		ReorderThreshold: req.ReorderThreshold,
		MinimumQuantity:  req.MinimumQuantity,
	}, claims.UserID)
	if err != nil {
		writeError(w, err, "create item")
		return
	}

	slog.Info("item created", "user", claims.Username, "item", item.TrackingID, "quantity", item.Quantity)
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err, "parse item id")
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, err, "get item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	if item.CategoryID != nil {
		item.CategoryPath, err = store.FullPath(r.Context(), h.DB, *item.CategoryID)
		if err != nil {
			writeError(w, err, "get category path")
			return
		}
	}
	jsonResponse(w, http.StatusOK, item)
}

// Update handles PUT /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err, "parse item id")
		return
	}

	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, "decode request")
		return
	}

	item, err := store.UpdateItem(r.Context(), h.DB, id, store.ItemUpdate{
		Name:             req.Name,
		Description:      req.Description,
		CategoryID:       req.CategoryID,
		ReorderThreshold: req.ReorderThreshold,
		MinimumQuantity:  req.MinimumQuantity,
	})
	if err != nil {
		writeError(w, err, "update item")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}. Only items without history can be
// deleted; the rest must be removed.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err, "parse item id")
		return
	}

	if err := store.DeleteItem(r.Context(), h.DB, id); err != nil {
		writeError(w, err, "delete item")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("item deleted", "user", claims.Username, "item", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// Adjust handles POST /api/items/{id}/adjust.
func (h *ItemsHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err, "parse item id")
		return
	}

	var req adjustRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, "decode request")
		return
	}

	settings, err := store.LoadSettings(r.Context(), h.DB)
	if err != nil {
		writeError(w, err, "load settings")
		return
	}

	claims := GetClaims(r.Context())
	res, err := h.Coordinator.Adjust(r.Context(), settings, checkout.AdjustRequest{
		ItemID:  id,
		ActorID: claims.UserID,
		Delta:   req.Delta,
		Notes:   req.Notes,
	})
	if err != nil {
		writeError(w, err, "adjust item")
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

// LowStock handles GET /api/items/low-stock.
func (h *ItemsHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	items, err := store.ItemsNeedingRestock(r.Context(), h.DB)
	if err != nil {
		writeError(w, err, "list low stock")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(items))
}

// Lookup handles GET /api/lookup/{tracking}, resolving a scanned tracking
// id to its item or asset.
func Lookup(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, err := store.LookupTracking(r.Context(), db, r.PathValue("tracking"))
		if err != nil {
			writeError(w, err, "look up tracking id")
			return
		}

		var subject any
		switch ref.Kind {
		case model.SubjectItem:
			subject, err = store.GetItem(r.Context(), db, ref.ID)
		default:
			subject, err = store.GetAsset(r.Context(), db, ref.ID)
		}
		if err != nil {
			writeError(w, err, "get "+ref.Kind)
			return
		}
		jsonResponse(w, http.StatusOK, map[string]any{"kind": ref.Kind, "subject": subject})
	}
}
