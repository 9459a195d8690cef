package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/zaloga/internal/store"
)

// CategoriesHandler handles the category tree.
type CategoriesHandler struct {
	DB *sql.DB
}

type categoryRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	ParentID *int64 `json:"parent_id"`
}

// List handles GET /api/categories. The tree is returned depth-first with
// each node's depth and full path.
func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	nodes, err := store.OrderedHierarchy(r.Context(), h.DB)
	if err != nil {
		writeError(w, err, "list categories")
		return
	}
	jsonResponse(w, http.StatusOK, nodes)
}

// Create handles POST /api/categories.
func (h *CategoriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, "decode request")
		return
	}

	c, err := store.CreateCategory(r.Context(), h.DB, req.Name, req.ParentID)
	if err != nil {
		writeError(w, err, "create category")
		return
	}
	jsonResponse(w, http.StatusCreated, c)
}

// Update handles PUT /api/categories/{id}.
func (h *CategoriesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err, "parse category id")
		return
	}

	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, "decode request")
		return
	}

	c, err := store.UpdateCategory(r.Context(), h.DB, id, req.Name, req.ParentID)
	if err != nil {
		writeError(w, err, "update category")
		return
	}
	jsonResponse(w, http.StatusOK, c)
}

// Delete handles DELETE /api/categories/{id}.
func (h *CategoriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err, "parse category id")
		return
	}

	if err := store.DeleteCategory(r.Context(), h.DB, id); err != nil {
		writeError(w, err, "delete category")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "category deleted"})
}
