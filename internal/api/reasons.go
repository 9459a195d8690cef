package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/zaloga/internal/store"
)

// ReasonsHandler handles checkout reasons.
type ReasonsHandler struct {
	DB *sql.DB
}

type createReasonRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

type updateReasonRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	Active      *bool  `json:"active" validate:"required"`
}

// List handles GET /api/reasons. Inactive reasons are included with
// ?all=true.
func (h *ReasonsHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, r.URL.Query().Get("all") != "true")
}

// ListActive handles the reason pickers of kiosk and mobile clients.
func (h *ReasonsHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

func (h *ReasonsHandler) list(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	reasons, err := store.ListReasons(r.Context(), h.DB, activeOnly)
	if err != nil {
		writeError(w, err, "list reasons")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(reasons))
}

// Create handles POST /api/reasons.
func (h *ReasonsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createReasonRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, "decode request")
		return
	}

	reason, err := store.CreateReason(r.Context(), h.DB, req.Name, req.Description)
	if err != nil {
		writeError(w, err, "create reason")
		return
	}
	jsonResponse(w, http.StatusCreated, reason)
}

// Update handles PUT /api/reasons/{id}. Reasons are deactivated rather than
// deleted so past transactions keep a meaningful label.
func (h *ReasonsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err, "parse reason id")
		return
	}

	var req updateReasonRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, "decode request")
		return
	}

	reason, err := store.UpdateReason(r.Context(), h.DB, id, req.Name, req.Description, *req.Active)
	if err != nil {
		writeError(w, err, "update reason")
		return
	}
	jsonResponse(w, http.StatusOK, reason)
}
