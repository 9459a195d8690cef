package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/zaloga/internal/store"
)

// TagsHandler handles tag endpoints.
type TagsHandler struct {
	DB *sql.DB
}

type tagRequest struct {
	Name  string `json:"name" validate:"required,max=50"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

// List handles GET /api/tags.
func (h *TagsHandler) List(w http.ResponseWriter, r *http.Request) {
	tags, err := store.ListTags(r.Context(), h.DB)
	if err != nil {
		writeError(w, err, "list tags")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(tags))
}

// Create handles POST /api/tags.
func (h *TagsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, "decode request")
		return
	}

	tag, err := store.CreateTag(r.Context(), h.DB, req.Name, req.Color)
	if err != nil {
		writeError(w, err, "create tag")
		return
	}
	jsonResponse(w, http.StatusCreated, tag)
}

// Update handles PUT /api/tags/{id}.
func (h *TagsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err, "parse tag id")
		return
	}

	var req tagRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, "decode request")
		return
	}

	tag, err := store.UpdateTag(r.Context(), h.DB, id, req.Name, req.Color)
	if err != nil {
		writeError(w, err, "update tag")
		return
	}
	jsonResponse(w, http.StatusOK, tag)
}

// Delete handles DELETE /api/tags/{id}.
func (h *TagsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err, "parse tag id")
		return
	}

	if err := store.DeleteTag(r.Context(), h.DB, id); err != nil {
		writeError(w, err, "delete tag")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "tag deleted"})
}

// Subjects handles GET /api/tags/{id}/subjects.
func (h *TagsHandler) Subjects(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err, "parse tag id")
		return
	}

	refs, err := store.TaggedSubjects(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, err, "list tagged subjects")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(refs))
}
