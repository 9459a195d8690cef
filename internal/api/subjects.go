package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/zaloga/internal/checkout"
	"github.com/erazemk/zaloga/internal/imaging"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/store"
)

// SubjectHandler serves the endpoints items and assets have in common:
// photos, history, tags and removal. Kind selects which of the two it
// serves.
type SubjectHandler struct {
	DB          *sql.DB
	Coordinator *checkout.Coordinator
	Kind        string
}

type notesRequest struct {
	Notes string `json:"notes" validate:"max=1000"`
}

func (h *SubjectHandler) ref(r *http.Request) (model.SubjectRef, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return model.SubjectRef{}, err
	}
	return model.SubjectRef{Kind: h.Kind, ID: id}, nil
}

// UploadImage handles PUT /api/{kind}s/{id}/image. The photo is sent as
// the "image" field of a multipart form.
func (h *SubjectHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	ref, err := h.ref(r)
	if err != nil {
		writeError(w, err, "parse id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusRequestEntityTooLarge, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	photo, err := imaging.Normalize(file)
	switch {
	case errors.Is(err, imaging.ErrTooLarge):
		jsonError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	case errors.Is(err, imaging.ErrUnsupported):
		jsonError(w, http.StatusUnsupportedMediaType, "image must be JPEG or PNG")
		return
	case err != nil:
		writeError(w, err, "process image")
		return
	}

	if err := store.SetImage(r.Context(), h.DB, ref, photo.Data, photo.MIME); err != nil {
		writeError(w, err, "save image")
		return
	}

	slog.Info("photo uploaded", "subject", ref.Kind, "id", ref.ID, "width", photo.Width, "height", photo.Height)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "image uploaded"})
}

// GetImage handles GET /api/{kind}s/{id}/image.
func (h *SubjectHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	ref, err := h.ref(r)
	if err != nil {
		writeError(w, err, "parse id")
		return
	}

	data, mime, err := store.GetImage(r.Context(), h.DB, ref)
	if err != nil {
		writeError(w, err, "get image")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(data)
}

// History handles GET /api/{kind}s/{id}/history.
func (h *SubjectHandler) History(w http.ResponseWriter, r *http.Request) {
	ref, err := h.ref(r)
	if err != nil {
		writeError(w, err, "parse id")
		return
	}

	history, err := store.SubjectHistory(r.Context(), h.DB, ref)
	if err != nil {
		writeError(w, err, "get history")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(history))
}

// AttachTag handles PUT /api/{kind}s/{id}/tags/{tag}.
func (h *SubjectHandler) AttachTag(w http.ResponseWriter, r *http.Request) {
	ref, tagID, ok := h.tagTarget(w, r)
	if !ok {
		return
	}
	if err := store.AttachTag(r.Context(), h.DB, ref, tagID); err != nil {
		writeError(w, err, "attach tag")
		return
	}
	h.writeTags(w, r, ref)
}

// DetachTag handles DELETE /api/{kind}s/{id}/tags/{tag}.
func (h *SubjectHandler) DetachTag(w http.ResponseWriter, r *http.Request) {
	ref, tagID, ok := h.tagTarget(w, r)
	if !ok {
		return
	}
	if err := store.DetachTag(r.Context(), h.DB, ref, tagID); err != nil {
		writeError(w, err, "detach tag")
		return
	}
	h.writeTags(w, r, ref)
}

func (h *SubjectHandler) tagTarget(w http.ResponseWriter, r *http.Request) (model.SubjectRef, int64, bool) {
	ref, err := h.ref(r)
	if err != nil {
		writeError(w, err, "parse id")
		return ref, 0, false
	}
	tagID, err := pathID(r, "tag")
	if err != nil {
		writeError(w, err, "parse tag id")
		return ref, 0, false
	}
	return ref, tagID, true
}

func (h *SubjectHandler) writeTags(w http.ResponseWriter, r *http.Request, ref model.SubjectRef) {
	tags, err := store.TagsFor(r.Context(), h.DB, ref)
	if err != nil {
		writeError(w, err, "list tags")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(tags))
}

// Remove handles POST /api/{kind}s/{id}/remove. The subject stays in the
// catalog with status removed and keeps its history.
func (h *SubjectHandler) Remove(w http.ResponseWriter, r *http.Request) {
	ref, err := h.ref(r)
	if err != nil {
		writeError(w, err, "parse id")
		return
	}

	var req notesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, "decode request")
		return
	}

	claims := GetClaims(r.Context())
	res, err := h.Coordinator.Remove(r.Context(), ref, claims.UserID, req.Notes)
	if err != nil {
		writeError(w, err, "remove "+ref.Kind)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}
