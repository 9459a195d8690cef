package api

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/erazemk/zaloga/internal/checkout"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/store"
)

// CheckoutHandler serves checkout and check-in for every gateway. The actor
// is the authenticated user: token claims for operator and mobile clients,
// the session for kiosks.
type CheckoutHandler struct {
	DB          *sql.DB
	Coordinator *checkout.Coordinator
}

// Subjects are named either by kind and id or by a scanned tracking id.
type checkoutRequest struct {
	Kind       string `json:"kind" validate:"omitempty,oneof=item asset"`
	ID         int64  `json:"id" validate:"omitempty,min=1"`
	TrackingID string `json:"tracking_id" validate:"required_without=ID,max=64"`
	Quantity   int    `json:"quantity" validate:"min=0"`
	ReasonID   int64  `json:"reason_id"`
	Notes      string `json:"notes" validate:"max=1000"`
}

type checkinRequest struct {
	Kind        string `json:"kind" validate:"omitempty,oneof=item asset"`
	ID          int64  `json:"id" validate:"omitempty,min=1"`
	TrackingID  string `json:"tracking_id" validate:"required_without=ID,max=64"`
	Quantity    int    `json:"quantity" validate:"min=0"`
	Disposition string `json:"disposition" validate:"omitempty,oneof=available maintenance retired"`
	Notes       string `json:"notes" validate:"max=1000"`
}

func resolveSubject(ctx context.Context, db *sql.DB, kind string, id int64, trackingID string) (model.SubjectRef, error) {
	if trackingID != "" {
		return store.LookupTracking(ctx, db, trackingID)
	}
	if !model.ValidSubjectKind(kind) {
		return model.SubjectRef{}, errInvalid("kind must be item or asset")
	}
	return model.SubjectRef{Kind: kind, ID: id}, nil
}

// actorID returns the authenticated user of the request.
func actorID(r *http.Request) (int64, bool) {
	if claims := GetClaims(r.Context()); claims != nil {
		return claims.UserID, true
	}
	if session := GetKioskSession(r.Context()); session != nil {
		return session.UserID, true
	}
	return 0, false
}

// Checkout handles POST /api/checkout, /api/kiosk/checkout and
// /api/mobile/checkout.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, "decode request")
		return
	}
	ref, err := resolveSubject(r.Context(), h.DB, req.Kind, req.ID, req.TrackingID)
	if err != nil {
		writeError(w, err, "resolve subject")
		return
	}

	settings, err := store.LoadSettings(r.Context(), h.DB)
	if err != nil {
		writeError(w, err, "load settings")
		return
	}

	res, err := h.Coordinator.ProcessCheckout(r.Context(), settings, checkout.Request{
		Subject:  ref,
		ActorID:  actor,
		Quantity: req.Quantity,
		ReasonID: req.ReasonID,
		Notes:    req.Notes,
	})
	if err != nil {
		writeError(w, err, "check out")
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

// Checkin handles POST /api/checkin, /api/kiosk/checkin and
// /api/mobile/checkin.
func (h *CheckoutHandler) Checkin(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req checkinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, "decode request")
		return
	}
	ref, err := resolveSubject(r.Context(), h.DB, req.Kind, req.ID, req.TrackingID)
	if err != nil {
		writeError(w, err, "resolve subject")
		return
	}

	settings, err := store.LoadSettings(r.Context(), h.DB)
	if err != nil {
		writeError(w, err, "load settings")
		return
	}

	res, err := h.Coordinator.ProcessCheckin(r.Context(), settings, checkout.CheckinRequest{
		Subject:     ref,
		ActorID:     actor,
		Quantity:    req.Quantity,
		Disposition: req.Disposition,
		Notes:       req.Notes,
	})
	if err != nil {
		writeError(w, err, "check in")
		return
	}
	jsonResponse(w, http.StatusOK, res)
}
