package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"

	"github.com/erazemk/zaloga/internal/model"
)

const trackingIDCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Tracking id defaults.
const (
	TrackingIDLength          = 8
	DefaultTrackingIDPrefix   = "TC"
	DefaultTrackingIDAttempts = 16
)

// TrackingIDs allocates external tracking ids of the form PREFIX-XXXXXXXX
// that are unique across both items and assets.
type TrackingIDs struct {
	Prefix      string
	MaxAttempts int

	// Random returns the random part of an id. Defaults to crypto/rand.
	Random func() (string, error)
}

// Next returns a tracking id not used by any item or asset. It must run in
// the same transaction as the insert that claims the id. Running out of
// attempts means the id space is misconfigured and is reported as
// model.ErrIdentifierExhausted.
func (g *TrackingIDs) Next(ctx context.Context, q DBTX) (string, error) {
	prefix := g.Prefix
	if prefix == "" {
		prefix = DefaultTrackingIDPrefix
	}
	attempts := g.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultTrackingIDAttempts
	}
	random := g.Random
	if random == nil {
		random = randomTrackingSuffix
	}

	for range attempts {
		suffix, err := random()
		if err != nil {
			return "", fmt.Errorf("generating tracking id: %w", err)
		}
		id := prefix + "-" + suffix

		taken, err := TrackingIDTaken(ctx, q, id)
		if err != nil {
			return "", err
		}
		if !taken {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %d attempts with prefix %q", model.ErrIdentifierExhausted, attempts, prefix)
}

// TrackingIDTaken reports whether id belongs to any item or asset.
func TrackingIDTaken(ctx context.Context, q DBTX, id string) (bool, error) {
	taken, err := exists(ctx, q,
		`SELECT EXISTS (SELECT 1 FROM items WHERE tracking_id = ?)
		     OR EXISTS (SELECT 1 FROM assets WHERE tracking_id = ?)`,
		id, id,
	)
	if err != nil {
		return false, fmt.Errorf("checking tracking id: %w", err)
	}
	return taken, nil
}

// LookupTracking resolves a scanned tracking id to the item or asset it
// identifies.
func LookupTracking(ctx context.Context, q DBTX, trackingID string) (model.SubjectRef, error) {
	var ref model.SubjectRef
	err := q.QueryRowContext(ctx,
		`SELECT 'item', id FROM items WHERE tracking_id = ?
		 UNION ALL
		 SELECT 'asset', id FROM assets WHERE tracking_id = ?
		 LIMIT 1`,
		trackingID, trackingID,
	).Scan(&ref.Kind, &ref.ID)
	if err == sql.ErrNoRows {
		return ref, fmt.Errorf("tracking id %q: %w", trackingID, model.ErrNotFound)
	}
	if err != nil {
		return ref, fmt.Errorf("looking up tracking id: %w", err)
	}
	return ref, nil
}

func randomTrackingSuffix() (string, error) {
	result := make([]byte, TrackingIDLength)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(trackingIDCharset))))
		if err != nil {
			return "", err
		}
		result[i] = trackingIDCharset[n.Int64()]
	}
	return string(result), nil
}
