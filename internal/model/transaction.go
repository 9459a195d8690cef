package model

import "time"

// Transaction is an immutable audit record of one quantity or possession
// change. Exactly one of ItemID and AssetID is set.
type Transaction struct {
	ID        int64     `json:"id"`
	ItemID    *int64    `json:"item_id,omitempty"`
	AssetID   *int64    `json:"asset_id,omitempty"`
	UserID    int64     `json:"user_id"`
	Delta     int       `json:"delta"`
	Kind      string    `json:"kind"`
	Reason    string    `json:"reason,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// Joined fields (not always populated).
	SubjectName string `json:"subject_name,omitempty"`
	TrackingID  string `json:"tracking_id,omitempty"`
	Username    string `json:"username,omitempty"`
}

// Transaction kinds.
const (
	TxCheckout   = "checkout"
	TxCheckin    = "checkin"
	TxAdjustment = "adjustment"
)

// ValidTransactionKind reports whether kind is one of the transaction kinds.
func ValidTransactionKind(kind string) bool {
	return kind == TxCheckout || kind == TxCheckin || kind == TxAdjustment
}

// Subject returns a reference to the item or asset the record is about.
func (t *Transaction) Subject() SubjectRef {
	if t.ItemID != nil {
		return SubjectRef{Kind: SubjectItem, ID: *t.ItemID}
	}
	if t.AssetID != nil {
		return SubjectRef{Kind: SubjectAsset, ID: *t.AssetID}
	}
	return SubjectRef{}
}
