package model

import "time"

// Item is a consumable stocked by integer quantity.
type Item struct {
	ID               int64     `json:"id"`
	TrackingID       string    `json:"tracking_id"`
	Name             string    `json:"name"`
	Description      string    `json:"description,omitempty"`
	CategoryID       *int64    `json:"category_id,omitempty"`
	Quantity         int       `json:"quantity"`
	ReorderThreshold *int      `json:"reorder_threshold,omitempty"`
	MinimumQuantity  *int      `json:"minimum_quantity,omitempty"`
	Status           string    `json:"status"`
	ImageMime        string    `json:"image_mime,omitempty"`
	CreatedBy        *int64    `json:"created_by,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	// Joined fields (not always populated).
	CategoryPath string `json:"category_path,omitempty"`
	Tags         []Tag  `json:"tags,omitempty"`
}

// Item statuses.
const (
	ItemStatusAvailable  = "available"
	ItemStatusRestock    = "restock"
	ItemStatusOutOfStock = "out_of_stock"
	ItemStatusRemoved    = "removed"
)

// StockStatus derives an item's status from its quantity and optional
// reorder threshold. It is the only place item status is computed; the
// terminal removed status is never produced here.
func StockStatus(quantity int, reorderThreshold *int) string {
	switch {
	case quantity == 0:
		return ItemStatusOutOfStock
	case reorderThreshold != nil && quantity <= *reorderThreshold:
		return ItemStatusRestock
	default:
		return ItemStatusAvailable
	}
}

// NeedsRestock reports whether the status calls for a stock alert.
func NeedsRestock(status string) bool {
	return status == ItemStatusRestock || status == ItemStatusOutOfStock
}

func (i *Item) SubjectKind() string { return SubjectItem }
func (i *Item) SubjectID() int64 { return i.ID }
func (i *Item) SubjectStatus() string { return i.Status }
