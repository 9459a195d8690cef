package model

import "time"

// Asset is a uniquely tracked unit (for example a computer system). It has a
// possession state instead of a quantity.
type Asset struct {
	ID             int64      `json:"id"`
	TrackingID     string     `json:"tracking_id"`
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	CategoryID     *int64     `json:"category_id,omitempty"`
	Status         string     `json:"status"`
	HolderID       *int64     `json:"holder_id,omitempty"`
	CheckedOutAt   *time.Time `json:"checked_out_at,omitempty"`
	CheckoutReason string     `json:"checkout_reason,omitempty"`
	ImageMime      string     `json:"image_mime,omitempty"`
	CreatedBy      *int64     `json:"created_by,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Joined fields (not always populated).
	HolderName   string `json:"holder_name,omitempty"`
	CategoryPath string `json:"category_path,omitempty"`
	Tags         []Tag  `json:"tags,omitempty"`
}

// Asset statuses.
const (
	AssetStatusAvailable   = "available"
	AssetStatusCheckedOut  = "checked_out"
	AssetStatusMaintenance = "maintenance"
	AssetStatusRetired     = "retired"
	AssetStatusRemoved     = "removed"
)

// ValidCheckinDisposition reports whether status may be the target of a
// check-in. An empty disposition means available.
func ValidCheckinDisposition(status string) bool {
	switch status {
	case "", AssetStatusAvailable, AssetStatusMaintenance, AssetStatusRetired:
		return true
	}
	return false
}

func (a *Asset) SubjectKind() string { return SubjectAsset }
func (a *Asset) SubjectID() int64 { return a.ID }
func (a *Asset) SubjectStatus() string { return a.Status }
