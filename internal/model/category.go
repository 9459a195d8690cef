package model

import "time"

// Category is a node in the item classification tree.
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	ParentID  *int64    `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CategoryNode pairs a category with its distance from the root.
type CategoryNode struct {
	Category
	Depth int    `json:"depth"`
	Path  string `json:"path"`
}

// CategoryPathSeparator joins ancestor names in a full path.
const CategoryPathSeparator = " > "
