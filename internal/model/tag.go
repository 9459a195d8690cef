package model

// Tag is a label attachable to items and assets.
type Tag struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// DefaultTagColor is used when a tag is created without a color.
const DefaultTagColor = "#6c757d"
