package model

// Subject kinds.
const (
	SubjectItem  = "item"
	SubjectAsset = "asset"
)

// Subject is the capability shared by items and assets on the checkout
// path. Callers dispatch on the concrete type.
type Subject interface {
	SubjectKind() string
	SubjectID() int64
	SubjectStatus() string
}

// SubjectRef names a subject without loading it.
type SubjectRef struct {
	Kind string `json:"kind"`
	ID   int64  `json:"id"`
}

// ValidSubjectKind reports whether kind is item or asset.
func ValidSubjectKind(kind string) bool {
	return kind == SubjectItem || kind == SubjectAsset
}
