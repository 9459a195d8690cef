package model

import "errors"

// Business-rule outcomes. These are expected results reported to gateways,
// not internal failures. Match them with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrInsufficientStock   = errors.New("insufficient quantity available")
	ErrAssetUnavailable    = errors.New("asset is not available for checkout")
	ErrAssetNotCheckedOut  = errors.New("asset is not checked out")
	ErrInvalidReason       = errors.New("invalid or inactive checkout reason")
	ErrCyclicCategory      = errors.New("category cannot be its own ancestor")
	ErrHasChildren         = errors.New("category has child categories")
	ErrDuplicateTag        = errors.New("tag name already exists")
	ErrItemRemoved         = errors.New("item has been removed")
	ErrIdentifierExhausted = errors.New("could not allocate a free tracking id")
	ErrHasHistory          = errors.New("subject has transaction history")
	ErrInvalidInput        = errors.New("invalid input")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrNotFound, "not_found"},
	{ErrInsufficientStock, "insufficient_stock"},
	{ErrAssetUnavailable, "asset_unavailable"},
	{ErrAssetNotCheckedOut, "asset_not_checked_out"},
	{ErrInvalidReason, "invalid_reason"},
	{ErrCyclicCategory, "cyclic_category"},
	{ErrHasChildren, "has_children"},
	{ErrDuplicateTag, "duplicate_tag"},
	{ErrItemRemoved, "item_removed"},
	{ErrIdentifierExhausted, "identifier_exhausted"},
	{ErrHasHistory, "has_history"},
	{ErrInvalidInput, "invalid_input"},
}

// ErrorCode returns the stable machine-readable code for a business-rule
// error, or "" if err is not one of them.
func ErrorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return ""
}

// IsBusinessError reports whether err is an expected business-rule outcome.
func IsBusinessError(err error) bool {
	return ErrorCode(err) != ""
}
