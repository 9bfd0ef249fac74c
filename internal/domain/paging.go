// Package domain holds the pieces shared by all inventory modules:
// paging, lifecycle hooks and conflict retry.
package domain

// Page size bounds for list operations.
const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// ListFilter carries the pagination shared by list operations.
type ListFilter struct {
	Limit  int
	Offset int
}

// Normalize clamps pagination to sane bounds.
func (f *ListFilter) Normalize() {
	if f.Limit <= 0 || f.Limit > MaxPageSize {
		f.Limit = DefaultPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}
