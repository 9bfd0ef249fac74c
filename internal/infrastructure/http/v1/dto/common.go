// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// IDResponse is returned when only an identifier is meaningful.
type IDResponse struct {
	ID string `json:"id"`
}

// SuccessResponse is a generic success response.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ListResponse wraps list results with pagination.
type ListResponse struct {
	Items      any   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// PageQuery contains limit/offset query parameters.
type PageQuery struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

const dateLayout = "2006-01-02"

// Date accepts "2006-01-02" or RFC 3339 timestamps and always renders as a calendar date.
type Date struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	d.Time = t.UTC()
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateLayout))
}

// OrToday returns the date, or today's UTC date when unset.
func (d *Date) OrToday() time.Time {
	if d == nil || d.IsZero() {
		return time.Now().UTC().Truncate(24 * time.Hour)
	}
	return d.Time
}

// Ptr returns a pointer to the date, or nil when unset.
func (d *Date) Ptr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}
