// Package id generates the time-ordered UUIDv7 values used as correlation ids:
// release batches, audit entries and request ids.
package id

import (
	"errors"

	"github.com/google/uuid"
)

// ID is a type alias for UUID.
type ID = uuid.UUID

var (
	errFormat = errors.New("id: expected canonical 36-character uuid")
	errNil    = errors.New("id: nil uuid")
)

// New returns a UUIDv7. If the clock source fails it falls back to a random v4.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return v
}

// Parse accepts the canonical textual form only. Braced and urn-prefixed
// variants that uuid.Parse also understands are rejected, so a batch id in a
// URL always round-trips unchanged.
func Parse(s string) (ID, error) {
	if len(s) != 36 {
		return uuid.Nil, errFormat
	}
	v, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, err
	}
	if v == uuid.Nil {
		return uuid.Nil, errNil
	}
	return v, nil
}
