// Package tx defines the transaction contract of the ledger. Domain services
// depend on it; the postgres and memory stores implement it.
package tx

import (
	"context"
)

// Manager runs fn atomically. An error from fn rolls back every write made
// through ctx. Nested calls reuse the transaction already carried by ctx.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager can also open a read-only snapshot: every read inside fn
// sees the same committed state.
type ReadOnlyManager interface {
	Manager
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnly runs fn in a read-only snapshot when m supports one and in an
// ordinary transaction otherwise.
func ReadOnly(ctx context.Context, m Manager, fn func(ctx context.Context) error) error {
	if ro, ok := m.(ReadOnlyManager); ok {
		return ro.ReadOnly(ctx, fn)
	}
	return m.RunInTransaction(ctx, fn)
}

type activeKey struct{}

// MarkActive records on ctx that a transaction is open.
// Managers call this when they start an outermost transaction.
func MarkActive(ctx context.Context) context.Context {
	return context.WithValue(ctx, activeKey{}, true)
}

// IsActive reports whether ctx runs inside a transaction started by a Manager.
func IsActive(ctx context.Context) bool {
	v, _ := ctx.Value(activeKey{}).(bool)
	return v
}
