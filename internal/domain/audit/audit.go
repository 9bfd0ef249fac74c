// Package audit defines the ledger audit trail contract.
// Every stock mutation records one entry inside the transaction that performs it.
package audit

import (
	"context"
	"encoding/json"
	"time"

	appctx "serviceshop/internal/core/context"
)

// Action is the kind of audited operation.
type Action string

const (
	ActionPurchaseRecorded Action = "purchase_recorded"
	ActionPurchaseUpdated  Action = "purchase_updated"
	ActionPurchaseDeleted  Action = "purchase_deleted"
	ActionStockAdded       Action = "stock_added"
	ActionStockPriced      Action = "stock_priced"
	ActionStockReleased    Action = "stock_released"
	ActionReleaseReversed  Action = "release_reversed"
	ActionPartsAttached    Action = "parts_attached"
	ActionPartsRestored    Action = "parts_restored"
	ActionInvoiceGenerated Action = "invoice_generated"
	ActionServiceDeleted   Action = "service_deleted"
)

// Entry is a single audit record.
type Entry struct {
	EntityType string
	EntityID   string
	Action     Action
	UserID     string
	Changes    map[string]any
}

// Recorder persists audit entries.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// TrailEntry is a stored audit record as read back from the trail.
type TrailEntry struct {
	ID         string          `json:"id"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	Action     Action          `json:"action"`
	UserID     string          `json:"userId,omitempty"`
	RequestID  string          `json:"requestId,omitempty"`
	Changes    json.RawMessage `json:"changes"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// History reads the audit trail of one entity, newest first.
type History interface {
	History(ctx context.Context, entityType, entityID string, limit int) ([]TrailEntry, error)
}

// Nop discards entries.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, Entry) error { return nil }

// Actor returns the acting user id from context, if any.
func Actor(ctx context.Context) string {
	return appctx.GetUserID(ctx)
}

// RequestOf returns the id of the API call that caused an entry, if any.
func RequestOf(ctx context.Context) string {
	return appctx.RequestID(ctx)
}
