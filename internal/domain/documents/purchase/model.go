// Package purchase provides the Purchase document.
// Recording a purchase creates exactly one stock lot in the same transaction.
package purchase

import (
	"context"
	"strings"
	"time"

	"serviceshop/internal/core/apperror"
	"serviceshop/internal/core/types"
	"serviceshop/internal/domain/registers/stock"
)

// Purchase represents a supplier delivery of one item.
type Purchase struct {
	PurchaseID   int64       `db:"purchase_id" json:"purchaseId"`
	ItemID       int64       `db:"item_id" json:"itemId"`
	PurchaseDate time.Time   `db:"purchase_date" json:"purchaseDate"`
	Quantity     int64       `db:"quantity" json:"quantity"`
	BuyingPrice  types.Money `db:"buying_price" json:"buyingPrice"`
	Supplier     string      `db:"supplier" json:"supplier"`
	CreatedAt    time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updatedAt"`
}

// Validate checks business rules.
func (p *Purchase) Validate(_ context.Context) error {
	p.Supplier = strings.TrimSpace(p.Supplier)

	if p.ItemID <= 0 {
		return apperror.NewValidation("item id is required").WithDetail("field", "itemId")
	}
	if err := types.CheckPositiveQuantity("quantity", p.Quantity); err != nil {
		return err
	}
	if err := types.CheckPrice("buyingPrice", p.BuyingPrice); err != nil {
		return err
	}
	if p.PurchaseDate.IsZero() {
		return apperror.NewValidation("purchase date is required").WithDetail("field", "purchaseDate")
	}
	return nil
}

// Receipt is a purchase together with the lot it created.
type Receipt struct {
	Purchase *Purchase  `json:"purchase"`
	Lot      *stock.Lot `json:"lot"`
}

// RecordRequest carries the input of Record.
type RecordRequest struct {
	ItemID       int64
	PurchaseDate time.Time
	Quantity     int64
	BuyingPrice  types.Money
	SellingPrice types.Money
	Supplier     string
}

// UpdateRequest carries the input of Update.
// A nil field keeps its current value.
type UpdateRequest struct {
	PurchaseID   int64
	PurchaseDate *time.Time
	Quantity     *int64
	BuyingPrice  *types.Money
	SellingPrice *types.Money
	Supplier     *string
}

// ListFilter for filtering purchases.
type ListFilter struct {
	ItemID *int64
	Limit  int
	Offset int
}
