// Package service_parts provides the register of lots consumed by service records.
// Attaching parts decrements the named lots; restoring gives the units back.
package service_parts

import (
	"fmt"
	"sort"
	"time"

	"serviceshop/internal/core/apperror"
	"serviceshop/internal/core/types"
)

// Part is a requested consumption of a named lot.
type Part struct {
	StockID  int64 `json:"stockId"`
	Quantity int64 `json:"quantityUsed"`
}

// Usage is the stored consumption of one lot by one service record.
// At most one row exists per (ServiceID, StockID).
type Usage struct {
	ServiceID    int64     `db:"service_id" json:"serviceId"`
	StockID      int64     `db:"stock_id" json:"stockId"`
	QuantityUsed int64     `db:"quantity_used" json:"quantityUsed"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// Line is a usage priced with its lot's selling price.
type Line struct {
	StockID   int64       `db:"stock_id" json:"stockId"`
	ItemID    int64       `db:"item_id" json:"itemId"`
	ItemName  string      `db:"item_name" json:"itemName"`
	Quantity  int64       `db:"quantity_used" json:"quantity"`
	UnitPrice types.Money `db:"selling_price" json:"unitPrice"`
}

// Total returns quantity times unit price.
func (l Line) Total() types.Money {
	return types.LineTotal(l.UnitPrice, l.Quantity)
}

// Merge validates parts and sums duplicates by stock id.
// The result is ordered by stock id, the lock order of the ledger.
func Merge(parts []Part) ([]Part, error) {
	sums := make(map[int64]int64, len(parts))
	for i, p := range parts {
		if p.StockID <= 0 {
			return nil, apperror.NewValidation(fmt.Sprintf("part %d: stock id is required", i)).
				WithDetail("field", "stockId")
		}
		if p.Quantity <= 0 {
			return nil, apperror.NewValidation(fmt.Sprintf("part %d: quantity must be positive", i)).
				WithDetail("field", "quantityUsed").
				WithDetail("stockId", p.StockID)
		}
		// Each term is capped before adding, so the sum cannot wrap.
		if p.Quantity > types.MaxQuantity || sums[p.StockID] > types.MaxQuantity-p.Quantity {
			return nil, apperror.NewValidation(
				fmt.Sprintf("part %d: quantity for stock %d cannot exceed %d", i, p.StockID, types.MaxQuantity)).
				WithDetail("field", "quantityUsed").
				WithDetail("stockId", p.StockID)
		}
		sums[p.StockID] += p.Quantity
	}

	merged := make([]Part, 0, len(sums))
	for stockID, qty := range sums {
		merged = append(merged, Part{StockID: stockID, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].StockID < merged[j].StockID })
	return merged, nil
}
