// Package stock provides the lot-based stock register: the authoritative
// per-lot available quantities of every item and the FIFO release path.
package stock

import (
	"sort"
	"time"

	"serviceshop/internal/core/apperror"
	"serviceshop/internal/core/id"
	"serviceshop/internal/core/types"
)

// Lot is a batch of stock with its own remaining quantity and prices.
type Lot struct {
	StockID      int64       `db:"stock_id" json:"stockId"`
	ItemID       int64       `db:"item_id" json:"itemId"`
	PurchaseID   *int64      `db:"purchase_id" json:"purchaseId,omitempty"`
	AvailableQty int64       `db:"available_qty" json:"availableQty"`
	BuyingPrice  types.Money `db:"buying_price" json:"buyingPrice"`
	SellingPrice types.Money `db:"selling_price" json:"sellingPrice"`
	PurchaseDate time.Time   `db:"purchase_date" json:"purchaseDate"`
	CreatedAt    time.Time   `db:"created_at" json:"createdAt"`
}

// Validate checks lot invariants before insert or update.
func (l *Lot) Validate() error {
	if l.ItemID <= 0 {
		return apperror.NewValidation("item id is required").WithDetail("field", "itemId")
	}
	if err := types.CheckQuantity("availableQty", l.AvailableQty); err != nil {
		return err
	}
	if err := types.CheckPrice("buyingPrice", l.BuyingPrice); err != nil {
		return err
	}
	if err := types.CheckPrice("sellingPrice", l.SellingPrice); err != nil {
		return err
	}
	if l.PurchaseDate.IsZero() {
		return apperror.NewValidation("purchase date is required").WithDetail("field", "purchaseDate")
	}
	return nil
}

// Deduction is one lot touched by a FIFO release.
// Remaining is the lot's available quantity after the deduction.
type Deduction struct {
	StockID   int64 `json:"stockId"`
	Deducted  int64 `json:"deducted"`
	Remaining int64 `json:"remaining"`
}

// Release is a stock withdrawal not tied to a service record.
// One request fans out into one row per touched lot, grouped by BatchID.
type Release struct {
	ReleaseID   int64     `db:"release_id" json:"releaseId"`
	BatchID     id.ID     `db:"batch_id" json:"batchId"`
	ItemID      int64     `db:"item_id" json:"itemId"`
	StockID     int64     `db:"stock_id" json:"stockId"`
	Quantity    int64     `db:"quantity" json:"quantity"`
	ReleaseDate time.Time `db:"release_date" json:"releaseDate"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// ReleaseRequest asks for quantity units of an item, oldest lots first.
type ReleaseRequest struct {
	ItemID      int64
	Quantity    int64
	ReleaseDate time.Time
}

// ReleaseResult describes an applied release.
type ReleaseResult struct {
	BatchID    id.ID       `json:"batchId"`
	ItemID     int64       `json:"itemId"`
	Quantity   int64       `json:"quantity"`
	Deductions []Deduction `json:"deductions"`
}

// Status is the stock position of one item.
type Status struct {
	ItemID         int64  `json:"itemId"`
	TotalAvailable int64  `json:"totalAvailable"`
	Lots           []*Lot `json:"lots"`
}

// SortFIFO orders lots by (purchase_date, stock_id).
func SortFIFO(lots []*Lot) {
	sort.SliceStable(lots, func(i, j int) bool {
		if !lots[i].PurchaseDate.Equal(lots[j].PurchaseDate) {
			return lots[i].PurchaseDate.Before(lots[j].PurchaseDate)
		}
		return lots[i].StockID < lots[j].StockID
	})
}

// Total sums available quantities.
func Total(lots []*Lot) int64 {
	var total int64
	for _, l := range lots {
		total += l.AvailableQty
	}
	return total
}
