package dto

import (
	"time"

	"serviceshop/internal/core/types"
	"serviceshop/internal/domain/documents/purchase"
	"serviceshop/internal/domain/registers/stock"
)

// --- Purchases ---

// RecordPurchaseRequest is the request body for recording a purchase.
type RecordPurchaseRequest struct {
	ItemID       int64       `json:"itemId" binding:"required"`
	PurchaseDate *Date       `json:"purchaseDate"`
	Quantity     int64       `json:"quantity" binding:"max=1000000000"`
	BuyingPrice  types.Money `json:"buyingPrice" binding:"money"`
	SellingPrice types.Money `json:"sellingPrice" binding:"money"`
	Supplier     string      `json:"supplier"`
}

// ToDomain converts DTO to the domain request.
func (r *RecordPurchaseRequest) ToDomain() purchase.RecordRequest {
	return purchase.RecordRequest{
		ItemID:       r.ItemID,
		PurchaseDate: r.PurchaseDate.OrToday(),
		Quantity:     r.Quantity,
		BuyingPrice:  r.BuyingPrice,
		SellingPrice: r.SellingPrice,
		Supplier:     r.Supplier,
	}
}

// UpdatePurchaseRequest is the request body for updating a purchase.
// Omitted fields keep their values.
type UpdatePurchaseRequest struct {
	PurchaseDate *Date        `json:"purchaseDate"`
	Quantity     *int64       `json:"quantity" binding:"omitempty,max=1000000000"`
	BuyingPrice  *types.Money `json:"buyingPrice" binding:"omitempty,money"`
	SellingPrice *types.Money `json:"sellingPrice" binding:"omitempty,money"`
	Supplier     *string      `json:"supplier"`
}

// ToDomain converts DTO to the domain request.
func (r *UpdatePurchaseRequest) ToDomain(purchaseID int64) purchase.UpdateRequest {
	return purchase.UpdateRequest{
		PurchaseID:   purchaseID,
		PurchaseDate: r.PurchaseDate.Ptr(),
		Quantity:     r.Quantity,
		BuyingPrice:  r.BuyingPrice,
		SellingPrice: r.SellingPrice,
		Supplier:     r.Supplier,
	}
}

// PurchaseListQuery holds purchase list filters.
type PurchaseListQuery struct {
	PageQuery
	ItemID *int64 `form:"itemId"`
}

// --- Stock ---

// ReleaseStockRequest is the request body for a FIFO release.
type ReleaseStockRequest struct {
	Quantity    int64 `json:"quantity" binding:"max=1000000000"`
	ReleaseDate *Date `json:"releaseDate"`
}

// ToDomain converts DTO to the domain request.
func (r *ReleaseStockRequest) ToDomain(itemID int64) stock.ReleaseRequest {
	return stock.ReleaseRequest{
		ItemID:      itemID,
		Quantity:    r.Quantity,
		ReleaseDate: r.ReleaseDate.OrToday(),
	}
}

// AddStockRequest is the request body for a lot without a purchase.
type AddStockRequest struct {
	Quantity     int64       `json:"quantity" binding:"max=1000000000"`
	BuyingPrice  types.Money `json:"buyingPrice" binding:"money"`
	SellingPrice types.Money `json:"sellingPrice" binding:"money"`
	PurchaseDate *Date       `json:"purchaseDate"`
}

// ToLot converts DTO to a lot of the item.
func (r *AddStockRequest) ToLot(itemID int64) *stock.Lot {
	var date time.Time
	if r.PurchaseDate != nil {
		date = r.PurchaseDate.Time
	}
	return &stock.Lot{
		ItemID:       itemID,
		AvailableQty: r.Quantity,
		BuyingPrice:  r.BuyingPrice,
		SellingPrice: r.SellingPrice,
		PurchaseDate: date,
	}
}

// UpdatePriceRequest is the request body for a lot price change.
type UpdatePriceRequest struct {
	SellingPrice *types.Money `json:"sellingPrice" binding:"required,money"`
}

// ReleaseListResponse is an item's release history.
type ReleaseListResponse struct {
	ItemID   int64            `json:"itemId"`
	Releases []*stock.Release `json:"releases"`
}
