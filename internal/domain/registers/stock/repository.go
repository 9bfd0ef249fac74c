package stock

import (
	"context"

	"serviceshop/internal/core/id"
)

// Repository defines ledger primitives for stock lots and releases.
// Mutating methods must be called inside a transaction.
type Repository interface {
	// Lot operations

	// CreateLot inserts a lot and fills StockID and CreatedAt.
	CreateLot(ctx context.Context, lot *Lot) error

	// GetLot returns a lot or NotFound.
	GetLot(ctx context.Context, stockID int64) (*Lot, error)

	// GetLotByPurchase returns the lot created by a purchase without locking it.
	GetLotByPurchase(ctx context.Context, purchaseID int64) (*Lot, error)

	// GetLotByPurchaseForUpdate is GetLotByPurchase with the lot row-locked.
	GetLotByPurchaseForUpdate(ctx context.Context, purchaseID int64) (*Lot, error)

	// LockLots row-locks the given lots in stock_id order and returns the ones that exist.
	LockLots(ctx context.Context, stockIDs []int64) ([]*Lot, error)

	// ListLots returns an item's lots in FIFO order, optionally including empty ones.
	ListLots(ctx context.Context, itemID int64, includeEmpty bool) ([]*Lot, error)

	// ListAvailableLotsForUpdate row-locks an item's non-empty lots in stock_id order.
	ListAvailableLotsForUpdate(ctx context.Context, itemID int64) ([]*Lot, error)

	// TotalAvailable sums available_qty over all lots of an item.
	TotalAvailable(ctx context.Context, itemID int64) (int64, error)

	// Decrement subtracts n from a lot and returns the new quantity.
	// Fails with InsufficientStock naming the lot when the result would be negative.
	Decrement(ctx context.Context, stockID, n int64) (int64, error)

	// Increment adds n to a lot and returns the new quantity.
	Increment(ctx context.Context, stockID, n int64) (int64, error)

	// UpdateLot rewrites prices, purchase date and available quantity.
	UpdateLot(ctx context.Context, lot *Lot) error

	// DeleteLot removes a lot.
	DeleteLot(ctx context.Context, stockID int64) error

	// HasConsumption reports whether releases or service usages reference the lot.
	HasConsumption(ctx context.Context, stockID int64) (bool, error)

	// Release operations

	// CreateReleases inserts release rows and fills their ids.
	CreateReleases(ctx context.Context, releases []*Release) error

	// ListReleases returns an item's releases, newest first.
	ListReleases(ctx context.Context, itemID int64, limit int) ([]*Release, error)

	// GetReleasesByBatch returns every row of one release request.
	GetReleasesByBatch(ctx context.Context, batchID id.ID) ([]*Release, error)

	// DeleteReleasesByBatch removes every row of one release request.
	DeleteReleasesByBatch(ctx context.Context, batchID id.ID) error
}

// ItemChecker confirms item existence.
type ItemChecker interface {
	Exists(ctx context.Context, itemID int64) (bool, error)
}
