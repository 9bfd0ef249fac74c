package purchase_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serviceshop/internal/core/apperror"
	"serviceshop/internal/core/types"
	"serviceshop/internal/domain/catalogs/item"
	"serviceshop/internal/domain/documents/purchase"
	"serviceshop/internal/domain/registers/stock"
	"serviceshop/internal/infrastructure/storage/memory"
)

func setup(t *testing.T) (*memory.Store, *purchase.Service, *stock.Service, int64) {
	t.Helper()
	store := memory.NewStore()
	it := &item.Item{Name: "Air filter", Brand: "Mann"}
	require.NoError(t, store.Items().Create(context.Background(), it))

	purchases := purchase.NewService(store.Purchases(), store.Stock(), store.Items(), store, store.Auditor())
	lots := stock.NewService(store.Stock(), store.Items(), store, store.Auditor(), 0)
	return store, purchases, lots, it.ItemID
}

func request(itemID, qty int64) purchase.RecordRequest {
	return purchase.RecordRequest{
		ItemID:       itemID,
		PurchaseDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Quantity:     qty,
		BuyingPrice:  types.MustMoney("8.00"),
		SellingPrice: types.MustMoney("12.50"),
		Supplier:     "Parts Co",
	}
}

func TestRecord_CreatesExactlyOneLot(t *testing.T) {
	store, svc, _, itemID := setup(t)
	ctx := context.Background()

	receipt, err := svc.Record(ctx, request(itemID, 6))
	require.NoError(t, err)

	require.NotNil(t, receipt.Lot)
	require.NotNil(t, receipt.Lot.PurchaseID)
	assert.Equal(t, receipt.Purchase.PurchaseID, *receipt.Lot.PurchaseID)
	assert.Equal(t, int64(6), receipt.Lot.AvailableQty)
	assert.True(t, receipt.Lot.SellingPrice.Equal(types.MustMoney("12.50")))

	lots, err := store.Stock().ListLots(ctx, itemID, true)
	require.NoError(t, err)
	assert.Len(t, lots, 1)
	assert.Len(t, store.AuditEntries(), 1)
}

func TestRecord_UnknownItem(t *testing.T) {
	store, svc, _, _ := setup(t)

	_, err := svc.Record(context.Background(), request(42, 1))
	assert.True(t, apperror.IsNotFound(err))

	res, err := store.Purchases().List(context.Background(), purchase.ListFilter{Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, res.TotalCount)
}

func TestRecord_Validation(t *testing.T) {
	_, svc, _, itemID := setup(t)

	_, err := svc.Record(context.Background(), request(itemID, 0))
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	req := request(itemID, 1)
	req.SellingPrice = types.MustMoney("-0.01")
	_, err = svc.Record(context.Background(), req)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	req = request(itemID, 1)
	req.BuyingPrice = types.MustMoney("8.005")
	_, err = svc.Record(context.Background(), req)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = svc.Record(context.Background(), request(itemID, math.MaxInt64))
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestUpdate_QuantityCeiling(t *testing.T) {
	_, svc, _, itemID := setup(t)
	ctx := context.Background()

	receipt, err := svc.Record(ctx, request(itemID, types.MaxQuantity))
	require.NoError(t, err)

	qty := types.MaxQuantity + 1
	_, err = svc.Update(ctx, purchase.UpdateRequest{PurchaseID: receipt.Purchase.PurchaseID, Quantity: &qty})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	got, err := svc.Get(ctx, receipt.Purchase.PurchaseID)
	require.NoError(t, err)
	assert.Equal(t, types.MaxQuantity, got.Lot.AvailableQty)
}

func TestUpdate_AppliesQuantityDelta(t *testing.T) {
	_, svc, lots, itemID := setup(t)
	ctx := context.Background()

	receipt, err := svc.Record(ctx, request(itemID, 10))
	require.NoError(t, err)
	_, err = lots.ReleaseStock(ctx, stock.ReleaseRequest{ItemID: itemID, Quantity: 4})
	require.NoError(t, err)

	qty := int64(12)
	updated, err := svc.Update(ctx, purchase.UpdateRequest{PurchaseID: receipt.Purchase.PurchaseID, Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, int64(8), updated.Lot.AvailableQty)

	qty = 3
	_, err = svc.Update(ctx, purchase.UpdateRequest{PurchaseID: receipt.Purchase.PurchaseID, Quantity: &qty})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	got, err := svc.Get(ctx, receipt.Purchase.PurchaseID)
	require.NoError(t, err)
	assert.Equal(t, int64(12), got.Purchase.Quantity)
	assert.Equal(t, int64(8), got.Lot.AvailableQty)
}

func TestDelete_BlockedWhenConsumed(t *testing.T) {
	_, svc, lots, itemID := setup(t)
	ctx := context.Background()

	consumed, err := svc.Record(ctx, request(itemID, 5))
	require.NoError(t, err)
	_, err = lots.ReleaseStock(ctx, stock.ReleaseRequest{ItemID: itemID, Quantity: 1})
	require.NoError(t, err)

	err = svc.Delete(ctx, consumed.Purchase.PurchaseID)
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict))

	untouched, err := svc.Record(ctx, request(itemID, 2))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, untouched.Purchase.PurchaseID))

	_, err = svc.Get(ctx, untouched.Purchase.PurchaseID)
	assert.True(t, apperror.IsNotFound(err))

	status, err := lots.Status(ctx, itemID, true)
	require.NoError(t, err)
	assert.Equal(t, int64(4), status.TotalAvailable)
}

type lotLockCounter struct {
	*memory.StockRepo
	locked int
}

func (c *lotLockCounter) GetLotByPurchaseForUpdate(ctx context.Context, purchaseID int64) (*stock.Lot, error) {
	c.locked++
	return c.StockRepo.GetLotByPurchaseForUpdate(ctx, purchaseID)
}

type readOnlyCounter struct {
	*memory.Store
	readOnly int
}

func (c *readOnlyCounter) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	c.readOnly++
	return c.Store.ReadOnly(ctx, fn)
}

func TestGet_DoesNotLockLot(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	it := &item.Item{Name: "Cabin filter", Brand: "Mann"}
	require.NoError(t, store.Items().Create(ctx, it))

	lots := &lotLockCounter{StockRepo: store.Stock()}
	txm := &readOnlyCounter{Store: store}
	svc := purchase.NewService(store.Purchases(), lots, store.Items(), txm, store.Auditor())

	receipt, err := svc.Record(ctx, request(it.ItemID, 3))
	require.NoError(t, err)

	got, err := svc.Get(ctx, receipt.Purchase.PurchaseID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Lot.AvailableQty)
	assert.Zero(t, lots.locked)
	assert.Equal(t, 1, txm.readOnly)

	qty := int64(5)
	_, err = svc.Update(ctx, purchase.UpdateRequest{PurchaseID: receipt.Purchase.PurchaseID, Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, 1, lots.locked)
}
