package stock_test

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serviceshop/internal/core/apperror"
	"serviceshop/internal/core/types"
	"serviceshop/internal/domain/catalogs/item"
	"serviceshop/internal/domain/registers/stock"
	"serviceshop/internal/infrastructure/storage/memory"
)

type fixture struct {
	store  *memory.Store
	svc    *stock.Service
	itemID int64
	lotIDs []int64
}

func newFixture(t *testing.T, retries int, quantities ...int64) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	it := &item.Item{Name: "Brake pad", Brand: "Brembo"}
	require.NoError(t, store.Items().Create(ctx, it))

	f := &fixture{
		store:  store,
		svc:    stock.NewService(store.Stock(), store.Items(), store, store.Auditor(), retries),
		itemID: it.ItemID,
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, q := range quantities {
		lot := &stock.Lot{
			ItemID:       it.ItemID,
			AvailableQty: q,
			BuyingPrice:  types.MustMoney("10.00"),
			SellingPrice: types.MustMoney("15.00"),
			PurchaseDate: base.AddDate(0, 0, i),
		}
		require.NoError(t, f.svc.AddLot(ctx, lot))
		f.lotIDs = append(f.lotIDs, lot.StockID)
	}
	return f
}

func (f *fixture) available(t *testing.T) []int64 {
	t.Helper()
	out := make([]int64, 0, len(f.lotIDs))
	for _, sid := range f.lotIDs {
		lot, err := f.store.Stock().GetLot(context.Background(), sid)
		require.NoError(t, err)
		out = append(out, lot.AvailableQty)
	}
	return out
}

func (f *fixture) total(t *testing.T) int64 {
	t.Helper()
	st, err := f.svc.Status(context.Background(), f.itemID, true)
	require.NoError(t, err)
	return st.TotalAvailable
}

func TestReleaseStock_FIFOOrder(t *testing.T) {
	f := newFixture(t, 0, 5, 5, 5)

	res, err := f.svc.ReleaseStock(context.Background(), stock.ReleaseRequest{ItemID: f.itemID, Quantity: 7})
	require.NoError(t, err)

	assert.Equal(t, []stock.Deduction{
		{StockID: f.lotIDs[0], Deducted: 5, Remaining: 0},
		{StockID: f.lotIDs[1], Deducted: 2, Remaining: 3},
	}, res.Deductions)
	assert.Equal(t, []int64{0, 3, 5}, f.available(t))

	releases, err := f.svc.ListReleases(context.Background(), f.itemID, 0)
	require.NoError(t, err)
	require.Len(t, releases, 2)
	for _, r := range releases {
		assert.Equal(t, res.BatchID, r.BatchID)
	}
}

func TestReleaseStock_InsufficientBoundary(t *testing.T) {
	f := newFixture(t, 0, 4, 6)

	_, err := f.svc.ReleaseStock(context.Background(), stock.ReleaseRequest{ItemID: f.itemID, Quantity: 11})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, int64(1), appErr.Details["shortfall"])
	assert.Equal(t, int64(11), appErr.Details["requested"])
	assert.Equal(t, int64(10), appErr.Details["available"])
	assert.Equal(t, []int64{4, 6}, f.available(t))

	_, err = f.svc.ReleaseStock(context.Background(), stock.ReleaseRequest{ItemID: f.itemID, Quantity: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(0), f.total(t))
}

func TestReleaseStock_ZeroIsNoop(t *testing.T) {
	f := newFixture(t, 0, 5)

	res, err := f.svc.ReleaseStock(context.Background(), stock.ReleaseRequest{ItemID: f.itemID, Quantity: 0})
	require.NoError(t, err)
	assert.Empty(t, res.Deductions)
	assert.Equal(t, []int64{5}, f.available(t))
}

func TestReleaseStock_Validation(t *testing.T) {
	f := newFixture(t, 0, 5)

	_, err := f.svc.ReleaseStock(context.Background(), stock.ReleaseRequest{ItemID: f.itemID, Quantity: -1})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = f.svc.ReleaseStock(context.Background(), stock.ReleaseRequest{ItemID: 999, Quantity: 1})
	assert.True(t, apperror.IsNotFound(err))
}

func TestQuantityCeiling(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0, types.MaxQuantity, types.MaxQuantity)
	assert.Equal(t, 2*types.MaxQuantity, f.total(t))

	lot := &stock.Lot{
		ItemID:       f.itemID,
		AvailableQty: math.MaxInt64,
		SellingPrice: types.MustMoney("1.00"),
		PurchaseDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	err := f.svc.AddLot(ctx, lot)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = f.svc.ReleaseStock(ctx, stock.ReleaseRequest{ItemID: f.itemID, Quantity: types.MaxQuantity + 1})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	res, err := f.svc.ReleaseStock(ctx, stock.ReleaseRequest{ItemID: f.itemID, Quantity: 1})
	require.NoError(t, err)
	require.Len(t, res.Deductions, 1)
	assert.Equal(t, 2*types.MaxQuantity-1, f.total(t))
}

func TestReleaseStock_AtomicOnThirdLotFailure(t *testing.T) {
	f := newFixture(t, 0, 5, 5, 5)
	f.store.FailDecrement(f.lotIDs[2], -1, apperror.NewConcurrentModification(apperror.EntityStock, f.lotIDs[2]))

	_, err := f.svc.ReleaseStock(context.Background(), stock.ReleaseRequest{ItemID: f.itemID, Quantity: 12})
	require.Error(t, err)
	assert.True(t, apperror.IsConcurrentModification(err))

	assert.Equal(t, []int64{5, 5, 5}, f.available(t))
	assert.Equal(t, int64(15), f.total(t))

	releases, err := f.svc.ListReleases(context.Background(), f.itemID, 0)
	require.NoError(t, err)
	assert.Empty(t, releases)
}

func TestReleaseStock_RetriesConflict(t *testing.T) {
	f := newFixture(t, 3, 5, 5, 5)
	f.store.FailDecrement(f.lotIDs[2], 1, apperror.NewConcurrentModification(apperror.EntityStock, f.lotIDs[2]))

	_, err := f.svc.ReleaseStock(context.Background(), stock.ReleaseRequest{ItemID: f.itemID, Quantity: 12})
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 0, 3}, f.available(t))
}

func TestReverseRelease_RestoresLots(t *testing.T) {
	f := newFixture(t, 0, 5, 5)
	ctx := context.Background()

	res, err := f.svc.ReleaseStock(ctx, stock.ReleaseRequest{ItemID: f.itemID, Quantity: 8})
	require.NoError(t, err)
	require.NoError(t, f.svc.ReverseRelease(ctx, res.BatchID))

	assert.Equal(t, []int64{5, 5}, f.available(t))

	err = f.svc.ReverseRelease(ctx, res.BatchID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestStatus_ListsLotsInFIFOOrder(t *testing.T) {
	f := newFixture(t, 0, 3, 0, 2)

	st, err := f.svc.Status(context.Background(), f.itemID, false)
	require.NoError(t, err)
	assert.Equal(t, int64(5), st.TotalAvailable)
	require.Len(t, st.Lots, 2)
	assert.Equal(t, f.lotIDs[0], st.Lots[0].StockID)
	assert.Equal(t, f.lotIDs[2], st.Lots[1].StockID)

	st, err = f.svc.Status(context.Background(), f.itemID, true)
	require.NoError(t, err)
	assert.Len(t, st.Lots, 3)
}

func TestUpdateSellingPrice(t *testing.T) {
	f := newFixture(t, 0, 3)
	ctx := context.Background()

	lot, err := f.svc.UpdateSellingPrice(ctx, f.lotIDs[0], types.MustMoney("19.99"))
	require.NoError(t, err)
	assert.True(t, lot.SellingPrice.Equal(types.MustMoney("19.99")))

	_, err = f.svc.UpdateSellingPrice(ctx, f.lotIDs[0], types.MustMoney("-1"))
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = f.svc.UpdateSellingPrice(ctx, 404, types.MustMoney("1"))
	assert.True(t, apperror.IsNotFound(err))
}

func TestReleaseStock_ConcurrentNeverNegative(t *testing.T) {
	f := newFixture(t, 3, 10, 10)
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int64
	)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ReleaseStock(ctx, stock.ReleaseRequest{ItemID: f.itemID, Quantity: 1})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.True(t, apperror.IsInsufficientStock(err))
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(20), succeeded)
	assert.Equal(t, int64(0), f.total(t))
	for _, q := range f.available(t) {
		assert.GreaterOrEqual(t, q, int64(0))
	}
}
