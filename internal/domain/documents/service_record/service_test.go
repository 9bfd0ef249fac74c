package service_record_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serviceshop/internal/core/apperror"
	appctx "serviceshop/internal/core/context"
	"serviceshop/internal/core/types"
	"serviceshop/internal/domain/catalogs/item"
	"serviceshop/internal/domain/documents/invoice"
	"serviceshop/internal/domain/documents/service_record"
	"serviceshop/internal/domain/registers/service_parts"
	"serviceshop/internal/domain/registers/stock"
	"serviceshop/internal/infrastructure/storage/memory"
)

type fixture struct {
	store    *memory.Store
	records  *service_record.Service
	invoices *invoice.Service
	lot      int64
}

func newFixture(t *testing.T, qty int64) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	it := &item.Item{Name: "Alternator", Brand: "Denso"}
	require.NoError(t, store.Items().Create(ctx, it))
	lot := &stock.Lot{ItemID: it.ItemID, AvailableQty: qty, SellingPrice: types.MustMoney("100"), PurchaseDate: time.Now()}
	require.NoError(t, store.Stock().CreateLot(ctx, lot))

	parts := service_parts.NewService(store.ServiceParts(), store.Stock(), store.ServiceRecords(), store, store.Auditor(), 0)
	return &fixture{
		store:    store,
		records:  service_record.NewService(store.ServiceRecords(), parts, store, store.Auditor()),
		invoices: invoice.NewService(store.Invoices(), store.ServiceParts(), store.ServiceRecords(), store, store.Auditor()),
		lot:      lot.StockID,
	}
}

func (f *fixture) qty(t *testing.T) int64 {
	t.Helper()
	lot, err := f.store.Stock().GetLot(context.Background(), f.lot)
	require.NoError(t, err)
	return lot.AvailableQty
}

func TestCreate_AttachesPartsAndAssignsTechnician(t *testing.T) {
	f := newFixture(t, 5)
	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "tech-7", Role: appctx.RoleTechnician})

	detail, err := f.records.Create(ctx, &service_record.ServiceRecord{VehicleID: "ABC-1"},
		[]service_parts.Part{{StockID: f.lot, Quantity: 2}})
	require.NoError(t, err)

	assert.Equal(t, "tech-7", detail.Record.TechnicianID)
	require.Len(t, detail.Parts, 1)
	assert.Equal(t, int64(3), f.qty(t))
}

func TestCreate_RollsBackRecordOnShortage(t *testing.T) {
	f := newFixture(t, 1)

	_, err := f.records.Create(context.Background(), &service_record.ServiceRecord{VehicleID: "ABC-1"},
		[]service_parts.Part{{StockID: f.lot, Quantity: 2}})
	assert.True(t, apperror.IsInsufficientStock(err))

	exists, err := f.store.ServiceRecords().Exists(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, int64(1), f.qty(t))
}

func TestUpdate_ReplacesPartsOnlyWhenGiven(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	detail, err := f.records.Create(ctx, &service_record.ServiceRecord{VehicleID: "ABC-1"},
		[]service_parts.Part{{StockID: f.lot, Quantity: 4}})
	require.NoError(t, err)

	rec := *detail.Record
	rec.Description = "Replaced alternator"
	updated, err := f.records.Update(ctx, &rec, nil)
	require.NoError(t, err)
	require.Len(t, updated.Parts, 1)
	assert.Equal(t, int64(6), f.qty(t))

	parts := []service_parts.Part{{StockID: f.lot, Quantity: 1}}
	updated, err = f.records.Update(ctx, &rec, &parts)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.Parts[0].QuantityUsed)
	assert.Equal(t, int64(9), f.qty(t))
}

func TestDelete_RestoresStockAndDropsInvoice(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	detail, err := f.records.Create(ctx, &service_record.ServiceRecord{VehicleID: "ABC-1"},
		[]service_parts.Part{{StockID: f.lot, Quantity: 3}})
	require.NoError(t, err)
	_, err = f.invoices.Generate(ctx, detail.Record.ServiceID, types.MustMoney("50"))
	require.NoError(t, err)

	require.NoError(t, f.records.Delete(ctx, detail.Record.ServiceID))

	assert.Equal(t, int64(5), f.qty(t))
	assert.Zero(t, f.store.InvoiceCount())

	_, err = f.records.Get(ctx, detail.Record.ServiceID)
	assert.True(t, apperror.IsNotFound(err))
}
