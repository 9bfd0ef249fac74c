package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"serviceshop/internal/config"
	"serviceshop/internal/core/types"
	"serviceshop/internal/domain/catalogs/item"
	"serviceshop/internal/domain/documents/purchase"
	"serviceshop/internal/infrastructure/storage/memory"
	"serviceshop/pkg/logger"
)

func TestLowStockReport(t *testing.T) {
	ctx := context.Background()
	services, err := NewServices(MemoryRepositories(memory.NewStore()), config.Config{
		RestockRule:      "available <= restock_level",
		LowStockSchedule: "@every 1h",
	})
	require.NoError(t, err)

	low := &item.Item{Name: "Brake pad", Brand: "Bosch", RestockLevel: 5}
	ok := &item.Item{Name: "Oil filter", Brand: "Mann", RestockLevel: 1}
	require.NoError(t, services.Items.Create(ctx, low))
	require.NoError(t, services.Items.Create(ctx, ok))
	_, err = services.Purchases.Record(ctx, purchase.RecordRequest{
		ItemID:       ok.ItemID,
		PurchaseDate: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		Quantity:     10,
		BuyingPrice:  types.MustMoney("3.00"),
		SellingPrice: types.MustMoney("6.00"),
	})
	require.NoError(t, err)

	core, logs := observer.New(zap.DebugLevel)
	ctx = logger.WithLogger(ctx, logger.FromZap(zap.New(core)))

	jobs := Jobs(services, config.Config{LowStockSchedule: "@every 1h"})
	require.Len(t, jobs, 1)
	require.NoError(t, jobs[0].Run(ctx))

	flagged := logs.FilterMessage("item needs restocking").All()
	require.Len(t, flagged, 1)
	assert.Equal(t, "Brake pad", flagged[0].ContextMap()["name"])

	summary := logs.FilterMessage("low-stock report").All()
	require.Len(t, summary, 1)
	assert.EqualValues(t, 1, summary[0].ContextMap()["flagged"])
}
