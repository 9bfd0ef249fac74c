package app

import (
	"context"
	"time"

	"serviceshop/internal/config"
	"serviceshop/internal/domain/catalogs/item"
	"serviceshop/internal/infrastructure/scheduler"
	"serviceshop/pkg/logger"
)

// Jobs lists the periodic jobs run by cmd/worker.
func Jobs(services *Services, cfg config.Config) []scheduler.Job {
	return []scheduler.Job{
		{
			Name:     "low-stock-report",
			Schedule: cfg.LowStockSchedule,
			Timeout:  time.Minute,
			Run:      LowStockReport(services.Items, services.RestockPolicy),
		},
	}
}

// LowStockReport logs every item the restock rule flags.
func LowStockReport(items *item.Service, policy *item.RestockPolicy) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		low, err := items.LowStock(ctx)
		if err != nil {
			return err
		}
		for _, it := range low {
			logger.Warn(ctx, "item needs restocking",
				"item_id", it.ItemID,
				"name", it.Name,
				"brand", it.Brand,
				"available", it.Available,
				"restock_level", it.RestockLevel,
			)
		}
		logger.Info(ctx, "low-stock report", "rule", policy.Rule(), "flagged", len(low))
		return nil
	}
}
