// Package main provides a CLI tool for seeding the database with demo inventory.
// Items and purchases go through the domain services, so lots and audit rows
// are created exactly as the API would create them.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"serviceshop/internal/app"
	"serviceshop/internal/config"
	"serviceshop/internal/core/apperror"
	"serviceshop/internal/core/types"
	"serviceshop/internal/domain/catalogs/item"
	"serviceshop/internal/domain/documents/purchase"
	"serviceshop/internal/infrastructure/storage/postgres"
	"serviceshop/pkg/logger"
)

type seedPurchase struct {
	daysAgo  int
	quantity int64
	buying   string
	selling  string
	supplier string
}

type seedItem struct {
	item      item.Item
	purchases []seedPurchase
}

var demoItems = []seedItem{
	{
		item: item.Item{Name: "Brake pad set", Category: "brakes", Brand: "Bosch", RestockLevel: 4},
		purchases: []seedPurchase{
			{daysAgo: 60, quantity: 10, buying: "18.00", selling: "29.90", supplier: "AutoParts Ltd"},
			{daysAgo: 20, quantity: 6, buying: "19.50", selling: "31.00", supplier: "AutoParts Ltd"},
		},
	},
	{
		item: item.Item{Name: "Oil filter", Category: "engine", Brand: "Mann", RestockLevel: 10},
		purchases: []seedPurchase{
			{daysAgo: 45, quantity: 24, buying: "4.20", selling: "8.50", supplier: "FilterCo"},
		},
	},
	{
		item:      item.Item{Name: "Engine oil 5W-30 1L", Category: "fluids", Brand: "Castrol", Unit: "l", RestockLevel: 20},
		purchases: []seedPurchase{{daysAgo: 30, quantity: 40, buying: "6.10", selling: "11.00", supplier: "LubeHouse"}},
	},
	{
		item:      item.Item{Name: "Spark plug", Category: "ignition", Brand: "NGK", RestockLevel: 8},
		purchases: []seedPurchase{{daysAgo: 15, quantity: 5, buying: "3.00", selling: "6.40", supplier: "AutoParts Ltd"}},
	},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: true,
		Service:     "serviceshop-seed",
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)
	defer logger.Sync()

	ctx := logger.WithLogger(context.Background(), log.WithComponent("seed"))
	if cfg.Storage != config.StoragePostgres {
		log.Fatal("seeding requires STORAGE=postgres")
	}

	pool, err := postgres.NewPool(ctx, app.PoolConfig(cfg))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	repos, err := app.PostgresRepositories(pool, cfg)
	if err != nil {
		log.Fatalw("failed to build repositories", "error", err)
	}
	services, err := app.NewServices(repos, cfg)
	if err != nil {
		log.Fatalw("failed to build services", "error", err)
	}

	created, skipped := 0, 0
	for _, s := range demoItems {
		ok, err := seedOne(ctx, services, s)
		if err != nil {
			log.Fatalw("failed to seed item", "name", s.item.Name, "error", err)
		}
		if ok {
			created++
		} else {
			skipped++
		}
	}

	log.Infow("seeding completed successfully", "created", created, "skipped", skipped)
}

// seedOne creates the item and its purchases. Existing items are left alone.
func seedOne(ctx context.Context, services *app.Services, s seedItem) (bool, error) {
	it := s.item
	if err := services.Items.Create(ctx, &it); err != nil {
		if apperror.HasCode(err, apperror.CodeDuplicate) {
			return false, nil
		}
		return false, err
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	for _, p := range s.purchases {
		_, err := services.Purchases.Record(ctx, purchase.RecordRequest{
			ItemID:       it.ItemID,
			PurchaseDate: today.AddDate(0, 0, -p.daysAgo),
			Quantity:     p.quantity,
			BuyingPrice:  types.MustMoney(p.buying),
			SellingPrice: types.MustMoney(p.selling),
			Supplier:     p.supplier,
		})
		if err != nil {
			return false, fmt.Errorf("record purchase: %w", err)
		}
	}
	return true, nil
}
