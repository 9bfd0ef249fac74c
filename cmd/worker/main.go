// Package main runs the periodic jobs of the service shop (the low-stock
// report) against the shared PostgreSQL store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"serviceshop/internal/app"
	"serviceshop/internal/config"
	"serviceshop/internal/infrastructure/scheduler"
	"serviceshop/internal/infrastructure/storage/postgres"
	"serviceshop/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
		Service:     "serviceshop-worker",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)
	defer logger.Sync()

	if cfg.Storage != config.StoragePostgres {
		log.Fatalw("worker needs STORAGE=postgres", "storage", cfg.Storage)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	poolCfg := app.PoolConfig(cfg)
	poolCfg.ApplicationName = "serviceshop-worker"
	poolCfg.MaxConns = 4
	poolCfg.MinConns = 0
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	repos, err := app.PostgresRepositories(pool, cfg)
	if err != nil {
		log.Fatalw("failed to build repositories", "error", err)
	}
	services, err := app.NewServices(repos, cfg)
	if err != nil {
		log.Fatalw("failed to build services", "error", err)
	}

	sched := scheduler.New(ctx, log)
	for _, job := range app.Jobs(services, cfg) {
		if err := sched.Add(job); err != nil {
			log.Fatalw("invalid job", "error", err)
		}
	}
	sched.Start()
	log.Infow("worker started", "low_stock_schedule", cfg.LowStockSchedule)

	<-ctx.Done()
	log.Info("shutting down worker...")

	select {
	case <-sched.Stop().Done():
	case <-time.After(30 * time.Second):
		log.Warn("jobs still running after 30s, exiting")
	}
	log.Info("worker stopped")
}
