// Package main is the entry point for the service-shop inventory API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"serviceshop/internal/app"
	"serviceshop/internal/config"
	"serviceshop/internal/domain/auth"
	v1 "serviceshop/internal/infrastructure/http/v1"
	"serviceshop/internal/infrastructure/http/v1/handlers"
	"serviceshop/internal/infrastructure/storage/memory"
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
		Service:     "serviceshop",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)
	defer logger.Sync()

	ctx := context.Background()
	log.Infow("starting serviceshop server", "storage", cfg.Storage, "env", cfg.Env)

	// --- Storage ---
	repos, closeStore := openStorage(ctx, cfg, log)
	defer closeStore()

	// --- Domain services ---
	services, err := app.NewServices(repos, cfg)
	if err != nil {
		log.Fatalw("failed to build services", "error", err)
	}
	log.Infow("services initialized",
		"restock_rule", services.RestockPolicy.Rule(),
		"conflict_retries", cfg.ConflictRetries,
	)

	// --- Token verification ---
	tokens := auth.NewTokens(auth.NewConfig(cfg.JWTSecret, cfg.JWTIssuer))

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Services: services,
		Health:   handlers.NewHealthHandler(pinger(repos.Ping), repos.Name, v1.Version, repos.Stats),
		Logger:   log.WithComponent("http"),
		Tokens:   tokens,
		CORS:     corsConfig(cfg),
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

// openStorage connects the configured backend.
func openStorage(ctx context.Context, cfg config.Config, log *logger.Logger) (app.Repositories, func()) {
	if cfg.Storage == config.StorageMemory {
		log.Warn("using in-memory storage, data is lost on restart")
		return app.MemoryRepositories(memory.NewStore()), func() {}
	}

	pool, err := postgres.NewPool(ctx, app.PoolConfig(cfg))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	log.Info("database connection established")

	repos, err := app.PostgresRepositories(pool, cfg)
	if err != nil {
		pool.Close()
		log.Fatalw("failed to build repositories", "error", err)
	}
	return repos, pool.Close
}

// pinger adapts a ping func to handlers.Pinger.
type pinger func(ctx context.Context) error

func (p pinger) Ping(ctx context.Context) error { return p(ctx) }

// corsConfig allows any origin in development. Elsewhere cross-origin calls
// need CORS_ALLOWED_ORIGINS.
func corsConfig(cfg config.Config) *v1.CORSConfig {
	if len(cfg.CORSOrigins) == 0 && !cfg.IsDevelopment() {
		return nil
	}
	return &v1.CORSConfig{Origins: cfg.CORSOrigins}
}
