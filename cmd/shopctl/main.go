// Package main is the operations CLI of the service shop: schema migrations,
// connectivity checks, one-off reports and development tokens.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"serviceshop/internal/app"
	"serviceshop/internal/config"
	appctx "serviceshop/internal/core/context"
	"serviceshop/internal/domain/auth"
	"serviceshop/internal/infrastructure/storage/postgres"
	"serviceshop/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfg config.Config

	root := &cobra.Command{
		Use:          "shopctl",
		Short:        "Service shop operations CLI",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cfg, err = config.Load()
			return err
		},
	}

	root.AddCommand(
		gooseCmd("migrate", "Apply db/migrations", "up", &cfg),
		gooseCmd("status", "Show migration status", "status", &cfg),
		pingCmd(&cfg),
		reportCmd(&cfg),
		tokenCmd(&cfg),
	)
	return root
}

func gooseCmd(use, short, gooseArg string, cfg *config.Config) *cobra.Command {
	dir := "db/migrations"
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}
			g := exec.CommandContext(cmd.Context(), "goose", "-dir", dir, "postgres", cfg.DatabaseURL, gooseArg)
			g.Stdout = cmd.OutOrStdout()
			g.Stderr = cmd.ErrOrStderr()
			if err := g.Run(); err != nil {
				return fmt.Errorf("goose %s: %w", gooseArg, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", dir, "migrations directory")
	return cmd
}

func openPool(ctx context.Context, cfg config.Config) (*postgres.Pool, error) {
	pc := app.PoolConfig(cfg)
	pc.ApplicationName = "shopctl"
	pc.MaxConns = 2
	pc.MinConns = 0
	return postgres.NewPool(ctx, pc)
}

func pingCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check the database connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			pool, err := openPool(ctx, *cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			s := pool.Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "connected (total=%d idle=%d max=%d)\n", s.TotalConns, s.IdleConns, s.MaxConns)
			return nil
		},
	}
}

func reportCmd(cfg *config.Config) *cobra.Command {
	report := &cobra.Command{Use: "report", Short: "Run a report once"}
	report.AddCommand(&cobra.Command{
		Use:   "low-stock",
		Short: "Log the items the restock rule flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := logger.New(logger.Config{Level: cfg.LogLevel, Development: true, Service: "shopctl"})
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			pool, err := openPool(cmd.Context(), *cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			repos, err := app.PostgresRepositories(pool, *cfg)
			if err != nil {
				return err
			}
			services, err := app.NewServices(repos, *cfg)
			if err != nil {
				return err
			}
			ctx := logger.WithLogger(cmd.Context(), log)
			return app.LowStockReport(services.Items, services.RestockPolicy)(ctx)
		},
	})
	return report
}

func tokenCmd(cfg *config.Config) *cobra.Command {
	var (
		user appctx.UserContext
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tc := auth.NewConfig(cfg.JWTSecret, cfg.JWTIssuer)
			tc.TTL = ttl

			token, exp, err := auth.NewTokens(tc).Issue(user)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", exp.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&user.Role, "role", appctx.RoleTechnician, "admin, technician or customer")
	cmd.Flags().StringVar(&user.UserID, "user", "dev-user", "user id")
	cmd.Flags().StringVar(&user.Email, "email", "", "user email")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
