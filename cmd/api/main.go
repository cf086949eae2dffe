package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/geocoder89/fellowship/internal/config"
	"github.com/geocoder89/fellowship/internal/db"
	"github.com/geocoder89/fellowship/internal/observability"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// a missing .env is fine; real deployments set the environment directly
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "fellowship",
		Short:         "Fellowship community site API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	rootCmd.AddCommand(
		serveCmd(),
		migrateCmd(),
		seedAdminCmd(),
		pruneSessionsCmd(),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

// bootstrap loads config and the logger shared by every command.
func bootstrap() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	return cfg, log, nil
}

func openPool(ctx context.Context, url string, maxConns int32) (*pgxpool.Pool, error) {
	pool, err := db.NewPool(ctx, url, maxConns)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	return pool, nil
}
