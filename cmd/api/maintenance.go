package main

import (
	"time"

	"github.com/geocoder89/fellowship/internal/db"
	"github.com/geocoder89/fellowship/internal/repo/postgres"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}

			pool, err := openPool(cmd.Context(), cfg.ServiceDBURL, 2)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := db.Migrate(cmd.Context(), pool); err != nil {
				return err
			}

			log.Info("migrations applied")
			return nil
		},
	}
}

func seedAdminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-admin",
		Short: "Create or promote the admin from ADMIN_EMAIL and ADMIN_PASSWORD",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}

			pool, err := openPool(cmd.Context(), cfg.ServiceDBURL, 2)
			if err != nil {
				return err
			}
			defer pool.Close()

			serviceDB := postgres.NewServiceDB(pool, nil)

			return db.EnsureAdminUser(cmd.Context(),
				postgres.NewUsersRepo(serviceDB),
				postgres.NewProfilesRepo(serviceDB),
				cfg, log,
			)
		},
	}
}

func pruneSessionsCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune-sessions",
		Short: "Delete refresh sessions that expired before now minus --older-than",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}

			pool, err := openPool(cmd.Context(), cfg.ServiceDBURL, 2)
			if err != nil {
				return err
			}
			defer pool.Close()

			n, err := postgres.NewRefreshTokensRepo(postgres.NewServiceDB(pool, nil)).
				DeleteExpired(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}

			log.Info("expired sessions pruned", "count", n)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "keep sessions that expired less than this long ago")

	return cmd
}
