package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"reservo/internal/config"
	"reservo/internal/store/postgres"
	"reservo/migrations"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := newLogger(os.Stdout, cfg.LogLevel)

			log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
			db, err := postgres.Open(cmd.Context(), cfg.DatabaseURL, postgres.PoolConfig{MaxOpenConns: 2})
			if err != nil {
				return fail(log, "database connection failed", err, databaseLogArgs(cfg.DatabaseURL)...)
			}
			defer func() {
				if err := postgres.Close(db); err != nil {
					log.Warn("database close failed", slog.Any("err", err))
				}
			}()

			return runMigrations(cmd.Context(), log, db)
		},
	}
}

func runMigrations(ctx context.Context, log *slog.Logger, db bun.IDB) error {
	applied, err := postgres.Migrate(ctx, db, migrations.FS)
	if err != nil {
		return fail(log, "migration failed", err, slog.Any("applied", applied))
	}
	if len(applied) == 0 {
		log.Info("database schema up to date")
		return nil
	}
	log.Info("migrations applied", slog.Any("files", applied))
	return nil
}
