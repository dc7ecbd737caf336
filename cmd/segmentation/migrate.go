package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/segmentation/internal/observability/logger"
	"github.com/dropDatabas3/segmentation/internal/store"
	migrations "github.com/dropDatabas3/segmentation/migrations/postgres"
)

func newMigrateCmd(cfgPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones embebidas de Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cfgPath())
			if err != nil {
				return err
			}
			defer a.Close()
			return runMigrations(cmd.Context(), a)
		},
	}
}

func runMigrations(ctx context.Context, a *app) error {
	mc, ok := a.conn.(store.MigratableConnection)
	if !ok {
		logger.L().Info("storage driver has no migrations", logger.String("driver", a.conn.Name()))
		return nil
	}
	res, err := store.NewMigrator(migrations.FS, migrations.Dir).Run(ctx, mc.MigrationExecutor())
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.L().Info("migrations done",
		logger.Any("applied", res.Applied),
		logger.Int("skipped", len(res.Skipped)),
		logger.Duration(res.Duration))
	return nil
}
