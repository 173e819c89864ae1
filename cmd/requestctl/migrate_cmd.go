package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/iota-uz/taxdesk/modules/servicerequests"
	"github.com/iota-uz/taxdesk/modules/servicerequests/infrastructure/persistence"
	"github.com/iota-uz/taxdesk/pkg/application"
	"github.com/iota-uz/taxdesk/pkg/configuration"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Apply the postgres schema for STORE_BACKEND=postgres",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), args[0])
		},
	}
	return cmd
}

func runMigrate(ctx context.Context, direction string) error {
	conf := configuration.Use()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	pool, err := persistence.OpenPool(connectCtx, conf.Database)
	cancel()
	if err != nil {
		return err
	}
	defer pool.Close()
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	migrations := application.NewMigrationManager()
	migrations.RegisterSchema(&servicerequests.MigrationFiles, servicerequests.SchemaDir)

	switch direction {
	case "up":
		return migrations.Up(ctx, db)
	case "down":
		return migrations.Down(ctx, db)
	case "status":
		return migrations.Status(ctx, db)
	default:
		return fmt.Errorf("unknown migrate direction %q (expected up|down|status)", direction)
	}
}
