package main

import (
	"github.com/spf13/cobra"

	"github.com/fitfuel/identity-service/internal/app"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply store schema changes",
		Long: `Apply pending PostgreSQL migrations or create the MongoDB unique
indexes, depending on STORE_DRIVER, then exit.`,
		RunE: runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, log, err := loadRuntime(ctx)
	if err != nil {
		return err
	}

	cmd.Println("Running migrations...")
	if err := app.Migrate(ctx, cfg, log); err != nil {
		return err
	}
	cmd.Println("Migrations completed successfully")
	return nil
}
