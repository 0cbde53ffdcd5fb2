package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilombo/crm/internal/database"
	"github.com/kilombo/crm/internal/database/migrations"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|version]",
	Short:     "Apply or roll back the CRM schema on the configured database",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "version"},
	RunE: func(cmd *cobra.Command, args []string) error {
		action := "up"
		if len(args) == 1 {
			action = args[0]
		}

		ctx := cmd.Context()
		cfg := store.Connection()
		if err := cfg.Validate(); err != nil {
			return err
		}

		conn, err := database.OpenSQL(ctx, cfg)
		if err != nil {
			result := database.Failed(database.Classify(database.Inspect(err)), cfg, err.Error())
			return fmt.Errorf("%s: %s", result.Title, result.Message)
		}
		defer conn.Close()
		// goose holds a transaction and queries its version table beside it.
		conn.SetMaxOpenConns(0)

		switch action {
		case "down":
			return migrations.Down(ctx, conn.DB.DB, cfg.DriverName(), log)
		case "version":
			v, err := migrations.Version(ctx, conn.DB.DB, cfg.DriverName(), log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "versión del esquema: %d\n", v)
			return nil
		default:
			return migrations.Up(ctx, conn.DB.DB, cfg.DriverName(), log)
		}
	},
}
