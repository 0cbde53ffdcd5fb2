package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilombo/crm/internal/database"
)

var errCheckFailed = errors.New("la verificación de conexión falló")

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Test the configured connection and validate the schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		cfg := store.Connection()

		m := database.NewManager(store, database.WithLogger(log))
		defer m.Close()

		result := m.TestConnection(ctx, cfg)
		fmt.Fprintf(out, "%s\n%s\n", result.Title, result.Message)
		if !result.Success {
			return errCheckFailed
		}

		if _, err := m.Acquire(ctx); err != nil {
			fmt.Fprintf(out, "\n%v\n", err)
			return errCheckFailed
		}
		fmt.Fprintf(out, "\n%s\n", m.Info(ctx))
		return nil
	},
}
