package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilombo/crm/internal/api"
	"github.com/kilombo/crm/internal/database"
	"github.com/kilombo/crm/internal/repository"
)

var addr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the configuration panel, health, metrics and reports over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		m := database.Shared(store, database.WithLogger(log))
		defer m.Close()

		orders := repository.NewOrderRepository(m, repository.NewPolicy(log))
		srv := api.New(m, store, orders, log)

		if addr == "" {
			addr = store.File().Server.Addr
		}
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config server.addr)")
}
