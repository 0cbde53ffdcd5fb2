package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kilombo/crm/internal/config"
	_ "github.com/kilombo/crm/internal/database/mysql"
	_ "github.com/kilombo/crm/internal/database/postgres"
	_ "github.com/kilombo/crm/internal/database/sqlite"
	"github.com/kilombo/crm/internal/logger"
)

var (
	cfgPath string
	debug   bool

	store *config.Store
	log   *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:           "kilombo",
	Short:         "Kilombo CRM data layer",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional
		_ = godotenv.Load()

		s, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		store = s

		logCfg := s.File().Log
		if debug {
			logCfg.Level = "debug"
		}
		log = logger.New(&logCfg)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath, "path to the YAML configuration file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd, migrateCmd, checkCmd)
}
