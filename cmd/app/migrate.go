package main

import (
	"salesapi/config"
	"salesapi/logger"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the sales table if it does not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		log, err := logger.New(cfg.LogLevel, cfg.LogDevelopment)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		st, err := openStore(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		if err := st.Migrate(cmd.Context()); err != nil {
			return err
		}
		log.Info("schema is up to date")
		return nil
	},
}
