package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fluffy-dev/The-Loom/internal/bootstrap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the relational schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := bootstrap.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		log := bootstrap.NewLogger(cfg)

		db, err := bootstrap.OpenDB(cfg, log)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
