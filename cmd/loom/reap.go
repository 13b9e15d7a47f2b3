package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fluffy-dev/The-Loom/internal/bootstrap"
)

// reapCmd runs one cleanup pass and exits. Useful from cron.
var reapCmd = &cobra.Command{
	Use:   "reap",
	Short: "Run a single room cleanup pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := bootstrap.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		log := bootstrap.NewLogger(cfg)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := bootstrap.NewApp(ctx, cfg, log)
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		defer app.Shutdown()

		report, err := app.RunCleanupOnce(ctx)
		log.WithFields(logrus.Fields{
			"expired":     report.ExpiredRooms,
			"inactive":    report.InactiveRooms,
			"deleted":     report.DeletedRooms,
			"skipped":     report.SkippedRooms,
			"orphan_keys": report.OrphanKeys,
		}).Info("Cleanup pass finished")
		return err
	},
}

func init() {
	rootCmd.AddCommand(reapCmd)
}
