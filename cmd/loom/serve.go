package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fluffy-dev/The-Loom/internal/bootstrap"
)

// serveCmd runs the HTTP API, the WebSocket relay and the reaper until signalled.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay server",
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
		if err := app.Start(ctx); err != nil {
			app.Shutdown()
			return err
		}

		<-ctx.Done()
		log.Info("Shutdown signal received...")
		app.Shutdown()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
