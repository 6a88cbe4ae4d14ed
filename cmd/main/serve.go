package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"bothive/internal/api"
	"bothive/internal/config"
	"bothive/internal/db"
	"bothive/internal/logging"
	"bothive/internal/sandbox"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the BotHive API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func runServer() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.JWTSecretKey == "change-me-in-production" {
		logging.Warn("JWT_SECRET_KEY is using the default value; set it before exposing this server")
	}

	if err := os.MkdirAll(cfg.BotStoragePath, 0o755); err != nil {
		return fmt.Errorf("failed to create bot storage directory: %w", err)
	}

	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	driver := sandbox.NewDockerDriver()
	if err := driver.Ping(ctx); err != nil {
		logging.Warn("Docker daemon not reachable at startup: %v", err)
	}

	server := api.New(cfg, database, driver)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info("Received signal %v, shutting down...", sig)
		cancel()
	}()

	logging.Info("Starting BotHive server on %s:%d", cfg.Host, cfg.Port)
	return server.Start(ctx)
}
