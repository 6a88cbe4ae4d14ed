package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bothive/internal/config"
	"bothive/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "bothive",
	Short: "BotHive - multi-tenant bot hosting platform",
	Long: `BotHive runs user-supplied bots in isolated Docker containers.
It provides an HTTP API for bot lifecycle management, code uploads,
live log streaming, and administration.`,
}

func init() {
	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)

	serveCmd.Flags().String("host", "0.0.0.0", "Listen address")
	serveCmd.Flags().Int("port", 8000, "Listen port")
	serveCmd.Flags().String("database", "bothive.db", "Database file path")
	serveCmd.Flags().Bool("debug", false, "Enable debug logging")

	viper.BindPFlag("HOST", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("PORT", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("DATABASE_URL", serveCmd.Flags().Lookup("database"))
	viper.BindPFlag("DEBUG", serveCmd.Flags().Lookup("debug"))
}

func initLogging() {
	cfg, err := config.Load()
	if err != nil {
		logging.Initialize(false)
		return
	}
	logging.Initialize(cfg.Debug)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
