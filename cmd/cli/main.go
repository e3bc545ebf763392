package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/wanxtv/wanx/backend/internal/config"
	"github.com/wanxtv/wanx/backend/internal/database"
	"github.com/wanxtv/wanx/backend/internal/logger"
)

var (
	cfg      *config.Config
	logLevel string
	output   string = "text" // "text" or "json"
)

var rootCmd = &cobra.Command{
	Use:   "wanxctl",
	Short: "wanx backend maintenance tool",
	Long: `wanxctl runs maintenance tasks against the wanx database: schema migration,
fake data seeding and walking feeds page by page.
Configuration is read from .env and the environment, like the server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		if err := logger.Initialize(logLevel, cfg.Log.File); err != nil {
			return err
		}
		return database.Initialize(cfg.Database, cfg.IsDevelopment())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = database.Close()
		_ = logger.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&output, "output", output, "Output format: text or json")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(feedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
