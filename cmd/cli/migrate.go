package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wanxtv/wanx/backend/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update tables and feed indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := database.Migrate(); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "All migrations completed")
		return nil
	},
}
