package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/wanxtv/wanx/backend/internal/database"
	"github.com/wanxtv/wanx/backend/internal/seed"
)

var seedValue uint64

var seedCmd = &cobra.Command{
	Use:       "seed [dev|test|clean]",
	Short:     "Fill the database with fake users, games, videos and comments",
	Long:      "dev seeds a realistic data set, test a minimal one, clean removes every row.",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"dev", "test", "clean"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if seedValue == 0 {
			seedValue = uint64(time.Now().UnixNano())
		}
		if err := database.Migrate(); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		seeder := seed.NewSeeder(database.DB, seedValue)

		var counts seed.Counts
		switch args[0] {
		case "dev":
			counts = seed.DevCounts
		case "test":
			counts = seed.TestCounts
		case "clean":
			if err := seeder.Clean(cmd.Context()); err != nil {
				return fmt.Errorf("clean failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Seed data cleaned")
			return nil
		default:
			return fmt.Errorf("unknown seed set %q", args[0])
		}

		sum, err := seeder.Seed(cmd.Context(), counts)
		if err != nil {
			return err
		}
		if output == "json" {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(sum)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d users, %d games, %d videos, %d comments, %d replies (seed %d)\n",
			sum.Users, sum.Games, sum.Videos, sum.Comments, sum.Replies, seedValue)
		return nil
	},
}

func init() {
	seedCmd.Flags().Uint64Var(&seedValue, "seed", 0, "Random seed; 0 picks one from the clock")
}
