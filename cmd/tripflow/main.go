package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tripflow/tripflow/internal/config"
	"github.com/tripflow/tripflow/internal/storage"
)

var (
	dbPath string
	cfg    config.Config
	store  storage.Storage
)

var rootCmd = &cobra.Command{
	Use:   "tripflow",
	Short: "Conversational trip-planning assistant",
	Long: `tripflow turns a free-text trip request into a plan: a pipeline of
research steps (weather, events, lodging, itinerary) that runs
autonomously, survives restarts, and streams live progress.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.FromEnv()
		if err != nil {
			return err
		}
		if dbPath != "" {
			cfg.DBPath = dbPath
		}

		store, err = storage.NewStorage(cmd.Context(), &storage.Config{Path: cfg.DBPath})
		if err != nil {
			return fmt.Errorf("failed to open storage at %s: %w", cfg.DBPath, err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			if err := store.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to close storage: %v\n", err)
			}
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (default .tripflow/tripflow.db, or TRIPFLOW_DB)")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
