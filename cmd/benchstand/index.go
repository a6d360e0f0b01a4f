package main

import (
	"fmt"

	"github.com/bcsv-io/benchstand/pkg/config"
	"github.com/bcsv-io/benchstand/pkg/history"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index benchmark runs into the history database",
	Long: `Walk the results root and record every run directory in the run
history database for later querying via the API.`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	if cfg.History == nil {
		return fmt.Errorf("history section is required in config")
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()

	store := history.NewStore(log, &cfg.History.Database)
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("starting run index: %w", err)
	}

	defer func() {
		if err := store.Stop(); err != nil {
			log.WithError(err).Warn("Failed to stop run index")
		}
	}()

	scanner := history.NewScanner(log, store, cfg.Benchmark.ResultsRoot)

	count, err := scanner.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scanning results: %w", err)
	}

	log.WithField("runs", count).Info("Indexing complete")

	return nil
}
