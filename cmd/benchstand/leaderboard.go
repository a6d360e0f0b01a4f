package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bcsv-io/benchstand/pkg/config"
	"github.com/bcsv-io/benchstand/pkg/leaderboard"
	"github.com/bcsv-io/benchstand/pkg/report"
	"github.com/spf13/cobra"
)

var leaderboardHost string

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Print the best recorded results for a host",
	RunE:  runLeaderboard,
}

func init() {
	rootCmd.AddCommand(leaderboardCmd)

	leaderboardCmd.Flags().StringVar(&leaderboardHost, "host", "",
		"host to show (default: current hostname)")
}

func runLeaderboard(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	host := leaderboardHost
	if host == "" {
		host, err = cfg.ResolveHost()
		if err != nil {
			return err
		}
	}

	hostRoot := filepath.Join(cfg.Benchmark.ResultsRoot, host)

	board, err := leaderboard.Load(hostRoot)
	if err != nil {
		return fmt.Errorf("loading leaderboard: %w", err)
	}

	if len(board.Entries) == 0 {
		fmt.Fprintf(os.Stdout, "No leaderboard entries for host %s\n", host)

		return nil
	}

	fmt.Fprint(os.Stdout, report.LeaderboardTable(board))

	return nil
}
