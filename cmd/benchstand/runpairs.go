package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/bcsv-io/benchstand/pkg/config"
	"github.com/bcsv-io/benchstand/pkg/pairs"
	"github.com/bcsv-io/benchstand/pkg/platform"
	"github.com/bcsv-io/benchstand/pkg/results"
	"github.com/spf13/cobra"
)

var (
	pairsBaselineBin    string
	pairsCandidateBin   string
	pairsBaselineLabel  string
	pairsCandidateLabel string
	pairsTypes          string
	pairsRepetitions    int
	pairsRoot           string
	pairsBuildType      string
	pairsBaselineLevel  int
	pairsCandidateLevel int
	pairsMacroTimeout   time.Duration
	pairsMicroTimeout   time.Duration
)

var runPairsCmd = &cobra.Command{
	Use:   "run-pairs",
	Short: "Run interleaved baseline/candidate benchmark pairs",
	Long: `Execute baseline and candidate benchmark binaries concurrently in
repeated pairs. Both sides of a pair run at the same time so that
thermal and background-load drift affects them equally.`,
	RunE: runRunPairs,
}

func init() {
	rootCmd.AddCommand(runPairsCmd)

	runPairsCmd.Flags().StringVar(&pairsBaselineBin, "baseline-bin", "",
		"directory containing the baseline benchmark binaries")
	runPairsCmd.Flags().StringVar(&pairsCandidateBin, "candidate-bin", "",
		"directory containing the candidate benchmark binaries")
	runPairsCmd.Flags().StringVar(&pairsBaselineLabel, "baseline-label", "baseline",
		"label for the baseline side")
	runPairsCmd.Flags().StringVar(&pairsCandidateLabel, "candidate-label", "candidate",
		"label for the candidate side")
	runPairsCmd.Flags().StringVar(&pairsTypes, "types", "",
		"comma-separated run types (default from config)")
	runPairsCmd.Flags().IntVar(&pairsRepetitions, "repetitions", 0,
		"number of pairs to run (default from config)")
	runPairsCmd.Flags().StringVar(&pairsRoot, "output-root", "",
		"interleaved output root (default <results-root>/<host>/interleaved_h2h)")
	runPairsCmd.Flags().StringVar(&pairsBuildType, "build-type", "",
		"build type passed to macro binaries (default from config)")
	runPairsCmd.Flags().IntVar(&pairsBaselineLevel, "baseline-compression", 0,
		"compression level for the baseline side (0 = binary default)")
	runPairsCmd.Flags().IntVar(&pairsCandidateLevel, "candidate-compression", 0,
		"compression level for the candidate side (0 = binary default)")
	runPairsCmd.Flags().DurationVar(&pairsMacroTimeout, "macro-timeout",
		pairs.DefaultMacroTimeout, "timeout per macro benchmark process")
	runPairsCmd.Flags().DurationVar(&pairsMicroTimeout, "micro-timeout",
		pairs.DefaultMicroTimeout, "timeout per micro benchmark process")

	_ = runPairsCmd.MarkFlagRequired("baseline-bin")
	_ = runPairsCmd.MarkFlagRequired("candidate-bin")
}

func runRunPairs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	var runTypes []results.RunType

	if pairsTypes != "" {
		runTypes, err = results.ParseTypes(pairsTypes)
	} else {
		runTypes, err = cfg.RunTypeList()
	}

	if err != nil {
		return err
	}

	repetitions := pairsRepetitions
	if repetitions == 0 {
		repetitions = cfg.Benchmark.Repetitions
	}

	buildType := pairsBuildType
	if buildType == "" {
		buildType = cfg.Benchmark.BuildType
	}

	root := pairsRoot
	if root == "" {
		host, err := cfg.ResolveHost()
		if err != nil {
			return err
		}

		root = filepath.Join(cfg.Benchmark.ResultsRoot, host, pairs.InterleavedDirName)
	}

	runner := pairs.NewRunner(log, &pairs.Config{
		BaselineBin:          pairsBaselineBin,
		CandidateBin:         pairsCandidateBin,
		BaselineLabel:        pairsBaselineLabel,
		CandidateLabel:       pairsCandidateLabel,
		RunTypes:             runTypes,
		Repetitions:          repetitions,
		Root:                 root,
		BuildType:            buildType,
		BaselineCompression:  pairsBaselineLevel,
		CandidateCompression: pairsCandidateLevel,
		MacroTimeout:         pairsMacroTimeout,
		MicroTimeout:         pairsMicroTimeout,
	})

	if err := runner.Run(cmd.Context()); err != nil {
		return fmt.Errorf("running pairs: %w", err)
	}

	if err := writeRunMetadata(cmd, root, buildType, runTypes, repetitions); err != nil {
		return err
	}

	log.WithField("root", root).Info("Interleaved pairs complete")

	return nil
}

// writeRunMetadata records platform and invocation metadata alongside
// the pair output.
func writeRunMetadata(cmd *cobra.Command, root, buildType string, runTypes []results.RunType, repetitions int) error {
	info := platform.Collect(cmd.Context())
	info.BuildType = buildType
	info.Repetitions = repetitions

	for _, t := range runTypes {
		info.RunTypes = append(info.RunTypes, string(t))
	}

	if err := platform.WriteFile(root, info); err != nil {
		return fmt.Errorf("writing platform file: %w", err)
	}

	args := map[string]any{
		"baseline_bin":    pairsBaselineBin,
		"candidate_bin":   pairsCandidateBin,
		"baseline_label":  pairsBaselineLabel,
		"candidate_label": pairsCandidateLabel,
		"build_type":      buildType,
		"repetitions":     repetitions,
		"run_types":       info.RunTypes,
	}

	if err := platform.WriteManifest(root, args); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}

	return nil
}
