package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bcsv-io/benchstand/pkg/compare"
	"github.com/bcsv-io/benchstand/pkg/config"
	"github.com/bcsv-io/benchstand/pkg/discovery"
	"github.com/bcsv-io/benchstand/pkg/fsutil"
	"github.com/bcsv-io/benchstand/pkg/leaderboard"
	"github.com/bcsv-io/benchstand/pkg/platform"
	"github.com/bcsv-io/benchstand/pkg/report"
	"github.com/bcsv-io/benchstand/pkg/results"
	"github.com/spf13/cobra"
)

var (
	compareThreshold         float64
	compareTypes             string
	compareLatest            bool
	compareAllowMismatch     bool
	compareUpdateLeaderboard bool
	compareJSON              bool
	compareOutput            string
)

var compareCmd = &cobra.Command{
	Use:   "compare [baseline-dir candidate-dir]",
	Short: "Compare two benchmark runs for regressions",
	Long: `Compare aggregated benchmark results from two run directories.
With --latest, the newest run under the configured results root is the
candidate and the baseline is discovered automatically.

Exits 1 when a regression beyond the threshold is found, 2 on error.`,
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().Float64Var(&compareThreshold, "threshold",
		compare.DefaultThresholdPct, "regression threshold in percent")
	compareCmd.Flags().StringVar(&compareTypes, "types", "",
		"comma-separated run types to compare (default: all present)")
	compareCmd.Flags().BoolVar(&compareLatest, "latest", false,
		"compare the newest run against an auto-discovered baseline")
	compareCmd.Flags().BoolVar(&compareAllowMismatch, "allow-mismatched-rows", false,
		"warn instead of failing on row count mismatches")
	compareCmd.Flags().BoolVar(&compareUpdateLeaderboard, "update-leaderboard", false,
		"record improved candidate results in the host leaderboard")
	compareCmd.Flags().BoolVar(&compareJSON, "json", false,
		"emit the comparison as JSON instead of markdown")
	compareCmd.Flags().StringVar(&compareOutput, "output", "",
		"write the report to a file instead of stdout")
}

// comparisonDoc is the JSON output of the compare command.
type comparisonDoc struct {
	Generated     time.Time               `json:"generated"`
	Baseline      string                  `json:"baseline"`
	Candidate     string                  `json:"candidate"`
	ThresholdPct  float64                 `json:"threshold_pct"`
	Rows          []compare.ComparisonRow `json:"rows"`
	Micro         []compare.MicroRow      `json:"micro,omitempty"`
	BaselineOnly  []string                `json:"baseline_only,omitempty"`
	CandidateOnly []string                `json:"candidate_only,omitempty"`
	Regressions   int                     `json:"regressions"`
}

func runCompare(cmd *cobra.Command, args []string) error {
	baselineDir, candidateDir, err := resolveCompareDirs(cmd, args)
	if err != nil {
		return err
	}

	log.WithField("baseline", baselineDir).
		WithField("candidate", candidateDir).
		Info("Comparing runs")

	doc, err := buildComparison(baselineDir, candidateDir)
	if err != nil {
		return err
	}

	if err := emitComparison(doc); err != nil {
		return err
	}

	if compareUpdateLeaderboard {
		if err := updateLeaderboard(candidateDir); err != nil {
			return err
		}
	}

	if doc.Regressions > 0 {
		log.WithField("regressions", doc.Regressions).
			Warn("Regressions detected")

		exitCode = exitRegression
	}

	return nil
}

// resolveCompareDirs determines the baseline and candidate run
// directories from positional args or --latest discovery.
func resolveCompareDirs(cmd *cobra.Command, args []string) (string, string, error) {
	if !compareLatest {
		if len(args) != 2 {
			return "", "", fmt.Errorf("expected <baseline-dir> <candidate-dir> (or use --latest)")
		}

		return args[0], args[1], nil
	}

	if len(args) != 0 {
		return "", "", fmt.Errorf("--latest takes no positional arguments")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return "", "", err
	}

	host, err := cfg.ResolveHost()
	if err != nil {
		return "", "", err
	}

	hostRoot := filepath.Join(cfg.Benchmark.ResultsRoot, host)

	latest, err := discovery.LatestRuns(hostRoot, 1)
	if err != nil {
		return "", "", err
	}

	if len(latest) == 0 {
		return "", "", fmt.Errorf("no runs found under %s", hostRoot)
	}

	candidateDir := latest[0]

	types, err := cfg.RunTypeList()
	if err != nil {
		return "", "", err
	}

	req := discovery.Requirements{}

	for _, t := range types {
		if t.IsMacro() {
			req.MacroTypes = append(req.MacroTypes, t)
		} else {
			req.Micro = true
		}
	}

	baselineDir, err := discovery.LatestCleanRun(hostRoot, candidateDir, req)
	if err != nil {
		return "", "", err
	}

	if baselineDir == "" {
		return "", "", fmt.Errorf("no usable baseline run found under %s", hostRoot)
	}

	return baselineDir, candidateDir, nil
}

// buildComparison loads both runs and produces the comparison document.
func buildComparison(baselineDir, candidateDir string) (*comparisonDoc, error) {
	doc := &comparisonDoc{
		Generated:    time.Now().UTC(),
		Baseline:     runName(baselineDir),
		Candidate:    runName(candidateDir),
		ThresholdPct: compareThreshold,
	}

	macroTypes, wantMicro, err := selectCompareTypes(baselineDir, candidateDir)
	if err != nil {
		return nil, err
	}

	for _, t := range macroTypes {
		base, err := results.ReadMacro(baselineDir, t)
		if err != nil {
			return nil, fmt.Errorf("reading baseline %s results: %w", t, err)
		}

		cand, err := results.ReadMacro(candidateDir, t)
		if err != nil {
			return nil, fmt.Errorf("reading candidate %s results: %w", t, err)
		}

		results.StripSkipped(base)
		results.StripSkipped(cand)

		baseByKey := results.ByKey(base)
		candByKey := results.ByKey(cand)

		if err := compare.CheckRowCounts(baseByKey, candByKey); err != nil {
			var mismatch *compare.MismatchError
			if errors.As(err, &mismatch) && compareAllowMismatch {
				log.WithField("type", t).Warn(mismatch.Error())
			} else {
				return nil, fmt.Errorf("%s: %w", t, err)
			}
		}

		doc.Rows = append(doc.Rows, compare.Rows(baseByKey, candByKey, compareThreshold)...)

		baseOnly, candOnly := compare.Unmatched(baseByKey, candByKey)
		doc.BaselineOnly = append(doc.BaselineOnly, keyStrings(baseOnly)...)
		doc.CandidateOnly = append(doc.CandidateOnly, keyStrings(candOnly)...)
	}

	if wantMicro {
		base, baseErr := results.ReadMicro(baselineDir)
		cand, candErr := results.ReadMicro(candidateDir)

		if baseErr == nil && candErr == nil {
			doc.Micro = compare.MicroRows(base, cand, compareThreshold)
		} else {
			log.Warn("Micro results missing on one side, skipping micro comparison")
		}
	}

	for _, row := range doc.Rows {
		if row.Regression {
			doc.Regressions++
		}
	}

	for _, row := range doc.Micro {
		if row.Regression {
			doc.Regressions++
		}
	}

	return doc, nil
}

// selectCompareTypes decides which lanes to compare. Explicit --types
// wins; otherwise every lane with result files on both sides runs.
func selectCompareTypes(baselineDir, candidateDir string) ([]results.RunType, bool, error) {
	if compareTypes != "" {
		types, err := results.ParseTypes(compareTypes)
		if err != nil {
			return nil, false, err
		}

		var macros []results.RunType

		wantMicro := false

		for _, t := range types {
			if t.IsMacro() {
				macros = append(macros, t)
			} else {
				wantMicro = true
			}
		}

		return macros, wantMicro, nil
	}

	var macros []results.RunType

	for _, t := range results.MacroTypes {
		if fsutil.FileNonEmpty(filepath.Join(baselineDir, t.ResultFile())) &&
			fsutil.FileNonEmpty(filepath.Join(candidateDir, t.ResultFile())) {
			macros = append(macros, t)
		}
	}

	wantMicro := fsutil.FileNonEmpty(filepath.Join(baselineDir, results.TypeMicro.ResultFile())) &&
		fsutil.FileNonEmpty(filepath.Join(candidateDir, results.TypeMicro.ResultFile()))

	if len(macros) == 0 && !wantMicro {
		return nil, false, fmt.Errorf("no overlapping result files between %s and %s",
			baselineDir, candidateDir)
	}

	return macros, wantMicro, nil
}

// emitComparison writes the report as JSON or markdown to the output
// target.
func emitComparison(doc *comparisonDoc) error {
	var rendered []byte

	if compareJSON {
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding comparison: %w", err)
		}

		rendered = append(data, '\n')
	} else {
		md := report.Markdown(doc.Rows, doc.Micro, doc.Baseline, doc.Candidate,
			doc.ThresholdPct, doc.Generated)
		md += report.UnmatchedSection(doc.BaselineOnly, doc.CandidateOnly)
		rendered = []byte(md)
	}

	if compareOutput == "" {
		_, err := os.Stdout.Write(rendered)

		return err
	}

	if err := fsutil.WriteFileAtomic(compareOutput, rendered, 0644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	log.WithField("path", compareOutput).Info("Report written")

	return nil
}

func keyStrings(keys []results.WorkloadKey) []string {
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		out = append(out, key.String())
	}

	return out
}

// runName renders a run directory as <label>/<timestamp> for display.
func runName(runDir string) string {
	return filepath.Join(
		filepath.Base(filepath.Dir(runDir)),
		filepath.Base(runDir),
	)
}

// updateLeaderboard records improved candidate macro results in the
// leaderboard of the candidate's host root.
func updateLeaderboard(candidateDir string) error {
	// <resultsRoot>/<host>/<label>/<timestamp> -> host root.
	hostRoot := filepath.Dir(filepath.Dir(candidateDir))

	board, err := leaderboard.Load(hostRoot)
	if err != nil {
		return fmt.Errorf("loading leaderboard: %w", err)
	}

	gitVersion := platform.GitVersion(candidateDir)
	runID := runName(candidateDir)

	var records []results.ResultRecord

	for _, t := range results.MacroTypes {
		payload, err := results.ReadMacro(candidateDir, t)
		if err != nil {
			continue
		}

		records = append(records, payload.Results...)
	}

	if !board.Update(records, runID, gitVersion, time.Now().UTC()) {
		log.Info("Leaderboard unchanged")

		return nil
	}

	if err := leaderboard.Save(hostRoot, board); err != nil {
		return fmt.Errorf("saving leaderboard: %w", err)
	}

	log.WithField("path", filepath.Join(hostRoot, leaderboard.FileName)).
		Info("Leaderboard updated")

	return nil
}
