package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bcsv-io/benchstand/pkg/compare"
	"github.com/bcsv-io/benchstand/pkg/results"
	"github.com/spf13/cobra"
)

var (
	cpBaselineLabel  string
	cpCandidateLabel string
)

var comparePairsCmd = &cobra.Command{
	Use:   "compare-pairs <interleaved-root>",
	Short: "Aggregate and compare an interleaved head-to-head run",
	Long: `Aggregate both sides of an interleaved head-to-head run (as produced
by run-pairs) with per-field medians, then compare them for
regressions.

Exits 1 when a regression beyond the threshold is found, 2 on error.`,
	Args: cobra.ExactArgs(1),
	RunE: runComparePairs,
}

func init() {
	rootCmd.AddCommand(comparePairsCmd)

	comparePairsCmd.Flags().Float64Var(&compareThreshold, "threshold",
		compare.DefaultThresholdPct, "regression threshold in percent")
	comparePairsCmd.Flags().StringVar(&cpBaselineLabel, "baseline-label", "baseline",
		"baseline side directory name")
	comparePairsCmd.Flags().StringVar(&cpCandidateLabel, "candidate-label", "candidate",
		"candidate side directory name")
	comparePairsCmd.Flags().BoolVar(&compareAllowMismatch, "allow-mismatched-rows", false,
		"warn instead of failing on row count mismatches")
	comparePairsCmd.Flags().BoolVar(&compareJSON, "json", false,
		"emit the comparison as JSON instead of markdown")
	comparePairsCmd.Flags().StringVar(&compareOutput, "output", "",
		"write the report to a file instead of stdout")
}

func runComparePairs(cmd *cobra.Command, args []string) error {
	root := args[0]

	baselineRoot := filepath.Join(root, cpBaselineLabel)
	candidateRoot := filepath.Join(root, cpCandidateLabel)

	baseMacro, baseMicro, err := aggregateSide(baselineRoot, "")
	if err != nil {
		return err
	}

	candMacro, candMicro, err := aggregateSide(candidateRoot, "")
	if err != nil {
		return err
	}

	doc := &comparisonDoc{
		Generated:    time.Now().UTC(),
		Baseline:     cpBaselineLabel,
		Candidate:    cpCandidateLabel,
		ThresholdPct: compareThreshold,
	}

	for _, t := range results.MacroTypes {
		base, baseOK := baseMacro[t]
		cand, candOK := candMacro[t]

		if !baseOK || !candOK {
			continue
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
				return fmt.Errorf("%s: %w", t, err)
			}
		}

		doc.Rows = append(doc.Rows, compare.Rows(baseByKey, candByKey, compareThreshold)...)

		baseOnly, candOnly := compare.Unmatched(baseByKey, candByKey)
		doc.BaselineOnly = append(doc.BaselineOnly, keyStrings(baseOnly)...)
		doc.CandidateOnly = append(doc.CandidateOnly, keyStrings(candOnly)...)
	}

	if baseMicro != nil && candMicro != nil {
		doc.Micro = compare.MicroRows(baseMicro, candMicro, compareThreshold)
	}

	if len(doc.Rows) == 0 && len(doc.Micro) == 0 {
		return fmt.Errorf("no overlapping results between %s and %s",
			baselineRoot, candidateRoot)
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

	if err := emitComparison(doc); err != nil {
		return err
	}

	if doc.Regressions > 0 {
		log.WithField("regressions", doc.Regressions).
			Warn("Regressions detected")

		exitCode = exitRegression
	}

	return nil
}
