package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bcsv-io/benchstand/pkg/aggregate"
	"github.com/bcsv-io/benchstand/pkg/fsutil"
	"github.com/bcsv-io/benchstand/pkg/results"
	"github.com/spf13/cobra"
)

var (
	aggregateOutput string
	aggregateTypes  string
	aggregateMerge  bool
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate <side-root>",
	Short: "Aggregate repeated pair results into a single run",
	Long: `Aggregate the pair directories under a side root (as produced by
run-pairs) into one result document per run type using per-field
medians.`,
	Args: cobra.ExactArgs(1),
	RunE: runAggregate,
}

func init() {
	rootCmd.AddCommand(aggregateCmd)

	aggregateCmd.Flags().StringVar(&aggregateOutput, "output", "",
		"directory for the aggregated results (default <side-root>/aggregated)")
	aggregateCmd.Flags().StringVar(&aggregateTypes, "types", "",
		"comma-separated run types to aggregate (default: all present)")
	aggregateCmd.Flags().BoolVar(&aggregateMerge, "merge-macro", false,
		"additionally write a merged macro document combining all macro lanes")
}

func runAggregate(cmd *cobra.Command, args []string) error {
	sideRoot := args[0]

	outDir := aggregateOutput
	if outDir == "" {
		outDir = filepath.Join(sideRoot, "aggregated")
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	macro, micro, err := aggregateSide(sideRoot, aggregateTypes)
	if err != nil {
		return err
	}

	if len(macro) == 0 && micro == nil {
		return fmt.Errorf("no results found under %s", sideRoot)
	}

	types := make([]results.RunType, 0, len(macro))
	for t := range macro {
		types = append(types, t)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	for _, t := range types {
		if err := results.WriteMacro(outDir, t, macro[t]); err != nil {
			return fmt.Errorf("writing %s results: %w", t, err)
		}

		log.WithField("type", t).
			WithField("workloads", len(macro[t].Results)).
			Info("Aggregated macro results")
	}

	if micro != nil {
		if err := results.WriteMicro(outDir, micro); err != nil {
			return fmt.Errorf("writing micro results: %w", err)
		}

		log.WithField("benchmarks", len(micro.Benchmarks)).
			Info("Aggregated micro results")
	}

	if aggregateMerge && len(macro) > 0 {
		if merged := aggregate.MergeMacro(macro); merged != nil {
			// Merged document sits alongside the per-lane files.
			path := filepath.Join(outDir, "macro_merged_results.json")

			if err := fsutil.WriteJSON(path, merged); err != nil {
				return fmt.Errorf("writing merged macro document: %w", err)
			}

			log.WithField("path", path).Info("Merged macro document written")
		}
	}

	log.WithField("output", outDir).Info("Aggregation complete")

	return nil
}

// aggregateSide reads every pair directory under sideRoot and reduces
// each run type present to a single payload.
func aggregateSide(sideRoot, typesArg string) (map[results.RunType]*results.MacroPayload, *results.MicroPayload, error) {
	entries, err := os.ReadDir(sideRoot)
	if err != nil {
		return nil, nil, fmt.Errorf("reading side root %s: %w", sideRoot, err)
	}

	var wanted map[results.RunType]struct{}

	if typesArg != "" {
		types, err := results.ParseTypes(typesArg)
		if err != nil {
			return nil, nil, err
		}

		wanted = make(map[results.RunType]struct{}, len(types))
		for _, t := range types {
			wanted[t] = struct{}{}
		}
	}

	macroInputs := make(map[results.RunType][]*results.MacroPayload)

	var microInputs []*results.MicroPayload

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		pairDir := filepath.Join(sideRoot, entry.Name())

		for _, t := range results.MacroTypes {
			if wanted != nil {
				if _, ok := wanted[t]; !ok {
					continue
				}
			}

			payload, err := results.ReadMacro(pairDir, t)
			if err != nil {
				continue
			}

			macroInputs[t] = append(macroInputs[t], payload)
		}

		if wanted != nil {
			if _, ok := wanted[results.TypeMicro]; !ok {
				continue
			}
		}

		if payload, err := results.ReadMicro(pairDir); err == nil {
			microInputs = append(microInputs, payload)
		}
	}

	macro := make(map[results.RunType]*results.MacroPayload, len(macroInputs))

	for t, payloads := range macroInputs {
		if agg := aggregate.Macro(payloads, t); agg != nil {
			macro[t] = agg
		}
	}

	micro := aggregate.Micro(microInputs)

	return macro, micro, nil
}
