// Package aggregate collapses repeated benchmark payloads into a single
// median-reduced payload while preserving the numeric kind of every field.
package aggregate

import (
	"math"
	"sort"

	"github.com/bcsv-io/benchstand/pkg/results"
)

// Every field reduces by exactly one of three kind-specific rules:
// integers take a rounded median, floats a plain median, and booleans
// merge conservatively (false if any repetition was false).

// medianFloat computes the median of values. values must be non-empty.
func medianFloat(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}

	return (sorted[mid-1] + sorted[mid]) / 2
}

// medianInt computes the median of integer values, rounding back to an
// integer when the midpoint falls between two values.
func medianInt(values []int64) int64 {
	floats := make([]float64, len(values))
	for i, v := range values {
		floats[i] = float64(v)
	}

	return int64(math.Round(medianFloat(floats)))
}

// andBool reduces booleans to their logical AND.
func andBool(values []bool) bool {
	for _, v := range values {
		if !v {
			return false
		}
	}

	return true
}

// reduceFloatPtr reduces an optional float field across a group. The
// field survives only when present in every group member; otherwise it
// is dropped rather than guessed.
func reduceFloatPtr(group []results.ResultRecord, get func(*results.ResultRecord) *float64) *float64 {
	values := make([]float64, 0, len(group))

	for i := range group {
		p := get(&group[i])
		if p == nil {
			return nil
		}

		values = append(values, *p)
	}

	med := medianFloat(values)

	return &med
}

// reduceBoolPtr reduces an optional boolean field across a group with the
// same present-in-all rule as reduceFloatPtr.
func reduceBoolPtr(group []results.ResultRecord, get func(*results.ResultRecord) *bool) *bool {
	values := make([]bool, 0, len(group))

	for i := range group {
		p := get(&group[i])
		if p == nil {
			return nil
		}

		values = append(values, *p)
	}

	merged := andBool(values)

	return &merged
}

// mergeRecords reduces a group of records that share a workload key into
// one record. Identity fields are taken from the first member; every
// measured field reduces by its kind.
func mergeRecords(group []results.ResultRecord) results.ResultRecord {
	merged := group[0]

	selectedCols := make([]int64, len(group))
	numCols := make([]int64, len(group))
	numRows := make([]int64, len(group))
	fileSizes := make([]int64, len(group))
	writeTimes := make([]float64, len(group))
	readTimes := make([]float64, len(group))

	for i := range group {
		selectedCols[i] = group[i].SelectedColumns
		numCols[i] = group[i].NumColumns
		numRows[i] = group[i].NumRows
		fileSizes[i] = group[i].FileSize
		writeTimes[i] = group[i].WriteTimeMS
		readTimes[i] = group[i].ReadTimeMS
	}

	merged.SelectedColumns = medianInt(selectedCols)
	merged.NumColumns = medianInt(numCols)
	merged.NumRows = medianInt(numRows)
	merged.FileSize = medianInt(fileSizes)
	merged.WriteTimeMS = medianFloat(writeTimes)
	merged.ReadTimeMS = medianFloat(readTimes)

	merged.WriteRowsPerSec = reduceFloatPtr(group, func(r *results.ResultRecord) *float64 { return r.WriteRowsPerSec })
	merged.ReadRowsPerSec = reduceFloatPtr(group, func(r *results.ResultRecord) *float64 { return r.ReadRowsPerSec })
	merged.CompressionRatio = reduceFloatPtr(group, func(r *results.ResultRecord) *float64 { return r.CompressionRatio })
	merged.ValidationPassed = reduceBoolPtr(group, func(r *results.ResultRecord) *bool { return r.ValidationPassed })

	return merged
}

// Macro aggregates repeated macro payloads into one payload via per-key,
// per-field median. Returns nil for an empty input. A single payload
// still passes through the full reduction pipeline so that repeated and
// single runs are structurally indistinguishable downstream.
func Macro(payloads []*results.MacroPayload, runType results.RunType) *results.MacroPayload {
	if len(payloads) == 0 {
		return nil
	}

	groups := make(map[results.WorkloadKey][]results.ResultRecord)

	for _, payload := range payloads {
		for _, row := range payload.Results {
			if row.Skipped() {
				continue
			}

			key := results.KeyOf(&row)
			groups[key] = append(groups[key], row)
		}
	}

	keys := make([]results.WorkloadKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}

	results.SortKeys(keys)

	merged := make([]results.ResultRecord, 0, len(keys))
	for _, key := range keys {
		merged = append(merged, mergeRecords(groups[key]))
	}

	totals := make([]float64, 0, len(payloads))
	for _, payload := range payloads {
		if payload.TotalTimeSec > 0 {
			totals = append(totals, payload.TotalTimeSec)
		}
	}

	out := *payloads[0]
	out.RunType = string(runType)
	out.Results = merged
	out.Aggregation = &results.Aggregation{
		Method:      "median",
		Repetitions: len(payloads),
	}

	if len(totals) > 0 {
		out.TotalTimeSec = medianFloat(totals)
	}

	return &out
}

// mergeMicroEntries reduces repeated entries for one benchmark name.
func mergeMicroEntries(group []results.MicroBenchmark) results.MicroBenchmark {
	merged := group[0]

	realTimes := make([]float64, len(group))
	cpuTimes := make([]float64, len(group))

	for i := range group {
		realTimes[i] = group[i].RealTime
		cpuTimes[i] = group[i].CPUTime
	}

	merged.RealTime = medianFloat(realTimes)
	merged.CPUTime = medianFloat(cpuTimes)

	iterations := make([]int64, 0, len(group))

	for i := range group {
		if group[i].Iterations == nil {
			iterations = nil

			break
		}

		iterations = append(iterations, *group[i].Iterations)
	}

	if len(iterations) == len(group) && len(iterations) > 0 {
		med := medianInt(iterations)
		merged.Iterations = &med
	} else {
		merged.Iterations = nil
	}

	return merged
}

// Micro aggregates repeated micro payloads, grouped by benchmark name.
func Micro(payloads []*results.MicroPayload) *results.MicroPayload {
	if len(payloads) == 0 {
		return nil
	}

	groups := make(map[string][]results.MicroBenchmark)

	for _, payload := range payloads {
		for _, bm := range payload.Benchmarks {
			groups[bm.Name] = append(groups[bm.Name], bm)
		}
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}

	sort.Strings(names)

	merged := make([]results.MicroBenchmark, 0, len(names))
	for _, name := range names {
		merged = append(merged, mergeMicroEntries(groups[name]))
	}

	out := *payloads[0]
	out.Benchmarks = merged
	out.Aggregation = &results.Aggregation{
		Method:      "median",
		Repetitions: len(payloads),
	}

	return &out
}

// MergeMacro combines per-run-type macro payloads (small and large) into
// a single payload. Rows are tagged with their run type; total time is
// summed across lanes rather than reduced.
func MergeMacro(byType map[results.RunType]*results.MacroPayload) *results.MacroPayload {
	if len(byType) == 0 {
		return nil
	}

	var (
		out       *results.MacroPayload
		total     float64
		mergedRT  []string
		mergedRes []results.ResultRecord
	)

	for _, t := range results.MacroTypes {
		payload, ok := byType[t]
		if !ok || payload == nil {
			continue
		}

		if out == nil {
			clone := *payload
			out = &clone
		}

		for _, row := range payload.Results {
			row.RunType = string(t)
			mergedRes = append(mergedRes, row)
		}

		total += payload.TotalTimeSec
		mergedRT = append(mergedRT, string(t))
	}

	if out == nil {
		return nil
	}

	out.RunType = ""
	out.RunTypes = mergedRT
	out.TotalTimeSec = total
	out.Results = mergedRes
	out.Aggregation = nil

	return out
}
