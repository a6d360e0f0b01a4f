// Package compare pairs workloads across two benchmark runs and
// classifies per-metric percentage deltas against a regression threshold.
// Everything in this package is pure: identical inputs always yield
// identical output, and no function performs I/O.
package compare

import (
	"sort"

	"github.com/bcsv-io/benchstand/pkg/results"
)

// DefaultThresholdPct is the default regression threshold percentage.
const DefaultThresholdPct = 5.0

// Metric field names used in RegressionFields.
const (
	FieldWrite = "write"
	FieldRead  = "read"
	FieldTotal = "total"
	FieldSize  = "size"
)

// ComparisonRow holds the baseline/candidate values and classified deltas
// for one matched workload. Rows are ephemeral: they exist only for the
// duration of one report generation and are never persisted.
type ComparisonRow struct {
	Key     results.WorkloadKey `json:"-"`
	Dataset string              `json:"dataset"`
	Mode    string              `json:"mode"`

	BaselineWriteMS  float64 `json:"baseline_write_ms"`
	CandidateWriteMS float64 `json:"candidate_write_ms"`
	WriteDeltaPct    float64 `json:"write_delta_pct"`

	BaselineReadMS  float64 `json:"baseline_read_ms"`
	CandidateReadMS float64 `json:"candidate_read_ms"`
	ReadDeltaPct    float64 `json:"read_delta_pct"`

	BaselineTotalMS  float64 `json:"baseline_total_ms"`
	CandidateTotalMS float64 `json:"candidate_total_ms"`
	TotalDeltaPct    float64 `json:"total_delta_pct"`

	BaselineSize  int64   `json:"baseline_size"`
	CandidateSize int64   `json:"candidate_size"`
	SizeDeltaPct  float64 `json:"size_delta_pct"`

	Regression       bool     `json:"regression"`
	RegressionFields []string `json:"regression_fields"`
}

// Improved reports whether the row counts as an improvement candidate at
// the given threshold.
func (c *ComparisonRow) Improved(thresholdPct float64) bool {
	return c.TotalDeltaPct < -thresholdPct
}

// deltaPct computes the percentage delta from baseline to candidate. A
// zero baseline yields zero rather than dividing by zero.
func deltaPct(baseline, candidate float64) float64 {
	if baseline == 0 {
		return 0
	}

	return (candidate - baseline) / baseline * 100
}

// Rows compares two keyed result sets. Workloads missing from either
// side are excluded, not zero-filled; use Unmatched to surface them.
// A metric is flagged as regressed when its delta strictly exceeds
// thresholdPct (larger is worse for both time and size).
func Rows(
	baseline, candidate map[results.WorkloadKey]results.ResultRecord,
	thresholdPct float64,
) []ComparisonRow {
	keys := make([]results.WorkloadKey, 0, len(baseline))

	for key := range baseline {
		if _, ok := candidate[key]; ok {
			keys = append(keys, key)
		}
	}

	results.SortKeys(keys)

	rows := make([]ComparisonRow, 0, len(keys))

	for _, key := range keys {
		base := baseline[key]
		cand := candidate[key]

		row := ComparisonRow{
			Key:     key,
			Dataset: key.Dataset,
			Mode:    key.Mode,

			BaselineWriteMS:  base.WriteTimeMS,
			CandidateWriteMS: cand.WriteTimeMS,
			WriteDeltaPct:    deltaPct(base.WriteTimeMS, cand.WriteTimeMS),

			BaselineReadMS:  base.ReadTimeMS,
			CandidateReadMS: cand.ReadTimeMS,
			ReadDeltaPct:    deltaPct(base.ReadTimeMS, cand.ReadTimeMS),

			BaselineTotalMS:  base.TotalTimeMS(),
			CandidateTotalMS: cand.TotalTimeMS(),
			TotalDeltaPct:    deltaPct(base.TotalTimeMS(), cand.TotalTimeMS()),

			BaselineSize:  base.FileSize,
			CandidateSize: cand.FileSize,
			SizeDeltaPct:  deltaPct(float64(base.FileSize), float64(cand.FileSize)),
		}

		if row.WriteDeltaPct > thresholdPct {
			row.RegressionFields = append(row.RegressionFields, FieldWrite)
		}

		if row.ReadDeltaPct > thresholdPct {
			row.RegressionFields = append(row.RegressionFields, FieldRead)
		}

		if row.TotalDeltaPct > thresholdPct {
			row.RegressionFields = append(row.RegressionFields, FieldTotal)
		}

		if row.SizeDeltaPct > thresholdPct {
			row.RegressionFields = append(row.RegressionFields, FieldSize)
		}

		row.Regression = len(row.RegressionFields) > 0

		rows = append(rows, row)
	}

	return rows
}

// Unmatched returns the keys present on exactly one side, each slice
// key-sorted. Unmatched workloads are reported rather than silently
// dropped.
func Unmatched(
	baseline, candidate map[results.WorkloadKey]results.ResultRecord,
) (baselineOnly, candidateOnly []results.WorkloadKey) {
	for key := range baseline {
		if _, ok := candidate[key]; !ok {
			baselineOnly = append(baselineOnly, key)
		}
	}

	for key := range candidate {
		if _, ok := baseline[key]; !ok {
			candidateOnly = append(candidateOnly, key)
		}
	}

	results.SortKeys(baselineOnly)
	results.SortKeys(candidateOnly)

	return baselineOnly, candidateOnly
}

// MicroRow is the micro-lane analogue of ComparisonRow, keyed by
// benchmark name and classified on real time only.
type MicroRow struct {
	Name              string  `json:"name"`
	BaselineRealTime  float64 `json:"baseline_real_time"`
	CandidateRealTime float64 `json:"candidate_real_time"`
	RealTimeDeltaPct  float64 `json:"real_time_delta_pct"`
	Regression        bool    `json:"regression"`
}

// MicroRows compares two micro payloads by benchmark name.
func MicroRows(baseline, candidate *results.MicroPayload, thresholdPct float64) []MicroRow {
	baseByName := make(map[string]results.MicroBenchmark, len(baseline.Benchmarks))
	for _, bm := range baseline.Benchmarks {
		baseByName[bm.Name] = bm
	}

	candByName := make(map[string]results.MicroBenchmark, len(candidate.Benchmarks))
	for _, bm := range candidate.Benchmarks {
		candByName[bm.Name] = bm
	}

	names := make([]string, 0, len(baseByName))

	for name := range baseByName {
		if _, ok := candByName[name]; ok {
			names = append(names, name)
		}
	}

	sort.Strings(names)

	rows := make([]MicroRow, 0, len(names))

	for _, name := range names {
		base := baseByName[name]
		cand := candByName[name]
		delta := deltaPct(base.RealTime, cand.RealTime)

		rows = append(rows, MicroRow{
			Name:              name,
			BaselineRealTime:  base.RealTime,
			CandidateRealTime: cand.RealTime,
			RealTimeDeltaPct:  delta,
			Regression:        delta > thresholdPct,
		})
	}

	return rows
}

// AnyRegression reports whether any row is flagged as a regression.
func AnyRegression(rows []ComparisonRow) bool {
	for _, row := range rows {
		if row.Regression {
			return true
		}
	}

	return false
}
