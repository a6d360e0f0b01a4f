package compare

import (
	"fmt"
	"strings"

	"github.com/bcsv-io/benchstand/pkg/results"
)

// maxReportedMismatches caps how many mismatching keys the error message
// details; the total count is always reported.
const maxReportedMismatches = 10

// RowCountMismatch records one workload whose baseline and candidate
// measured different row counts.
type RowCountMismatch struct {
	Key           results.WorkloadKey
	BaselineRows  int64
	CandidateRows int64
}

// MismatchError signals that baseline and candidate did not measure the
// same workloads. Comparing across it would produce spurious deltas, so
// the pipeline refuses to proceed unless explicitly overridden.
type MismatchError struct {
	Mismatches []RowCountMismatch
}

func (e *MismatchError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b,
		"workload mismatch: num_rows differs for %d matching workload(s), refusing to compare",
		len(e.Mismatches))

	limit := len(e.Mismatches)
	if limit > maxReportedMismatches {
		limit = maxReportedMismatches
	}

	for _, m := range e.Mismatches[:limit] {
		fmt.Fprintf(&b, "\n  - %s/%s: baseline=%d, candidate=%d",
			m.Key.Dataset, m.Key.Mode, m.BaselineRows, m.CandidateRows)
	}

	if len(e.Mismatches) > limit {
		fmt.Fprintf(&b, "\n  ... and %d more", len(e.Mismatches)-limit)
	}

	return b.String()
}

// CheckRowCounts verifies that every workload present on both sides
// reports the same row count. The check only applies where both sides
// carry row metadata; a missing count on either side is not a mismatch.
func CheckRowCounts(baseline, candidate map[results.WorkloadKey]results.ResultRecord) error {
	var mismatches []RowCountMismatch

	keys := make([]results.WorkloadKey, 0, len(baseline))

	for key := range baseline {
		if _, ok := candidate[key]; ok {
			keys = append(keys, key)
		}
	}

	results.SortKeys(keys)

	for _, key := range keys {
		base := baseline[key]
		cand := candidate[key]

		if base.NumRows == 0 || cand.NumRows == 0 {
			continue
		}

		if base.NumRows != cand.NumRows {
			mismatches = append(mismatches, RowCountMismatch{
				Key:           key,
				BaselineRows:  base.NumRows,
				CandidateRows: cand.NumRows,
			})
		}
	}

	if len(mismatches) > 0 {
		return &MismatchError{Mismatches: mismatches}
	}

	return nil
}
