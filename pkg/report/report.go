// Package report renders comparison results and leaderboard state as
// Markdown and plain text.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/bcsv-io/benchstand/pkg/compare"
	"github.com/bcsv-io/benchstand/pkg/leaderboard"
	"github.com/docker/go-units"
)

// FormatDelta renders a percentage delta with severity markers.
func FormatDelta(pct float64) string {
	switch {
	case pct > 5:
		return fmt.Sprintf("+%.1f%% **REGRESSION**", pct)
	case pct > 2:
		return fmt.Sprintf("+%.1f%%", pct)
	case pct < -5:
		return fmt.Sprintf("%.1f%% (faster)", pct)
	case pct < -2:
		return fmt.Sprintf("%.1f%%", pct)
	default:
		return fmt.Sprintf("%+.1f%%", pct)
	}
}

// Markdown renders the full comparison report: regression and
// improvement summaries, the per-workload table, and a regression
// breakdown.
func Markdown(
	rows []compare.ComparisonRow,
	microRows []compare.MicroRow,
	baselineName, candidateName string,
	thresholdPct float64,
	now time.Time,
) string {
	var b strings.Builder

	b.WriteString("# BCSV Benchmark Comparison Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", now.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "- Baseline: `%s`\n", baselineName)
	fmt.Fprintf(&b, "- Candidate: `%s`\n", candidateName)
	fmt.Fprintf(&b, "- Regression threshold: %g%%\n\n", thresholdPct)

	var regressions, improvements []compare.ComparisonRow

	for _, row := range rows {
		if row.Regression {
			regressions = append(regressions, row)
		}

		if row.Improved(thresholdPct) {
			improvements = append(improvements, row)
		}
	}

	if len(regressions) > 0 {
		fmt.Fprintf(&b, "**%d REGRESSION(S) DETECTED**\n\n", len(regressions))

		for _, row := range regressions {
			fmt.Fprintf(&b, "- `%s/%s`: %s regressed\n",
				row.Dataset, row.Mode, strings.Join(row.RegressionFields, ", "))
		}

		b.WriteString("\n")
	} else {
		b.WriteString("**No regressions detected.**\n\n")
	}

	if len(improvements) > 0 {
		fmt.Fprintf(&b, "**%d improvement(s):**\n\n", len(improvements))

		for _, row := range improvements {
			fmt.Fprintf(&b, "- `%s/%s`: total %.1f%%\n",
				row.Dataset, row.Mode, row.TotalDeltaPct)
		}

		b.WriteString("\n")
	}

	b.WriteString("## Detailed Comparison\n\n")
	b.WriteString("| Dataset | Mode | Base Total (ms) | Cand Total (ms)" +
		" | Delta | Base Size | Cand Size | Size Delta |\n")
	b.WriteString("|---------|------|----------------:|----------------:" +
		"|------:|----------:|----------:|-----------:|\n")

	for _, row := range rows {
		fmt.Fprintf(&b, "| %s | %s | %.1f | %.1f | %s | %s | %s | %s |\n",
			row.Dataset, row.Mode,
			row.BaselineTotalMS, row.CandidateTotalMS,
			FormatDelta(row.TotalDeltaPct),
			units.HumanSize(float64(row.BaselineSize)),
			units.HumanSize(float64(row.CandidateSize)),
			FormatDelta(row.SizeDeltaPct),
		)
	}

	b.WriteString("\n")

	if len(regressions) > 0 {
		b.WriteString("## Regression Details\n\n")
		b.WriteString("| Dataset | Mode | Metric | Baseline | Candidate | Delta |\n")
		b.WriteString("|---------|------|--------|---------:|----------:|------:|\n")

		for _, row := range regressions {
			for _, field := range row.RegressionFields {
				base, cand, delta := metricValues(row, field)

				fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
					row.Dataset, row.Mode, field, base, cand, FormatDelta(delta))
			}
		}

		b.WriteString("\n")
	}

	if len(microRows) > 0 {
		b.WriteString("## Micro Benchmarks\n\n")
		b.WriteString("| Benchmark | Base Real Time | Cand Real Time | Delta |\n")
		b.WriteString("|-----------|---------------:|---------------:|------:|\n")

		for _, row := range microRows {
			fmt.Fprintf(&b, "| %s | %.1f | %.1f | %s |\n",
				row.Name, row.BaselineRealTime, row.CandidateRealTime,
				FormatDelta(row.RealTimeDeltaPct))
		}

		b.WriteString("\n")
	}

	return b.String()
}

// metricValues extracts the baseline/candidate rendering for one
// regressed metric.
func metricValues(row compare.ComparisonRow, field string) (base, cand string, delta float64) {
	switch field {
	case compare.FieldWrite:
		return fmt.Sprintf("%.1f ms", row.BaselineWriteMS),
			fmt.Sprintf("%.1f ms", row.CandidateWriteMS),
			row.WriteDeltaPct
	case compare.FieldRead:
		return fmt.Sprintf("%.1f ms", row.BaselineReadMS),
			fmt.Sprintf("%.1f ms", row.CandidateReadMS),
			row.ReadDeltaPct
	case compare.FieldSize:
		return units.HumanSize(float64(row.BaselineSize)),
			units.HumanSize(float64(row.CandidateSize)),
			row.SizeDeltaPct
	default:
		return fmt.Sprintf("%.1f ms", row.BaselineTotalMS),
			fmt.Sprintf("%.1f ms", row.CandidateTotalMS),
			row.TotalDeltaPct
	}
}

// LeaderboardTable renders the leaderboard as a fixed-width text table.
func LeaderboardTable(board *leaderboard.Board) string {
	var b strings.Builder

	b.WriteString("BCSV Benchmark Leaderboard\n")
	b.WriteString(strings.Repeat("=", 90) + "\n")

	if board.Updated != nil {
		fmt.Fprintf(&b, "Last updated: %s\n\n", board.Updated.Format(time.RFC3339))
	} else {
		b.WriteString("Last updated: never\n\n")
	}

	if len(board.Entries) == 0 {
		b.WriteString("No entries yet.\n")

		return b.String()
	}

	fmt.Fprintf(&b, "%-40s %10s %20s %15s\n", "Key", "Total (ms)", "Run", "Git")
	b.WriteString(strings.Repeat("-", 90) + "\n")

	for _, key := range board.SortedKeys() {
		entry := board.Entries[key]

		fmt.Fprintf(&b, "%-40s %10.1f %20s %15s\n",
			key, entry.BestTotalMS, entry.Run, entry.GitVersion)
	}

	return b.String()
}

// UnmatchedSection lists workloads present on only one side of a
// comparison.
func UnmatchedSection(baselineOnly, candidateOnly []string) string {
	if len(baselineOnly) == 0 && len(candidateOnly) == 0 {
		return ""
	}

	var b strings.Builder

	b.WriteString("## Unmatched Workloads\n\n")

	for _, key := range baselineOnly {
		fmt.Fprintf(&b, "- baseline only: `%s`\n", key)
	}

	for _, key := range candidateOnly {
		fmt.Fprintf(&b, "- candidate only: `%s`\n", key)
	}

	b.WriteString("\n")

	return b.String()
}
