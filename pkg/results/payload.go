package results

import (
	"fmt"
	"strings"
)

// RunType identifies one benchmark lane.
type RunType string

const (
	// TypeMicro is the micro benchmark suite (per-operation timings).
	TypeMicro RunType = "MICRO"

	// TypeMacroSmall is the macro dataset suite at small row counts.
	TypeMacroSmall RunType = "MACRO-SMALL"

	// TypeMacroLarge is the macro dataset suite at large row counts.
	TypeMacroLarge RunType = "MACRO-LARGE"
)

// TypeRows maps macro run types to their canonical row counts.
var TypeRows = map[RunType]int64{
	TypeMacroSmall: 10_000,
	TypeMacroLarge: 500_000,
}

// MacroTypes lists the macro run types in canonical order.
var MacroTypes = []RunType{TypeMacroSmall, TypeMacroLarge}

// FileStem returns the per-run-type file name stem.
func (t RunType) FileStem() string {
	switch t {
	case TypeMicro:
		return "micro"
	case TypeMacroSmall:
		return "macro_small"
	case TypeMacroLarge:
		return "macro_large"
	default:
		return strings.ToLower(string(t))
	}
}

// ResultFile returns the result file name for this run type.
func (t RunType) ResultFile() string {
	return t.FileStem() + "_results.json"
}

// IsMacro reports whether the run type belongs to the macro dataset suite.
func (t RunType) IsMacro() bool {
	return t == TypeMacroSmall || t == TypeMacroLarge
}

// ParseTypes parses and deduplicates a comma-separated run type list.
func ParseTypes(value string) ([]RunType, error) {
	parts := strings.Split(value, ",")
	seen := make(map[RunType]struct{}, len(parts))
	types := make([]RunType, 0, len(parts))

	for _, part := range parts {
		token := strings.ToUpper(strings.TrimSpace(part))
		if token == "" {
			continue
		}

		t := RunType(token)

		switch t {
		case TypeMicro, TypeMacroSmall, TypeMacroLarge:
		default:
			return nil, fmt.Errorf("unsupported run type %q", token)
		}

		if _, ok := seen[t]; ok {
			continue
		}

		seen[t] = struct{}{}
		types = append(types, t)
	}

	if len(types) == 0 {
		return nil, fmt.Errorf("at least one run type is required")
	}

	return types, nil
}

// Result record statuses.
const (
	StatusOK      = "ok"
	StatusSkipped = "skipped"
)

// ResultRecord is one measured workload instance from a macro benchmark run.
// Optional metrics that older binaries do not emit are pointers; a nil
// pointer means the field was absent from the payload.
type ResultRecord struct {
	Dataset         string  `json:"dataset"`
	Mode            string  `json:"mode"`
	ScenarioID      string  `json:"scenario_id,omitempty"`
	AccessPath      string  `json:"access_path,omitempty"`
	SelectedColumns int64   `json:"selected_columns,omitempty"`
	NumColumns      int64   `json:"num_columns"`
	NumRows         int64   `json:"num_rows"`
	WriteTimeMS     float64 `json:"write_time_ms"`
	ReadTimeMS      float64 `json:"read_time_ms"`
	FileSize        int64   `json:"file_size"`
	Status          string  `json:"status,omitempty"`

	// RunType is populated when small and large macro payloads are
	// merged into a single payload.
	RunType string `json:"run_type,omitempty"`

	WriteRowsPerSec  *float64 `json:"write_rows_per_sec,omitempty"`
	ReadRowsPerSec   *float64 `json:"read_rows_per_sec,omitempty"`
	CompressionRatio *float64 `json:"compression_ratio,omitempty"`
	ValidationPassed *bool    `json:"validation_passed,omitempty"`
}

// TotalTimeMS returns the combined write+read latency.
func (r *ResultRecord) TotalTimeMS() float64 {
	return r.WriteTimeMS + r.ReadTimeMS
}

// Skipped reports whether the record carries no trustworthy measurements.
func (r *ResultRecord) Skipped() bool {
	return r.Status == StatusSkipped
}

// Aggregation annotates a payload produced by median reduction.
type Aggregation struct {
	Method      string `json:"method"`
	Repetitions int    `json:"repetitions"`
}

// MacroPayload is the top-level macro result document for one run.
type MacroPayload struct {
	RunType      string         `json:"run_type,omitempty"`
	RunTypes     []string       `json:"run_types,omitempty"`
	TotalTimeSec float64        `json:"total_time_sec,omitempty"`
	SkippedCount int            `json:"skipped_count,omitempty"`
	Results      []ResultRecord `json:"results"`
	Aggregation  *Aggregation   `json:"aggregation,omitempty"`
}

// MicroBenchmark is a single micro benchmark entry.
type MicroBenchmark struct {
	Name       string  `json:"name"`
	RealTime   float64 `json:"real_time"`
	CPUTime    float64 `json:"cpu_time"`
	Iterations *int64  `json:"iterations,omitempty"`
	TimeUnit   string  `json:"time_unit,omitempty"`
}

// MicroPayload is the top-level micro result document for one run.
type MicroPayload struct {
	Benchmarks  []MicroBenchmark `json:"benchmarks"`
	Aggregation *Aggregation     `json:"aggregation,omitempty"`
}
