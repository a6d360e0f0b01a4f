package results

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// trackingSuffix matches the optional tracking-state annotation that
// benchmark binaries append to mode strings, e.g. "BCSV Flexible [trk=off]".
var trackingSuffix = regexp.MustCompile(`\s*\[trk=[^\]]*\]$`)

// ModeBase strips the tracking suffix from a raw mode string.
func ModeBase(rawMode string) string {
	return trackingSuffix.ReplaceAllString(rawMode, "")
}

// WorkloadKey identifies one logical benchmark workload. Two records from
// independent runs denote the same workload iff their keys are equal.
type WorkloadKey struct {
	Dataset         string
	Mode            string
	ScenarioID      string
	AccessPath      string
	SelectedColumns int64
}

// KeyOf derives the workload key for a record, applying the payload
// defaults for absent scenario, access path, and column selection.
func KeyOf(r *ResultRecord) WorkloadKey {
	scenario := r.ScenarioID
	if scenario == "" {
		scenario = "baseline"
	}

	accessPath := r.AccessPath
	if accessPath == "" {
		accessPath = "-"
	}

	selected := r.SelectedColumns
	if selected == 0 {
		selected = r.NumColumns
	}

	return WorkloadKey{
		Dataset:         r.Dataset,
		Mode:            ModeBase(r.Mode),
		ScenarioID:      scenario,
		AccessPath:      accessPath,
		SelectedColumns: selected,
	}
}

// String renders the key in a stable human-readable form.
func (k WorkloadKey) String() string {
	return fmt.Sprintf("%s/%s/%s/%s/%d",
		k.Dataset, k.Mode, k.ScenarioID, k.AccessPath, k.SelectedColumns)
}

// Less orders keys lexicographically field by field.
func (k WorkloadKey) Less(other WorkloadKey) bool {
	if k.Dataset != other.Dataset {
		return k.Dataset < other.Dataset
	}

	if k.Mode != other.Mode {
		return k.Mode < other.Mode
	}

	if k.ScenarioID != other.ScenarioID {
		return k.ScenarioID < other.ScenarioID
	}

	if k.AccessPath != other.AccessPath {
		return k.AccessPath < other.AccessPath
	}

	return k.SelectedColumns < other.SelectedColumns
}

// SortKeys sorts workload keys in place and returns them.
func SortKeys(keys []WorkloadKey) []WorkloadKey {
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Less(keys[j])
	})

	return keys
}

// ModeMatches reports whether a raw mode string (possibly carrying a
// tracking suffix) matches any of the given alias names.
func ModeMatches(rawMode string, aliases []string) bool {
	base := ModeBase(rawMode)
	for _, alias := range aliases {
		if strings.EqualFold(base, alias) {
			return true
		}
	}

	return false
}
