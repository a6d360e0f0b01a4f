// Package discovery locates run directories and picks comparison
// baselines from historical runs. It is a pure selection heuristic: it
// never builds, runs, or mutates anything.
package discovery

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bcsv-io/benchstand/pkg/results"
)

// PlatformFile is the metadata file that marks a directory as a
// completed run.
const PlatformFile = "platform.json"

// Requirements describes the coverage the current run needs from a
// baseline candidate.
type Requirements struct {
	MacroTypes []results.RunType
	Micro      bool
}

// candidate scores one historical run directory.
type candidate struct {
	runDir       string
	modTime      time.Time
	exactMatch   bool
	missingTotal int
	macroOverlap int
}

// LatestCleanRun searches hostRoot for the most appropriate comparison
// baseline. Work-in-progress labels and directories without any result
// artifact are skipped. Candidates are ranked by exact coverage match,
// then fewest missing required run types, then largest macro overlap,
// then most recent modification time. Returns "" when nothing usable
// exists.
func LatestCleanRun(hostRoot, currentRun string, req Requirements) (string, error) {
	labels, err := os.ReadDir(hostRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}

		return "", fmt.Errorf("reading host root %s: %w", hostRoot, err)
	}

	required := make(map[results.RunType]struct{}, len(req.MacroTypes))
	for _, t := range req.MacroTypes {
		required[t] = struct{}{}
	}

	var candidates []candidate

	for _, label := range labels {
		if !label.IsDir() {
			continue
		}

		if strings.Contains(strings.ToLower(label.Name()), "wip") {
			continue
		}

		labelDir := filepath.Join(hostRoot, label.Name())

		runs, err := os.ReadDir(labelDir)
		if err != nil {
			continue
		}

		for _, run := range runs {
			if !run.IsDir() {
				continue
			}

			runDir := filepath.Join(labelDir, run.Name())
			if runDir == currentRun {
				continue
			}

			if _, err := os.Stat(filepath.Join(runDir, PlatformFile)); err != nil {
				continue
			}

			c, ok := scoreRun(runDir, required, req.Micro)
			if !ok {
				continue
			}

			candidates = append(candidates, c)
		}
	}

	if len(candidates) == 0 {
		return "", nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]

		if a.exactMatch != b.exactMatch {
			return a.exactMatch
		}

		if a.missingTotal != b.missingTotal {
			return a.missingTotal < b.missingTotal
		}

		if a.macroOverlap != b.macroOverlap {
			return a.macroOverlap > b.macroOverlap
		}

		return a.modTime.After(b.modTime)
	})

	return candidates[0].runDir, nil
}

// scoreRun probes a run directory for result artifacts and computes its
// coverage score. ok is false when the directory holds no usable data.
func scoreRun(runDir string, required map[results.RunType]struct{}, requireMicro bool) (candidate, bool) {
	found := make(map[results.RunType]struct{}, len(results.MacroTypes))

	for _, t := range results.MacroTypes {
		if _, err := os.Stat(filepath.Join(runDir, t.ResultFile())); err == nil {
			found[t] = struct{}{}
		}
	}

	hasMicro := false
	if _, err := os.Stat(filepath.Join(runDir, results.TypeMicro.ResultFile())); err == nil {
		hasMicro = true
	}

	if len(found) == 0 && !hasMicro {
		return candidate{}, false
	}

	overlap := 0
	missing := 0

	for t := range required {
		if _, ok := found[t]; ok {
			overlap++
		} else {
			missing++
		}
	}

	if requireMicro && !hasMicro {
		missing++
	}

	info, err := os.Stat(runDir)
	if err != nil {
		return candidate{}, false
	}

	return candidate{
		runDir:       runDir,
		modTime:      info.ModTime(),
		exactMatch:   missing == 0,
		missingTotal: missing,
		macroOverlap: overlap,
	}, true
}

// LatestRuns returns up to count run directories under hostRoot sorted
// most recent first by timestamp directory name.
func LatestRuns(hostRoot string, count int) ([]string, error) {
	labels, err := os.ReadDir(hostRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("reading host root %s: %w", hostRoot, err)
	}

	type stamped struct {
		dir  string
		name string
	}

	var runs []stamped

	for _, label := range labels {
		if !label.IsDir() {
			continue
		}

		labelDir := filepath.Join(hostRoot, label.Name())

		entries, err := os.ReadDir(labelDir)
		if err != nil {
			continue
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}

			runs = append(runs, stamped{
				dir:  filepath.Join(labelDir, entry.Name()),
				name: entry.Name(),
			})
		}
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].name > runs[j].name
	})

	if len(runs) > count {
		runs = runs[:count]
	}

	dirs := make([]string, 0, len(runs))
	for _, r := range runs {
		dirs = append(dirs, r.dir)
	}

	return dirs, nil
}

// EnsureRunDir creates and returns a timestamped run directory under
// <resultsRoot>/<host>/<label>/.
func EnsureRunDir(resultsRoot, host, label string, now time.Time) (string, error) {
	runDir := filepath.Join(resultsRoot, host, label, now.Format("20060102_150405"))

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", fmt.Errorf("creating run directory: %w", err)
	}

	return runDir, nil
}

// ResolveGitLabel derives a short label suitable for run directory
// naming. An explicit non-WIP argument passes through lower-cased; WIP
// resolves to the short HEAD SHA on a clean tree and "wip" otherwise.
func ResolveGitLabel(ctx context.Context, repoDir, arg string) string {
	trimmed := strings.TrimSpace(arg)
	if trimmed == "" {
		trimmed = "WIP"
	}

	if !strings.EqualFold(trimmed, "wip") {
		return strings.ToLower(trimmed)
	}

	statusCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status, err := exec.CommandContext(statusCtx, "git", "-C", repoDir, "status", "--porcelain").Output()
	if err != nil || len(strings.TrimSpace(string(status))) > 0 {
		return "wip"
	}

	rev, err := exec.CommandContext(statusCtx, "git", "-C", repoDir, "rev-parse", "--short", "HEAD").Output()
	if err != nil {
		return "wip"
	}

	label := strings.ToLower(strings.TrimSpace(string(rev)))
	if label == "" {
		return "wip"
	}

	return label
}
