package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bcsv-io/benchstand/pkg/platform"
	"github.com/bcsv-io/benchstand/pkg/results"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// scanWorkers bounds concurrent run directory scans.
const scanWorkers = 8

// Scanner walks a results root and indexes every run directory it
// finds into a Store.
type Scanner struct {
	log   logrus.FieldLogger
	store Store
	root  string
}

// NewScanner creates a scanner over the given results root.
func NewScanner(log logrus.FieldLogger, store Store, root string) *Scanner {
	return &Scanner{
		log:   log.WithField("component", "history_scanner"),
		store: store,
		root:  root,
	}
}

// Scan indexes all run directories under <root>/<host>/<label>/<timestamp>.
// Directories without a platform.json are skipped. Returns the number of
// runs indexed.
func (s *Scanner) Scan(ctx context.Context) (int, error) {
	runDirs, err := s.collectRunDirs()
	if err != nil {
		return 0, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scanWorkers)

	var indexed atomic.Int64

	for _, rd := range runDirs {
		g.Go(func() error {
			run, err := s.indexRunDir(rd)
			if err != nil {
				s.log.WithError(err).WithField("dir", rd.path).Warn("Skipping unreadable run directory")

				return nil
			}

			if run == nil {
				return nil
			}

			if err := s.store.UpsertRun(gctx, run); err != nil {
				return fmt.Errorf("indexing %s: %w", rd.path, err)
			}

			indexed.Add(1)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	count := int(indexed.Load())

	s.log.WithFields(logrus.Fields{
		"scanned": len(runDirs),
		"indexed": count,
	}).Info("Results scan complete")

	return count, nil
}

type runDir struct {
	host  string
	label string
	runID string
	path  string
}

func (s *Scanner) collectRunDirs() ([]runDir, error) {
	hosts, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("reading results root %s: %w", s.root, err)
	}

	var dirs []runDir

	for _, host := range hosts {
		if !host.IsDir() {
			continue
		}

		labels, err := os.ReadDir(filepath.Join(s.root, host.Name()))
		if err != nil {
			continue
		}

		for _, label := range labels {
			if !label.IsDir() {
				continue
			}

			runs, err := os.ReadDir(filepath.Join(s.root, host.Name(), label.Name()))
			if err != nil {
				continue
			}

			for _, run := range runs {
				if !run.IsDir() {
					continue
				}

				dirs = append(dirs, runDir{
					host:  host.Name(),
					label: label.Name(),
					runID: run.Name(),
					path:  filepath.Join(s.root, host.Name(), label.Name(), run.Name()),
				})
			}
		}
	}

	return dirs, nil
}

// indexRunDir builds a Run record from a single run directory. Returns
// nil when the directory has no platform.json.
func (s *Scanner) indexRunDir(rd runDir) (*Run, error) {
	info, err := platform.ReadFile(rd.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, err
	}

	run := &Run{
		Host:       rd.host,
		Label:      rd.label,
		RunID:      rd.runID,
		GitVersion: info.BestGitVersion(),
		RunTypes:   strings.Join(info.RunTypes, ","),
	}

	if ts, err := time.Parse("20060102_150405", rd.runID); err == nil {
		run.Timestamp = ts
	} else if !info.Timestamp.IsZero() {
		run.Timestamp = info.Timestamp
	}

	for _, t := range []results.RunType{results.TypeMacroSmall, results.TypeMacroLarge} {
		payload, err := results.ReadMacro(rd.path, t)
		if err != nil {
			continue
		}

		switch t {
		case results.TypeMacroSmall:
			run.HasMacroSmall = true
		case results.TypeMacroLarge:
			run.HasMacroLarge = true
		}

		run.ResultCount += len(payload.Results)
		run.TotalTimeSec += payload.TotalTimeSec
	}

	if micro, err := results.ReadMicro(rd.path); err == nil {
		run.HasMicro = true
		run.ResultCount += len(micro.Benchmarks)
	}

	return run, nil
}
