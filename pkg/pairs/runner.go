// Package pairs executes baseline and candidate benchmark binaries as
// concurrently-running pairs so that time-varying system noise (thermal
// throttling, background load) affects both sides symmetrically.
package pairs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/bcsv-io/benchstand/pkg/fsutil"
	"github.com/bcsv-io/benchstand/pkg/results"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	// MacroExecutable is the macro benchmark binary name inside a bin dir.
	MacroExecutable = "bench_macro_datasets"

	// MicroExecutable is the micro benchmark binary name inside a bin dir.
	MicroExecutable = "bench_micro_types"

	// DefaultMacroTimeout bounds one macro benchmark process.
	DefaultMacroTimeout = time.Hour

	// DefaultMicroTimeout bounds one micro benchmark process.
	DefaultMicroTimeout = 15 * time.Minute

	// InterleavedDirName is the per-host directory holding pair output.
	InterleavedDirName = "interleaved_h2h"
)

// Config for the interleaved pair runner.
type Config struct {
	// BaselineBin and CandidateBin are directories containing the
	// benchmark executables for each side.
	BaselineBin  string
	CandidateBin string

	BaselineLabel  string
	CandidateLabel string

	RunTypes    []results.RunType
	Repetitions int

	// Root is the interleaved output root; pair directories are created
	// under <Root>/<label>/pairNN.
	Root string

	BuildType string

	// Compression levels 1-9; zero means the binary default.
	BaselineCompression  int
	CandidateCompression int

	MacroTimeout time.Duration
	MicroTimeout time.Duration
}

// ExecError is a hard execution failure: the process exited non-zero (or
// was killed on timeout) without producing any usable output.
type ExecError struct {
	Side     string
	RunType  results.RunType
	Pair     string
	ExitCode int
	Output   string
	TimedOut bool
}

func (e *ExecError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("%s %s %s: timed out and was killed", e.Side, e.RunType, e.Pair)
	}

	return fmt.Sprintf("%s %s %s: exit code %d and no usable output file %s",
		e.Side, e.RunType, e.Pair, e.ExitCode, e.Output)
}

// Runner drives interleaved baseline/candidate execution.
type Runner interface {
	Run(ctx context.Context) error
}

// NewRunner creates an interleaved pair runner.
func NewRunner(log logrus.FieldLogger, cfg *Config) Runner {
	if cfg.MacroTimeout == 0 {
		cfg.MacroTimeout = DefaultMacroTimeout
	}

	if cfg.MicroTimeout == 0 {
		cfg.MicroTimeout = DefaultMicroTimeout
	}

	return &runner{
		log: log.WithField("component", "pairs"),
		cfg: cfg,
	}
}

type runner struct {
	log logrus.FieldLogger
	cfg *Config
}

// Ensure interface compliance.
var _ Runner = (*runner)(nil)

// side bundles everything one half of a pair needs to execute.
type side struct {
	name    string
	label   string
	bin     string
	pairDir string
	level   int
}

// Run executes all configured pairs. Pairs run strictly sequentially;
// within a pair the two sides run concurrently and the runner blocks
// until both have terminated before moving on.
func (r *runner) Run(ctx context.Context) error {
	if r.cfg.Repetitions < 1 {
		return fmt.Errorf("repetitions must be >= 1, got %d", r.cfg.Repetitions)
	}

	if err := r.checkExecutables(); err != nil {
		return err
	}

	baselineRoot := filepath.Join(r.cfg.Root, r.cfg.BaselineLabel)
	candidateRoot := filepath.Join(r.cfg.Root, r.cfg.CandidateLabel)

	// Stale pair output would corrupt aggregation, so the root is reset.
	if err := os.RemoveAll(r.cfg.Root); err != nil {
		return fmt.Errorf("clearing interleaved root: %w", err)
	}

	for _, dir := range []string{baselineRoot, candidateRoot} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	r.log.WithFields(logrus.Fields{
		"baseline":    r.cfg.BaselineLabel,
		"candidate":   r.cfg.CandidateLabel,
		"repetitions": r.cfg.Repetitions,
	}).Info("Starting interleaved head-to-head run")

	for rep := 1; rep <= r.cfg.Repetitions; rep++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		pairName := fmt.Sprintf("pair%02d", rep)

		baseline := side{
			name:    "baseline",
			label:   r.cfg.BaselineLabel,
			bin:     r.cfg.BaselineBin,
			pairDir: filepath.Join(baselineRoot, pairName),
			level:   r.cfg.BaselineCompression,
		}
		candidate := side{
			name:    "candidate",
			label:   r.cfg.CandidateLabel,
			bin:     r.cfg.CandidateBin,
			pairDir: filepath.Join(candidateRoot, pairName),
			level:   r.cfg.CandidateCompression,
		}

		for _, s := range []side{baseline, candidate} {
			if err := os.MkdirAll(s.pairDir, 0755); err != nil {
				return fmt.Errorf("creating pair directory: %w", err)
			}
		}

		r.log.WithField("pair", pairName).Infof("Pair %d/%d", rep, r.cfg.Repetitions)

		for _, runType := range r.cfg.RunTypes {
			if err := r.runPair(ctx, pairName, runType, baseline, candidate); err != nil {
				return err
			}
		}
	}

	r.log.Info("Completed interleaved head-to-head benchmark pairs")

	return nil
}

// checkExecutables verifies both bin dirs hold executable benchmark
// binaries before any pair starts.
func (r *runner) checkExecutables() error {
	needMacro := false
	needMicro := false

	for _, t := range r.cfg.RunTypes {
		if t.IsMacro() {
			needMacro = true
		} else {
			needMicro = true
		}
	}

	for _, bin := range []string{r.cfg.BaselineBin, r.cfg.CandidateBin} {
		if needMacro {
			if err := checkExecutable(filepath.Join(bin, MacroExecutable)); err != nil {
				return err
			}
		}

		if needMicro {
			if err := checkExecutable(filepath.Join(bin, MicroExecutable)); err != nil {
				return err
			}
		}
	}

	return nil
}

func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("executable not found: %s", path)
	}

	if info.Mode()&0111 == 0 {
		return fmt.Errorf("not executable: %s", path)
	}

	return nil
}

// runPair launches both sides of one (pair, run type) unit concurrently
// and waits for both to terminate. Isolation between the two processes
// comes solely from their separate output directories.
func (r *runner) runPair(ctx context.Context, pairName string, runType results.RunType, baseline, candidate side) error {
	r.log.WithFields(logrus.Fields{
		"pair": pairName,
		"type": runType,
	}).Info("Running pair")

	g, gCtx := errgroup.WithContext(ctx)

	for _, s := range []side{baseline, candidate} {
		g.Go(func() error {
			return r.runSide(gCtx, pairName, runType, s)
		})
	}

	return g.Wait()
}

// runSide executes one benchmark process and classifies its outcome.
// A non-zero exit with a usable result file is tolerated with a warning;
// a non-zero exit without one is a hard failure.
func (r *runner) runSide(ctx context.Context, pairName string, runType results.RunType, s side) error {
	outputFile := filepath.Join(s.pairDir, runType.ResultFile())

	var (
		cmdPath string
		args    []string
		timeout time.Duration
	)

	if runType == results.TypeMicro {
		cmdPath = filepath.Join(s.bin, MicroExecutable)
		args = []string{
			"--benchmark_format=json",
			"--benchmark_out=" + outputFile,
		}
		timeout = r.cfg.MicroTimeout
	} else {
		cmdPath = filepath.Join(s.bin, MacroExecutable)
		args = []string{
			"--output=" + outputFile,
			"--build-type=" + r.cfg.BuildType,
			fmt.Sprintf("--rows=%d", results.TypeRows[runType]),
		}
		if s.level > 0 {
			args = append(args, fmt.Sprintf("--compression=%d", s.level))
		}
		timeout = r.cfg.MacroTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stem := runType.FileStem()

	stdout, err := os.Create(filepath.Join(s.pairDir, stem+"_stdout.log"))
	if err != nil {
		return fmt.Errorf("creating stdout log: %w", err)
	}
	defer stdout.Close()

	stderr, err := os.Create(filepath.Join(s.pairDir, stem+"_stderr.log"))
	if err != nil {
		return fmt.Errorf("creating stderr log: %w", err)
	}
	defer stderr.Close()

	cmd := exec.CommandContext(runCtx, cmdPath, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	runErr := cmd.Run()

	if runErr == nil {
		if !fsutil.FileNonEmpty(outputFile) {
			return &ExecError{
				Side:    s.name,
				RunType: runType,
				Pair:    pairName,
				Output:  outputFile,
			}
		}

		return nil
	}

	if runCtx.Err() != nil && ctx.Err() == nil {
		return &ExecError{
			Side:     s.name,
			RunType:  runType,
			Pair:     pairName,
			TimedOut: true,
		}
	}

	var exitErr *exec.ExitError
	exitCode := -1

	if errors.As(runErr, &exitErr) {
		exitCode = exitErr.ExitCode()
	}

	// Some benchmark binaries flake on exit status while still writing a
	// complete result file; that data is trusted.
	if fsutil.FileNonEmpty(outputFile) {
		r.log.WithFields(logrus.Fields{
			"side": s.name,
			"pair": pairName,
			"type": runType,
			"code": exitCode,
		}).Warn("Process exited non-zero but produced output; continuing")

		return nil
	}

	return &ExecError{
		Side:     s.name,
		RunType:  runType,
		Pair:     pairName,
		ExitCode: exitCode,
		Output:   outputFile,
	}
}
