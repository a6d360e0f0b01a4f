package pairs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bcsv-io/benchstand/pkg/results"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeStub installs a shell script as the macro benchmark binary in a
// fresh bin dir. The script receives the runner's flags; $out expands to
// the --output= value.
func writeStub(t *testing.T, body string) string {
	t.Helper()

	binDir := t.TempDir()

	script := `#!/bin/sh
out=""
for arg in "$@"; do
  case "$arg" in
    --output=*) out="${arg#--output=}" ;;
  esac
done
` + body + "\n"

	path := filepath.Join(binDir, MacroExecutable)
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))

	return binDir
}

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.WarnLevel)

	return log
}

func newTestRunner(t *testing.T, baselineBin, candidateBin string, reps int) (Runner, string) {
	t.Helper()

	root := filepath.Join(t.TempDir(), InterleavedDirName)

	return NewRunner(testLogger(), &Config{
		BaselineBin:    baselineBin,
		CandidateBin:   candidateBin,
		BaselineLabel:  "baseline",
		CandidateLabel: "candidate",
		RunTypes:       []results.RunType{results.TypeMacroSmall},
		Repetitions:    reps,
		Root:           root,
		BuildType:      "Release",
		MacroTimeout:   10 * time.Second,
	}), root
}

func TestRunPairConcurrency(t *testing.T) {
	// Both sides sleep one second; concurrent execution finishes the
	// pair in roughly one second, not two.
	bin := writeStub(t, `sleep 1
echo '{"results":[]}' > "$out"`)

	runner, root := newTestRunner(t, bin, bin, 1)

	start := time.Now()
	require.NoError(t, runner.Run(context.Background()))
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 1800*time.Millisecond)
	assert.GreaterOrEqual(t, elapsed, 900*time.Millisecond)

	for _, label := range []string{"baseline", "candidate"} {
		assert.FileExists(t, filepath.Join(
			root, label, "pair01", results.TypeMacroSmall.ResultFile()))
	}
}

func TestRunCreatesOnePairDirPerRepetition(t *testing.T) {
	bin := writeStub(t, `echo '{"results":[]}' > "$out"`)

	runner, root := newTestRunner(t, bin, bin, 3)

	require.NoError(t, runner.Run(context.Background()))

	for _, pair := range []string{"pair01", "pair02", "pair03"} {
		assert.FileExists(t, filepath.Join(
			root, "baseline", pair, results.TypeMacroSmall.ResultFile()))
	}
}

func TestNonZeroExitWithOutputIsTolerated(t *testing.T) {
	bin := writeStub(t, `echo '{"results":[]}' > "$out"
exit 3`)

	runner, _ := newTestRunner(t, bin, bin, 1)

	assert.NoError(t, runner.Run(context.Background()))
}

func TestNonZeroExitWithoutOutputFails(t *testing.T) {
	bin := writeStub(t, `exit 3`)

	runner, _ := newTestRunner(t, bin, bin, 1)

	err := runner.Run(context.Background())
	require.Error(t, err)

	var execErr *ExecError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, 3, execErr.ExitCode)
	assert.False(t, execErr.TimedOut)
}

func TestCleanExitWithoutOutputFails(t *testing.T) {
	bin := writeStub(t, `exit 0`)

	runner, _ := newTestRunner(t, bin, bin, 1)

	err := runner.Run(context.Background())
	require.Error(t, err)

	var execErr *ExecError
	require.True(t, errors.As(err, &execErr))
	assert.False(t, execErr.TimedOut)
}

func TestTimeoutIsClassified(t *testing.T) {
	bin := writeStub(t, `sleep 10`)

	root := filepath.Join(t.TempDir(), InterleavedDirName)
	runner := NewRunner(testLogger(), &Config{
		BaselineBin:    bin,
		CandidateBin:   bin,
		BaselineLabel:  "baseline",
		CandidateLabel: "candidate",
		RunTypes:       []results.RunType{results.TypeMacroSmall},
		Repetitions:    1,
		Root:           root,
		BuildType:      "Release",
		MacroTimeout:   300 * time.Millisecond,
	})

	err := runner.Run(context.Background())
	require.Error(t, err)

	var execErr *ExecError
	require.True(t, errors.As(err, &execErr))
	assert.True(t, execErr.TimedOut)
}

func TestMissingExecutableFailsBeforeRunning(t *testing.T) {
	runner, root := newTestRunner(t, t.TempDir(), t.TempDir(), 1)

	err := runner.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "executable not found")
	assert.NoDirExists(t, root)
}

func TestInvalidRepetitions(t *testing.T) {
	bin := writeStub(t, `echo '{"results":[]}' > "$out"`)

	runner, _ := newTestRunner(t, bin, bin, 0)

	assert.Error(t, runner.Run(context.Background()))
}

func TestRootIsResetBetweenRuns(t *testing.T) {
	bin := writeStub(t, `echo '{"results":[]}' > "$out"`)

	runner, root := newTestRunner(t, bin, bin, 1)

	require.NoError(t, runner.Run(context.Background()))

	stale := filepath.Join(root, "baseline", "pair99")
	require.NoError(t, os.MkdirAll(stale, 0755))

	require.NoError(t, runner.Run(context.Background()))

	assert.NoDirExists(t, stale)
}
