package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bcsv-io/benchstand/pkg/config"
	"github.com/bcsv-io/benchstand/pkg/platform"
	"github.com/bcsv-io/benchstand/pkg/results"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	return log
}

func newTestStore(t *testing.T) Store {
	t.Helper()

	store := NewStore(testLogger(), &config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{
			Path: filepath.Join(t.TempDir(), "test.db"),
		},
	})

	require.NoError(t, store.Start(context.Background()))

	t.Cleanup(func() {
		require.NoError(t, store.Stop())
	})

	return store
}

func TestUpsertRunIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := &Run{
		Host:      "buildbox",
		Label:     "v1",
		RunID:     "20260801_090000",
		Timestamp: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
	}

	require.NoError(t, store.UpsertRun(ctx, run))

	// Same identity again with updated payload data.
	update := &Run{
		Host:        "buildbox",
		Label:       "v1",
		RunID:       "20260801_090000",
		Timestamp:   run.Timestamp,
		ResultCount: 12,
	}

	require.NoError(t, store.UpsertRun(ctx, update))

	runs, err := store.ListRuns(ctx, "buildbox", 0)
	require.NoError(t, err)

	require.Len(t, runs, 1)
	assert.Equal(t, 12, runs[0].ResultCount)
}

func TestListRunsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"20260801_090000", "20260801_100000", "20260801_110000"} {
		require.NoError(t, store.UpsertRun(ctx, &Run{
			Host:      "buildbox",
			Label:     "v1",
			RunID:     id,
			Timestamp: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	runs, err := store.ListRuns(ctx, "buildbox", 2)
	require.NoError(t, err)

	require.Len(t, runs, 2)
	assert.Equal(t, "20260801_110000", runs[0].RunID)
	assert.Equal(t, "20260801_100000", runs[1].RunID)
}

func TestListHostsAndLatestRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertRun(ctx, &Run{
		Host: "beta", Label: "v1", RunID: "20260801_090000",
		Timestamp: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, store.UpsertRun(ctx, &Run{
		Host: "alpha", Label: "v1", RunID: "20260801_100000",
		Timestamp: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, store.UpsertRun(ctx, &Run{
		Host: "alpha", Label: "v1", RunID: "20260801_110000",
		Timestamp: time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC),
	}))

	hosts, err := store.ListHosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, hosts)

	latest, err := store.LatestRun(ctx, "alpha", "v1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "20260801_110000", latest.RunID)

	missing, err := store.LatestRun(ctx, "alpha", "absent")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

// writeScanRun lays out one run directory under the results root with a
// platform document and optional result payloads.
func writeScanRun(t *testing.T, root, host, label, runID string, withResults bool) {
	t.Helper()

	runDir := filepath.Join(root, host, label, runID)
	require.NoError(t, os.MkdirAll(runDir, 0755))

	require.NoError(t, platform.WriteFile(runDir, &platform.Info{
		Hostname:    host,
		GitDescribe: "v1.0.0-3-gabc1234",
		RunTypes:    []string{"MACRO-SMALL"},
	}))

	if !withResults {
		return
	}

	payload := &results.MacroPayload{
		RunType:      string(results.TypeMacroSmall),
		TotalTimeSec: 5,
		Results: []results.ResultRecord{
			{Dataset: "d", Mode: "m", NumColumns: 1, NumRows: 10_000, Status: results.StatusOK},
		},
	}

	require.NoError(t, results.WriteMacro(runDir, results.TypeMacroSmall, payload))
}

func TestScannerIndexesRuns(t *testing.T) {
	store := newTestStore(t)
	root := t.TempDir()

	writeScanRun(t, root, "buildbox", "v1", "20260801_090000", true)
	writeScanRun(t, root, "buildbox", "v2", "20260801_100000", true)

	// No platform.json: not indexed.
	bare := filepath.Join(root, "buildbox", "v3", "20260801_110000")
	require.NoError(t, os.MkdirAll(bare, 0755))

	scanner := NewScanner(testLogger(), store, root)

	count, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	runs, err := store.ListRuns(context.Background(), "buildbox", 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "v2", runs[0].Label)
	assert.Equal(t, "v1.0.0-3-gabc1234", runs[0].GitVersion)
	assert.True(t, runs[0].HasMacroSmall)
	assert.False(t, runs[0].HasMicro)
	assert.Equal(t, 1, runs[0].ResultCount)
}

func TestScannerRescanDoesNotDuplicate(t *testing.T) {
	store := newTestStore(t)
	root := t.TempDir()

	writeScanRun(t, root, "buildbox", "v1", "20260801_090000", true)

	scanner := NewScanner(testLogger(), store, root)

	for i := 0; i < 2; i++ {
		_, err := scanner.Scan(context.Background())
		require.NoError(t, err)
	}

	runs, err := store.ListRuns(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestScannerMissingRoot(t *testing.T) {
	store := newTestStore(t)

	scanner := NewScanner(testLogger(), store, filepath.Join(t.TempDir(), "absent"))

	_, err := scanner.Scan(context.Background())
	assert.Error(t, err)
}
