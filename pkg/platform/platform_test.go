package platform

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollect(t *testing.T) {
	info := Collect(context.Background())

	require.NotNil(t, info)
	assert.NotEmpty(t, info.Architecture)
	assert.NotEmpty(t, info.GoVersion)
	assert.False(t, info.Timestamp.IsZero())
}

func TestWriteReadRoundtrip(t *testing.T) {
	dir := t.TempDir()

	in := &Info{
		Hostname:     "buildbox",
		OS:           "linux",
		Architecture: "amd64",
		CPUModel:     "Test CPU",
		CPUCount:     8,
		GoVersion:    "go1.24.2",
		Timestamp:    time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
		BuildType:    "Release",
		GitLabel:     "main",
		GitDescribe:  "v1.2.0-5-gdeadbee",
		RunTypes:     []string{"MICRO", "MACRO-SMALL"},
		Repetitions:  5,
	}

	require.NoError(t, WriteFile(dir, in))

	out, err := ReadFile(dir)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(t.TempDir())
	assert.Error(t, err)
}

func TestBestGitVersion(t *testing.T) {
	tests := []struct {
		name     string
		info     Info
		expected string
	}{
		{"describe wins", Info{GitLabel: "main", GitDescribe: "v1.0.0-2-gabc1234"}, "v1.0.0-2-gabc1234"},
		{"label fallback", Info{GitLabel: "main"}, "main"},
		{"empty", Info{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.info.BestGitVersion())
		})
	}
}

func TestGitVersion(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteFile(dir, &Info{GitLabel: "feature-x"}))

	assert.Equal(t, "feature-x", GitVersion(dir))
	assert.Equal(t, "", GitVersion(filepath.Join(dir, "absent")))
}

func TestWriteManifest(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, WriteManifest(dir, map[string]any{
		"baseline_bin":  "/opt/bcsv/baseline",
		"candidate_bin": "/opt/bcsv/candidate",
		"repetitions":   5,
	}))

	raw, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	require.NoError(t, err)

	var m Manifest
	require.NoError(t, json.Unmarshal(raw, &m))

	assert.False(t, m.Timestamp.IsZero())
	assert.Equal(t, "/opt/bcsv/baseline", m.Args["baseline_bin"])
	assert.EqualValues(t, 5, m.Args["repetitions"])
}
