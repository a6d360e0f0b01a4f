package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bcsv-io/benchstand/pkg/results"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultLogLevel, cfg.Global.LogLevel)
	assert.Equal(t, DefaultResultsRoot, cfg.Benchmark.ResultsRoot)
	assert.InDelta(t, DefaultThresholdPct, cfg.Benchmark.ThresholdPct, 1e-9)
	assert.Equal(t, DefaultRepetitions, cfg.Benchmark.Repetitions)
	assert.Equal(t, DefaultBuildType, cfg.Benchmark.BuildType)
	assert.Equal(t, []string{"MICRO", "MACRO-SMALL"}, cfg.Benchmark.RunTypes)
	assert.Nil(t, cfg.History)
	assert.Nil(t, cfg.API)
	assert.Nil(t, cfg.Upload)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
global:
  log_level: debug
benchmark:
  results_root: /data/results
  threshold_pct: 2.5
  repetitions: 7
  run_types:
    - macro-small
    - macro-large
history:
  database:
    driver: sqlite
api:
  server:
    listen: ":9090"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Global.LogLevel)
	assert.Equal(t, "/data/results", cfg.Benchmark.ResultsRoot)
	assert.InDelta(t, 2.5, cfg.Benchmark.ThresholdPct, 1e-9)
	assert.Equal(t, 7, cfg.Benchmark.Repetitions)

	require.NotNil(t, cfg.History)
	assert.Equal(t, "sqlite", cfg.History.Database.Driver)
	assert.Equal(t, "benchstand.db", cfg.History.Database.SQLite.Path)

	require.NotNil(t, cfg.API)
	assert.Equal(t, ":9090", cfg.API.Server.Listen)

	types, err := cfg.RunTypeList()
	require.NoError(t, err)
	assert.Equal(t, []results.RunType{results.TypeMacroSmall, results.TypeMacroLarge}, types)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults valid",
			mutate: func(*Config) {},
		},
		{
			name:    "negative threshold",
			mutate:  func(c *Config) { c.Benchmark.ThresholdPct = -1 },
			wantErr: "threshold_pct",
		},
		{
			name:    "zero repetitions",
			mutate:  func(c *Config) { c.Benchmark.Repetitions = 0 },
			wantErr: "repetitions",
		},
		{
			name:    "bad run type",
			mutate:  func(c *Config) { c.Benchmark.RunTypes = []string{"macro-medium"} },
			wantErr: "run_types",
		},
		{
			name: "bad history driver",
			mutate: func(c *Config) {
				c.History = &HistoryConfig{Database: DatabaseConfig{Driver: "mysql"}}
			},
			wantErr: "database driver",
		},
		{
			name: "s3 enabled without bucket",
			mutate: func(c *Config) {
				c.Upload = &UploadConfig{S3: &S3UploadConfig{Enabled: true}}
			},
			wantErr: "bucket",
		},
		{
			name: "auth enabled without users",
			mutate: func(c *Config) {
				c.API = &APIConfig{Auth: APIAuthConfig{Enabled: true}}
			},
			wantErr: "users",
		},
		{
			name: "auth user missing password",
			mutate: func(c *Config) {
				c.API = &APIConfig{Auth: APIAuthConfig{
					Enabled: true,
					Users:   []BasicAuthUser{{Username: "admin"}},
				}}
			},
			wantErr: "username and password",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)

			tt.mutate(cfg)

			err = cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestResolveHostOverride(t *testing.T) {
	cfg := &Config{}
	cfg.Benchmark.Host = "buildbox"

	host, err := cfg.ResolveHost()
	require.NoError(t, err)
	assert.Equal(t, "buildbox", host)
}

func TestPostgresDSN(t *testing.T) {
	p := &PostgresConfig{
		Host: "db", Port: 5432, User: "bench", Password: "secret", Database: "benchstand",
	}

	dsn := p.DSN()

	assert.Contains(t, dsn, "host=db")
	assert.Contains(t, dsn, "sslmode=disable")

	p.SSLMode = "require"
	assert.Contains(t, p.DSN(), "sslmode=require")
}
