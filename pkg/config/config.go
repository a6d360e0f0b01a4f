package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/bcsv-io/benchstand/pkg/results"
	"github.com/spf13/viper"
)

const (
	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultResultsRoot is the default root for benchmark results.
	DefaultResultsRoot = "./results"

	// DefaultThresholdPct is the default regression threshold.
	DefaultThresholdPct = 5.0

	// DefaultRepetitions is the default interleaved pair count.
	DefaultRepetitions = 5

	// DefaultBuildType is the build type passed to macro binaries.
	DefaultBuildType = "Release"
)

// Config is the root configuration for benchstand.
type Config struct {
	Global    GlobalConfig    `yaml:"global" mapstructure:"global"`
	Benchmark BenchmarkConfig `yaml:"benchmark" mapstructure:"benchmark"`
	History   *HistoryConfig  `yaml:"history,omitempty" mapstructure:"history"`
	Upload    *UploadConfig   `yaml:"upload,omitempty" mapstructure:"upload"`
	API       *APIConfig      `yaml:"api,omitempty" mapstructure:"api"`
}

// GlobalConfig contains global application settings.
type GlobalConfig struct {
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
}

// BenchmarkConfig contains benchmark and comparison settings.
type BenchmarkConfig struct {
	// ResultsRoot holds <host>/<label>/<timestamp> run directories.
	ResultsRoot string `yaml:"results_root" mapstructure:"results_root"`

	// Host overrides the hostname used for run directory resolution.
	// Empty means the current host.
	Host string `yaml:"host,omitempty" mapstructure:"host"`

	ThresholdPct float64  `yaml:"threshold_pct,omitempty" mapstructure:"threshold_pct"`
	Repetitions  int      `yaml:"repetitions,omitempty" mapstructure:"repetitions"`
	RunTypes     []string `yaml:"run_types,omitempty" mapstructure:"run_types"`
	BuildType    string   `yaml:"build_type,omitempty" mapstructure:"build_type"`
}

// HistoryConfig configures the run history index database.
type HistoryConfig struct {
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver" mapstructure:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite,omitempty" mapstructure:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres,omitempty" mapstructure:"postgres"`
}

// SQLiteConfig contains SQLite-specific settings.
type SQLiteConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
	SSLMode  string `yaml:"ssl_mode,omitempty" mapstructure:"ssl_mode"`
}

// DSN returns the PostgreSQL connection string.
func (p *PostgresConfig) DSN() string {
	sslMode := p.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, sslMode,
	)
}

// UploadConfig contains results upload settings.
type UploadConfig struct {
	S3 *S3UploadConfig `yaml:"s3,omitempty" mapstructure:"s3"`
}

// S3UploadConfig contains S3-compatible storage settings.
type S3UploadConfig struct {
	Enabled         bool   `yaml:"enabled" mapstructure:"enabled"`
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	Prefix          string `yaml:"prefix,omitempty" mapstructure:"prefix"`
	Region          string `yaml:"region,omitempty" mapstructure:"region"`
	EndpointURL     string `yaml:"endpoint_url,omitempty" mapstructure:"endpoint_url"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `yaml:"force_path_style" mapstructure:"force_path_style"`
}

// APIConfig contains the results API server configuration.
type APIConfig struct {
	Server APIServerConfig `yaml:"server" mapstructure:"server"`
	Auth   APIAuthConfig   `yaml:"auth,omitempty" mapstructure:"auth"`
}

// APIServerConfig contains HTTP server settings.
type APIServerConfig struct {
	Listen      string          `yaml:"listen" mapstructure:"listen"`
	CORSOrigins []string        `yaml:"cors_origins,omitempty" mapstructure:"cors_origins"`
	RateLimit   RateLimitConfig `yaml:"rate_limit,omitempty" mapstructure:"rate_limit"`
}

// RateLimitConfig configures per-IP rate limiting.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute,omitempty" mapstructure:"requests_per_minute"`
}

// APIAuthConfig configures basic authentication for the API.
type APIAuthConfig struct {
	Enabled bool            `yaml:"enabled" mapstructure:"enabled"`
	Users   []BasicAuthUser `yaml:"users,omitempty" mapstructure:"users"`
}

// BasicAuthUser defines a basic auth user. Password is a bcrypt hash.
type BasicAuthUser struct {
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
}

// Load reads the configuration file (when path is non-empty) and applies
// environment overrides with the BENCHSTAND_ prefix.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BENCHSTAND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults sets default values for unspecified options.
func (c *Config) applyDefaults() {
	if c.Global.LogLevel == "" {
		c.Global.LogLevel = DefaultLogLevel
	}

	if c.Benchmark.ResultsRoot == "" {
		c.Benchmark.ResultsRoot = DefaultResultsRoot
	}

	if c.Benchmark.ThresholdPct == 0 {
		c.Benchmark.ThresholdPct = DefaultThresholdPct
	}

	if c.Benchmark.Repetitions == 0 {
		c.Benchmark.Repetitions = DefaultRepetitions
	}

	if len(c.Benchmark.RunTypes) == 0 {
		c.Benchmark.RunTypes = []string{
			string(results.TypeMicro),
			string(results.TypeMacroSmall),
		}
	}

	if c.Benchmark.BuildType == "" {
		c.Benchmark.BuildType = DefaultBuildType
	}

	if c.API != nil {
		if c.API.Server.Listen == "" {
			c.API.Server.Listen = ":8080"
		}

		if c.API.Server.RateLimit.Enabled && c.API.Server.RateLimit.RequestsPerMinute == 0 {
			c.API.Server.RateLimit.RequestsPerMinute = 120
		}
	}

	if c.History != nil {
		if c.History.Database.Driver == "" {
			c.History.Database.Driver = "sqlite"
		}

		if c.History.Database.Driver == "sqlite" && c.History.Database.SQLite.Path == "" {
			c.History.Database.SQLite.Path = "benchstand.db"
		}
	}
}

// RunTypeList parses the configured run types.
func (c *Config) RunTypeList() ([]results.RunType, error) {
	return results.ParseTypes(strings.Join(c.Benchmark.RunTypes, ","))
}

// ResolveHost returns the configured host override or the current
// hostname.
func (c *Config) ResolveHost() (string, error) {
	if c.Benchmark.Host != "" {
		return c.Benchmark.Host, nil
	}

	host, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("resolving hostname: %w", err)
	}

	return host, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Benchmark.ThresholdPct < 0 {
		return fmt.Errorf("threshold_pct must not be negative")
	}

	if c.Benchmark.Repetitions < 1 {
		return fmt.Errorf("repetitions must be >= 1")
	}

	if _, err := c.RunTypeList(); err != nil {
		return fmt.Errorf("run_types: %w", err)
	}

	if c.History != nil {
		switch c.History.Database.Driver {
		case "sqlite", "postgres":
		default:
			return fmt.Errorf("unsupported history database driver %q", c.History.Database.Driver)
		}
	}

	if c.Upload != nil && c.Upload.S3 != nil && c.Upload.S3.Enabled {
		if c.Upload.S3.Bucket == "" {
			return fmt.Errorf("upload.s3.bucket is required when S3 upload is enabled")
		}
	}

	if c.API != nil && c.API.Auth.Enabled {
		if len(c.API.Auth.Users) == 0 {
			return fmt.Errorf("api.auth.users must not be empty when auth is enabled")
		}

		for i, user := range c.API.Auth.Users {
			if user.Username == "" || user.Password == "" {
				return fmt.Errorf("api.auth.users[%d]: username and password are required", i)
			}
		}
	}

	return nil
}
