// Package history maintains a queryable index of benchmark runs backed
// by SQLite or PostgreSQL.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bcsv-io/benchstand/pkg/config"
	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Run is an indexed benchmark run.
type Run struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	Host      string    `gorm:"uniqueIndex:idx_host_label_run;size:255" json:"host"`
	Label     string    `gorm:"uniqueIndex:idx_host_label_run;size:255" json:"label"`
	RunID     string    `gorm:"uniqueIndex:idx_host_label_run;size:255" json:"run_id"`
	Timestamp time.Time `gorm:"index" json:"timestamp"`

	GitVersion    string  `json:"git_version,omitempty"`
	RunTypes      string  `json:"run_types,omitempty"`
	TotalTimeSec  float64 `json:"total_time_sec,omitempty"`
	HasMacroSmall bool    `json:"has_macro_small"`
	HasMacroLarge bool    `json:"has_macro_large"`
	HasMicro      bool    `json:"has_micro"`
	ResultCount   int     `json:"result_count"`

	IndexedAt time.Time `json:"indexed_at"`
}

// Store indexes benchmark runs.
type Store interface {
	// Start opens the database and runs migrations.
	Start(ctx context.Context) error
	// Stop closes the database.
	Stop() error
	// UpsertRun inserts or updates a run record.
	UpsertRun(ctx context.Context, run *Run) error
	// ListRuns returns runs for a host, newest first. An empty host
	// returns runs for all hosts.
	ListRuns(ctx context.Context, host string, limit int) ([]Run, error)
	// ListHosts returns the distinct hosts with indexed runs.
	ListHosts(ctx context.Context) ([]string, error)
	// LatestRun returns the newest run for a host and label.
	LatestRun(ctx context.Context, host, label string) (*Run, error)
}

type store struct {
	log logrus.FieldLogger
	cfg *config.DatabaseConfig
	db  *gorm.DB
}

var _ Store = (*store)(nil)

// NewStore creates a new run index store.
func NewStore(log logrus.FieldLogger, cfg *config.DatabaseConfig) Store {
	return &store{
		log: log.WithField("component", "history"),
		cfg: cfg,
	}
}

func (s *store) Start(ctx context.Context) error {
	var dialector gorm.Dialector

	switch s.cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(s.cfg.SQLite.Path)
	case "postgres":
		dialector = postgres.Open(s.cfg.Postgres.DSN())
	default:
		return fmt.Errorf("unsupported database driver %q", s.cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&Run{}); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	s.db = db

	s.log.WithField("driver", s.cfg.Driver).Info("Run index ready")

	return nil
}

func (s *store) Stop() error {
	if s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting database handle: %w", err)
	}

	return sqlDB.Close()
}

func (s *store) UpsertRun(ctx context.Context, run *Run) error {
	run.IndexedAt = time.Now().UTC()

	var existing Run

	err := s.db.WithContext(ctx).
		Where("host = ? AND label = ? AND run_id = ?", run.Host, run.Label, run.RunID).
		First(&existing).Error

	switch {
	case err == nil:
		run.ID = existing.ID

		if err := s.db.WithContext(ctx).Save(run).Error; err != nil {
			return fmt.Errorf("updating run: %w", err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
			return fmt.Errorf("inserting run: %w", err)
		}
	default:
		return fmt.Errorf("querying run: %w", err)
	}

	return nil
}

func (s *store) ListRuns(ctx context.Context, host string, limit int) ([]Run, error) {
	query := s.db.WithContext(ctx).Order("timestamp DESC")

	if host != "" {
		query = query.Where("host = ?", host)
	}

	if limit > 0 {
		query = query.Limit(limit)
	}

	var runs []Run
	if err := query.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	return runs, nil
}

func (s *store) ListHosts(ctx context.Context) ([]string, error) {
	var hosts []string

	err := s.db.WithContext(ctx).
		Model(&Run{}).
		Distinct("host").
		Order("host").
		Pluck("host", &hosts).Error
	if err != nil {
		return nil, fmt.Errorf("listing hosts: %w", err)
	}

	return hosts, nil
}

func (s *store) LatestRun(ctx context.Context, host, label string) (*Run, error) {
	var run Run

	err := s.db.WithContext(ctx).
		Where("host = ? AND label = ?", host, label).
		Order("timestamp DESC").
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("querying latest run: %w", err)
	}

	return &run, nil
}
