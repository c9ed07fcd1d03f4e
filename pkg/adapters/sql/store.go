// Package sql implements core.Store on a relational database through GORM.
// SQLite suits a single host; Postgres lets several hosts share state.
package sql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/saferoomai/feedback/pkg/core"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects the database.
type Config struct {
	Driver string
	DSN    string
	Logger *slog.Logger
	// Debug logs every statement through GORM's logger.
	Debug bool
}

// blobRow is one stored key.
type blobRow struct {
	Key       string `gorm:"column:blob_key;primaryKey;size:255"`
	Value     string `gorm:"column:value;type:text;not null"`
	UpdatedAt time.Time
}

func (blobRow) TableName() string { return "feedback_blobs" }

// Store implements core.Store using a single key/value table.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
	driver string
}

// Open connects to the database described by cfg.
func Open(cfg Config) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverSQLite, "":
		dialector = sqlite.Open(cfg.DSN)
		cfg.Driver = DriverSQLite
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: unknown sql driver %q", core.ErrInvalidArgument, cfg.Driver)
	}

	gormLog := gormlogger.Default.LogMode(gormlogger.Silent)
	if cfg.Debug {
		gormLog = gormlogger.Default.LogMode(gormlogger.Info)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLog,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// SQLite allows a single writer.
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}

	return New(db, cfg.Logger), nil
}

// New wraps an existing GORM handle.
func New(db *gorm.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger, driver: db.Dialector.Name()}
}

// Initialize creates the table if needed.
func (s *Store) Initialize(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&blobRow{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Load implements core.Store.
func (s *Store) Load(ctx context.Context, key string) (core.Blob, error) {
	var row blobRow
	err := s.db.WithContext(ctx).Where("blob_key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}

	var blob core.Blob
	if err := json.Unmarshal([]byte(row.Value), &blob); err != nil {
		s.logger.Warn("ignoring malformed stored blob", "key", key, "error", err)
		return nil, nil
	}
	return blob, nil
}

// Save implements core.Store as an upsert.
func (s *Store) Save(ctx context.Context, key string, blob core.Blob) error {
	if blob == nil {
		blob = core.Blob{}
	}
	raw, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", key, err)
	}

	row := blobRow{Key: key, Value: string(raw)}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "blob_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// Clear implements core.Store.
func (s *Store) Clear(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("blob_key = ?", key).Delete(&blobRow{}).Error; err != nil {
		return fmt.Errorf("failed to clear %s: %w", key, err)
	}
	return nil
}

// Keys implements core.KeyLister.
func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: bad pattern %q", core.ErrInvalidArgument, pattern)
	}

	var all []string
	if err := s.db.WithContext(ctx).Model(&blobRow{}).Pluck("blob_key", &all).Error; err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}

	keys := all[:0]
	for _, k := range all {
		if pattern != "" {
			if match, _ := doublestar.Match(pattern, k); !match {
				continue
			}
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "sql/" + s.driver
}
