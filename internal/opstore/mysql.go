// Package opstore is the typed gateway to the operational store: the
// relational database of record for classes and users (spec.md §3). It is
// mutated by upstream services and read by the Class Monitor, which only
// ever writes the ai_triggered and updated_at columns.
package opstore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yungbote/lesson-pipeline/internal/logger"
)

// Store bundles the operational database handle.
type Store struct {
	db  *gorm.DB
	log *logger.Logger
}

// Open connects to the operational MySQL instance at dsn.
func Open(dsn string, log *logger.Logger) (*Store, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect operational store: %w", err)
	}
	return &Store{db: db, log: log.With("store", "operational")}, nil
}

// AutoMigrate creates/updates the tables this module owns. The classes and
// users tables themselves are owned by an upstream service in production;
// AutoMigrate is for local/dev and test bootstrapping only.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(&Class{}, &User{})
}

// DB returns the underlying gorm handle, for use by repo constructors.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Ping verifies connectivity for the /ready probe.
func (s *Store) Ping() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}
