// Package infrastructure provides database setup for the embedded store.
//
// The store is a single local SQLite file opened through GORM. WAL mode and
// foreign-key enforcement are set via DSN pragmas; a single *sql.DB underlies
// the GORM handle, so connection limits are tuned for a desktop process, not
// a server.
package infrastructure

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"chartvault.io/vault/internal/config"
	"chartvault.io/vault/internal/domain"
	"chartvault.io/vault/internal/pkg/logger"
)

// Database wraps the GORM handle for the embedded store.
type Database struct {
	// DB is the shared GORM handle. All stores and the ledger run on it.
	DB *gorm.DB
}

// NewDatabase opens (creating if necessary) the SQLite store at cfg.Path.
func NewDatabase(cfg config.DatabaseConfig) (*Database, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("access connection handle: %w", err)
	}

	// SQLite allows one writer; extra connections only serve readers.
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetMaxIdleConns(4)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("Database opened",
		zap.String("path", cfg.Path),
		zap.Duration("busy_timeout", cfg.BusyTimeout),
	)

	return &Database{DB: db}, nil
}

// AutoMigrate creates or updates the schema for all persisted models.
func (d *Database) AutoMigrate() error {
	logger.Info("Running schema migration...")
	if err := d.DB.AutoMigrate(
		&domain.AuditRecord{},
		&domain.Appointment{},
		&domain.AppointmentVersion{},
		&domain.AttachedFile{},
		&domain.FileVersion{},
		&domain.ProcessingStatus{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	logger.Info("Schema migration completed")
	return nil
}

// Close closes the underlying connection handle.
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("access connection handle: %w", err)
	}
	return sqlDB.Close()
}
