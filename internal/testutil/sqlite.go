// Package testutil provides shared test database helpers.
package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"chartvault.io/vault/internal/domain"
)

// OpenSQLite opens an isolated in-memory SQLite database with the full
// schema migrated. Each call gets its own named shared-cache database so
// parallel tests never see each other's rows.
func OpenSQLite(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on",
		uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("access connection handle: %v", err)
	}
	// A single connection keeps the in-memory database alive for the test.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(
		&domain.AuditRecord{},
		&domain.Appointment{},
		&domain.AppointmentVersion{},
		&domain.AttachedFile{},
		&domain.FileVersion{},
		&domain.ProcessingStatus{},
	); err != nil {
		t.Fatalf("migrate test schema: %v", err)
	}

	return db
}
