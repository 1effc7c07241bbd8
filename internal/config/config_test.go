package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Ensure no env vars interfere
	os.Unsetenv("DATABASE_PATH")
	os.Unsetenv("RETENTION_YEARS")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Database defaults
	if cfg.Database.Path != "data/chartvault.db" {
		t.Errorf("Database.Path = %q, want data/chartvault.db", cfg.Database.Path)
	}
	if cfg.Database.BusyTimeout != 5*time.Second {
		t.Errorf("Database.BusyTimeout = %v, want 5s", cfg.Database.BusyTimeout)
	}
	if !cfg.Database.AutoMigrate {
		t.Errorf("Database.AutoMigrate = false, want true")
	}

	// Retention defaults
	if cfg.Retention.Years != 7 {
		t.Errorf("Retention.Years = %d, want 7", cfg.Retention.Years)
	}

	// Cleanup defaults
	if !cfg.Cleanup.Enabled {
		t.Errorf("Cleanup.Enabled = false, want true")
	}
	if cfg.Cleanup.Interval != 24*time.Hour {
		t.Errorf("Cleanup.Interval = %v, want 24h", cfg.Cleanup.Interval)
	}
	if cfg.Cleanup.CheckPeriod != time.Hour {
		t.Errorf("Cleanup.CheckPeriod = %v, want 1h", cfg.Cleanup.CheckPeriod)
	}

	// Backup defaults
	if cfg.Backup.Dir != "audit_backups" {
		t.Errorf("Backup.Dir = %q, want audit_backups", cfg.Backup.Dir)
	}

	// Log defaults
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
	}

	// Worker pool defaults
	if cfg.Worker.GeneralPoolSize != 50 {
		t.Errorf("Worker.GeneralPoolSize = %d, want 50", cfg.Worker.GeneralPoolSize)
	}
	if cfg.Worker.MaintenancePoolSize != 4 {
		t.Errorf("Worker.MaintenancePoolSize = %d, want 4", cfg.Worker.MaintenancePoolSize)
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "explicit busy timeout",
			cfg: DatabaseConfig{
				Path:        "data/clinic.db",
				BusyTimeout: 10 * time.Second,
			},
			want: "file:data/clinic.db?_busy_timeout=10000&_journal_mode=WAL&_foreign_keys=on",
		},
		{
			name: "default busy timeout when unset",
			cfg: DatabaseConfig{
				Path: "clinic.db",
			},
			want: "file:clinic.db?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cfg.DSN()
			if got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoad_DatabasePathFromEnv(t *testing.T) {
	t.Setenv("DATABASE_PATH", "/tmp/override.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/tmp/override.db" {
		t.Fatalf("Database.Path = %q, want /tmp/override.db", cfg.Database.Path)
	}
}

func TestLoad_RetentionFromEnv(t *testing.T) {
	t.Setenv("RETENTION_YEARS", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Retention.Years != 3 {
		t.Fatalf("Retention.Years = %d, want 3", cfg.Retention.Years)
	}
}

func TestValidate_RetentionRange(t *testing.T) {
	tests := []struct {
		name    string
		years   int
		wantErr bool
	}{
		{"below range", 0, true},
		{"lower bound", 1, false},
		{"upper bound", 10, false},
		{"above range", 11, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Database:  DatabaseConfig{Path: "x.db"},
				Retention: RetentionConfig{Years: tt.years},
			}
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnsureSecrets_GeneratesPassphrase(t *testing.T) {
	cfg := &Config{}
	if err := cfg.ensureSecrets(); err != nil {
		t.Fatalf("ensureSecrets() error = %v", err)
	}

	if len(cfg.Security.EncryptionPassphrase) != 64 {
		t.Errorf("EncryptionPassphrase length = %d, want 64 hex chars", len(cfg.Security.EncryptionPassphrase))
	}
	if len(cfg.Security.EncryptionSalt) != 32 {
		t.Errorf("EncryptionSalt length = %d, want 32 hex chars", len(cfg.Security.EncryptionSalt))
	}

	// Second call must not overwrite
	passphrase := cfg.Security.EncryptionPassphrase
	if err := cfg.ensureSecrets(); err != nil {
		t.Fatalf("ensureSecrets() second call error = %v", err)
	}
	if cfg.Security.EncryptionPassphrase != passphrase {
		t.Error("ensureSecrets() overwrote an existing passphrase")
	}
}
