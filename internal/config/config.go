// Package config provides configuration management for ChartVault.
//
// Configuration is loaded from:
// 1. config.yaml file (optional)
// 2. Environment variables (standard names like DATABASE_PATH, LOG_LEVEL)
// 3. Default values
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config is the root configuration structure.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Retention RetentionConfig `mapstructure:"retention"`
	Cleanup   CleanupConfig   `mapstructure:"cleanup"`
	Backup    BackupConfig    `mapstructure:"backup"`
	Log       LogConfig       `mapstructure:"log"`
	Security  SecurityConfig  `mapstructure:"security"`
	Worker    WorkerConfig    `mapstructure:"worker"`
}

// DatabaseConfig contains embedded database settings.
// The store is a single local SQLite file; there is no server to connect to.
type DatabaseConfig struct {
	Path        string        `mapstructure:"path"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
	AutoMigrate bool          `mapstructure:"auto_migrate"`
}

// DSN returns the SQLite connection string with pragmas applied.
func (c DatabaseConfig) DSN() string {
	timeout := c.BusyTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return fmt.Sprintf(
		"file:%s?_busy_timeout=%d&_journal_mode=WAL&_foreign_keys=on",
		c.Path, timeout.Milliseconds(),
	)
}

// RetentionConfig contains the data retention policy.
type RetentionConfig struct {
	// Years applies to audit entries, attached files and soft-deleted
	// records. Valid range is 1 to 10.
	Years int `mapstructure:"years"`
}

// CleanupConfig contains background cleanup scheduler settings.
type CleanupConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Interval is the minimum time between automatic cleanup runs.
	Interval time.Duration `mapstructure:"interval"`

	// CheckPeriod is how often the scheduler wakes to test whether a
	// cleanup run is due.
	CheckPeriod time.Duration `mapstructure:"check_period"`
}

// BackupConfig contains pre-purge backup settings.
type BackupConfig struct {
	// Dir receives the JSON backup artifacts written before ledger purges.
	Dir string `mapstructure:"dir"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// SecurityConfig contains security-related settings.
// Secrets are auto-generated on first boot if missing.
type SecurityConfig struct {
	// EncryptionPassphrase feeds PBKDF2 key derivation for field-level
	// encryption of sensitive columns.
	EncryptionPassphrase string `mapstructure:"encryption_passphrase"`

	// EncryptionSalt is the hex-encoded PBKDF2 salt.
	EncryptionSalt string `mapstructure:"encryption_salt"`

	// FieldEncryption toggles transparent encryption of patient name and
	// notes columns.
	FieldEncryption bool `mapstructure:"field_encryption"`
}

// WorkerConfig contains worker pool settings.
type WorkerConfig struct {
	GeneralPoolSize     int `mapstructure:"general_pool_size"`
	MaintenancePoolSize int `mapstructure:"maintenance_pool_size"`
}

var (
	bootstrapLoggerOnce sync.Once
	bootstrapLogger     *zap.Logger
)

// Load reads configuration from file and environment variables.
// Standard environment variables without prefix (DATABASE_PATH, LOG_LEVEL, etc.).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/chartvault")

	// Environment variable override, no prefix.
	// Maps nested config: database.busy_timeout → DATABASE_BUSY_TIMEOUT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file is optional, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Auto-generate secrets on first boot if missing.
	if err := cfg.ensureSecrets(); err != nil {
		return nil, fmt.Errorf("ensure secrets: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration with every default applied and no file or
// environment input. Secrets are left empty.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "data/chartvault.db",
			BusyTimeout: 5 * time.Second,
			AutoMigrate: true,
		},
		Retention: RetentionConfig{Years: 7},
		Cleanup: CleanupConfig{
			Enabled:     true,
			Interval:    24 * time.Hour,
			CheckPeriod: time.Hour,
		},
		Backup:   BackupConfig{Dir: "audit_backups"},
		Log:      LogConfig{Level: "info", Format: "json"},
		Security: SecurityConfig{FieldEncryption: true},
		Worker: WorkerConfig{
			GeneralPoolSize:     50,
			MaintenancePoolSize: 4,
		},
	}
}

// Validate checks for critical configuration errors.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Retention.Years < 1 || c.Retention.Years > 10 {
		return fmt.Errorf("retention.years must be between 1 and 10, got %d", c.Retention.Years)
	}
	if c.Security.FieldEncryption && len(c.Security.EncryptionPassphrase) < 32 {
		return fmt.Errorf("security.encryption_passphrase must be at least 32 characters")
	}
	return nil
}

// ensureSecrets auto-generates missing secrets.
func (c *Config) ensureSecrets() error {
	if c.Security.EncryptionPassphrase == "" {
		passphrase, err := generateSecureRandomHex(32)
		if err != nil {
			return fmt.Errorf("auto-generate encryption passphrase: %w", err)
		}
		c.Security.EncryptionPassphrase = passphrase
		logBootstrapWarn(
			"auto-generated encryption_passphrase; set SECURITY_ENCRYPTION_PASSPHRASE env var for persistence",
			zap.Int("length", len(passphrase)),
		)
	}
	if c.Security.EncryptionSalt == "" {
		salt, err := generateSecureRandomHex(16)
		if err != nil {
			return fmt.Errorf("auto-generate encryption salt: %w", err)
		}
		c.Security.EncryptionSalt = salt
		logBootstrapWarn(
			"auto-generated encryption_salt; set SECURITY_ENCRYPTION_SALT env var for persistence",
			zap.Int("length", len(salt)),
		)
	}
	return nil
}

func logBootstrapWarn(msg string, fields ...zap.Field) {
	bootstrapLoggerOnce.Do(func() {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)

		l, err := cfg.Build()
		if err != nil {
			bootstrapLogger = zap.NewNop()
			return
		}
		bootstrapLogger = l
	})

	bootstrapLogger.Warn(msg, fields...)
}

// generateSecureRandomHex produces a hex-encoded string of n random bytes.
func generateSecureRandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("crypto/rand: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func setDefaults(v *viper.Viper) {
	// Database
	v.SetDefault("database.path", "data/chartvault.db")
	v.SetDefault("database.busy_timeout", "5s")
	v.SetDefault("database.auto_migrate", true)

	// Retention
	v.SetDefault("retention.years", 7)

	// Cleanup scheduler
	v.SetDefault("cleanup.enabled", true)
	v.SetDefault("cleanup.interval", "24h")
	v.SetDefault("cleanup.check_period", "1h")

	// Backup
	v.SetDefault("backup.dir", "audit_backups")

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Security
	v.SetDefault("security.field_encryption", true)

	// Worker pools
	v.SetDefault("worker.general_pool_size", 50)
	v.SetDefault("worker.maintenance_pool_size", 4)
}
