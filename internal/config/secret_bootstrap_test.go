package config

import (
	"testing"
)

func TestEnsureSecrets_PreservesProvidedValues(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Security: SecurityConfig{
			EncryptionPassphrase: "abcdefghijklmnopqrstuvwxyzABCDEF123456", // 38 chars
			EncryptionSalt:       "keep-existing-salt",
		},
	}

	if err := cfg.ensureSecrets(); err != nil {
		t.Fatalf("ensureSecrets() error = %v", err)
	}

	if got := cfg.Security.EncryptionPassphrase; got != "abcdefghijklmnopqrstuvwxyzABCDEF123456" {
		t.Fatalf("encryption passphrase changed unexpectedly: %q", got)
	}
	if got := cfg.Security.EncryptionSalt; got != "keep-existing-salt" {
		t.Fatalf("encryption salt changed unexpectedly: %q", got)
	}
}

func TestConfigValidate_RejectsShortPassphrase(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Database:  DatabaseConfig{Path: "x.db"},
		Retention: RetentionConfig{Years: 7},
		Security: SecurityConfig{
			EncryptionPassphrase: "short-passphrase",
			FieldEncryption:      true,
		},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() expected error for short encryption passphrase, got nil")
	}
}

func TestConfigValidate_AllowsShortPassphraseWhenEncryptionOff(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Database:  DatabaseConfig{Path: "x.db"},
		Retention: RetentionConfig{Years: 7},
		Security: SecurityConfig{
			EncryptionPassphrase: "short",
			FieldEncryption:      false,
		},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}
}
