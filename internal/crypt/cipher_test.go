package crypt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "chartvault.io/vault/internal/pkg/errors"
)

const (
	testPassphrase = "0123456789abcdef0123456789abcdef" // 32 chars
	testSalt       = "a1b2c3d4e5f60718a1b2c3d4e5f60718"
)

func TestNewFieldCipher_Validation(t *testing.T) {
	tests := []struct {
		name       string
		passphrase string
		salt       string
		wantErr    bool
	}{
		{"valid", testPassphrase, testSalt, false},
		{"short passphrase", "too-short", testSalt, true},
		{"non-hex salt", testPassphrase, "not hex!", true},
		{"short salt", testPassphrase, "a1b2", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFieldCipher(tt.passphrase, tt.salt)
			if tt.wantErr {
				require.Error(t, err)
				appErr, ok := apperrors.IsAppError(err)
				require.True(t, ok)
				require.Equal(t, apperrors.CodeCipherKeyInvalid, appErr.Code)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestFieldCipher_RoundTrip(t *testing.T) {
	c, err := NewFieldCipher(testPassphrase, testSalt)
	require.NoError(t, err)

	plain := "Jane Doe"
	enc, err := c.EncryptString(plain)
	require.NoError(t, err)
	require.NotEqual(t, plain, enc)

	dec, err := c.DecryptString(enc)
	require.NoError(t, err)
	require.Equal(t, plain, dec)
}

func TestFieldCipher_EmptyPassthrough(t *testing.T) {
	c, err := NewFieldCipher(testPassphrase, testSalt)
	require.NoError(t, err)

	enc, err := c.EncryptString("")
	require.NoError(t, err)
	require.Empty(t, enc)

	dec, err := c.DecryptString("")
	require.NoError(t, err)
	require.Empty(t, dec)
}

func TestFieldCipher_NondeterministicCiphertext(t *testing.T) {
	c, err := NewFieldCipher(testPassphrase, testSalt)
	require.NoError(t, err)

	first, err := c.EncryptString("same input")
	require.NoError(t, err)
	second, err := c.EncryptString("same input")
	require.NoError(t, err)

	// Fresh nonce per call means identical plaintexts never collide.
	require.NotEqual(t, first, second)
}

func TestFieldCipher_TamperDetection(t *testing.T) {
	c, err := NewFieldCipher(testPassphrase, testSalt)
	require.NoError(t, err)

	enc, err := c.EncryptString("sensitive notes")
	require.NoError(t, err)

	_, err = c.DecryptString("AAAA" + enc[4:])
	require.Error(t, err)

	_, err = c.DecryptString("not base64 at all!!!")
	require.Error(t, err)
}

func TestFieldCipher_WrongKeyFails(t *testing.T) {
	c1, err := NewFieldCipher(testPassphrase, testSalt)
	require.NoError(t, err)
	c2, err := NewFieldCipher("fedcba9876543210fedcba9876543210", testSalt)
	require.NoError(t, err)

	enc, err := c1.EncryptString("clinic data")
	require.NoError(t, err)

	_, err = c2.DecryptString(enc)
	require.Error(t, err)
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recording.wav")
	require.NoError(t, os.WriteFile(path, []byte("audio bytes"), 0o600))

	got, err := HashFile(path)
	require.NoError(t, err)
	require.Len(t, got, 64)
	require.Equal(t, HashBytes([]byte("audio bytes")), got)

	_, err = HashFile(filepath.Join(dir, "missing.wav"))
	require.Error(t, err)
}
