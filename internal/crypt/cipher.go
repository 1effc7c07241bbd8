// Package crypt provides field-level encryption for sensitive columns and
// content fingerprinting for attached files.
//
// Patient-identifying columns are encrypted individually so the database file
// never holds them in clear text, while non-sensitive columns stay queryable.
package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	apperrors "chartvault.io/vault/internal/pkg/errors"
)

const (
	keyLen     = 32 // AES-256
	iterations = 100_000
)

// FieldCipher encrypts and decrypts individual string fields with AES-256-GCM.
// The key is derived once at construction; the cipher is safe for concurrent use.
type FieldCipher struct {
	aead cipher.AEAD
}

// NewFieldCipher derives a 256-bit key from the passphrase and hex-encoded
// salt via PBKDF2-SHA256 and prepares the AEAD.
func NewFieldCipher(passphrase, saltHex string) (*FieldCipher, error) {
	if len(passphrase) < 32 {
		return nil, apperrors.Validation(apperrors.CodeCipherKeyInvalid,
			"encryption passphrase must be at least 32 characters")
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCipherKeyInvalid,
			"encryption salt must be hex encoded", apperrors.KindValidation)
	}
	if len(salt) < 8 {
		return nil, apperrors.Validation(apperrors.CodeCipherKeyInvalid,
			"encryption salt must be at least 8 bytes")
	}

	key := pbkdf2.Key([]byte(passphrase), salt, iterations, keyLen, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCipherKeyInvalid,
			"initialize cipher", apperrors.KindInternal)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCipherKeyInvalid,
			"initialize GCM", apperrors.KindInternal)
	}

	return &FieldCipher{aead: aead}, nil
}

// EncryptString seals plain and returns base64(nonce || ciphertext).
// Empty input passes through unchanged so optional columns stay empty.
func (c *FieldCipher) EncryptString(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plain), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptString reverses EncryptString. Tampered or truncated input fails
// authentication and returns a DECRYPT_FAILED error.
func (c *FieldCipher) DecryptString(enc string) (string, error) {
	if enc == "" {
		return "", nil
	}

	raw, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeDecryptFail,
			"decode encrypted field", apperrors.KindInternal)
	}

	nonceSize := c.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", apperrors.Internal(apperrors.CodeDecryptFail,
			"encrypted field shorter than nonce")
	}

	plain, err := c.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeDecryptFail,
			"authenticate encrypted field", apperrors.KindInternal)
	}
	return string(plain), nil
}
