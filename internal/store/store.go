// Package store implements the versioned clinical record store.
//
// Every operation takes an explicit actor id and emits an audit entry through
// the ledger: reads included, since access to clinical data is itself
// compliance-relevant. Updates snapshot the pre-update state into a version
// table inside the same transaction, soft deletes keep the row, and hard
// deletes cascade to files, processing status, and versions while the ledger
// keeps the pre-delete snapshot.
package store

import (
	"gorm.io/gorm"

	"chartvault.io/vault/internal/crypt"
	"chartvault.io/vault/internal/ledger"
)

// Store is the audited, versioned record store.
type Store struct {
	db     *gorm.DB
	ledger *ledger.Ledger

	// cipher encrypts patient-identifying columns at rest. nil disables
	// field encryption.
	cipher *crypt.FieldCipher
}

// Option configures a Store.
type Option func(*Store)

// WithCipher enables field-level encryption of patient name and notes.
func WithCipher(c *crypt.FieldCipher) Option {
	return func(s *Store) { s.cipher = c }
}

// New creates a Store on the shared database handle and ledger.
func New(db *gorm.DB, l *ledger.Ledger, opts ...Option) *Store {
	s := &Store{db: db, ledger: l}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) encrypt(plain string) (string, error) {
	if s.cipher == nil {
		return plain, nil
	}
	return s.cipher.EncryptString(plain)
}

func (s *Store) decrypt(enc string) (string, error) {
	if s.cipher == nil {
		return enc, nil
	}
	return s.cipher.DecryptString(enc)
}
