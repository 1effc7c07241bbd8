// Package ledger implements the hash-chained audit trail.
//
// Every entry carries a SHA-256 digest of its own canonical serialization and
// the digest of the entry before it, so ordering and content are both
// tamper-evident. Entries are write-once: nothing in this package updates or
// rewrites a persisted row, and deletion happens only through retention
// purges that back the rows up first.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"chartvault.io/vault/internal/domain"
	apperrors "chartvault.io/vault/internal/pkg/errors"
	"chartvault.io/vault/internal/pkg/logger"
)

// SystemActor is the actor id used for ledger entries the system writes
// about itself (policy changes, purge markers).
const SystemActor = "system"

// Ledger is the append-only audit trail over a shared database handle.
//
// One Ledger instance serves the whole process; construct it at startup and
// inject it into every component that logs. It is safe for concurrent use.
type Ledger struct {
	db *gorm.DB

	// mu serializes read-last-hash + insert. Two concurrent appenders
	// reading the same tail would fork the chain.
	mu sync.Mutex

	retentionMu    sync.RWMutex
	retentionYears int

	backupDir string
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithRetentionYears sets the initial retention period.
func WithRetentionYears(years int) Option {
	return func(l *Ledger) { l.retentionYears = years }
}

// WithBackupDir sets the directory receiving pre-purge backup artifacts.
func WithBackupDir(dir string) Option {
	return func(l *Ledger) { l.backupDir = dir }
}

// New creates a Ledger on the given database handle.
func New(db *gorm.DB, opts ...Option) *Ledger {
	l := &Ledger{
		db:             db,
		retentionYears: 7,
		backupDir:      "audit_backups",
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Event is the caller-supplied content of one audit entry. Actor and Kind
// are required; everything else is optional request context.
type Event struct {
	Actor     string
	SessionID string
	Kind      domain.EventType

	EntityTable string
	RecordID    string

	// Details is serialized to JSON and stored as operation_details.
	Details map[string]interface{}

	IPAddress string
	UserAgent string

	FileOperation bool
	FilePath      string
	FileHash      string
}

// Append validates the event, links it to the current chain tail, and
// persists it. Returns the storage-assigned sequence id.
//
// The read-last-hash + insert sequence runs under the ledger mutex inside a
// single transaction; storage failures propagate to the caller unmodified.
func (l *Ledger) Append(ctx context.Context, ev Event) (int64, error) {
	if ev.Actor == "" {
		return 0, apperrors.ErrActorRequired()
	}
	if !ev.Kind.IsValid() {
		return 0, apperrors.ErrEventKindUnknown(string(ev.Kind))
	}

	var details string
	if len(ev.Details) > 0 {
		raw, err := json.Marshal(ev.Details)
		if err != nil {
			return 0, apperrors.Wrap(err, apperrors.CodeLedgerAppendFail,
				"serialize operation details", apperrors.KindInternal)
		}
		details = string(raw)
	}

	record := domain.AuditRecord{
		EventTimestamp:   time.Now().UTC(),
		UserID:           ev.Actor,
		SessionID:        ev.SessionID,
		EventType:        ev.Kind,
		EntityTable:      ev.EntityTable,
		RecordID:         ev.RecordID,
		OperationDetails: details,
		IPAddress:        ev.IPAddress,
		UserAgent:        ev.UserAgent,
		FileOperation:    ev.FileOperation,
		FilePath:         ev.FilePath,
		FileHash:         ev.FileHash,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tail domain.AuditRecord
		res := tx.Order("audit_id DESC").Limit(1).Find(&tail)
		if res.Error != nil {
			return fmt.Errorf("read chain tail: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			prev := tail.AuditHash
			record.PreviousHash = &prev
		}

		record.AuditHash = EntryHash(&record)

		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("insert audit record: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, apperrors.Storage(err, apperrors.CodeLedgerAppendFail,
			"append audit record")
	}

	logger.Debug("Audit event appended",
		zap.Int64("sequence_id", record.SequenceID),
		zap.String("event_type", string(ev.Kind)),
		zap.String("actor", ev.Actor),
	)
	return record.SequenceID, nil
}

// AppendChange records a database mutation with before/after snapshots.
// Nil snapshots are omitted from the payload (CREATE has no before,
// DELETE has no after).
func (l *Ledger) AppendChange(ctx context.Context, actor string, kind domain.EventType,
	table, recordID string, before, after map[string]interface{}) (int64, error) {

	details := map[string]interface{}{}
	if before != nil {
		details["before"] = before
	}
	if after != nil {
		details["after"] = after
	}

	return l.Append(ctx, Event{
		Actor:       actor,
		Kind:        kind,
		EntityTable: table,
		RecordID:    recordID,
		Details:     details,
	})
}

// AppendFileOp records a file operation.
func (l *Ledger) AppendFileOp(ctx context.Context, actor string, kind domain.EventType,
	filePath, fileHash string, details map[string]interface{}) (int64, error) {

	return l.Append(ctx, Event{
		Actor:         actor,
		Kind:          kind,
		Details:       details,
		FileOperation: true,
		FilePath:      filePath,
		FileHash:      fileHash,
	})
}

// AppendAuth records an authentication event with its outcome.
func (l *Ledger) AppendAuth(ctx context.Context, actor string, kind domain.EventType,
	success bool, details map[string]interface{}) (int64, error) {

	merged := map[string]interface{}{"success": success}
	for k, v := range details {
		merged[k] = v
	}

	return l.Append(ctx, Event{
		Actor:   actor,
		Kind:    kind,
		Details: merged,
	})
}
