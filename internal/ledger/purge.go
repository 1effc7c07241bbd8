package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"chartvault.io/vault/internal/domain"
	apperrors "chartvault.io/vault/internal/pkg/errors"
	"chartvault.io/vault/internal/pkg/logger"
)

// PurgeResult reports a retention purge of the ledger itself.
//
// BackupCreated=false with RecordsDeleted>0 is a reduced-confidence outcome,
// not a failure: the purge proceeds even when the backup artifact could not
// be written.
type PurgeResult struct {
	RecordsDeleted int64     `json:"records_deleted"`
	CutoffDate     time.Time `json:"cutoff_date"`
	RetentionYears int       `json:"retention_years"`
	BackupCreated  bool      `json:"backup_created"`
	BackupPath     string    `json:"backup_path,omitempty"`
}

type backupInfo struct {
	CreatedAt      time.Time `json:"created_at"`
	CutoffDate     time.Time `json:"cutoff_date"`
	RecordCount    int       `json:"record_count"`
	RetentionYears int       `json:"retention_years"`
}

type backupArtifact struct {
	BackupInfo   backupInfo           `json:"backup_info"`
	AuditRecords []domain.AuditRecord `json:"audit_records"`
}

// PurgeBefore backs up and deletes every entry with event_timestamp strictly
// before cutoff, then appends a SYSTEM_EVENT marking the truncation point so
// later verification can tell retention apart from tampering.
func (l *Ledger) PurgeBefore(ctx context.Context, cutoff time.Time) (*PurgeResult, error) {
	result := &PurgeResult{
		CutoffDate:     cutoff,
		RetentionYears: l.Retention(),
	}

	l.mu.Lock()

	var doomed []domain.AuditRecord
	err := l.db.WithContext(ctx).
		Where("event_timestamp < ?", cutoff).
		Order("audit_id ASC").
		Find(&doomed).Error
	if err != nil {
		l.mu.Unlock()
		return nil, apperrors.Storage(err, apperrors.CodeLedgerPurgeFail,
			"select audit records for purge")
	}

	if len(doomed) == 0 {
		l.mu.Unlock()
		logger.Info("No audit records older than cutoff",
			zap.Time("cutoff", cutoff))
		return result, nil
	}

	// Best-effort backup. Failure downgrades confidence but never blocks
	// the purge the retention policy already committed to.
	backupPath, backupErr := l.writeBackup(doomed, cutoff)
	if backupErr != nil {
		logger.Warn("Pre-purge backup failed, continuing with purge",
			zap.Error(backupErr),
			zap.Int("record_count", len(doomed)),
		)
	} else {
		result.BackupCreated = true
		result.BackupPath = backupPath
	}

	res := l.db.WithContext(ctx).
		Where("event_timestamp < ?", cutoff).
		Delete(&domain.AuditRecord{})
	if res.Error != nil {
		l.mu.Unlock()
		return nil, apperrors.Storage(res.Error, apperrors.CodeLedgerPurgeFail,
			"delete purged audit records")
	}
	result.RecordsDeleted = res.RowsAffected
	l.mu.Unlock()

	logger.Info("Audit records purged",
		zap.Int64("records_deleted", result.RecordsDeleted),
		zap.Time("cutoff", cutoff),
		zap.Bool("backup_created", result.BackupCreated),
	)

	// Truncation marker. Append takes the mutex itself, so it runs after
	// the delete released it.
	_, err = l.Append(ctx, Event{
		Actor: SystemActor,
		Kind:  domain.EventSystemEvent,
		Details: map[string]interface{}{
			"action":          "audit_log_purged",
			"cutoff_date":     cutoff.Format(time.RFC3339),
			"records_deleted": result.RecordsDeleted,
			"backup_created":  result.BackupCreated,
			"backup_path":     result.BackupPath,
		},
	})
	if err != nil {
		// The purge itself succeeded; surface the marker failure in logs only.
		logger.Warn("Failed to append purge marker", zap.Error(err))
	}

	return result, nil
}

// writeBackup serializes the doomed entries to a timestamped JSON artifact.
func (l *Ledger) writeBackup(records []domain.AuditRecord, cutoff time.Time) (string, error) {
	if err := os.MkdirAll(l.backupDir, 0o750); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	name := fmt.Sprintf("audit_backup_%s.json", time.Now().Format("20060102_150405"))
	path := filepath.Join(l.backupDir, name)

	artifact := backupArtifact{
		BackupInfo: backupInfo{
			CreatedAt:      time.Now().UTC(),
			CutoffDate:     cutoff,
			RecordCount:    len(records),
			RetentionYears: l.Retention(),
		},
		AuditRecords: records,
	}

	raw, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialize backup: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o640); err != nil {
		return "", fmt.Errorf("write backup file: %w", err)
	}
	return path, nil
}

// PendingPurgeCount reports how many entries PurgeBefore would remove,
// without removing them.
func (l *Ledger) PendingPurgeCount(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := l.db.WithContext(ctx).Model(&domain.AuditRecord{}).
		Where("event_timestamp < ?", cutoff).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.Storage(err, apperrors.CodeLedgerQueryFail,
			"count purgeable audit records")
	}
	return count, nil
}
