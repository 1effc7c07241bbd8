// Package retention enforces time-based data minimization across attached
// files, soft-deleted records, and the audit ledger itself.
//
// Purges run in dependency order: files first, then soft-deleted records,
// then the ledger, so the trail documenting the removed content is the last
// thing to go. Per-item failures are counted and skipped, never fatal; a
// cleanup batch reports partial success rather than aborting.
package retention

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"chartvault.io/vault/internal/domain"
	"chartvault.io/vault/internal/ledger"
	apperrors "chartvault.io/vault/internal/pkg/errors"
	"chartvault.io/vault/internal/pkg/logger"
	"chartvault.io/vault/internal/store"
)

// Coordinator orchestrates retention purges over the store and the ledger.
type Coordinator struct {
	store  *store.Store
	ledger *ledger.Ledger
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(s *store.Store, l *ledger.Ledger) *Coordinator {
	return &Coordinator{store: s, ledger: l}
}

// CleanupResult reports one purge batch. Failed counts partial failures the
// batch continued past.
type CleanupResult struct {
	Cleaned        int       `json:"cleaned"`
	Failed         int       `json:"failed"`
	BytesFreed     int64     `json:"bytes_freed"`
	CutoffDate     time.Time `json:"cutoff_date"`
	RetentionYears int       `json:"retention_years"`
}

// CompositeResult aggregates a full cleanup run.
type CompositeResult struct {
	Files          CleanupResult       `json:"file_cleanup"`
	Records        CleanupResult       `json:"appointment_cleanup"`
	Ledger         *ledger.PurgeResult `json:"audit_cleanup"`
	RetentionYears int                 `json:"retention_years"`
	StartedAt      time.Time           `json:"started_at"`
	FinishedAt     time.Time           `json:"finished_at"`
}

// PurgeFilesOlderThan removes attached files created before the cutoff.
// Each file gets a FILE_DELETE entry before the physical removal is even
// attempted, so the trail records intent regardless of the outcome, and the
// batch ends with one SYSTEM_EVENT summary.
func (c *Coordinator) PurgeFilesOlderThan(ctx context.Context, years int, actor string) (*CleanupResult, error) {
	if years < 1 || years > 10 {
		return nil, apperrors.ErrRetentionOutOfRange(years)
	}
	cutoff := ledger.CutoffDate(years)
	result := &CleanupResult{CutoffDate: cutoff, RetentionYears: years}

	files, err := c.store.FilesCreatedBefore(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	for i := range files {
		file := &files[i]

		_, err := c.ledger.AppendFileOp(ctx, actor, domain.EventFileDelete,
			file.FilePath, file.FileHash,
			map[string]interface{}{
				"reason":           "retention cleanup",
				"retention_years":  years,
				"file_age_days":    int(time.Since(file.CreatedDate).Hours() / 24),
				"retention_policy": string(file.RetentionPolicy),
			})
		if err != nil {
			logger.Error("Failed to log file purge intent",
				zap.Int64("file_id", file.FileID), zap.Error(err))
			result.Failed++
			continue
		}

		removedBytes := int64(0)
		if _, statErr := os.Stat(file.FilePath); statErr == nil {
			if rmErr := os.Remove(file.FilePath); rmErr != nil {
				logger.Warn("Failed to remove physical file during cleanup",
					zap.String("path", file.FilePath), zap.Error(rmErr))
			} else {
				removedBytes = file.FileSize
			}
		}

		if err := c.store.PurgeFileRecord(ctx, file.FileID); err != nil {
			logger.Error("Failed to purge file record",
				zap.Int64("file_id", file.FileID), zap.Error(err))
			result.Failed++
			continue
		}

		result.Cleaned++
		result.BytesFreed += removedBytes
	}

	_, err = c.ledger.Append(ctx, ledger.Event{
		Actor: actor,
		Kind:  domain.EventSystemEvent,
		Details: map[string]interface{}{
			"operation":              "file_cleanup",
			"retention_years":        years,
			"files_cleaned":          result.Cleaned,
			"files_failed":           result.Failed,
			"total_size_freed_bytes": result.BytesFreed,
			"cutoff_date":            cutoff.Format(time.RFC3339),
		},
	})
	if err != nil {
		return nil, err
	}

	logger.Info("File retention cleanup finished",
		zap.Int("cleaned", result.Cleaned),
		zap.Int("failed", result.Failed),
		zap.Int64("bytes_freed", result.BytesFreed),
	)
	return result, nil
}

// PurgeSoftDeletedOlderThan hard-deletes appointments that were soft-deleted
// before the cutoff, cascading per the store's rules, with one SYSTEM_EVENT
// summary for the batch on top of the per-record DELETE entries.
func (c *Coordinator) PurgeSoftDeletedOlderThan(ctx context.Context, years int, actor string) (*CleanupResult, error) {
	if years < 1 || years > 10 {
		return nil, apperrors.ErrRetentionOutOfRange(years)
	}
	cutoff := ledger.CutoffDate(years)
	result := &CleanupResult{CutoffDate: cutoff, RetentionYears: years}

	ids, err := c.store.SoftDeletedBefore(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		ok, err := c.store.HardDeleteAppointment(ctx, id, actor, "retention cleanup")
		if err != nil || !ok {
			if err != nil {
				logger.Error("Failed to purge soft-deleted appointment",
					zap.Int64("appointment_id", id), zap.Error(err))
			}
			result.Failed++
			continue
		}
		result.Cleaned++
	}

	_, err = c.ledger.Append(ctx, ledger.Event{
		Actor: actor,
		Kind:  domain.EventSystemEvent,
		Details: map[string]interface{}{
			"operation":            "appointment_cleanup",
			"retention_years":      years,
			"appointments_cleaned": result.Cleaned,
			"appointments_failed":  result.Failed,
			"cutoff_date":          cutoff.Format(time.RFC3339),
		},
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Appointment retention cleanup finished",
		zap.Int("cleaned", result.Cleaned),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// PurgeLedgerOlderThan counts, then delegates to the ledger's
// backup-then-delete purge.
func (c *Coordinator) PurgeLedgerOlderThan(ctx context.Context, years int) (*ledger.PurgeResult, error) {
	if years < 1 || years > 10 {
		return nil, apperrors.ErrRetentionOutOfRange(years)
	}
	cutoff := ledger.CutoffDate(years)

	pending, err := c.ledger.PendingPurgeCount(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	logger.Info("Ledger purge starting",
		zap.Int64("pending", pending),
		zap.Time("cutoff", cutoff),
	)
	return c.ledger.PurgeBefore(ctx, cutoff)
}

// RunFullCleanup runs the three purges in order (files, records, ledger) and
// emits one top-level SYSTEM_EVENT summarizing the composite outcome. Content
// goes before the trail documenting it: if the ledger purge's backup fails,
// the data it describes is already safely gone.
func (c *Coordinator) RunFullCleanup(ctx context.Context, years int, actor string) (*CompositeResult, error) {
	if years < 1 || years > 10 {
		return nil, apperrors.ErrRetentionOutOfRange(years)
	}

	composite := &CompositeResult{
		RetentionYears: years,
		StartedAt:      time.Now().UTC(),
	}

	files, err := c.PurgeFilesOlderThan(ctx, years, actor)
	if err != nil {
		return nil, err
	}
	composite.Files = *files

	records, err := c.PurgeSoftDeletedOlderThan(ctx, years, actor)
	if err != nil {
		return nil, err
	}
	composite.Records = *records

	ledgerResult, err := c.PurgeLedgerOlderThan(ctx, years)
	if err != nil {
		return nil, err
	}
	composite.Ledger = ledgerResult
	composite.FinishedAt = time.Now().UTC()

	_, err = c.ledger.Append(ctx, ledger.Event{
		Actor: actor,
		Kind:  domain.EventSystemEvent,
		Details: map[string]interface{}{
			"operation":             "comprehensive_cleanup",
			"retention_years":       years,
			"files_cleaned":         composite.Files.Cleaned,
			"files_failed":          composite.Files.Failed,
			"appointments_cleaned":  composite.Records.Cleaned,
			"appointments_failed":   composite.Records.Failed,
			"audit_records_deleted": ledgerResult.RecordsDeleted,
			"audit_backup_created":  ledgerResult.BackupCreated,
		},
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Comprehensive cleanup finished",
		zap.Int("files_cleaned", composite.Files.Cleaned),
		zap.Int("appointments_cleaned", composite.Records.Cleaned),
		zap.Int64("audit_records_deleted", ledgerResult.RecordsDeleted),
	)
	return composite, nil
}
