package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"chartvault.io/vault/internal/domain"
	apperrors "chartvault.io/vault/internal/pkg/errors"
)

// FilesCreatedBefore lists non-deleted files created strictly before the
// cutoff, oldest first. Used by retention cleanup; no READ entries are
// emitted for the scan itself.
func (s *Store) FilesCreatedBefore(ctx context.Context, cutoff time.Time) ([]domain.AttachedFile, error) {
	var files []domain.AttachedFile
	err := s.db.WithContext(ctx).
		Where("created_date < ? AND is_deleted = ?", cutoff, false).
		Order("created_date ASC").
		Find(&files).Error
	if err != nil {
		return nil, apperrors.Storage(err, apperrors.CodeLedgerQueryFail,
			"list expired files")
	}
	return files, nil
}

// PurgeFileRecord removes a file row and its version history without
// touching the physical file or the ledger. The caller owns both.
func (s *Store) PurgeFileRecord(ctx context.Context, fileID int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("file_id = ?", fileID).Delete(&domain.FileVersion{}).Error; err != nil {
			return err
		}
		return tx.Where("file_id = ?", fileID).Delete(&domain.AttachedFile{}).Error
	})
	if err != nil {
		return apperrors.Storage(err, apperrors.CodeRecordDeleteFail,
			"purge file record")
	}
	return nil
}

// SoftDeletedBefore lists ids of appointments soft-deleted strictly before
// the cutoff, oldest deletion first.
func (s *Store) SoftDeletedBefore(ctx context.Context, cutoff time.Time) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).Model(&domain.Appointment{}).
		Where("is_deleted = ? AND deleted_at < ?", true, cutoff).
		Order("deleted_at ASC").
		Pluck("appointment_id", &ids).Error
	if err != nil {
		return nil, apperrors.Storage(err, apperrors.CodeLedgerQueryFail,
			"list expired soft-deleted appointments")
	}
	return ids, nil
}
