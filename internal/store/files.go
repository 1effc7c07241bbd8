package store

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"chartvault.io/vault/internal/crypt"
	"chartvault.io/vault/internal/domain"
	apperrors "chartvault.io/vault/internal/pkg/errors"
	"chartvault.io/vault/internal/pkg/logger"
)

const filesTable = "files"

// AddFile registers a stored artifact for an appointment, fingerprinting its
// content when it exists on disk and stamping the retention date implied by
// the policy. Emits a CREATE file-operation entry.
func (s *Store) AddFile(ctx context.Context, appointmentID int64, fileType, filePath string,
	policy domain.RetentionPolicy, actor string) (int64, error) {

	var fileHash string
	var fileSize int64
	if info, err := os.Stat(filePath); err == nil {
		fileSize = info.Size()
		if fileHash, err = crypt.HashFile(filePath); err != nil {
			logger.Warn("Failed to fingerprint file",
				zap.String("path", filePath), zap.Error(err))
			fileHash = ""
		}
	}

	file := domain.AttachedFile{
		AppointmentID:   appointmentID,
		FileType:        fileType,
		FilePath:        filePath,
		FileSize:        fileSize,
		FileHash:        fileHash,
		RetentionPolicy: policy,
		RetentionDate:   policy.ExpiryDateFrom(time.Now().UTC()),
	}

	if err := s.db.WithContext(ctx).Create(&file).Error; err != nil {
		return 0, apperrors.Storage(err, apperrors.CodeRecordCreateFail,
			"add file record")
	}

	_, err := s.ledger.AppendFileOp(ctx, actor, domain.EventCreate,
		filePath, fileHash,
		map[string]interface{}{
			"file_id":          file.FileID,
			"appointment_id":   appointmentID,
			"file_type":        fileType,
			"retention_policy": string(policy),
		})
	if err != nil {
		return 0, err
	}
	return file.FileID, nil
}

// GetAppointmentFiles lists the non-deleted files for an appointment and
// emits one FILE_ACCESS entry per file returned.
func (s *Store) GetAppointmentFiles(ctx context.Context, appointmentID int64, actor string) ([]domain.AttachedFile, error) {
	var files []domain.AttachedFile
	err := s.db.WithContext(ctx).
		Where("appointment_id = ? AND is_deleted = ?", appointmentID, false).
		Order("file_id ASC").
		Find(&files).Error
	if err != nil {
		return nil, apperrors.Storage(err, apperrors.CodeLedgerQueryFail,
			"list appointment files")
	}

	for i := range files {
		_, err := s.ledger.AppendFileOp(ctx, actor, domain.EventFileAccess,
			files[i].FilePath, files[i].FileHash,
			map[string]interface{}{
				"file_id":        files[i].FileID,
				"appointment_id": appointmentID,
				"file_type":      files[i].FileType,
			})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

// DeleteFile removes a file permanently. Files default to hard deletion:
// keeping soft-deleted rows around would pin disk space the retention policy
// exists to reclaim, and the ledger preserves the trail either way.
func (s *Store) DeleteFile(ctx context.Context, fileID int64, actor, reason string) (bool, error) {
	return s.HardDeleteFile(ctx, fileID, actor, reason)
}

// HardDeleteFile removes the physical file (best-effort), then the version
// history and the row. Physical-removal failure is logged and reported in
// the DELETE entry but never aborts the database-side deletion.
func (s *Store) HardDeleteFile(ctx context.Context, fileID int64, actor, reason string) (bool, error) {
	var file domain.AttachedFile
	res := s.db.WithContext(ctx).Where("file_id = ?", fileID).Limit(1).Find(&file)
	if res.Error != nil {
		return false, apperrors.Storage(res.Error, apperrors.CodeLedgerQueryFail,
			"load file record")
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	physicalRemoved := false
	if _, err := os.Stat(file.FilePath); err == nil {
		if err := os.Remove(file.FilePath); err != nil {
			logger.Warn("Failed to delete physical file",
				zap.String("path", file.FilePath), zap.Error(err))
		} else {
			physicalRemoved = true
			_, err := s.ledger.AppendFileOp(ctx, actor, domain.EventFileDelete,
				file.FilePath, file.FileHash,
				map[string]interface{}{"reason": reason})
			if err != nil {
				return false, err
			}
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("file_id = ?", fileID).Delete(&domain.FileVersion{}).Error; err != nil {
			return err
		}
		return tx.Where("file_id = ?", fileID).Delete(&domain.AttachedFile{}).Error
	})
	if err != nil {
		return false, apperrors.Storage(err, apperrors.CodeRecordDeleteFail,
			"hard delete file record")
	}

	_, err = s.ledger.AppendChange(ctx, actor, domain.EventDelete,
		filesTable, recordID(fileID),
		map[string]interface{}{
			"file_id":          fileID,
			"appointment_id":   file.AppointmentID,
			"file_type":        file.FileType,
			"file_path":        file.FilePath,
			"file_size":        file.FileSize,
			"retention_policy": string(file.RetentionPolicy),
			"physical_removed": physicalRemoved,
			"reason":           reason,
		},
		nil)
	if err != nil {
		return false, err
	}
	return true, nil
}

// FileVersionHistory returns a file's version snapshots newest-first with
// one READ entry for the access.
func (s *Store) FileVersionHistory(ctx context.Context, fileID int64, actor string) ([]domain.FileVersion, error) {
	var versions []domain.FileVersion
	err := s.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		Order("version_number DESC").
		Find(&versions).Error
	if err != nil {
		return nil, apperrors.Storage(err, apperrors.CodeLedgerQueryFail,
			"load file versions")
	}

	_, err = s.ledger.AppendChange(ctx, actor, domain.EventRead,
		"file_versions", recordID(fileID),
		nil,
		map[string]interface{}{"version_count": len(versions)})
	if err != nil {
		return nil, err
	}
	return versions, nil
}
