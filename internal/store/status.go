package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"chartvault.io/vault/internal/domain"
	apperrors "chartvault.io/vault/internal/pkg/errors"
)

// SetProcessingStatus upserts the pipeline state of one step for an
// appointment. Moving into "processing" stamps the start time; reaching
// "completed" or "failed" stamps the end time and any error message.
func (s *Store) SetProcessingStatus(ctx context.Context, appointmentID int64, stepName, status, errorMessage string) error {
	now := time.Now().UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.ProcessingStatus
		res := tx.Where("appointment_id = ? AND step_name = ?", appointmentID, stepName).
			Limit(1).Find(&existing)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			record := domain.ProcessingStatus{
				AppointmentID: appointmentID,
				StepName:      stepName,
				Status:        status,
				ErrorMessage:  errorMessage,
			}
			if status == domain.StepStatusProcessing {
				record.StartTime = &now
			} else {
				record.EndTime = &now
			}
			return tx.Create(&record).Error
		}

		updates := map[string]interface{}{
			"status":        status,
			"error_message": errorMessage,
		}
		if status == domain.StepStatusProcessing {
			updates["start_time"] = now
			updates["end_time"] = nil
		} else {
			updates["end_time"] = now
		}
		return tx.Model(&domain.ProcessingStatus{}).
			Where("status_id = ?", existing.StatusID).
			Updates(updates).Error
	})
	if err != nil {
		return apperrors.Storage(err, apperrors.CodeRecordUpdateFail,
			"set processing status")
	}
	return nil
}

// GetProcessingStatus lists all step states for an appointment.
func (s *Store) GetProcessingStatus(ctx context.Context, appointmentID int64) ([]domain.ProcessingStatus, error) {
	var statuses []domain.ProcessingStatus
	err := s.db.WithContext(ctx).
		Where("appointment_id = ?", appointmentID).
		Order("status_id ASC").
		Find(&statuses).Error
	if err != nil {
		return nil, apperrors.Storage(err, apperrors.CodeLedgerQueryFail,
			"list processing status")
	}
	return statuses, nil
}
