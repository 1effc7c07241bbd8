package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"chartvault.io/vault/internal/domain"
	apperrors "chartvault.io/vault/internal/pkg/errors"
)

const appointmentsTable = "appointments"

// CreateAppointmentInput is the caller-supplied content of a new appointment.
type CreateAppointmentInput struct {
	PatientName     string
	AppointmentDate string // YYYY-MM-DD
	AppointmentTime string // HH:MM
	AppointmentType string
	Notes           string
	FolderPath      string
}

// AppointmentChanges lists the fields an update may touch. Nil pointers are
// left unchanged. Reason is recorded on the version snapshot.
type AppointmentChanges struct {
	PatientName     *string
	AppointmentDate *string
	AppointmentTime *string
	AppointmentType *string
	Notes           *string
	FolderPath      *string
	Reason          string
}

// CreateAppointment inserts a new appointment and emits a CREATE entry with
// the created fields. Returns the assigned appointment id.
func (s *Store) CreateAppointment(ctx context.Context, in CreateAppointmentInput, actor string) (int64, error) {
	if strings.TrimSpace(in.PatientName) == "" {
		return 0, apperrors.Validation(apperrors.CodePatientNameEmpty,
			"patient name must not be empty")
	}

	encName, err := s.encrypt(in.PatientName)
	if err != nil {
		return 0, err
	}
	encNotes, err := s.encrypt(in.Notes)
	if err != nil {
		return 0, err
	}

	folderPath := in.FolderPath
	if folderPath == "" {
		safe := strings.NewReplacer(" ", "_", "/", "_", "\\", "_").Replace(in.PatientName)
		folderPath = fmt.Sprintf("data/%s/%s_%s", in.AppointmentDate, safe, in.AppointmentTime)
	}

	appt := domain.Appointment{
		AppointmentCode: newAppointmentCode(in.AppointmentDate, in.AppointmentTime),
		PatientName:     encName,
		AppointmentDate: in.AppointmentDate,
		AppointmentTime: in.AppointmentTime,
		AppointmentType: in.AppointmentType,
		Notes:           encNotes,
		FolderPath:      folderPath,
	}

	if err := s.db.WithContext(ctx).Create(&appt).Error; err != nil {
		return 0, apperrors.Storage(err, apperrors.CodeRecordCreateFail,
			"create appointment")
	}

	_, err = s.ledger.AppendChange(ctx, actor, domain.EventCreate,
		appointmentsTable, recordID(appt.AppointmentID),
		nil,
		map[string]interface{}{
			"appointment_id":   appt.AppointmentID,
			"patient_name":     in.PatientName,
			"appointment_date": in.AppointmentDate,
			"appointment_time": in.AppointmentTime,
			"appointment_type": in.AppointmentType,
			"notes":            in.Notes,
		})
	if err != nil {
		return 0, err
	}
	return appt.AppointmentID, nil
}

// GetAppointment fetches one appointment and emits a READ entry. The second
// return value is false when the record is absent (or soft-deleted and
// includeDeleted is false); no audit entry is written in that case.
func (s *Store) GetAppointment(ctx context.Context, id int64, actor string, includeDeleted bool) (*domain.Appointment, bool, error) {
	appt, found, err := s.loadAppointment(ctx, id)
	if err != nil || !found {
		return nil, false, err
	}
	if appt.IsDeleted && !includeDeleted {
		return nil, false, nil
	}

	if err := s.decryptAppointment(appt); err != nil {
		return nil, false, err
	}

	_, err = s.ledger.AppendChange(ctx, actor, domain.EventRead,
		appointmentsTable, recordID(id),
		nil,
		map[string]interface{}{"patient_name": appt.PatientName})
	if err != nil {
		return nil, false, err
	}
	return appt, true, nil
}

// GetAppointmentsByDate lists non-deleted appointments on a date, emitting a
// single READ entry summarizing the access.
func (s *Store) GetAppointmentsByDate(ctx context.Context, date, actor string) ([]domain.Appointment, error) {
	var appts []domain.Appointment
	err := s.db.WithContext(ctx).
		Where("appointment_date = ? AND is_deleted = ?", date, false).
		Order("appointment_time ASC").
		Find(&appts).Error
	if err != nil {
		return nil, apperrors.Storage(err, apperrors.CodeLedgerQueryFail,
			"list appointments by date")
	}

	for i := range appts {
		if err := s.decryptAppointment(&appts[i]); err != nil {
			return nil, err
		}
	}

	_, err = s.ledger.AppendChange(ctx, actor, domain.EventRead,
		appointmentsTable, "date_search",
		nil,
		map[string]interface{}{"date": date, "count": len(appts)})
	if err != nil {
		return nil, err
	}
	return appts, nil
}

// UpdateAppointment applies the changes, snapshotting the pre-update state
// into the version table inside the same transaction, and emits an UPDATE
// entry with before/after. Returns false when the appointment is absent.
func (s *Store) UpdateAppointment(ctx context.Context, id int64, actor string, changes AppointmentChanges) (bool, error) {
	var before, after domain.Appointment
	found := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("appointment_id = ?", id).Limit(1).Find(&before)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		found = true

		if err := s.snapshotAppointment(tx, &before, actor, changes.Reason); err != nil {
			return err
		}

		after = before
		if err := s.applyChanges(&after, changes); err != nil {
			return err
		}
		now := time.Now().UTC()
		after.UpdatedAt = &now
		after.UpdatedBy = actor

		return tx.Save(&after).Error
	})
	if err != nil {
		return false, apperrors.Storage(err, apperrors.CodeRecordUpdateFail,
			"update appointment")
	}
	if !found {
		return false, nil
	}

	beforePayload, err := s.changePayload(&before)
	if err != nil {
		return false, err
	}
	afterPayload, err := s.changePayload(&after)
	if err != nil {
		return false, err
	}

	_, err = s.ledger.AppendChange(ctx, actor, domain.EventUpdate,
		appointmentsTable, recordID(id), beforePayload, afterPayload)
	if err != nil {
		return false, err
	}
	return true, nil
}

// SoftDeleteAppointment flags the row deleted, keeping it and its versions in
// place. Returns false when the record is absent or already deleted.
func (s *Store) SoftDeleteAppointment(ctx context.Context, id int64, actor, reason string) (bool, error) {
	appt, found, err := s.loadAppointment(ctx, id)
	if err != nil || !found {
		return false, err
	}
	if appt.IsDeleted {
		return false, nil
	}

	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Model(&domain.Appointment{}).
		Where("appointment_id = ?", id).
		Updates(map[string]interface{}{
			"is_deleted": true,
			"deleted_at": now,
			"deleted_by": actor,
		}).Error
	if err != nil {
		return false, apperrors.Storage(err, apperrors.CodeRecordDeleteFail,
			"soft delete appointment")
	}

	name, err := s.decrypt(appt.PatientName)
	if err != nil {
		return false, err
	}
	_, err = s.ledger.AppendChange(ctx, actor, domain.EventSoftDelete,
		appointmentsTable, recordID(id),
		map[string]interface{}{
			"patient_name": name,
			"is_deleted":   false,
		},
		map[string]interface{}{
			"patient_name": name,
			"is_deleted":   true,
			"deleted_at":   now.Format(time.RFC3339),
			"deleted_by":   actor,
			"reason":       reason,
		})
	if err != nil {
		return false, err
	}
	return true, nil
}

// RestoreAppointment reverses a soft delete. Returns false unless the record
// exists and is currently soft-deleted.
func (s *Store) RestoreAppointment(ctx context.Context, id int64, actor string) (bool, error) {
	appt, found, err := s.loadAppointment(ctx, id)
	if err != nil || !found {
		return false, err
	}
	if !appt.IsDeleted {
		return false, nil
	}

	err = s.db.WithContext(ctx).Model(&domain.Appointment{}).
		Where("appointment_id = ?", id).
		Updates(map[string]interface{}{
			"is_deleted": false,
			"deleted_at": nil,
			"deleted_by": "",
			"updated_at": time.Now().UTC(),
			"updated_by": actor,
		}).Error
	if err != nil {
		return false, apperrors.Storage(err, apperrors.CodeRecordUpdateFail,
			"restore appointment")
	}

	_, err = s.ledger.AppendChange(ctx, actor, domain.EventUpdate,
		appointmentsTable, recordID(id),
		map[string]interface{}{"is_deleted": true},
		map[string]interface{}{"is_deleted": false, "restored_by": actor})
	if err != nil {
		return false, err
	}
	return true, nil
}

// HardDeleteAppointment physically removes the row and everything owned by
// it: attached file rows and their versions, processing status, and the
// appointment's own version history. The DELETE entry keeps the pre-delete
// snapshot; only the ledger remembers the record afterwards.
func (s *Store) HardDeleteAppointment(ctx context.Context, id int64, actor, reason string) (bool, error) {
	appt, found, err := s.loadAppointment(ctx, id)
	if err != nil || !found {
		return false, err
	}

	beforePayload, err := s.changePayload(appt)
	if err != nil {
		return false, err
	}
	beforePayload["appointment_id"] = id
	beforePayload["reason"] = reason

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Dependency order: leaves first.
		err := tx.Where("file_id IN (?)",
			tx.Session(&gorm.Session{NewDB: true}).
				Model(&domain.AttachedFile{}).
				Select("file_id").
				Where("appointment_id = ?", id),
		).Delete(&domain.FileVersion{}).Error
		if err != nil {
			return err
		}
		if err := tx.Where("appointment_id = ?", id).Delete(&domain.AttachedFile{}).Error; err != nil {
			return err
		}
		if err := tx.Where("appointment_id = ?", id).Delete(&domain.ProcessingStatus{}).Error; err != nil {
			return err
		}
		if err := tx.Where("appointment_id = ?", id).Delete(&domain.AppointmentVersion{}).Error; err != nil {
			return err
		}
		return tx.Where("appointment_id = ?", id).Delete(&domain.Appointment{}).Error
	})
	if err != nil {
		return false, apperrors.Storage(err, apperrors.CodeRecordDeleteFail,
			"hard delete appointment")
	}

	_, err = s.ledger.AppendChange(ctx, actor, domain.EventDelete,
		appointmentsTable, recordID(id), beforePayload, nil)
	if err != nil {
		return false, err
	}
	return true, nil
}

// SearchAppointmentsByPatient substring-matches patient names, excluding
// soft-deleted rows unless asked. One READ entry summarizes the whole search
// so the trail does not amplify with result count.
func (s *Store) SearchAppointmentsByPatient(ctx context.Context, term, actor string, includeDeleted bool) ([]domain.Appointment, error) {
	q := s.db.WithContext(ctx).Model(&domain.Appointment{})
	if !includeDeleted {
		q = q.Where("is_deleted = ?", false)
	}

	var matches []domain.Appointment
	if s.cipher == nil {
		err := q.Where("patient_name LIKE ?", "%"+term+"%").
			Order("appointment_date DESC").Order("appointment_time DESC").
			Find(&matches).Error
		if err != nil {
			return nil, apperrors.Storage(err, apperrors.CodeLedgerQueryFail,
				"search appointments")
		}
	} else {
		// Encrypted names cannot be matched in SQL; decrypt and filter here.
		var all []domain.Appointment
		err := q.Order("appointment_date DESC").Order("appointment_time DESC").
			Find(&all).Error
		if err != nil {
			return nil, apperrors.Storage(err, apperrors.CodeLedgerQueryFail,
				"search appointments")
		}
		lowered := strings.ToLower(term)
		for i := range all {
			if err := s.decryptAppointment(&all[i]); err != nil {
				return nil, err
			}
			if strings.Contains(strings.ToLower(all[i].PatientName), lowered) {
				matches = append(matches, all[i])
			}
		}
	}

	if s.cipher == nil {
		for i := range matches {
			if err := s.decryptAppointment(&matches[i]); err != nil {
				return nil, err
			}
		}
	}

	_, err := s.ledger.AppendChange(ctx, actor, domain.EventRead,
		appointmentsTable, "search",
		nil,
		map[string]interface{}{
			"search_term":     term,
			"results_count":   len(matches),
			"include_deleted": includeDeleted,
		})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// AppointmentVersionHistory returns the version snapshots newest-first and
// emits one READ entry with the count.
func (s *Store) AppointmentVersionHistory(ctx context.Context, id int64, actor string) ([]domain.AppointmentVersion, error) {
	var versions []domain.AppointmentVersion
	err := s.db.WithContext(ctx).
		Where("appointment_id = ?", id).
		Order("version_number DESC").
		Find(&versions).Error
	if err != nil {
		return nil, apperrors.Storage(err, apperrors.CodeLedgerQueryFail,
			"load appointment versions")
	}

	for i := range versions {
		if versions[i].PatientName, err = s.decrypt(versions[i].PatientName); err != nil {
			return nil, err
		}
		if versions[i].Notes, err = s.decrypt(versions[i].Notes); err != nil {
			return nil, err
		}
	}

	_, err = s.ledger.AppendChange(ctx, actor, domain.EventRead,
		"appointment_versions", recordID(id),
		nil,
		map[string]interface{}{"version_count": len(versions)})
	if err != nil {
		return nil, err
	}
	return versions, nil
}

// snapshotAppointment copies the current row into the version table with the
// next version number. Runs inside the caller's transaction.
func (s *Store) snapshotAppointment(tx *gorm.DB, appt *domain.Appointment, actor, reason string) error {
	var maxVersion int
	err := tx.Model(&domain.AppointmentVersion{}).
		Where("appointment_id = ?", appt.AppointmentID).
		Select("COALESCE(MAX(version_number), 0)").
		Scan(&maxVersion).Error
	if err != nil {
		return err
	}

	return tx.Create(&domain.AppointmentVersion{
		AppointmentID:   appt.AppointmentID,
		VersionNumber:   maxVersion + 1,
		PatientName:     appt.PatientName,
		AppointmentDate: appt.AppointmentDate,
		AppointmentTime: appt.AppointmentTime,
		AppointmentType: appt.AppointmentType,
		Notes:           appt.Notes,
		FolderPath:      appt.FolderPath,
		CreatedBy:       actor,
		ChangeReason:    reason,
	}).Error
}

func (s *Store) applyChanges(appt *domain.Appointment, changes AppointmentChanges) error {
	if changes.PatientName != nil {
		enc, err := s.encrypt(*changes.PatientName)
		if err != nil {
			return err
		}
		appt.PatientName = enc
	}
	if changes.AppointmentDate != nil {
		appt.AppointmentDate = *changes.AppointmentDate
	}
	if changes.AppointmentTime != nil {
		appt.AppointmentTime = *changes.AppointmentTime
	}
	if changes.AppointmentType != nil {
		appt.AppointmentType = *changes.AppointmentType
	}
	if changes.Notes != nil {
		enc, err := s.encrypt(*changes.Notes)
		if err != nil {
			return err
		}
		appt.Notes = enc
	}
	if changes.FolderPath != nil {
		appt.FolderPath = *changes.FolderPath
	}
	return nil
}

// changePayload builds the plaintext before/after payload for audit entries.
func (s *Store) changePayload(appt *domain.Appointment) (map[string]interface{}, error) {
	name, err := s.decrypt(appt.PatientName)
	if err != nil {
		return nil, err
	}
	notes, err := s.decrypt(appt.Notes)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"patient_name":     name,
		"appointment_date": appt.AppointmentDate,
		"appointment_time": appt.AppointmentTime,
		"appointment_type": appt.AppointmentType,
		"notes":            notes,
	}, nil
}

func (s *Store) loadAppointment(ctx context.Context, id int64) (*domain.Appointment, bool, error) {
	var appt domain.Appointment
	res := s.db.WithContext(ctx).
		Where("appointment_id = ?", id).
		Limit(1).Find(&appt)
	if res.Error != nil {
		return nil, false, apperrors.Storage(res.Error, apperrors.CodeLedgerQueryFail,
			"load appointment")
	}
	if res.RowsAffected == 0 {
		return nil, false, nil
	}
	return &appt, true, nil
}

func (s *Store) decryptAppointment(appt *domain.Appointment) error {
	name, err := s.decrypt(appt.PatientName)
	if err != nil {
		return err
	}
	appt.PatientName = name

	notes, err := s.decrypt(appt.Notes)
	if err != nil {
		return err
	}
	appt.Notes = notes
	return nil
}

func recordID(id int64) string {
	return fmt.Sprintf("%d", id)
}

// newAppointmentCode builds a unique, sortable code from the appointment
// slot plus a random suffix.
func newAppointmentCode(date, timeOfDay string) string {
	d := strings.ReplaceAll(date, "-", "")
	t := strings.ReplaceAll(timeOfDay, ":", "")
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%s_%s", d, t, suffix)
}
