package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"chartvault.io/vault/internal/crypt"
	"chartvault.io/vault/internal/domain"
	"chartvault.io/vault/internal/ledger"
	apperrors "chartvault.io/vault/internal/pkg/errors"
	"chartvault.io/vault/internal/pkg/logger"
	"chartvault.io/vault/internal/testutil"
)

func init() {
	_ = logger.Init("error", "json")
}

func newTestStore(t *testing.T) (*Store, *ledger.Ledger, *gorm.DB) {
	t.Helper()
	db := testutil.OpenSQLite(t)
	l := ledger.New(db, ledger.WithBackupDir(t.TempDir()))
	return New(db, l), l, db
}

func newEncryptedStore(t *testing.T) (*Store, *ledger.Ledger, *gorm.DB) {
	t.Helper()
	db := testutil.OpenSQLite(t)
	l := ledger.New(db, ledger.WithBackupDir(t.TempDir()))
	cipher, err := crypt.NewFieldCipher(
		"0123456789abcdef0123456789abcdef",
		"a1b2c3d4e5f60718a1b2c3d4e5f60718",
	)
	require.NoError(t, err)
	return New(db, l, WithCipher(cipher)), l, db
}

func createTestAppointment(t *testing.T, s *Store, patient string) int64 {
	t.Helper()
	id, err := s.CreateAppointment(context.Background(), CreateAppointmentInput{
		PatientName:     patient,
		AppointmentDate: "2026-01-15",
		AppointmentTime: "10:30",
		AppointmentType: "initial_assessment",
		Notes:           "initial notes",
	}, "nurse1")
	require.NoError(t, err)
	return id
}

func strPtr(s string) *string { return &s }

func TestCreateAppointment_RequiresPatientName(t *testing.T) {
	s, _, _ := newTestStore(t)

	_, err := s.CreateAppointment(context.Background(), CreateAppointmentInput{
		AppointmentDate: "2026-01-15",
		AppointmentTime: "10:30",
	}, "nurse1")
	require.Error(t, err)
	require.True(t, apperrors.IsValidation(err))
}

func TestCreateAppointment_EmitsCreateEntry(t *testing.T) {
	s, l, _ := newTestStore(t)
	ctx := context.Background()

	id := createTestAppointment(t, s, "Jane Doe")
	require.Positive(t, id)

	entries, err := l.Query(ctx, ledger.Filter{
		Kind:     domain.EventCreate,
		RecordID: fmt.Sprintf("%d", id),
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "appointments", entries[0].EntityTable)
	require.Contains(t, entries[0].OperationDetails, "Jane Doe")
}

func TestGetAppointment_NotFound(t *testing.T) {
	s, l, _ := newTestStore(t)
	ctx := context.Background()

	appt, found, err := s.GetAppointment(ctx, 404, "nurse1", false)
	require.NoError(t, err)
	require.False(t, found)
	require.Nil(t, appt)

	// Absent records leave no READ entry.
	entries, err := l.Query(ctx, ledger.Filter{Kind: domain.EventRead})
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestUpdateAppointment_VersionMonotonicity(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	id := createTestAppointment(t, s, "Jane Doe")

	priorNotes := []string{"initial notes", "v1", "v2"}
	for _, next := range []string{"v1", "v2", "v3"} {
		ok, err := s.UpdateAppointment(ctx, id, "nurse1", AppointmentChanges{
			Notes: strPtr(next),
		})
		require.NoError(t, err)
		require.True(t, ok)
	}

	versions, err := s.AppointmentVersionHistory(ctx, id, "nurse1")
	require.NoError(t, err)
	require.Len(t, versions, 3)

	// Newest first: version numbers 3,2,1 each holding the pre-update state.
	for i, v := range versions {
		require.Equal(t, 3-i, v.VersionNumber)
		require.Equal(t, priorNotes[2-i], v.Notes)
		require.Equal(t, "nurse1", v.CreatedBy)
	}
}

func TestUpdateAppointment_NotFound(t *testing.T) {
	s, _, _ := newTestStore(t)

	ok, err := s.UpdateAppointment(context.Background(), 404, "nurse1", AppointmentChanges{
		Notes: strPtr("x"),
	})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSoftDelete_Reversible(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	id := createTestAppointment(t, s, "Jane Doe")

	before, found, err := s.GetAppointment(ctx, id, "nurse1", false)
	require.NoError(t, err)
	require.True(t, found)

	ok, err := s.SoftDeleteAppointment(ctx, id, "nurse1", "duplicate entry")
	require.NoError(t, err)
	require.True(t, ok)

	// Gone from the default view.
	_, found, err = s.GetAppointment(ctx, id, "nurse1", false)
	require.NoError(t, err)
	require.False(t, found)

	// Still present when deleted records are included.
	deleted, found, err := s.GetAppointment(ctx, id, "nurse1", true)
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, deleted.IsDeleted)
	require.Equal(t, "nurse1", deleted.DeletedBy)
	require.NotNil(t, deleted.DeletedAt)

	ok, err = s.RestoreAppointment(ctx, id, "nurse2")
	require.NoError(t, err)
	require.True(t, ok)

	restored, found, err := s.GetAppointment(ctx, id, "nurse1", false)
	require.NoError(t, err)
	require.True(t, found)
	require.False(t, restored.IsDeleted)
	require.Nil(t, restored.DeletedAt)
	require.Empty(t, restored.DeletedBy)

	// Indistinguishable from the pre-delete state except update provenance.
	require.Equal(t, before.PatientName, restored.PatientName)
	require.Equal(t, before.Notes, restored.Notes)
	require.Equal(t, before.AppointmentDate, restored.AppointmentDate)
	require.Equal(t, "nurse2", restored.UpdatedBy)
}

func TestSoftDelete_StatesGuarded(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	id := createTestAppointment(t, s, "Jane Doe")

	// Restore of an active record fails.
	ok, err := s.RestoreAppointment(ctx, id, "nurse1")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = s.SoftDeleteAppointment(ctx, id, "nurse1", "")
	require.NoError(t, err)
	require.True(t, ok)

	// Second soft delete fails.
	ok, err = s.SoftDeleteAppointment(ctx, id, "nurse1", "")
	require.NoError(t, err)
	require.False(t, ok)

	// Absent record fails both ways.
	ok, err = s.SoftDeleteAppointment(ctx, 404, "nurse1", "")
	require.NoError(t, err)
	require.False(t, ok)
	ok, err = s.RestoreAppointment(ctx, 404, "nurse1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHardDelete_Finality(t *testing.T) {
	s, l, db := newTestStore(t)
	ctx := context.Background()

	id := createTestAppointment(t, s, "Jane Doe")
	ok, err := s.UpdateAppointment(ctx, id, "nurse1", AppointmentChanges{Notes: strPtr("v1")})
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, s.SetProcessingStatus(ctx, id, "transcription", domain.StepStatusCompleted, ""))

	ok, err = s.HardDeleteAppointment(ctx, id, "nurse1", "patient request")
	require.NoError(t, err)
	require.True(t, ok)

	_, found, err := s.GetAppointment(ctx, id, "nurse1", true)
	require.NoError(t, err)
	require.False(t, found)

	versions, err := s.AppointmentVersionHistory(ctx, id, "nurse1")
	require.NoError(t, err)
	require.Empty(t, versions)

	var statusCount int64
	require.NoError(t, db.Model(&domain.ProcessingStatus{}).
		Where("appointment_id = ?", id).Count(&statusCount).Error)
	require.Zero(t, statusCount)

	// The DELETE entry keeps the pre-delete snapshot.
	entries, err := l.Query(ctx, ledger.Filter{
		Kind:     domain.EventDelete,
		RecordID: fmt.Sprintf("%d", id),
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Contains(t, entries[0].OperationDetails, "Jane Doe")
	require.Contains(t, entries[0].OperationDetails, "patient request")
}

func TestAppointmentLifecycle_AuditTrail(t *testing.T) {
	s, l, _ := newTestStore(t)
	ctx := context.Background()

	id := createTestAppointment(t, s, "Jane Doe")
	rid := fmt.Sprintf("%d", id)

	for _, notes := range []string{"first revision", "second revision"} {
		ok, err := s.UpdateAppointment(ctx, id, "nurse1", AppointmentChanges{Notes: strPtr(notes)})
		require.NoError(t, err)
		require.True(t, ok)
	}

	versions, err := s.AppointmentVersionHistory(ctx, id, "nurse1")
	require.NoError(t, err)
	require.Len(t, versions, 2)

	ok, err := s.HardDeleteAppointment(ctx, id, "nurse1", "")
	require.NoError(t, err)
	require.True(t, ok)

	_, found, err := s.GetAppointment(ctx, id, "nurse1", false)
	require.NoError(t, err)
	require.False(t, found)

	for kind, want := range map[domain.EventType]int{
		domain.EventCreate: 1,
		domain.EventUpdate: 2,
		domain.EventDelete: 1,
	} {
		entries, err := l.Query(ctx, ledger.Filter{Kind: kind, RecordID: rid})
		require.NoError(t, err)
		require.Len(t, entries, want, "event kind %s", kind)
	}
}

func TestSearchAppointmentsByPatient(t *testing.T) {
	s, l, _ := newTestStore(t)
	ctx := context.Background()

	janeID := createTestAppointment(t, s, "Jane Doe")
	createTestAppointment(t, s, "John Smith")
	deletedID := createTestAppointment(t, s, "Jane Roe")
	ok, err := s.SoftDeleteAppointment(ctx, deletedID, "nurse1", "")
	require.NoError(t, err)
	require.True(t, ok)

	results, err := s.SearchAppointmentsByPatient(ctx, "Jane", "nurse1", false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, janeID, results[0].AppointmentID)

	withDeleted, err := s.SearchAppointmentsByPatient(ctx, "Jane", "nurse1", true)
	require.NoError(t, err)
	require.Len(t, withDeleted, 2)

	// One summary READ entry per search, not one per match.
	entries, err := l.Query(ctx, ledger.Filter{Kind: domain.EventRead, RecordID: "search"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Contains(t, entries[1].OperationDetails, `"results_count":1`)
}

func TestGetAppointmentsByDate(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	createTestAppointment(t, s, "Jane Doe")
	createTestAppointment(t, s, "John Smith")

	appts, err := s.GetAppointmentsByDate(ctx, "2026-01-15", "nurse1")
	require.NoError(t, err)
	require.Len(t, appts, 2)

	none, err := s.GetAppointmentsByDate(ctx, "2026-01-16", "nurse1")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestFieldEncryption_AtRest(t *testing.T) {
	s, _, db := newEncryptedStore(t)
	ctx := context.Background()

	id := createTestAppointment(t, s, "Jane Doe")

	// The raw row never holds the plaintext.
	var raw domain.Appointment
	require.NoError(t, db.Where("appointment_id = ?", id).First(&raw).Error)
	require.NotEqual(t, "Jane Doe", raw.PatientName)
	require.NotEqual(t, "initial notes", raw.Notes)

	// Reads decrypt transparently.
	appt, found, err := s.GetAppointment(ctx, id, "nurse1", false)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "Jane Doe", appt.PatientName)
	require.Equal(t, "initial notes", appt.Notes)

	// Search decrypts before matching.
	results, err := s.SearchAppointmentsByPatient(ctx, "jane", "nurse1", false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "Jane Doe", results[0].PatientName)

	// Version history decrypts snapshots.
	ok, err := s.UpdateAppointment(ctx, id, "nurse1", AppointmentChanges{Notes: strPtr("updated")})
	require.NoError(t, err)
	require.True(t, ok)
	versions, err := s.AppointmentVersionHistory(ctx, id, "nurse1")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	require.Equal(t, "Jane Doe", versions[0].PatientName)
	require.Equal(t, "initial notes", versions[0].Notes)
}

func TestProcessingStatus_Upsert(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	id := createTestAppointment(t, s, "Jane Doe")

	require.NoError(t, s.SetProcessingStatus(ctx, id, "transcription", domain.StepStatusProcessing, ""))
	statuses, err := s.GetProcessingStatus(ctx, id)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	require.NotNil(t, statuses[0].StartTime)
	require.Nil(t, statuses[0].EndTime)

	require.NoError(t, s.SetProcessingStatus(ctx, id, "transcription", domain.StepStatusFailed, "model crashed"))
	statuses, err = s.GetProcessingStatus(ctx, id)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	require.Equal(t, domain.StepStatusFailed, statuses[0].Status)
	require.Equal(t, "model crashed", statuses[0].ErrorMessage)
	require.NotNil(t, statuses[0].EndTime)
}
