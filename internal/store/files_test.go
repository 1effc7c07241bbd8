package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"chartvault.io/vault/internal/domain"
	"chartvault.io/vault/internal/ledger"
)

func writeTestFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	return path
}

func TestAddFile_FingerprintsContent(t *testing.T) {
	s, l, _ := newTestStore(t)
	ctx := context.Background()

	apptID := createTestAppointment(t, s, "Jane Doe")
	path := writeTestFile(t, "recording.wav", []byte("audio bytes"))

	fileID, err := s.AddFile(ctx, apptID, "audio", path, domain.RetentionTwoWeeks, "nurse1")
	require.NoError(t, err)
	require.Positive(t, fileID)

	files, err := s.GetAppointmentFiles(ctx, apptID, "nurse1")
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Len(t, files[0].FileHash, 64)
	require.Equal(t, int64(len("audio bytes")), files[0].FileSize)
	require.Equal(t, domain.RetentionTwoWeeks, files[0].RetentionPolicy)
	require.NotEmpty(t, files[0].RetentionDate)

	// CREATE file-operation entry plus one FILE_ACCESS per listed file.
	created, err := l.Query(ctx, ledger.Filter{Kind: domain.EventCreate, FileOnly: true})
	require.NoError(t, err)
	require.Len(t, created, 1)
	accessed, err := l.Query(ctx, ledger.Filter{Kind: domain.EventFileAccess})
	require.NoError(t, err)
	require.Len(t, accessed, 1)
}

func TestAddFile_MissingPhysicalFile(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	apptID := createTestAppointment(t, s, "Jane Doe")

	// Registering a path that does not exist yet is allowed; the
	// fingerprint stays empty.
	fileID, err := s.AddFile(ctx, apptID, "transcript",
		filepath.Join(t.TempDir(), "pending.txt"), domain.RetentionOneMonth, "nurse1")
	require.NoError(t, err)

	files, err := s.GetAppointmentFiles(ctx, apptID, "nurse1")
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, fileID, files[0].FileID)
	require.Empty(t, files[0].FileHash)
}

func TestHardDeleteFile_RemovesPhysicalAndRow(t *testing.T) {
	s, l, _ := newTestStore(t)
	ctx := context.Background()

	apptID := createTestAppointment(t, s, "Jane Doe")
	path := writeTestFile(t, "form.pdf", []byte("pdf bytes"))

	fileID, err := s.AddFile(ctx, apptID, "form", path, domain.RetentionLongTerm, "nurse1")
	require.NoError(t, err)

	ok, err := s.HardDeleteFile(ctx, fileID, "nurse1", "superseded")
	require.NoError(t, err)
	require.True(t, ok)

	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))

	files, err := s.GetAppointmentFiles(ctx, apptID, "nurse1")
	require.NoError(t, err)
	require.Empty(t, files)

	entries, err := l.Query(ctx, ledger.Filter{
		Kind:     domain.EventDelete,
		RecordID: fmt.Sprintf("%d", fileID),
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Contains(t, entries[0].OperationDetails, `"physical_removed":true`)

	fileDeletes, err := l.Query(ctx, ledger.Filter{Kind: domain.EventFileDelete})
	require.NoError(t, err)
	require.Len(t, fileDeletes, 1)
}

func TestHardDeleteFile_MissingPhysicalFileStillDeletesRow(t *testing.T) {
	s, l, _ := newTestStore(t)
	ctx := context.Background()

	apptID := createTestAppointment(t, s, "Jane Doe")
	path := writeTestFile(t, "recording.wav", []byte("audio"))

	fileID, err := s.AddFile(ctx, apptID, "audio", path, domain.RetentionTwoWeeks, "nurse1")
	require.NoError(t, err)

	// Physical file vanished out-of-band; the row still goes.
	require.NoError(t, os.Remove(path))

	ok, err := s.HardDeleteFile(ctx, fileID, "nurse1", "")
	require.NoError(t, err)
	require.True(t, ok)

	entries, err := l.Query(ctx, ledger.Filter{
		Kind:     domain.EventDelete,
		RecordID: fmt.Sprintf("%d", fileID),
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Contains(t, entries[0].OperationDetails, `"physical_removed":false`)
}

func TestHardDeleteFile_NotFound(t *testing.T) {
	s, _, _ := newTestStore(t)

	ok, err := s.HardDeleteFile(context.Background(), 404, "nurse1", "")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDeleteFile_AliasesHardDelete(t *testing.T) {
	s, _, db := newTestStore(t)
	ctx := context.Background()

	apptID := createTestAppointment(t, s, "Jane Doe")
	path := writeTestFile(t, "notes.txt", []byte("text"))
	fileID, err := s.AddFile(ctx, apptID, "transcript", path, domain.RetentionOneMonth, "nurse1")
	require.NoError(t, err)

	ok, err := s.DeleteFile(ctx, fileID, "nurse1", "cleanup")
	require.NoError(t, err)
	require.True(t, ok)

	var count int64
	require.NoError(t, db.Model(&domain.AttachedFile{}).
		Where("file_id = ?", fileID).Count(&count).Error)
	require.Zero(t, count)
}
