package retention

import (
	"context"
	"time"

	"chartvault.io/vault/internal/ledger"
	apperrors "chartvault.io/vault/internal/pkg/errors"
)

// CleanupPreview reports what a cleanup run would remove, without side
// effects and without ledger entries.
type CleanupPreview struct {
	RetentionYears   int       `json:"retention_years"`
	CutoffDate       time.Time `json:"cutoff_date"`
	ExpiredFiles     int       `json:"expired_files"`
	ExpiredFileBytes int64     `json:"expired_file_bytes"`
	ExpiredRecords   int       `json:"expired_records"`
	PurgeableEntries int64     `json:"purgeable_audit_entries"`
	GeneratedAt      time.Time `json:"generated_at"`
}

// Preview computes the counts a RunFullCleanup with the given retention
// would act on.
func (c *Coordinator) Preview(ctx context.Context, years int) (*CleanupPreview, error) {
	if years < 1 || years > 10 {
		return nil, apperrors.ErrRetentionOutOfRange(years)
	}
	cutoff := ledger.CutoffDate(years)

	files, err := c.store.FilesCreatedBefore(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	var bytes int64
	for i := range files {
		bytes += files[i].FileSize
	}

	records, err := c.store.SoftDeletedBefore(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	entries, err := c.ledger.PendingPurgeCount(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	return &CleanupPreview{
		RetentionYears:   years,
		CutoffDate:       cutoff,
		ExpiredFiles:     len(files),
		ExpiredFileBytes: bytes,
		ExpiredRecords:   len(records),
		PurgeableEntries: entries,
		GeneratedAt:      time.Now().UTC(),
	}, nil
}
