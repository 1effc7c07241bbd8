package ledger

import (
	"context"
	"time"

	"chartvault.io/vault/internal/domain"
	apperrors "chartvault.io/vault/internal/pkg/errors"
)

// DefaultQueryLimit bounds queries that do not set an explicit limit.
const DefaultQueryLimit = 1000

// Filter narrows a ledger query. Zero values mean "no constraint".
type Filter struct {
	Actor       string
	Kind        domain.EventType
	EntityTable string
	RecordID    string

	// From and To bound event_timestamp inclusively.
	From time.Time
	To   time.Time

	// FileOnly restricts results to file operations.
	FileOnly bool

	Limit  int
	Offset int
}

// Query returns entries matching the filter, newest first (timestamp
// descending, sequence id descending as tiebreak).
func (l *Ledger) Query(ctx context.Context, f Filter) ([]domain.AuditRecord, error) {
	q := l.db.WithContext(ctx).Model(&domain.AuditRecord{})

	if f.Actor != "" {
		q = q.Where("user_id = ?", f.Actor)
	}
	if f.Kind != "" {
		q = q.Where("event_type = ?", string(f.Kind))
	}
	if f.EntityTable != "" {
		q = q.Where("table_name = ?", f.EntityTable)
	}
	if f.RecordID != "" {
		q = q.Where("record_id = ?", f.RecordID)
	}
	if !f.From.IsZero() {
		q = q.Where("event_timestamp >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("event_timestamp <= ?", f.To)
	}
	if f.FileOnly {
		q = q.Where("file_operation = ?", true)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	var records []domain.AuditRecord
	err := q.Order("event_timestamp DESC").Order("audit_id DESC").
		Limit(limit).Offset(f.Offset).
		Find(&records).Error
	if err != nil {
		return nil, apperrors.Storage(err, apperrors.CodeLedgerQueryFail,
			"query audit records")
	}
	return records, nil
}
