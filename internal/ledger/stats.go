package ledger

import (
	"context"
	"time"

	"go.uber.org/zap"

	"chartvault.io/vault/internal/domain"
	apperrors "chartvault.io/vault/internal/pkg/errors"
	"chartvault.io/vault/internal/pkg/logger"
)

// topActorLimit bounds the per-actor breakdown in Stats.
const topActorLimit = 10

// Stats summarizes the ledger's contents.
type Stats struct {
	TotalRecords   int64            `json:"total_records"`
	ByEventType    map[string]int64 `json:"by_event_type"`
	ByActor        map[string]int64 `json:"by_actor"`
	FileOperations int64            `json:"file_operations"`
	Recent24h      int64            `json:"recent_activity_24h"`
	Earliest       *time.Time       `json:"earliest_record,omitempty"`
	Latest         *time.Time       `json:"latest_record,omitempty"`
	RetentionYears int              `json:"retention_years"`
	GeneratedAt    time.Time        `json:"generated_at"`
}

type kindCount struct {
	EventType string
	Count     int64
}

type actorCount struct {
	UserID string
	Count  int64
}

// Statistics computes totals, per-kind and top-actor breakdowns, file
// operation and 24-hour counts, and the timestamp range.
func (l *Ledger) Statistics(ctx context.Context) (*Stats, error) {
	db := l.db.WithContext(ctx)
	stats := &Stats{
		ByEventType:    make(map[string]int64),
		ByActor:        make(map[string]int64),
		RetentionYears: l.Retention(),
		GeneratedAt:    time.Now().UTC(),
	}

	if err := db.Model(&domain.AuditRecord{}).Count(&stats.TotalRecords).Error; err != nil {
		return nil, apperrors.Storage(err, apperrors.CodeLedgerQueryFail, "count audit records")
	}

	var kinds []kindCount
	err := db.Model(&domain.AuditRecord{}).
		Select("event_type, COUNT(*) AS count").
		Group("event_type").
		Order("count DESC").
		Scan(&kinds).Error
	if err != nil {
		return nil, apperrors.Storage(err, apperrors.CodeLedgerQueryFail, "count by event type")
	}
	for _, k := range kinds {
		stats.ByEventType[k.EventType] = k.Count
	}

	var actors []actorCount
	err = db.Model(&domain.AuditRecord{}).
		Select("user_id, COUNT(*) AS count").
		Group("user_id").
		Order("count DESC").
		Limit(topActorLimit).
		Scan(&actors).Error
	if err != nil {
		return nil, apperrors.Storage(err, apperrors.CodeLedgerQueryFail, "count by actor")
	}
	for _, a := range actors {
		stats.ByActor[a.UserID] = a.Count
	}

	err = db.Model(&domain.AuditRecord{}).
		Where("file_operation = ?", true).
		Count(&stats.FileOperations).Error
	if err != nil {
		return nil, apperrors.Storage(err, apperrors.CodeLedgerQueryFail, "count file operations")
	}

	err = db.Model(&domain.AuditRecord{}).
		Where("event_timestamp >= ?", time.Now().UTC().Add(-24*time.Hour)).
		Count(&stats.Recent24h).Error
	if err != nil {
		return nil, apperrors.Storage(err, apperrors.CodeLedgerQueryFail, "count recent activity")
	}

	earliest, latest, err := l.timestampRange(ctx)
	if err != nil {
		return nil, err
	}
	stats.Earliest = earliest
	stats.Latest = latest

	return stats, nil
}

// RetentionInfo reports the configured policy against the current contents.
type RetentionInfo struct {
	RetentionYears int        `json:"retention_years"`
	CutoffDate     time.Time  `json:"cutoff_date"`
	TotalRecords   int64      `json:"total_records"`
	OldRecords     int64      `json:"old_records_to_delete"`
	RecordsToKeep  int64      `json:"records_to_keep"`
	Earliest       *time.Time `json:"earliest_record,omitempty"`
	Latest         *time.Time `json:"latest_record,omitempty"`
}

// Retention returns the configured retention period in years.
func (l *Ledger) Retention() int {
	l.retentionMu.RLock()
	defer l.retentionMu.RUnlock()
	return l.retentionYears
}

// CutoffDate returns the purge cutoff implied by years of retention.
func CutoffDate(years int) time.Time {
	return time.Now().UTC().AddDate(0, 0, -years*365)
}

// SetRetention changes the retention period, bounded to [1,10] years, and
// records the change as a SYSTEM_EVENT entry attributed to the actor. The
// old value is returned.
func (l *Ledger) SetRetention(ctx context.Context, years int, actor string) (int, error) {
	if years < 1 || years > 10 {
		return 0, apperrors.ErrRetentionOutOfRange(years)
	}
	if actor == "" {
		actor = SystemActor
	}

	l.retentionMu.Lock()
	old := l.retentionYears
	l.retentionYears = years
	l.retentionMu.Unlock()

	_, err := l.Append(ctx, Event{
		Actor: actor,
		Kind:  domain.EventSystemEvent,
		Details: map[string]interface{}{
			"action":              "retention_policy_changed",
			"old_retention_years": old,
			"new_retention_years": years,
		},
	})
	if err != nil {
		return old, err
	}

	logger.Info("Retention policy updated",
		zap.Int("old_years", old),
		zap.Int("new_years", years),
	)
	return old, nil
}

// RetentionPolicyInfo reports the configured policy, the implied cutoff, and
// how many entries fall on each side of it.
func (l *Ledger) RetentionPolicyInfo(ctx context.Context) (*RetentionInfo, error) {
	years := l.Retention()
	cutoff := CutoffDate(years)

	info := &RetentionInfo{
		RetentionYears: years,
		CutoffDate:     cutoff,
	}

	db := l.db.WithContext(ctx)
	if err := db.Model(&domain.AuditRecord{}).Count(&info.TotalRecords).Error; err != nil {
		return nil, apperrors.Storage(err, apperrors.CodeLedgerQueryFail, "count audit records")
	}

	err := db.Model(&domain.AuditRecord{}).
		Where("event_timestamp < ?", cutoff).
		Count(&info.OldRecords).Error
	if err != nil {
		return nil, apperrors.Storage(err, apperrors.CodeLedgerQueryFail, "count old audit records")
	}
	info.RecordsToKeep = info.TotalRecords - info.OldRecords

	info.Earliest, info.Latest, err = l.timestampRange(ctx)
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (l *Ledger) timestampRange(ctx context.Context) (*time.Time, *time.Time, error) {
	var bounds struct {
		Earliest *time.Time
		Latest   *time.Time
	}
	err := l.db.WithContext(ctx).Model(&domain.AuditRecord{}).
		Select("MIN(event_timestamp) AS earliest, MAX(event_timestamp) AS latest").
		Scan(&bounds).Error
	if err != nil {
		return nil, nil, apperrors.Storage(err, apperrors.CodeLedgerQueryFail,
			"read audit timestamp range")
	}
	return bounds.Earliest, bounds.Latest, nil
}
