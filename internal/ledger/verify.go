package ledger

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"chartvault.io/vault/internal/domain"
	apperrors "chartvault.io/vault/internal/pkg/errors"
	"chartvault.io/vault/internal/pkg/logger"
)

// Issue severities.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// Anomaly detection thresholds.
const (
	rapidFireGap       = time.Second
	rapidFireThreshold = 10
	highVolumeEvents   = 1000
)

// Issue is one problem found during verification.
type Issue struct {
	SequenceID int64     `json:"sequence_id,omitempty"`
	Problem    string    `json:"problem"`
	Severity   string    `json:"severity"`
	Expected   string    `json:"expected,omitempty"`
	Actual     string    `json:"actual,omitempty"`
	Timestamp  time.Time `json:"timestamp,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	EventType  string    `json:"event_type,omitempty"`
	Details    string    `json:"details,omitempty"`
}

// IntegrityReport is the outcome of a full chain verification.
//
// ChainTruncated is informational, not an issue: a retention purge leaves the
// oldest surviving entry pointing at a hash that no longer exists, and the
// chain is verified from that entry forward.
type IntegrityReport struct {
	TotalRecords    int       `json:"total_records"`
	Issues          []Issue   `json:"integrity_issues"`
	IsIntact        bool      `json:"is_intact"`
	HashChainBroken bool      `json:"hash_chain_broken"`
	CriticalIssues  int       `json:"critical_issues"`
	WarningIssues   int       `json:"warning_issues"`
	ChainTruncated  bool      `json:"chain_truncated"`
	TruncatedAt     int64     `json:"truncated_at,omitempty"`
	VerifiedAt      time.Time `json:"verification_timestamp"`
	RetentionPolicy string    `json:"retention_policy"`
}

// Verify walks the whole ledger in sequence order, recomputing every entry's
// digest and checking the chain links, then runs anomaly heuristics.
//
// Verification is detection, not prevention: a broken chain never blocks
// subsequent writes.
func (l *Ledger) Verify(ctx context.Context) (*IntegrityReport, error) {
	var records []domain.AuditRecord
	err := l.db.WithContext(ctx).Order("audit_id ASC").Find(&records).Error
	if err != nil {
		return nil, apperrors.Storage(err, apperrors.CodeLedgerVerifyFail,
			"load audit records for verification")
	}

	report := &IntegrityReport{
		TotalRecords:    len(records),
		VerifiedAt:      time.Now().UTC(),
		RetentionPolicy: fmt.Sprintf("%d years", l.Retention()),
	}

	var prevHash *string
	for i := range records {
		rec := &records[i]

		switch {
		case i == 0 && rec.PreviousHash != nil:
			// Oldest surviving entry links to a purged predecessor.
			report.ChainTruncated = true
			report.TruncatedAt = rec.SequenceID
		case !hashPtrEqual(rec.PreviousHash, prevHash):
			report.Issues = append(report.Issues, Issue{
				SequenceID: rec.SequenceID,
				Problem:    "previous hash mismatch",
				Severity:   SeverityCritical,
				Expected:   hashPtrString(prevHash),
				Actual:     hashPtrString(rec.PreviousHash),
				Timestamp:  rec.EventTimestamp,
				Actor:      rec.UserID,
				EventType:  string(rec.EventType),
			})
			report.HashChainBroken = true
		}

		if !isHexDigest(rec.AuditHash) {
			report.Issues = append(report.Issues, Issue{
				SequenceID: rec.SequenceID,
				Problem:    "invalid audit hash format",
				Severity:   SeverityCritical,
				Actual:     rec.AuditHash,
				Timestamp:  rec.EventTimestamp,
				Actor:      rec.UserID,
				EventType:  string(rec.EventType),
			})
			report.HashChainBroken = true
		} else if recomputed := EntryHash(rec); recomputed != rec.AuditHash {
			report.Issues = append(report.Issues, Issue{
				SequenceID: rec.SequenceID,
				Problem:    "audit hash mismatch",
				Severity:   SeverityCritical,
				Expected:   recomputed,
				Actual:     rec.AuditHash,
				Timestamp:  rec.EventTimestamp,
				Actor:      rec.UserID,
				EventType:  string(rec.EventType),
			})
			report.HashChainBroken = true
		}

		prevHash = &rec.AuditHash
	}

	report.Issues = append(report.Issues, detectAnomalies(records)...)

	for _, issue := range report.Issues {
		switch issue.Severity {
		case SeverityCritical:
			report.CriticalIssues++
		case SeverityWarning:
			report.WarningIssues++
		}
	}
	report.IsIntact = len(report.Issues) == 0 && !report.HashChainBroken

	if !report.IsIntact {
		logger.Warn("Audit integrity verification found issues",
			zap.Int("critical", report.CriticalIssues),
			zap.Int("warning", report.WarningIssues),
			zap.Bool("hash_chain_broken", report.HashChainBroken),
		)
	}
	return report, nil
}

// detectAnomalies runs heuristic checks over the full record set.
func detectAnomalies(records []domain.AuditRecord) []Issue {
	var issues []Issue

	// Burst of sub-second gaps suggests automated writes.
	rapidCount := 0
	for i := 1; i < len(records); i++ {
		gap := records[i].EventTimestamp.Sub(records[i-1].EventTimestamp)
		if gap < rapidFireGap {
			rapidCount++
		}
	}
	if rapidCount > rapidFireThreshold {
		issues = append(issues, Issue{
			Problem:  "rapid-fire events detected",
			Severity: SeverityWarning,
			Details:  fmt.Sprintf("found %d events with sub-second intervals", rapidCount),
		})
	}

	// A single actor dominating the trail is worth a look.
	perActor := make(map[string]int)
	for i := range records {
		perActor[records[i].UserID]++
	}
	for actor, count := range perActor {
		if count > highVolumeEvents {
			issues = append(issues, Issue{
				Problem:  "high volume actor activity",
				Severity: SeverityWarning,
				Actor:    actor,
				Details:  fmt.Sprintf("actor has %d audit events", count),
			})
		}
	}

	// Required fields missing from a persisted row.
	for i := range records {
		rec := &records[i]
		if rec.UserID == "" {
			issues = append(issues, Issue{
				SequenceID: rec.SequenceID,
				Problem:    "missing actor id",
				Severity:   SeverityCritical,
				Timestamp:  rec.EventTimestamp,
			})
		}
		if rec.AuditHash == "" {
			issues = append(issues, Issue{
				SequenceID: rec.SequenceID,
				Problem:    "missing audit hash",
				Severity:   SeverityCritical,
				Timestamp:  rec.EventTimestamp,
			})
		}
	}

	return issues
}

// Report bundles verification, statistics, and retention state into one
// structure with operator recommendations.
type Report struct {
	GeneratedAt     time.Time        `json:"report_generated_at"`
	Integrity       *IntegrityReport `json:"integrity_check"`
	Statistics      *Stats           `json:"statistics"`
	Retention       *RetentionInfo   `json:"retention_policy"`
	Recommendations []string         `json:"recommendations"`
}

// GenerateReport produces the full integrity report.
func (l *Ledger) GenerateReport(ctx context.Context) (*Report, error) {
	integrity, err := l.Verify(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := l.Statistics(ctx)
	if err != nil {
		return nil, err
	}
	retention, err := l.RetentionPolicyInfo(ctx)
	if err != nil {
		return nil, err
	}

	return &Report{
		GeneratedAt:     time.Now().UTC(),
		Integrity:       integrity,
		Statistics:      stats,
		Retention:       retention,
		Recommendations: recommendations(integrity, stats),
	}, nil
}

func recommendations(integrity *IntegrityReport, stats *Stats) []string {
	var recs []string

	if !integrity.IsIntact {
		recs = append(recs, "CRITICAL: audit log integrity compromised, immediate investigation required")
	}
	if integrity.CriticalIssues > 0 {
		recs = append(recs, fmt.Sprintf("URGENT: %d critical integrity issues found", integrity.CriticalIssues))
	}
	if integrity.WarningIssues > 10 {
		recs = append(recs, "WARNING: high number of integrity warnings, review audit log quality")
	}
	if stats.TotalRecords > 100000 {
		recs = append(recs, "INFO: large audit log, consider archiving old records")
	}
	if len(recs) == 0 {
		recs = append(recs, "all integrity checks passed, no issues detected")
	}
	return recs
}

func hashPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func hashPtrString(p *string) string {
	if p == nil {
		return "<nil>"
	}
	return *p
}

func isHexDigest(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
