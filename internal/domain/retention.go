package domain

import "time"

// RetentionPolicy tags an attached file with its purge horizon.
type RetentionPolicy string

const (
	// RetentionTwoWeeks keeps raw audio recordings for 14 days.
	RetentionTwoWeeks RetentionPolicy = "2_weeks"

	// RetentionOneMonth keeps transcripts and extractions for 30 days.
	RetentionOneMonth RetentionPolicy = "1_month"

	// RetentionLongTerm keeps filled regulatory forms for 2 years.
	RetentionLongTerm RetentionPolicy = "long_term"

	// RetentionArchived marks files moved out of the active store; they are
	// never selected for automatic purge.
	RetentionArchived RetentionPolicy = "archived"
)

// ExpiryFrom computes the retention date for a file created at ref.
// Unknown policies fall back to the one-month horizon.
func (p RetentionPolicy) ExpiryFrom(ref time.Time) time.Time {
	switch p {
	case RetentionTwoWeeks:
		return ref.AddDate(0, 0, 14)
	case RetentionOneMonth:
		return ref.AddDate(0, 0, 30)
	case RetentionLongTerm:
		return ref.AddDate(0, 0, 730)
	default:
		return ref.AddDate(0, 0, 30)
	}
}

// DateLayout is the storage layout for date-only columns.
const DateLayout = "2006-01-02"

// ExpiryDateFrom returns the retention date formatted for storage.
func (p RetentionPolicy) ExpiryDateFrom(ref time.Time) string {
	return p.ExpiryFrom(ref).Format(DateLayout)
}
