// internal/domain/digest/log.go
package digest

import (
	"database/sql"
	"time"
)

// StatusLabel classifies the outcome of one dispatch attempt.
type StatusLabel string

const (
	StatusSent   StatusLabel = "SENT"
	StatusFail   StatusLabel = "FAIL"
	StatusDryRun StatusLabel = "DRYRUN"
)

// LogEntry is one append-only audit row in mdl_cohort_digest_log. Exactly one
// entry is written per attempted (non-skipped) recipient, whatever the
// outcome. Entries are never mutated or deleted by this system.
type LogEntry struct {
	ID              int64
	ManagerUserID   int64
	ManagerEmail    string
	CourseID        int64
	SinceDays       int
	YearsBack       int
	RecentCount     int
	IncompleteCount int
	CohortsSummary  string
	Subject         string
	SentOK          bool
	StatusLabel     StatusLabel
	ErrorText       sql.NullString
	SentAt          time.Time
}
