// internal/domain/digest/repository.go
package digest

import (
	"context"
	"time"
)

// Repository persists the audit log and answers the throttle lookup.
type Repository interface {
	// EnsureSchema creates the audit table and its indexes if absent, and
	// reports whether the optional legacy mdl_manager_emails tracker exists.
	// Called once at startup, not per run.
	EnsureSchema(ctx context.Context) (legacyTrackerPresent bool, err error)
	// Append inserts one audit row. ID and SentAt are filled in on return.
	Append(ctx context.Context, entry *LogEntry) error
	// LastSuccessfulSend returns the sent_at of the most recent sent_ok=1
	// entry for (userID, courseID), or ErrNoSuccessfulSend.
	LastSuccessfulSend(ctx context.Context, userID, courseID int64) (time.Time, error)
	// TouchLegacyTracker upserts the user's last-sent timestamps in the
	// legacy mdl_manager_emails table. Best effort; only called when
	// EnsureSchema reported the table present.
	TouchLegacyTracker(ctx context.Context, userID int64) error
}
