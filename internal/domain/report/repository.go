package report

import "context"

// Repository executes the two report queries against the enrollment schema.
// Both take the already-resolved cohort scope; callers must not pass an empty
// cohort set (the service layer short-circuits that case before reaching the
// repository, so no degenerate IN () clause is ever built).
type Repository interface {
	// RecentEnrollments returns every (user, cohort, enrollment) triple for
	// courseID where the user belongs to one of cohortIDs and the enrollment
	// was created after sinceTS, newest first.
	RecentEnrollments(ctx context.Context, courseID int64, cohortIDs []int64, sinceTS int64) ([]RecentRow, error)
	// NotCompleted returns, per (user, cohort), the latest enrollment in
	// courseID for users with no completion record, newest first. When
	// yearCutoffTS > 0 rows whose latest enrollment predates it are excluded;
	// yearCutoffTS <= 0 disables the window (interactive-report behavior).
	NotCompleted(ctx context.Context, courseID int64, cohortIDs []int64, yearCutoffTS int64) ([]IncompleteRow, error)
}
