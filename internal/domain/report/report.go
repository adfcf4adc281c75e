package report

import "database/sql"

// NotComplete is the sentinel shown when a user has no completion record for
// the course.
const NotComplete = "Not Complete"

// UnknownDate is shown when a grouped row carries no enrollment timestamp.
const UnknownDate = "Unknown"

// RecentRow is one row of the recent-enrollments report. A user appears once
// per (cohort, enrollment) combination; all enrollments after the cutoff are
// listed, not just the latest.
type RecentRow struct {
	UserID         int64  `db:"userid"`
	FirstName      string `db:"firstname"`
	LastName       string `db:"lastname"`
	Email          string `db:"email"`
	CohortID       int64  `db:"cohortid"`
	CohortName     string `db:"cohortname"`
	EnrolledAt     int64  `db:"enroll_ts"`
	EnrollmentDate string `db:"enrollment_date"`
	CompletedDate  string `db:"completed_date"`
	DaysSince      int64  `db:"-"`
}

// IncompleteRow is one row of the not-completed report: the user's latest
// enrollment in the course, grouped per (user, cohort), with no completion
// record. DaysSince is null when no enrollment timestamp exists.
type IncompleteRow struct {
	UserID           int64         `db:"userid"`
	FirstName        string        `db:"firstname"`
	LastName         string        `db:"lastname"`
	Email            string        `db:"email"`
	CohortID         int64         `db:"cohortid"`
	CohortName       string        `db:"cohortname"`
	LatestEnrolledAt int64         `db:"latest_enroll_ts"`
	EnrollmentDate   string        `db:"-"`
	DaysSince        sql.NullInt64 `db:"-"`
}
