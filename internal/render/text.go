package render

import (
	"fmt"
	"time"
)

// HumanDate formats a timestamp the way report subjects and bodies show
// dates, e.g. "October 6, 2025".
func HumanDate(t time.Time) string {
	return t.Format("January 2, 2006")
}

// DigestSubject builds the digest email subject line.
func DigestSubject(courseID int64, now time.Time, allCohorts bool) string {
	if allCohorts {
		return fmt.Sprintf("Cohort Digest (All Cohorts) – Course %d – %s", courseID, HumanDate(now))
	}
	return fmt.Sprintf("Cohort Digest – Course %d – %s", courseID, HumanDate(now))
}

// ReportSubject builds the subject for a one-off "email me this report" send.
func ReportSubject(reportLongName string, now time.Time) string {
	return reportLongName + " - " + HumanDate(now)
}

// RecentReportLongName names the recent-enrollments report for subjects and
// email bodies.
func RecentReportLongName(sinceDays int) string {
	return fmt.Sprintf("Recent Enrollments (Last %d Days)", sinceDays)
}

// IncompleteReportLongName names the not-completed report.
const IncompleteReportLongName = "Not Completed"

// DigestPlain is the plain-text alternative body of a digest email. The full
// tables live in the HTML part and the CSV attachment.
func DigestPlain(recipientName string, courseID int64, sinceDays, yearsBack, recentCount, incompleteCount int, allCohorts bool, now time.Time) string {
	heading := fmt.Sprintf("Cohort Digest for %s (Course %d)", recipientName, courseID)
	if allCohorts {
		heading = fmt.Sprintf("Cohort Digest (All cohorts, site context) for %s (Course %d)", recipientName, courseID)
	}
	return fmt.Sprintf("%s\nGenerated: %s\n\n"+
		"Recent enrollments (last %d days): %d row(s)\n"+
		"Not completed (latest enrollment within last %d %s): %d row(s)\n\n"+
		"Open the HTML version for the full tables.",
		heading, HumanDate(now),
		sinceDays, recentCount,
		yearsBack, pluralYears(yearsBack), incompleteCount)
}

// ReportEmailPlain is the body of a one-off report email sent from the web
// page to the viewer.
func ReportEmailPlain(reportLongName string, courseID int64, cohortLabel string, rowCount int) string {
	return fmt.Sprintf("Report: %s\nCourse ID: %d\nCohorts: %s\nRows: %d\n\nA CSV copy is attached.",
		reportLongName, courseID, cohortLabel, rowCount)
}
