// Package render turns report rows into the delivery formats: CSV
// attachments, HTML email bodies, plain-text bodies and the interactive web
// page. It holds no business logic; callers hand it already-computed rows.
package render

import (
	"fmt"
	"strings"

	"cohort_report_service/internal/domain/report"
)

var recentCSVHeader = []string{"Cohort", "Last", "First", "Email", "Enroll Date", "Days Since", "Completed"}
var incompleteCSVHeader = []string{"Cohort", "Last", "First", "Email", "Latest Enroll", "Days Since"}

// EscapeCSV quotes a field when it contains a quote, comma or line break,
// doubling embedded quotes. Fields starting with '=', '+', '-' or '@' are
// force-quoted so spreadsheets do not evaluate them as formulas.
func EscapeCSV(v string) string {
	needs := strings.ContainsAny(v, "\",\n\r")
	if len(v) > 0 {
		switch v[0] {
		case '=', '+', '-', '@':
			needs = true
		}
	}
	v = strings.ReplaceAll(v, `"`, `""`)
	if needs {
		return `"` + v + `"`
	}
	return v
}

func csvLine(fields []string) string {
	escaped := make([]string, len(fields))
	for i, f := range fields {
		escaped[i] = EscapeCSV(f)
	}
	return strings.Join(escaped, ",") + "\r\n"
}

// RecentCSV renders the recent-enrollments section, header included. Row
// order follows the input slice.
func RecentCSV(rows []report.RecentRow) string {
	var b strings.Builder
	b.WriteString(csvLine(recentCSVHeader))
	for _, r := range rows {
		b.WriteString(csvLine([]string{
			r.CohortName, r.LastName, r.FirstName, r.Email,
			r.EnrollmentDate, fmt.Sprintf("%d", r.DaysSince), r.CompletedDate,
		}))
	}
	return b.String()
}

// IncompleteCSV renders the not-completed section, header included.
func IncompleteCSV(rows []report.IncompleteRow) string {
	var b strings.Builder
	b.WriteString(csvLine(incompleteCSVHeader))
	for _, r := range rows {
		days := ""
		if r.DaysSince.Valid {
			days = fmt.Sprintf("%d", r.DaysSince.Int64)
		}
		b.WriteString(csvLine([]string{
			r.CohortName, r.LastName, r.FirstName, r.Email,
			r.EnrollmentDate, days,
		}))
	}
	return b.String()
}

// CombinedCSV bundles both report sections into one attachment, separated by
// plain-text header lines.
func CombinedCSV(sinceDays, yearsBack int, recent []report.RecentRow, incomplete []report.IncompleteRow) string {
	return fmt.Sprintf("---- Recent Enrollments (last %d days) ----\r\n%s\r\n"+
		"---- Not Completed (latest enrollment within %d %s) ----\r\n%s",
		sinceDays, RecentCSV(recent),
		yearsBack, pluralYears(yearsBack), IncompleteCSV(incomplete))
}

func pluralYears(n int) string {
	if n > 1 {
		return "years"
	}
	return "year"
}
