package render

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"cohort_report_service/internal/domain/report"
)

// DigestHTMLData feeds the digest email template.
type DigestHTMLData struct {
	RecipientName string
	CourseID      int64
	SinceDays     int
	YearsBack     int
	YearsLabel    string
	Scope         string
	Today         string
	Recent        []report.RecentRow
	Incomplete    []report.IncompleteRow
}

var digestTemplate = template.Must(template.New("digest").Funcs(template.FuncMap{
	"notComplete": func(v string) bool { return strings.EqualFold(v, report.NotComplete) },
}).Parse(`<!doctype html><html><head><meta charset="utf-8"><title>Cohort Digest</title></head>
<body style="margin:0;padding:0;background:#f6f7fb;font-family:Arial,Helvetica,sans-serif;color:#111;">
<table role="presentation" cellpadding="0" cellspacing="0" border="0" width="100%" style="background:#f6f7fb;padding:20px 0;">
<tr><td align="center">
<table cellpadding="0" cellspacing="0" border="0" width="700" style="max-width:700px;background:#ffffff;border:1px solid #e5e7eb;border-radius:8px;">
<tr><td style="background:#0ea5e9;padding:18px 20px;border-radius:8px 8px 0 0;color:#fff;">
  <div style="font-size:18px;font-weight:bold;">Cohort Digest</div>
  <div style="font-size:12px;">
    Recipient: <strong>{{.RecipientName}}</strong>
    &nbsp;&bull;&nbsp; Course ID: <strong>{{.CourseID}}</strong>
    &nbsp;&bull;&nbsp; Date: <strong>{{.Today}}</strong>
    &nbsp;&bull;&nbsp; Scope: <strong>{{.Scope}}</strong>
  </div>
</td></tr>
<tr><td style="padding:18px 20px;">
  <div style="font-size:16px;font-weight:bold;margin-bottom:6px;">Recent enrollments (last {{.SinceDays}} days)</div>
  <div style="font-size:12px;color:#555;margin-bottom:12px;">Showing {{len .Recent}} row(s)</div>
  {{if not .Recent}}
    <div style="padding:12px;border:1px solid #e5e7eb;border-radius:6px;background:#f9fafb;color:#444;">No recent enrollments found.</div>
  {{else}}
  <table cellpadding="0" cellspacing="0" border="0" width="100%" style="border-collapse:collapse;border:1px solid #e5e7eb;">
    <thead><tr style="background:#f3f4f6;">
      <th align="left" style="padding:8px;font-size:12px;">Cohort</th>
      <th align="left" style="padding:8px;font-size:12px;">Last</th>
      <th align="left" style="padding:8px;font-size:12px;">First</th>
      <th align="left" style="padding:8px;font-size:12px;">Email</th>
      <th align="left" style="padding:8px;font-size:12px;">Enroll Date</th>
      <th align="right" style="padding:8px;font-size:12px;">Days Since</th>
      <th align="left" style="padding:8px;font-size:12px;">Completed</th>
    </tr></thead>
    <tbody>
    {{range .Recent}}
      <tr>
        <td style="padding:8px;border-bottom:1px solid #f1f5f9;font-size:13px;">{{.CohortName}}</td>
        <td style="padding:8px;border-bottom:1px solid #f1f5f9;font-size:13px;">{{.LastName}}</td>
        <td style="padding:8px;border-bottom:1px solid #f1f5f9;font-size:13px;">{{.FirstName}}</td>
        <td style="padding:8px;border-bottom:1px solid #f1f5f9;font-size:13px;">{{.Email}}</td>
        <td style="padding:8px;border-bottom:1px solid #f1f5f9;font-size:13px;">{{.EnrollmentDate}}</td>
        <td align="right" style="padding:8px;border-bottom:1px solid #f1f5f9;font-size:13px;">{{.DaysSince}}</td>
        <td style="padding:8px;border-bottom:1px solid #f1f5f9;font-size:13px;">
          {{if notComplete .CompletedDate}}<span style="display:inline-block;padding:3px 8px;border-radius:999px;background:#fee2e2;color:#991b1b;font-size:12px;">Not Complete</span>
          {{else}}<span style="display:inline-block;padding:3px 8px;border-radius:999px;background:#dcfce7;color:#166534;font-size:12px;">{{.CompletedDate}}</span>{{end}}
        </td>
      </tr>
    {{end}}
    </tbody>
  </table>
  {{end}}
</td></tr>
<tr><td style="padding:18px 20px;border-top:1px solid #e5e7eb;">
  <div style="font-size:16px;font-weight:bold;margin-bottom:6px;">Not completed (latest enrollment within last {{.YearsBack}} {{.YearsLabel}})</div>
  <div style="font-size:12px;color:#555;margin-bottom:12px;">Showing {{len .Incomplete}} row(s)</div>
  {{if not .Incomplete}}
    <div style="padding:12px;border:1px solid #e5e7eb;border-radius:6px;background:#f9fafb;color:#444;">No in-progress learners within the selected window.</div>
  {{else}}
  <table cellpadding="0" cellspacing="0" border="0" width="100%" style="border-collapse:collapse;border:1px solid #e5e7eb;">
    <thead><tr style="background:#f3f4f6;">
      <th align="left" style="padding:8px;font-size:12px;">Cohort</th>
      <th align="left" style="padding:8px;font-size:12px;">Last</th>
      <th align="left" style="padding:8px;font-size:12px;">First</th>
      <th align="left" style="padding:8px;font-size:12px;">Email</th>
      <th align="left" style="padding:8px;font-size:12px;">Latest Enroll</th>
      <th align="right" style="padding:8px;font-size:12px;">Days Since</th>
    </tr></thead>
    <tbody>
    {{range .Incomplete}}
      <tr>
        <td style="padding:8px;border-bottom:1px solid #f1f5f9;font-size:13px;">{{.CohortName}}</td>
        <td style="padding:8px;border-bottom:1px solid #f1f5f9;font-size:13px;">{{.LastName}}</td>
        <td style="padding:8px;border-bottom:1px solid #f1f5f9;font-size:13px;">{{.FirstName}}</td>
        <td style="padding:8px;border-bottom:1px solid #f1f5f9;font-size:13px;">{{.Email}}</td>
        <td style="padding:8px;border-bottom:1px solid #f1f5f9;font-size:13px;">{{.EnrollmentDate}}</td>
        <td align="right" style="padding:8px;border-bottom:1px solid #f1f5f9;font-size:13px;">{{if .DaysSince.Valid}}{{.DaysSince.Int64}}{{end}}</td>
      </tr>
    {{end}}
    </tbody>
  </table>
  {{end}}
  <div style="font-size:11px;color:#6b7280;margin-top:10px;">This excludes learners whose latest enrollment occurred more than {{.YearsBack}} {{.YearsLabel}} ago.</div>
</td></tr>
<tr><td style="padding:14px 20px;border-top:1px solid #e5e7eb;color:#555;font-size:12px;">
  Automated message for Course ID {{.CourseID}}.
</td></tr>
</table>
</td></tr></table>
</body></html>`))

// DigestHTML renders the digest email body.
func DigestHTML(recipientName string, courseID int64, sinceDays, yearsBack int, recent []report.RecentRow, incomplete []report.IncompleteRow, allCohorts bool, now time.Time) (string, error) {
	scope := "Your managed cohorts"
	if allCohorts {
		scope = "All cohorts (site context)"
	}
	data := DigestHTMLData{
		RecipientName: recipientName,
		CourseID:      courseID,
		SinceDays:     sinceDays,
		YearsBack:     yearsBack,
		YearsLabel:    pluralYears(yearsBack),
		Scope:         scope,
		Today:         HumanDate(now),
		Recent:        recent,
		Incomplete:    incomplete,
	}
	var b strings.Builder
	if err := digestTemplate.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render digest html: %w", err)
	}
	return b.String(), nil
}

// ReportEmailHTML is the HTML body of a one-off report email from the web
// page.
func ReportEmailHTML(reportLongName string, courseID int64, cohortLabel string, rowCount int) string {
	return fmt.Sprintf("<p><strong>Report:</strong> %s<br>"+
		"<strong>Course ID:</strong> %d<br>"+
		"<strong>Cohorts:</strong> %s<br>"+
		"<strong>Rows:</strong> %d</p><p>A CSV copy is attached.</p>",
		template.HTMLEscapeString(reportLongName), courseID,
		template.HTMLEscapeString(cohortLabel), rowCount)
}
