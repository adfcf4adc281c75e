package httpapi

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"cohort_report_service/internal/app"
	"cohort_report_service/internal/domain/mail"
	"cohort_report_service/internal/infra/logger"
	"cohort_report_service/internal/render"
)

const (
	defaultSinceDays = 30
	defaultYearsBack = 1
)

// reportParams are the filter values shared by the page and the email action.
type reportParams struct {
	CourseID      int64
	Report        string // "recent" or "incomplete"
	CohortID      int64
	SinceDays     int
	YearsBack     int
	Query         string
	ManagerUserID int64
}

func parseReportParams(values url.Values) reportParams {
	p := reportParams{
		CourseID:      parseInt64(values.Get("courseid")),
		Report:        values.Get("report"),
		CohortID:      parseInt64(values.Get("cohortid")),
		SinceDays:     int(parseInt64(values.Get("since_days"))),
		YearsBack:     int(parseInt64(values.Get("years_back"))),
		Query:         values.Get("q"),
		ManagerUserID: parseInt64(values.Get("manager_userid")),
	}
	if p.Report != "incomplete" {
		p.Report = "recent"
	}
	if p.SinceDays < 1 {
		p.SinceDays = defaultSinceDays
	}
	if p.YearsBack < 1 {
		p.YearsBack = defaultYearsBack
	}
	return p
}

func parseInt64(s string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// ShowReport renders the interactive report page, or the setup form when no
// course is selected yet.
func (s *Server) ShowReport(w http.ResponseWriter, r *http.Request) {
	p := parseReportParams(r.URL.Query())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if p.CourseID <= 0 {
		if err := render.SetupPage(w); err != nil {
			logger.Log.Errorf("setup page render failed: %v", err)
		}
		return
	}

	viewer, ok := ViewerFrom(r.Context())
	if !ok {
		http.Error(w, "missing viewer identity", http.StatusUnauthorized)
		return
	}

	scope, err := s.Scope.Resolve(r.Context(), viewer, p.ManagerUserID, p.CohortID)
	if err != nil {
		logger.Log.Errorf("scope resolution failed for viewer %d: %v", viewer.UserID, err)
		http.Error(w, "could not resolve report scope", http.StatusInternalServerError)
		return
	}

	cohortIDs := scope.CohortIDs()
	recent, err := s.Reports.RecentEnrollments(r.Context(), p.CourseID, cohortIDs, p.SinceDays)
	if err != nil {
		logger.Log.Errorf("recent enrollments query failed: %v", err)
		http.Error(w, "report query failed", http.StatusInternalServerError)
		return
	}
	// The interactive page intentionally shows every in-progress learner, so
	// no enrollment-age window is applied here.
	incomplete, err := s.Reports.NotCompleted(r.Context(), p.CourseID, cohortIDs, p.YearsBack, false)
	if err != nil {
		logger.Log.Errorf("not completed query failed: %v", err)
		http.Error(w, "report query failed", http.StatusInternalServerError)
		return
	}

	data := render.PageData{
		CourseID:      p.CourseID,
		Report:        p.Report,
		CohortID:      p.CohortID,
		SinceDays:     p.SinceDays,
		YearsBack:     p.YearsBack,
		Query:         p.Query,
		ManagerUserID: p.ManagerUserID,
		IsAdmin:       viewer.IsAdmin,
		Cohorts:       cohortOptions(scope.Cohorts),
		Managers:      managerOptions(scope),
		Recent:        recent,
		Incomplete:    incomplete,
		EmailStatus:   r.URL.Query().Get("email_status"),
	}
	if me, err := s.CohortRepo.GetRecipient(r.Context(), viewer.UserID); err == nil {
		data.ViewerName = me.FullName()
		data.ViewerEmail = me.Email
	} else {
		data.ViewerName = fmt.Sprintf("user %d", viewer.UserID)
	}

	if err := render.ReportPage(w, data); err != nil {
		logger.Log.Errorf("report page render failed: %v", err)
	}
}

// EmailReport generates the selected report as CSV and mails it to the viewer,
// then redirects back to the page with a status banner.
func (s *Server) EmailReport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	p := parseReportParams(r.PostForm)
	if p.CourseID <= 0 {
		http.Error(w, "courseid is required", http.StatusBadRequest)
		return
	}

	viewer, ok := ViewerFrom(r.Context())
	if !ok {
		http.Error(w, "missing viewer identity", http.StatusUnauthorized)
		return
	}

	status := "success"
	if err := s.sendReportEmail(r, p); err != nil {
		logger.Log.Errorf("report email to viewer %d failed: %v", viewer.UserID, err)
		status = "fail"
	}
	http.Redirect(w, r, reportPageURL(p, status), http.StatusSeeOther)
}

func (s *Server) sendReportEmail(r *http.Request, p reportParams) error {
	ctx := r.Context()
	viewer, _ := ViewerFrom(ctx)

	to, err := s.CohortRepo.GetRecipient(ctx, viewer.UserID)
	if err != nil {
		return fmt.Errorf("could not resolve viewer %d: %w", viewer.UserID, err)
	}
	from, err := s.CohortRepo.GetRecipient(ctx, s.Config.NoReplyUserID)
	if err != nil {
		return fmt.Errorf("could not resolve sender user %d: %w", s.Config.NoReplyUserID, err)
	}

	scope, err := s.Scope.Resolve(ctx, viewer, p.ManagerUserID, p.CohortID)
	if err != nil {
		return fmt.Errorf("failed to resolve scope: %w", err)
	}
	cohortIDs := scope.CohortIDs()

	var (
		longName string
		csvBody  string
		rowCount int
	)
	switch p.Report {
	case "incomplete":
		rows, err := s.Reports.NotCompleted(ctx, p.CourseID, cohortIDs, p.YearsBack, false)
		if err != nil {
			return err
		}
		longName = render.IncompleteReportLongName
		csvBody = render.IncompleteCSV(rows)
		rowCount = len(rows)
	default:
		rows, err := s.Reports.RecentEnrollments(ctx, p.CourseID, cohortIDs, p.SinceDays)
		if err != nil {
			return err
		}
		longName = render.RecentReportLongName(p.SinceDays)
		csvBody = render.RecentCSV(rows)
		rowCount = len(rows)
	}

	now := time.Now()
	name := fmt.Sprintf("Report_%s_course%d_user%d_%s.csv",
		p.Report, p.CourseID, viewer.UserID, now.Format("20060102_150405"))
	path, err := writeTempCSV(name, csvBody)
	if err != nil {
		return err
	}
	defer os.Remove(path)

	cohortLabel := scope.Summary()
	if cohortLabel == "" {
		cohortLabel = "(none)"
	}
	return s.Mailer.Send(mail.Message{
		ToEmail:        to.Email,
		ToName:         to.FullName(),
		FromEmail:      from.Email,
		FromName:       from.FullName(),
		Subject:        render.ReportSubject(longName, now),
		PlainBody:      render.ReportEmailPlain(longName, p.CourseID, cohortLabel, rowCount),
		HTMLBody:       render.ReportEmailHTML(longName, p.CourseID, cohortLabel, rowCount),
		AttachmentPath: path,
		AttachmentName: name,
	})
}

func writeTempCSV(name, body string) (string, error) {
	dir := filepath.Join(os.TempDir(), "cohort_reports")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("could not create attachment dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("could not write attachment: %w", err)
	}
	return path, nil
}

func reportPageURL(p reportParams, emailStatus string) string {
	q := url.Values{}
	q.Set("courseid", strconv.FormatInt(p.CourseID, 10))
	q.Set("report", p.Report)
	if p.CohortID > 0 {
		q.Set("cohortid", strconv.FormatInt(p.CohortID, 10))
	}
	q.Set("since_days", strconv.Itoa(p.SinceDays))
	q.Set("years_back", strconv.Itoa(p.YearsBack))
	if p.ManagerUserID > 0 {
		q.Set("manager_userid", strconv.FormatInt(p.ManagerUserID, 10))
	}
	q.Set("email_status", emailStatus)
	return "/report/?" + q.Encode()
}

func cohortOptions(cohorts map[int64]string) []render.CohortOption {
	opts := make([]render.CohortOption, 0, len(cohorts))
	for id, name := range cohorts {
		opts = append(opts, render.CohortOption{ID: id, Name: name})
	}
	sort.Slice(opts, func(i, j int) bool {
		if opts[i].Name != opts[j].Name {
			return opts[i].Name < opts[j].Name
		}
		return opts[i].ID < opts[j].ID
	})
	return opts
}

func managerOptions(scope *app.Scope) []render.ManagerOption {
	opts := make([]render.ManagerOption, 0, len(scope.Managers))
	for _, m := range scope.Managers {
		opts = append(opts, render.ManagerOption{
			ID:    m.UserID,
			Label: fmt.Sprintf("%s (%s)", m.FullName(), m.Email),
		})
	}
	sort.Slice(opts, func(i, j int) bool { return opts[i].Label < opts[j].Label })
	return opts
}
