package httpapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cohort_report_service/internal/app"
	"cohort_report_service/internal/domain/cohort"
	"cohort_report_service/internal/domain/mail"
	"cohort_report_service/internal/domain/report"
	"cohort_report_service/internal/infra/config"
	"cohort_report_service/internal/infra/httpapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCohortRepo struct {
	pairs      []cohort.ManagerCohort
	recipients map[int64]*cohort.Recipient
}

func (s *stubCohortRepo) ListManagerCohorts(_ context.Context, _ int64) ([]cohort.ManagerCohort, error) {
	return s.pairs, nil
}

func (s *stubCohortRepo) ListManagerCohortsFor(_ context.Context, userID, _ int64) ([]cohort.ManagerCohort, error) {
	var out []cohort.ManagerCohort
	for _, p := range s.pairs {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubCohortRepo) ListAllCohorts(_ context.Context) (map[int64]string, error) {
	return nil, nil
}

func (s *stubCohortRepo) IsSiteManagerOrAdmin(_ context.Context, _, _ int64) (bool, error) {
	return false, nil
}

func (s *stubCohortRepo) GetRecipient(_ context.Context, userID int64) (*cohort.Recipient, error) {
	r, ok := s.recipients[userID]
	if !ok {
		return nil, context.Canceled
	}
	return r, nil
}

type stubReportRepo struct {
	recent     []report.RecentRow
	incomplete []report.IncompleteRow
}

func (s *stubReportRepo) RecentEnrollments(_ context.Context, _ int64, _ []int64, _ int64) ([]report.RecentRow, error) {
	return s.recent, nil
}

func (s *stubReportRepo) NotCompleted(_ context.Context, _ int64, _ []int64, _ int64) ([]report.IncompleteRow, error) {
	return s.incomplete, nil
}

type stubMailer struct {
	sent []mail.Message
	err  error
}

func (s *stubMailer) Send(msg mail.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func newTestServer(mailer *stubMailer) *httpapi.Server {
	cohortRepo := &stubCohortRepo{
		pairs: []cohort.ManagerCohort{
			{UserID: 101, FirstName: "Ann", LastName: "Adams", Email: "ann@x.org", CohortID: 1, CohortName: "Alpha"},
		},
		recipients: map[int64]*cohort.Recipient{
			101: {UserID: 101, FirstName: "Ann", LastName: "Adams", Email: "ann@x.org"},
			493: {UserID: 493, FirstName: "No", LastName: "Reply", Email: "noreply@x.org"},
		},
	}
	reportRepo := &stubReportRepo{
		recent: []report.RecentRow{
			{UserID: 7, FirstName: "Kim", LastName: "Lee", Email: "k@x.org", CohortID: 1, CohortName: "Alpha",
				EnrollmentDate: "2025-10-01 10:00:00", CompletedDate: report.NotComplete},
		},
	}
	cfg := &config.AppConfig{NoReplyUserID: 493, ManagerRoleID: 10}
	return httpapi.NewServer(
		cfg,
		app.NewScopeService(cohortRepo, cfg.ManagerRoleID),
		app.NewReportService(reportRepo),
		cohortRepo,
		mailer,
	)
}

func formBody(s string) *strings.Reader { return strings.NewReader(s) }

func TestReportRequiresViewerHeader(t *testing.T) {
	srv := newTestServer(&stubMailer{})
	req := httptest.NewRequest(http.MethodGet, "/report/?courseid=17", nil)
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReportShowsSetupPageWithoutCourse(t *testing.T) {
	srv := newTestServer(&stubMailer{})
	req := httptest.NewRequest(http.MethodGet, "/report/", nil)
	req.Header.Set(httpapi.HeaderViewerID, "101")
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Set up your report")
}

func TestReportPageRendersRows(t *testing.T) {
	srv := newTestServer(&stubMailer{})
	req := httptest.NewRequest(http.MethodGet, "/report/?courseid=17", nil)
	req.Header.Set(httpapi.HeaderViewerID, "101")
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Ann Adams")
	assert.Contains(t, body, "k@x.org")
	assert.Contains(t, body, "Alpha")
	assert.NotContains(t, body, "Admin</span>", "non-admin viewer must not see the admin badge")
}

func TestEmailReportSendsCSVAndRedirects(t *testing.T) {
	mailer := &stubMailer{}
	srv := newTestServer(mailer)
	req := httptest.NewRequest(http.MethodPost, "/report/email",
		formBody("courseid=17&report=recent&since_days=30&years_back=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(httpapi.HeaderViewerID, "101")
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "email_status=success")
	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, "ann@x.org", msg.ToEmail)
	assert.Equal(t, "noreply@x.org", msg.FromEmail)
	assert.Contains(t, msg.Subject, "Recent Enrollments (Last 30 Days)")
	assert.Contains(t, msg.AttachmentName, "Report_recent_course17_user101")
}

func TestEmailReportFailureRedirectsWithFailStatus(t *testing.T) {
	mailer := &stubMailer{err: context.DeadlineExceeded}
	srv := newTestServer(mailer)
	req := httptest.NewRequest(http.MethodPost, "/report/email",
		formBody("courseid=17&report=incomplete"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(httpapi.HeaderViewerID, "101")
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "email_status=fail")
}
