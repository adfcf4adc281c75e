package app_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"cohort_report_service/internal/app"
	"cohort_report_service/internal/domain/cohort"
	"cohort_report_service/internal/domain/digest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	noReplyID = 493
	courseID  = 17
)

func digestFixture() (*fakeCohortRepo, *fakeReportRepo, *fakeDigestLog, *fakeMailer) {
	cohorts := &fakeCohortRepo{
		pairs: []cohort.ManagerCohort{
			{UserID: 101, FirstName: "Ann", LastName: "Adams", Email: "ann@x.org", CohortID: 1, CohortName: "Alpha"},
			{UserID: 101, FirstName: "Ann", LastName: "Adams", Email: "ann@x.org", CohortID: 2, CohortName: "Beta"},
			{UserID: 202, FirstName: "Bob", LastName: "Brown", Email: "bob@x.org", CohortID: 3, CohortName: "Gamma"},
		},
		allCohorts:   map[int64]string{1: "Alpha", 2: "Beta", 3: "Gamma"},
		siteManagers: map[int64]bool{303: true},
		recipients: map[int64]*cohort.Recipient{
			noReplyID: {UserID: noReplyID, FirstName: "No", LastName: "Reply", Email: "noreply@x.org"},
			303:       {UserID: 303, FirstName: "Sue", LastName: "Site", Email: "sue@x.org"},
		},
	}
	return cohorts, &fakeReportRepo{}, &fakeDigestLog{}, &fakeMailer{}
}

func newDigestService(t *testing.T, cohorts *fakeCohortRepo, reports *fakeReportRepo, log *fakeDigestLog, mailer *fakeMailer) *app.DigestService {
	t.Helper()
	return app.NewDigestService(cohorts, app.NewReportServiceWithClock(reports, fixedClock), log, mailer, false).
		WithClock(fixedClock).
		WithAttachmentDir(t.TempDir())
}

func baseParams() app.RunParams {
	return app.RunParams{
		CourseID:          courseID,
		SinceDays:         40,
		YearsBack:         1,
		ManagerRoleID:     10,
		SiteManagerRoleID: 1,
		NoReplyUserID:     noReplyID,
	}
}

func TestRunRequiresCourse(t *testing.T) {
	cohorts, reports, log, mailer := digestFixture()
	svc := newDigestService(t, cohorts, reports, log, mailer)
	p := baseParams()
	p.CourseID = 0

	_, err := svc.Run(context.Background(), p)
	assert.ErrorIs(t, err, app.ErrCourseRequired)
}

func TestRunRejectsConflictingModes(t *testing.T) {
	cohorts, reports, log, mailer := digestFixture()
	svc := newDigestService(t, cohorts, reports, log, mailer)
	p := baseParams()
	p.ManagerUserID = 101
	p.SiteContextUserID = 303

	_, err := svc.Run(context.Background(), p)
	assert.ErrorIs(t, err, app.ErrConflictingModes)
}

func TestRunUnresolvableSender(t *testing.T) {
	cohorts, reports, log, mailer := digestFixture()
	svc := newDigestService(t, cohorts, reports, log, mailer)
	p := baseParams()
	p.NoReplyUserID = 999999

	_, err := svc.Run(context.Background(), p)
	assert.ErrorIs(t, err, app.ErrSenderUnresolved)
}

func TestRunPerManagerSendsOneDigestEach(t *testing.T) {
	cohorts, reports, log, mailer := digestFixture()
	svc := newDigestService(t, cohorts, reports, log, mailer)

	summary, err := svc.Run(context.Background(), baseParams())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Sent)
	assert.Zero(t, summary.Failed)
	require.Len(t, mailer.sent, 2)
	assert.Equal(t, "ann@x.org", mailer.sent[0].ToEmail)
	assert.Equal(t, "bob@x.org", mailer.sent[1].ToEmail)
	assert.Equal(t, "noreply@x.org", mailer.sent[0].FromEmail)

	require.Len(t, log.entries, 2)
	first := log.entries[0]
	assert.Equal(t, int64(101), first.ManagerUserID)
	assert.Equal(t, "1: Alpha, 2: Beta", first.CohortsSummary)
	assert.Equal(t, digest.StatusSent, first.StatusLabel)
	assert.True(t, first.SentOK)
	assert.Equal(t, "Cohort Digest – Course 17 – October 6, 2025", first.Subject)
}

func TestRunManagerFilter(t *testing.T) {
	cohorts, reports, log, mailer := digestFixture()
	svc := newDigestService(t, cohorts, reports, log, mailer)
	p := baseParams()
	p.ManagerUserID = 202

	summary, err := svc.Run(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Sent)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "bob@x.org", mailer.sent[0].ToEmail)
}

func TestRunDryRunSendsNothingButLogsEverything(t *testing.T) {
	cohorts, reports, log, mailer := digestFixture()
	svc := newDigestService(t, cohorts, reports, log, mailer)
	p := baseParams()
	p.DryRun = true

	summary, err := svc.Run(context.Background(), p)
	require.NoError(t, err)

	assert.Zero(t, summary.Sent)
	assert.Empty(t, mailer.sent)
	require.Len(t, log.entries, 2)
	for _, e := range log.entries {
		assert.Equal(t, digest.StatusDryRun, e.StatusLabel)
		assert.False(t, e.SentOK)
		assert.False(t, e.ErrorText.Valid)
	}
}

func TestRunDeliveryFailureContinues(t *testing.T) {
	cohorts, reports, log, mailer := digestFixture()
	mailer.failFor = map[string]error{"ann@x.org": errors.New("smtp dial failed")}
	svc := newDigestService(t, cohorts, reports, log, mailer)

	summary, err := svc.Run(context.Background(), baseParams())
	require.NoError(t, err, "a delivery failure must not abort the run")

	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, 1, summary.Failed)

	require.Len(t, log.entries, 2)
	failed := log.entries[0]
	assert.Equal(t, digest.StatusFail, failed.StatusLabel)
	assert.False(t, failed.SentOK)
	require.True(t, failed.ErrorText.Valid)
	assert.Contains(t, failed.ErrorText.String, "smtp dial failed")
	assert.Equal(t, digest.StatusSent, log.entries[1].StatusLabel)
}

func TestRunThrottleBoundary(t *testing.T) {
	tests := []struct {
		name        string
		lastSentAgo time.Duration
		wantSkipped int
		wantSent    int
	}{
		{"inside interval", 6 * 24 * time.Hour, 1, 1},
		{"exactly at interval", 7 * 24 * time.Hour, 0, 2},
		{"never sent before", 0, 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cohorts, reports, log, mailer := digestFixture()
			if tt.lastSentAgo > 0 {
				log.lastSends = map[int64]time.Time{101: fixedNow.Add(-tt.lastSentAgo)}
			}
			svc := newDigestService(t, cohorts, reports, log, mailer)
			p := baseParams()
			p.MinIntervalDays = 7

			summary, err := svc.Run(context.Background(), p)
			require.NoError(t, err)

			assert.Equal(t, tt.wantSkipped, summary.SkippedThrottled)
			assert.Equal(t, tt.wantSent, summary.Sent)
		})
	}
}

func TestRunThrottleDisabledByDefault(t *testing.T) {
	cohorts, reports, log, mailer := digestFixture()
	log.lastSends = map[int64]time.Time{101: fixedNow.Add(-time.Hour)}
	svc := newDigestService(t, cohorts, reports, log, mailer)

	summary, err := svc.Run(context.Background(), baseParams())
	require.NoError(t, err)

	assert.Zero(t, summary.SkippedThrottled)
	assert.Equal(t, 2, summary.Sent)
}

func TestRunSiteContext(t *testing.T) {
	cohorts, reports, log, mailer := digestFixture()
	svc := newDigestService(t, cohorts, reports, log, mailer)
	p := baseParams()
	p.SiteContextUserID = 303

	summary, err := svc.Run(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Sent)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "sue@x.org", mailer.sent[0].ToEmail)

	require.Len(t, log.entries, 1)
	assert.Equal(t, cohort.AllCohortsSummary, log.entries[0].CohortsSummary)
	assert.Equal(t, "Cohort Digest (All Cohorts) – Course 17 – October 6, 2025", log.entries[0].Subject)
}

func TestRunSiteContextRejectsUnprivilegedUser(t *testing.T) {
	cohorts, reports, log, mailer := digestFixture()
	cohorts.recipients[101] = &cohort.Recipient{UserID: 101, FirstName: "Ann", LastName: "Adams", Email: "ann@x.org"}
	svc := newDigestService(t, cohorts, reports, log, mailer)
	p := baseParams()
	p.SiteContextUserID = 101

	_, err := svc.Run(context.Background(), p)
	assert.ErrorIs(t, err, app.ErrNotSiteManager)
	assert.Empty(t, log.entries, "a rejected run must not write audit entries")
}

func TestRunAttachmentNames(t *testing.T) {
	cohorts, reports, log, mailer := digestFixture()
	svc := newDigestService(t, cohorts, reports, log, mailer)

	_, err := svc.Run(context.Background(), baseParams())
	require.NoError(t, err)
	require.Len(t, mailer.sent, 2)
	assert.Equal(t, fmt.Sprintf("CohortDigest_course%d_manager101_2025-10-06.csv", courseID), mailer.sent[0].AttachmentName)

	p := baseParams()
	p.SiteContextUserID = 303
	mailer.sent = nil
	_, err = svc.Run(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, fmt.Sprintf("CohortDigest_ALLCOHORTS_course%d_user303_2025-10-06.csv", courseID), mailer.sent[0].AttachmentName)
}
