package app_test

import (
	"context"
	"testing"
	"time"

	"cohort_report_service/internal/app"
	"cohort_report_service/internal/domain/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 10, 6, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func TestRecentEnrollmentsEmptyScopeSkipsRepository(t *testing.T) {
	repo := &fakeReportRepo{}
	svc := app.NewReportServiceWithClock(repo, fixedClock)

	rows, err := svc.RecentEnrollments(context.Background(), 17, nil, 40)
	require.NoError(t, err)

	assert.Empty(t, rows)
	assert.Zero(t, repo.recentCalls, "repository must not be queried for an empty cohort set")
}

func TestRecentEnrollmentsCutoffAndDaysSince(t *testing.T) {
	enrolled := fixedNow.Add(-36 * time.Hour) // 1.5 days ago, floors to 1
	repo := &fakeReportRepo{
		recent: []report.RecentRow{{UserID: 7, EnrolledAt: enrolled.Unix()}},
	}
	svc := app.NewReportServiceWithClock(repo, fixedClock)

	rows, err := svc.RecentEnrollments(context.Background(), 17, []int64{1, 2}, 40)
	require.NoError(t, err)

	assert.Equal(t, fixedNow.Unix()-40*86400, repo.lastSinceTS)
	assert.Equal(t, []int64{1, 2}, repo.lastCohorts)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].DaysSince)
}

func TestRecentEnrollmentsClampsSinceDays(t *testing.T) {
	repo := &fakeReportRepo{}
	svc := app.NewReportServiceWithClock(repo, fixedClock)

	_, err := svc.RecentEnrollments(context.Background(), 17, []int64{1}, 0)
	require.NoError(t, err)

	assert.Equal(t, fixedNow.Unix()-86400, repo.lastSinceTS)
}

func TestNotCompletedLookbackToggle(t *testing.T) {
	repo := &fakeReportRepo{}
	svc := app.NewReportServiceWithClock(repo, fixedClock)

	_, err := svc.NotCompleted(context.Background(), 17, []int64{1}, 1, true)
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Unix()-31557600, repo.lastCutoffTS) // 365.25 days

	_, err = svc.NotCompleted(context.Background(), 17, []int64{1}, 1, false)
	require.NoError(t, err)
	assert.Zero(t, repo.lastCutoffTS, "interactive variant must not apply a window")
}

func TestNotCompletedFormatsEnrollment(t *testing.T) {
	enrolled := fixedNow.Add(-10 * 24 * time.Hour)
	repo := &fakeReportRepo{
		incomplete: []report.IncompleteRow{
			{UserID: 1, LatestEnrolledAt: enrolled.Unix()},
			{UserID: 2, LatestEnrolledAt: 0},
		},
	}
	svc := app.NewReportServiceWithClock(repo, fixedClock)

	rows, err := svc.NotCompleted(context.Background(), 17, []int64{1}, 1, true)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.True(t, rows[0].DaysSince.Valid)
	assert.Equal(t, int64(10), rows[0].DaysSince.Int64)
	assert.NotEqual(t, report.UnknownDate, rows[0].EnrollmentDate)

	assert.False(t, rows[1].DaysSince.Valid)
	assert.Equal(t, report.UnknownDate, rows[1].EnrollmentDate)
}
