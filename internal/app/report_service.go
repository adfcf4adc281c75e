package app

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"cohort_report_service/internal/domain/report"
)

const secondsPerDay = 86400

// secondsPerYear approximates a year as 365.25 days, which absorbs leap years
// without calendar arithmetic.
const secondsPerYear = 365.25 * secondsPerDay

type ReportService struct {
	reportRepo report.Repository
	now        func() time.Time
}

func NewReportService(rr report.Repository) *ReportService {
	return &ReportService{reportRepo: rr, now: time.Now}
}

// NewReportServiceWithClock injects a fixed clock for deterministic
// day-since arithmetic in tests.
func NewReportServiceWithClock(rr report.Repository, clock func() time.Time) *ReportService {
	return &ReportService{reportRepo: rr, now: clock}
}

// RecentEnrollments lists every enrollment in courseID created within the
// last sinceDays for users in the given cohorts, newest first. An empty
// cohort set returns an empty result without touching the repository.
func (s *ReportService) RecentEnrollments(ctx context.Context, courseID int64, cohortIDs []int64, sinceDays int) ([]report.RecentRow, error) {
	if len(cohortIDs) == 0 {
		return []report.RecentRow{}, nil
	}
	if sinceDays < 1 {
		sinceDays = 1
	}

	now := s.now()
	sinceTS := now.Unix() - int64(sinceDays)*secondsPerDay

	rows, err := s.reportRepo.RecentEnrollments(ctx, courseID, cohortIDs, sinceTS)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent enrollments: %w", err)
	}

	nowTS := now.Unix()
	for i := range rows {
		rows[i].DaysSince = (nowTS - rows[i].EnrolledAt) / secondsPerDay
	}
	return rows, nil
}

// NotCompleted lists, per (user, cohort), the latest enrollment in courseID
// for users without a completion record, newest first. When applyLookback is
// set, users whose latest enrollment predates the yearsBack window are
// excluded (digest behavior); unset lists everyone (interactive behavior).
func (s *ReportService) NotCompleted(ctx context.Context, courseID int64, cohortIDs []int64, yearsBack int, applyLookback bool) ([]report.IncompleteRow, error) {
	if len(cohortIDs) == 0 {
		return []report.IncompleteRow{}, nil
	}
	if yearsBack < 1 {
		yearsBack = 1
	}

	now := s.now()
	var yearCutoffTS int64
	if applyLookback {
		yearCutoffTS = now.Unix() - int64(math.Round(float64(yearsBack)*secondsPerYear))
	}

	rows, err := s.reportRepo.NotCompleted(ctx, courseID, cohortIDs, yearCutoffTS)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch not-completed learners: %w", err)
	}

	nowTS := now.Unix()
	for i := range rows {
		ts := rows[i].LatestEnrolledAt
		if ts > 0 {
			rows[i].EnrollmentDate = time.Unix(ts, 0).Format("2006-01-02 15:04:05")
			rows[i].DaysSince = sql.NullInt64{Int64: (nowTS - ts) / secondsPerDay, Valid: true}
		} else {
			rows[i].EnrollmentDate = report.UnknownDate
		}
	}
	return rows, nil
}

// YearCutoff exposes the lookback cutoff computation for callers that need
// the raw timestamp (e.g. for display).
func (s *ReportService) YearCutoff(yearsBack int) int64 {
	if yearsBack < 1 {
		yearsBack = 1
	}
	return s.now().Unix() - int64(math.Round(float64(yearsBack)*secondsPerYear))
}
