package app_test

import (
	"context"
	"fmt"
	"time"

	"cohort_report_service/internal/domain/cohort"
	"cohort_report_service/internal/domain/digest"
	"cohort_report_service/internal/domain/mail"
	"cohort_report_service/internal/domain/report"
	idb "cohort_report_service/internal/infra/database"
)

type fakeCohortRepo struct {
	pairs        []cohort.ManagerCohort
	allCohorts   map[int64]string
	siteManagers map[int64]bool
	recipients   map[int64]*cohort.Recipient

	listErr error
}

func (f *fakeCohortRepo) ListManagerCohorts(_ context.Context, _ int64) ([]cohort.ManagerCohort, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.pairs, nil
}

func (f *fakeCohortRepo) ListManagerCohortsFor(_ context.Context, userID, _ int64) ([]cohort.ManagerCohort, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []cohort.ManagerCohort
	for _, p := range f.pairs {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeCohortRepo) ListAllCohorts(_ context.Context) (map[int64]string, error) {
	return f.allCohorts, nil
}

func (f *fakeCohortRepo) IsSiteManagerOrAdmin(_ context.Context, userID, _ int64) (bool, error) {
	return f.siteManagers[userID], nil
}

func (f *fakeCohortRepo) GetRecipient(_ context.Context, userID int64) (*cohort.Recipient, error) {
	r, ok := f.recipients[userID]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", userID, idb.ErrRecipientNotFound)
	}
	return r, nil
}

type fakeReportRepo struct {
	recent     []report.RecentRow
	incomplete []report.IncompleteRow

	recentCalls  int
	lastSinceTS  int64
	lastCutoffTS int64
	lastCohorts  []int64
}

func (f *fakeReportRepo) RecentEnrollments(_ context.Context, _ int64, cohortIDs []int64, sinceTS int64) ([]report.RecentRow, error) {
	f.recentCalls++
	f.lastSinceTS = sinceTS
	f.lastCohorts = cohortIDs
	out := make([]report.RecentRow, len(f.recent))
	copy(out, f.recent)
	return out, nil
}

func (f *fakeReportRepo) NotCompleted(_ context.Context, _ int64, cohortIDs []int64, yearCutoffTS int64) ([]report.IncompleteRow, error) {
	f.lastCutoffTS = yearCutoffTS
	f.lastCohorts = cohortIDs
	out := make([]report.IncompleteRow, len(f.incomplete))
	copy(out, f.incomplete)
	return out, nil
}

type fakeDigestLog struct {
	entries   []*digest.LogEntry
	lastSends map[int64]time.Time // userID -> last successful sent_at
	touched   []int64
}

func (f *fakeDigestLog) EnsureSchema(_ context.Context) (bool, error) { return false, nil }

func (f *fakeDigestLog) Append(_ context.Context, entry *digest.LogEntry) error {
	entry.ID = int64(len(f.entries) + 1)
	entry.SentAt = time.Now()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeDigestLog) LastSuccessfulSend(_ context.Context, userID, _ int64) (time.Time, error) {
	t, ok := f.lastSends[userID]
	if !ok {
		return time.Time{}, idb.ErrNoSuccessfulSend
	}
	return t, nil
}

func (f *fakeDigestLog) TouchLegacyTracker(_ context.Context, userID int64) error {
	f.touched = append(f.touched, userID)
	return nil
}

type fakeMailer struct {
	sent    []mail.Message
	failFor map[string]error // recipient email -> forced error
}

func (f *fakeMailer) Send(msg mail.Message) error {
	if err := f.failFor[msg.ToEmail]; err != nil {
		return err
	}
	f.sent = append(f.sent, msg)
	return nil
}
