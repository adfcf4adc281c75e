package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"cohort_report_service/internal/domain/cohort"
	"cohort_report_service/internal/domain/digest"
	"cohort_report_service/internal/domain/mail"
	idb "cohort_report_service/internal/infra/database"
	"cohort_report_service/internal/infra/logger"
	"cohort_report_service/internal/render"
)

// Custom application-level errors for the digest dispatcher
var ErrCourseRequired = fmt.Errorf("a course id is required")
var ErrConflictingModes = fmt.Errorf("manager filter and site-context recipient are mutually exclusive")
var ErrNotSiteManager = fmt.Errorf("user is not a site admin and holds no manager role at system context")
var ErrSenderUnresolved = fmt.Errorf("could not resolve sender user")

// RunParams are the inputs of one digest run.
type RunParams struct {
	CourseID          int64
	SinceDays         int
	YearsBack         int
	ManagerUserID     int64 // per-manager mode: restrict to this manager (0 = all)
	SiteContextUserID int64 // site-context mode: single recipient, all cohorts (0 = off)
	ManagerRoleID     int64
	SiteManagerRoleID int64
	NoReplyUserID     int64
	MinIntervalDays   int // 0 = no throttle
	DryRun            bool
}

// RunSummary counts the outcomes of one digest run.
type RunSummary struct {
	Sent             int
	Failed           int
	SkippedNoCohorts int
	SkippedThrottled int
}

type DigestService struct {
	cohortRepo    cohort.Repository
	reports       *ReportService
	logRepo       digest.Repository
	mailer        mail.Client
	legacyTracker bool // mdl_manager_emails present, detected once at startup
	attachmentDir string
	now           func() time.Time
}

func NewDigestService(
	cr cohort.Repository,
	rs *ReportService,
	lr digest.Repository,
	mc mail.Client,
	legacyTrackerPresent bool,
) *DigestService {
	return &DigestService{
		cohortRepo:    cr,
		reports:       rs,
		logRepo:       lr,
		mailer:        mc,
		legacyTracker: legacyTrackerPresent,
		attachmentDir: filepath.Join(os.TempDir(), "cohort_digests"),
		now:           time.Now,
	}
}

// WithClock injects a fixed clock for tests and returns the service.
func (s *DigestService) WithClock(clock func() time.Time) *DigestService {
	s.now = clock
	return s
}

// WithAttachmentDir overrides where CSV attachments are written.
func (s *DigestService) WithAttachmentDir(dir string) *DigestService {
	s.attachmentDir = dir
	return s
}

// Run executes one digest dispatch. Recipients are processed sequentially; a
// delivery failure is logged and the loop continues, while configuration,
// permission and data-access failures abort the run.
//
// Known limitation: the throttle check is a read-then-write over the audit
// log with no locking, so two runs executing concurrently can both pass it
// and send twice within the interval. Single-process cron invocation is the
// expected deployment.
func (s *DigestService) Run(ctx context.Context, p RunParams) (*RunSummary, error) {
	if p.CourseID <= 0 {
		return nil, ErrCourseRequired
	}
	if p.ManagerUserID != 0 && p.SiteContextUserID != 0 {
		return nil, ErrConflictingModes
	}
	if p.SinceDays < 1 {
		p.SinceDays = 1
	}
	if p.YearsBack < 1 {
		p.YearsBack = 1
	}

	sender, err := s.cohortRepo.GetRecipient(ctx, p.NoReplyUserID)
	if err != nil {
		return nil, fmt.Errorf("%w %d: %w", ErrSenderUnresolved, p.NoReplyUserID, err)
	}

	summary := &RunSummary{}
	if p.SiteContextUserID != 0 {
		if err := s.runSiteContext(ctx, p, sender, summary); err != nil {
			return nil, err
		}
	} else {
		if err := s.runPerManager(ctx, p, sender, summary); err != nil {
			return nil, err
		}
	}

	logger.Log.Infof("Digest run complete: sent=%d failed=%d skipped_no_cohorts=%d skipped_throttled=%d",
		summary.Sent, summary.Failed, summary.SkippedNoCohorts, summary.SkippedThrottled)
	return summary, nil
}

// runSiteContext sends one combined all-cohorts digest to a designated user
// after validating their site-wide standing.
func (s *DigestService) runSiteContext(ctx context.Context, p RunParams, sender *cohort.Recipient, summary *RunSummary) error {
	allowed, err := s.cohortRepo.IsSiteManagerOrAdmin(ctx, p.SiteContextUserID, p.SiteManagerRoleID)
	if err != nil {
		return fmt.Errorf("failed to check site-context permission for user %d: %w", p.SiteContextUserID, err)
	}
	if !allowed {
		return fmt.Errorf("user %d: %w", p.SiteContextUserID, ErrNotSiteManager)
	}

	skip, daysAgo, err := s.throttled(ctx, p.SiteContextUserID, p.CourseID, p.MinIntervalDays)
	if err != nil {
		return err
	}
	if skip {
		logger.Log.Infof("Skipping user %d: last successful send was %d day(s) ago (min_interval=%d)",
			p.SiteContextUserID, daysAgo, p.MinIntervalDays)
		summary.SkippedThrottled++
		return nil
	}

	allCohorts, err := s.cohortRepo.ListAllCohorts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list all cohorts: %w", err)
	}
	if len(allCohorts) == 0 {
		logger.Log.Info("No cohorts in the system; compiling an empty digest")
	}

	to, err := s.cohortRepo.GetRecipient(ctx, p.SiteContextUserID)
	if err != nil {
		return fmt.Errorf("could not load site-context recipient %d: %w", p.SiteContextUserID, err)
	}

	return s.processRecipient(ctx, p, sender, to, sortedCohortIDs(allCohorts), cohort.AllCohortsSummary, true, summary)
}

// runPerManager sends one digest per cohort manager, each scoped to their own
// cohorts, optionally restricted to a single manager id.
func (s *DigestService) runPerManager(ctx context.Context, p RunParams, sender *cohort.Recipient, summary *RunSummary) error {
	pairs, err := s.cohortRepo.ListManagerCohorts(ctx, p.ManagerRoleID)
	if err != nil {
		return fmt.Errorf("failed to list cohort managers: %w", err)
	}

	managers := make(map[int64]*cohort.Manager)
	order := make([]int64, 0)
	for _, pair := range pairs {
		if p.ManagerUserID != 0 && pair.UserID != p.ManagerUserID {
			continue
		}
		m, ok := managers[pair.UserID]
		if !ok {
			m = &cohort.Manager{
				UserID:    pair.UserID,
				FirstName: pair.FirstName,
				LastName:  pair.LastName,
				Email:     pair.Email,
				Cohorts:   make(map[int64]string),
			}
			managers[pair.UserID] = m
			order = append(order, pair.UserID)
		}
		m.Cohorts[pair.CohortID] = pair.CohortName
	}

	if len(managers) == 0 {
		if p.ManagerUserID != 0 {
			logger.Log.Infof("No cohort managers found for userid=%d", p.ManagerUserID)
		} else {
			logger.Log.Info("No cohort managers found")
		}
		return nil
	}

	for _, uid := range order {
		m := managers[uid]

		if len(m.Cohorts) == 0 {
			logger.Log.Warnf("Manager %s has no cohorts; skipping", m.FullName())
			summary.SkippedNoCohorts++
			continue
		}

		skip, daysAgo, err := s.throttled(ctx, uid, p.CourseID, p.MinIntervalDays)
		if err != nil {
			return err
		}
		if skip {
			logger.Log.Infof("Skipping %s: last successful send was %d day(s) ago (min_interval=%d)",
				m.FullName(), daysAgo, p.MinIntervalDays)
			summary.SkippedThrottled++
			continue
		}

		to := &cohort.Recipient{UserID: m.UserID, FirstName: m.FirstName, LastName: m.LastName, Email: m.Email}
		ids := sortedCohortIDs(m.Cohorts)
		if err := s.processRecipient(ctx, p, sender, to, ids, cohort.Summarize(ids, m.Cohorts), false, summary); err != nil {
			return err
		}
	}
	return nil
}

// processRecipient builds, dispatches and logs one digest. Exactly one audit
// entry is appended whatever the dispatch outcome.
func (s *DigestService) processRecipient(ctx context.Context, p RunParams, sender, to *cohort.Recipient, cohortIDs []int64, cohortsSummary string, siteContext bool, summary *RunSummary) error {
	recent, err := s.reports.RecentEnrollments(ctx, p.CourseID, cohortIDs, p.SinceDays)
	if err != nil {
		return err
	}
	incomplete, err := s.reports.NotCompleted(ctx, p.CourseID, cohortIDs, p.YearsBack, true)
	if err != nil {
		return err
	}

	now := s.now()
	subject := render.DigestSubject(p.CourseID, now, siteContext)
	htmlBody, err := render.DigestHTML(to.FullName(), p.CourseID, p.SinceDays, p.YearsBack, recent, incomplete, siteContext, now)
	if err != nil {
		return err
	}
	plainBody := render.DigestPlain(to.FullName(), p.CourseID, p.SinceDays, p.YearsBack, len(recent), len(incomplete), siteContext, now)

	attachmentName := fmt.Sprintf("CohortDigest_course%d_manager%d_%s.csv", p.CourseID, to.UserID, now.Format("2006-01-02"))
	if siteContext {
		attachmentName = fmt.Sprintf("CohortDigest_ALLCOHORTS_course%d_user%d_%s.csv", p.CourseID, to.UserID, now.Format("2006-01-02"))
	}
	attachmentPath, err := s.writeAttachment(attachmentName, render.CombinedCSV(p.SinceDays, p.YearsBack, recent, incomplete))
	if err != nil {
		return err
	}

	status := digest.StatusSent
	sentOK := false
	var errText sql.NullString

	if p.DryRun {
		status = digest.StatusDryRun
		logger.Log.Infof("[DRYRUN] Would send digest to %s (%s): recents=%d, incomplete=%d",
			to.FullName(), to.Email, len(recent), len(incomplete))
	} else {
		sendErr := s.mailer.Send(mail.Message{
			ToEmail:        to.Email,
			ToName:         to.FullName(),
			FromEmail:      sender.Email,
			FromName:       sender.FullName(),
			Subject:        subject,
			PlainBody:      plainBody,
			HTMLBody:       htmlBody,
			AttachmentPath: attachmentPath,
			AttachmentName: attachmentName,
		})
		if sendErr != nil {
			status = digest.StatusFail
			errText = sql.NullString{String: sendErr.Error(), Valid: true}
			summary.Failed++
			logger.Log.Errorf("Failed to send digest to %s (%s): %v", to.FullName(), to.Email, sendErr)
		} else {
			sentOK = true
			summary.Sent++
			logger.Log.Infof("Sent digest to %s (%s): recents=%d, incomplete=%d",
				to.FullName(), to.Email, len(recent), len(incomplete))
			if s.legacyTracker {
				if trackErr := s.logRepo.TouchLegacyTracker(ctx, to.UserID); trackErr != nil {
					logger.Log.Warnf("Could not update legacy last-sent tracker for user %d: %v", to.UserID, trackErr)
				}
			}
		}
	}

	entry := &digest.LogEntry{
		ManagerUserID:   to.UserID,
		ManagerEmail:    to.Email,
		CourseID:        p.CourseID,
		SinceDays:       p.SinceDays,
		YearsBack:       p.YearsBack,
		RecentCount:     len(recent),
		IncompleteCount: len(incomplete),
		CohortsSummary:  cohortsSummary,
		Subject:         subject,
		SentOK:          sentOK,
		StatusLabel:     status,
		ErrorText:       errText,
	}
	if err := s.logRepo.Append(ctx, entry); err != nil {
		return err
	}
	return nil
}

// throttled reports whether the recipient had a successful send for this
// course within the minimum interval.
func (s *DigestService) throttled(ctx context.Context, userID, courseID int64, minIntervalDays int) (bool, int64, error) {
	if minIntervalDays <= 0 {
		return false, 0, nil
	}
	last, err := s.logRepo.LastSuccessfulSend(ctx, userID, courseID)
	if err != nil {
		if err == idb.ErrNoSuccessfulSend {
			return false, 0, nil
		}
		return false, 0, fmt.Errorf("throttle lookup failed for user %d: %w", userID, err)
	}
	daysSince := int64(s.now().Sub(last).Seconds()) / secondsPerDay
	if daysSince < int64(minIntervalDays) {
		return true, daysSince, nil
	}
	return false, daysSince, nil
}

func (s *DigestService) writeAttachment(name, content string) (string, error) {
	if err := os.MkdirAll(s.attachmentDir, 0o755); err != nil {
		return "", fmt.Errorf("could not create attachment directory: %w", err)
	}
	path := filepath.Join(s.attachmentDir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("could not write attachment %s: %w", name, err)
	}
	return path, nil
}

func sortedCohortIDs(cohorts map[int64]string) []int64 {
	ids := make([]int64, 0, len(cohorts))
	for id := range cohorts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
