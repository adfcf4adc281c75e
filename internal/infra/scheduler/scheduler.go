package scheduler

import (
	"context"
	"time"

	"cohort_report_service/internal/app"
	"cohort_report_service/internal/infra/logger"

	"github.com/robfig/cron/v3"
)

// DigestScheduler runs the digest dispatcher on a cron spec, for deployments
// that want scheduled sends without an external cron entry.
type DigestScheduler struct {
	cronEngine *cron.Cron
	digests    *app.DigestService
	cronSpec   string
	params     app.RunParams
}

func NewDigestScheduler(digests *app.DigestService, cronSpec string, params app.RunParams) *DigestScheduler {
	return &DigestScheduler{
		cronEngine: cron.New(cron.WithLocation(time.Local)),
		digests:    digests,
		cronSpec:   cronSpec,
		params:     params,
	}
}

func (s *DigestScheduler) Start() error {
	_, err := s.cronEngine.AddFunc(s.cronSpec, func() {
		logger.Log.Infof("Cron job triggered: digest run for course %d", s.params.CourseID)
		// One run can walk every manager and send a mail per recipient, so
		// the timeout is generous.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		summary, err := s.digests.Run(ctx, s.params)
		if err != nil {
			logger.Log.Errorf("Scheduled digest run failed: %v", err)
			return
		}
		logger.Log.Infof("Scheduled digest run finished: sent=%d failed=%d skipped_no_cohorts=%d skipped_throttled=%d",
			summary.Sent, summary.Failed, summary.SkippedNoCohorts, summary.SkippedThrottled)
	})
	if err != nil {
		return err
	}

	s.cronEngine.Start()
	logger.Log.Infof("Digest scheduler started with spec %q", s.cronSpec)
	return nil
}

func (s *DigestScheduler) Stop() {
	logger.Log.Info("Stopping digest scheduler...")
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	logger.Log.Info("Digest scheduler gracefully stopped.")
}
