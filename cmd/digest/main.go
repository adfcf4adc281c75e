package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"cohort_report_service/internal/app"
	"cohort_report_service/internal/infra/config"
	idb "cohort_report_service/internal/infra/database"
	"cohort_report_service/internal/infra/logger"
	"cohort_report_service/internal/infra/mailer"

	"github.com/spf13/cobra"
)

// Exit codes. Delivery failures to individual recipients do not change the
// exit code; they are recorded in the audit log and counted in the summary.
const (
	exitOK            = 0
	exitConfigOrPerms = 1
	exitSenderMissing = 2
)

func main() {
	var (
		courseID        int64
		sinceDays       int
		yearsBack       int
		managerUserID   int64
		siteCtxUserID   int64
		managerRoleID   int64
		siteMgrRoleID   int64
		noReplyUserID   int64
		minIntervalDays int
		dryRun          bool
	)

	rootCmd := &cobra.Command{
		Use:           "digest",
		Short:         "Send cohort course digests to cohort managers",
		Long:          "Queries recent enrollments and not-completed learners per cohort manager and emails each manager a digest with a CSV attachment. Every attempted send is recorded in the audit log.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			logger.Init(cfg.LogLevel, cfg.Environment)

			// Flags override the environment defaults.
			if !cmd.Flags().Changed("roleid_manager") {
				managerRoleID = cfg.ManagerRoleID
			}
			if !cmd.Flags().Changed("roleid_site_manager") {
				siteMgrRoleID = cfg.SiteManagerRoleID
			}
			if !cmd.Flags().Changed("noreply_userid") {
				noReplyUserID = cfg.NoReplyUserID
			}

			db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("database connection failed: %w", err)
			}
			defer db.Close()

			cohortRepo := idb.NewPostgresCohortRepository(db)
			reportRepo := idb.NewPostgresReportRepository(db)
			logRepo := idb.NewPostgresDigestLogRepository(db)

			ctx := context.Background()
			schemaCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			legacyTracker, err := logRepo.EnsureSchema(schemaCtx)
			cancel()
			if err != nil {
				return fmt.Errorf("could not ensure digest log schema: %w", err)
			}

			digests := app.NewDigestService(
				cohortRepo,
				app.NewReportService(reportRepo),
				logRepo,
				mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
				legacyTracker,
			)

			summary, err := digests.Run(ctx, app.RunParams{
				CourseID:          courseID,
				SinceDays:         sinceDays,
				YearsBack:         yearsBack,
				ManagerUserID:     managerUserID,
				SiteContextUserID: siteCtxUserID,
				ManagerRoleID:     managerRoleID,
				SiteManagerRoleID: siteMgrRoleID,
				NoReplyUserID:     noReplyUserID,
				MinIntervalDays:   minIntervalDays,
				DryRun:            dryRun,
			})
			if err != nil {
				return err
			}

			logger.Log.Infof("Digest run finished: sent=%d failed=%d skipped_no_cohorts=%d skipped_throttled=%d",
				summary.Sent, summary.Failed, summary.SkippedNoCohorts, summary.SkippedThrottled)
			return nil
		},
	}

	rootCmd.Flags().Int64Var(&courseID, "courseid", 0, "course id to report on (required)")
	rootCmd.Flags().IntVar(&sinceDays, "since_days", 40, "recent-enrollments window in days")
	rootCmd.Flags().IntVar(&yearsBack, "years_back", 1, "not-completed lookback in years")
	rootCmd.Flags().Int64Var(&managerUserID, "manager_userid", 0, "send only to this cohort manager")
	rootCmd.Flags().Int64Var(&siteCtxUserID, "site_context_manager_userid", 0, "send one all-cohorts digest to this site-level manager")
	rootCmd.Flags().Int64Var(&managerRoleID, "roleid_manager", 10, "cohort manager role id")
	rootCmd.Flags().Int64Var(&siteMgrRoleID, "roleid_site_manager", 1, "site-context manager role id")
	rootCmd.Flags().Int64Var(&noReplyUserID, "noreply_userid", 493, "platform user the digests are sent from")
	rootCmd.Flags().IntVar(&minIntervalDays, "min_interval_days", 0, "skip recipients mailed successfully within this many days (0 disables)")
	rootCmd.Flags().BoolVar(&dryRun, "dryrun", false, "resolve and log everything but send no mail")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
	os.Exit(exitOK)
}

// exitCodeFor maps run failures onto the documented exit codes: 2 when the
// configured sender user cannot be resolved, 1 for everything else.
func exitCodeFor(err error) int {
	if errors.Is(err, app.ErrSenderUnresolved) {
		return exitSenderMissing
	}
	return exitConfigOrPerms
}
