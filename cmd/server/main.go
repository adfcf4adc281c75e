package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cohort_report_service/internal/app"
	"cohort_report_service/internal/infra/config"
	idb "cohort_report_service/internal/infra/database"
	"cohort_report_service/internal/infra/httpapi"
	"cohort_report_service/internal/infra/logger"
	"cohort_report_service/internal/infra/mailer"
	"cohort_report_service/internal/infra/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("FATAL: Could not load application configuration: %v", err)
	}
	logger.Init(cfg.LogLevel, cfg.Environment)
	logger.Log.Infof("Cohort report server starting. Environment: %s", cfg.Environment)

	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatalf("FATAL: Could not connect to database: %v", err)
	}
	defer db.Close()
	logger.Log.Info("Database connection established successfully.")

	cohortRepo := idb.NewPostgresCohortRepository(db)
	reportRepo := idb.NewPostgresReportRepository(db)
	logRepo := idb.NewPostgresDigestLogRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	legacyTracker, err := logRepo.EnsureSchema(ctx)
	cancel()
	if err != nil {
		logger.Log.Fatalf("FATAL: Could not ensure digest log schema: %v", err)
	}
	if legacyTracker {
		logger.Log.Info("Legacy manager email tracker table detected; last-sent timestamps will be mirrored.")
	}

	scopeService := app.NewScopeService(cohortRepo, cfg.ManagerRoleID)
	reportService := app.NewReportService(reportRepo)
	smtpSender := mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)

	server := httpapi.NewServer(cfg, scopeService, reportService, cohortRepo, smtpSender)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var digestScheduler *scheduler.DigestScheduler
	if cfg.DigestCronSpec != "" {
		digestService := app.NewDigestService(cohortRepo, reportService, logRepo, smtpSender, legacyTracker)
		digestScheduler = scheduler.NewDigestScheduler(digestService, cfg.DigestCronSpec, app.RunParams{
			CourseID:          cfg.DigestCourseID,
			SinceDays:         cfg.DigestSinceDays,
			YearsBack:         cfg.DigestYearsBack,
			ManagerRoleID:     cfg.ManagerRoleID,
			SiteManagerRoleID: cfg.SiteManagerRoleID,
			NoReplyUserID:     cfg.NoReplyUserID,
			MinIntervalDays:   cfg.DigestMinIntervalDays,
			DryRun:            cfg.DigestDryRun,
		})
		if err := digestScheduler.Start(); err != nil {
			logger.Log.Fatalf("FATAL: Could not start digest scheduler: %v", err)
		}
	}

	go func() {
		logger.Log.Infof("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatalf("FATAL: HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down application...")
	if digestScheduler != nil {
		digestScheduler.Stop()
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorf("HTTP server shutdown error: %v", err)
	}
	logger.Log.Info("Application shut down gracefully.")
}
