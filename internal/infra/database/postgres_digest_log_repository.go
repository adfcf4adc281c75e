// internal/infra/database/postgres_digest_log_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cohort_report_service/internal/domain/digest"

	"github.com/jmoiron/sqlx"
)

// Custom errors specific to the digest log repository
var ErrNoSuccessfulSend = fmt.Errorf("no successful send recorded")

type PostgresDigestLogRepository struct {
	db *sqlx.DB
}

func NewPostgresDigestLogRepository(db *sqlx.DB) *PostgresDigestLogRepository {
	return &PostgresDigestLogRepository{db: db}
}

// EnsureSchema creates the audit table and indexes if absent and probes once
// for the optional legacy tracker table. Runs at startup so per-run code
// never has to guess at the schema.
func (r *PostgresDigestLogRepository) EnsureSchema(ctx context.Context) (bool, error) {
	_, err := r.db.ExecContext(ctx, `
      CREATE TABLE IF NOT EXISTS mdl_cohort_digest_log (
        id BIGSERIAL PRIMARY KEY,
        manager_userid BIGINT NOT NULL,
        manager_email VARCHAR(255) NOT NULL,
        courseid BIGINT NOT NULL,
        since_days INT NOT NULL,
        years_back INT NOT NULL,
        recent_count INT NOT NULL,
        incomplete_count INT NOT NULL,
        cohorts_csv TEXT NOT NULL,
        subject VARCHAR(255) NOT NULL,
        sent_ok BOOLEAN NOT NULL DEFAULT FALSE,
        status_label VARCHAR(32) NOT NULL,
        error_text TEXT NULL,
        sent_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
      )`)
	if err != nil {
		return false, fmt.Errorf("error creating digest log table: %w", err)
	}

	for name, columns := range map[string]string{
		"idx_cohort_digest_log_manager": "(manager_userid, sent_at)",
		"idx_cohort_digest_log_course":  "(courseid, sent_at)",
	} {
		if _, err := r.db.ExecContext(ctx,
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON mdl_cohort_digest_log %s`, name, columns)); err != nil {
			return false, fmt.Errorf("error creating digest log index %s: %w", name, err)
		}
	}

	var legacyPresent bool
	err = r.db.QueryRowContext(ctx, `
      SELECT EXISTS (
        SELECT 1 FROM information_schema.tables
        WHERE table_name = 'mdl_manager_emails'
      )`).Scan(&legacyPresent)
	if err != nil {
		return false, fmt.Errorf("error probing legacy tracker table: %w", err)
	}
	return legacyPresent, nil
}

func (r *PostgresDigestLogRepository) Append(ctx context.Context, entry *digest.LogEntry) error {
	query := `INSERT INTO mdl_cohort_digest_log
               (manager_userid, manager_email, courseid, since_days, years_back,
                recent_count, incomplete_count, cohorts_csv, subject, sent_ok, status_label, error_text)
             VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
             RETURNING id, sent_at`
	err := r.db.QueryRowContext(ctx, query,
		entry.ManagerUserID, entry.ManagerEmail, entry.CourseID,
		entry.SinceDays, entry.YearsBack, entry.RecentCount, entry.IncompleteCount,
		entry.CohortsSummary, entry.Subject, entry.SentOK, entry.StatusLabel, entry.ErrorText,
	).Scan(&entry.ID, &entry.SentAt)
	if err != nil {
		return fmt.Errorf("error appending digest log entry: %w", err)
	}
	return nil
}

func (r *PostgresDigestLogRepository) LastSuccessfulSend(ctx context.Context, userID, courseID int64) (time.Time, error) {
	var last sql.NullTime
	err := r.db.QueryRowContext(ctx, `
      SELECT MAX(sent_at) FROM mdl_cohort_digest_log
      WHERE manager_userid = $1 AND courseid = $2 AND sent_ok = TRUE`,
		userID, courseID).Scan(&last)
	if err != nil {
		return time.Time{}, fmt.Errorf("error querying last successful send: %w", err)
	}
	if !last.Valid {
		return time.Time{}, ErrNoSuccessfulSend
	}
	return last.Time, nil
}

func (r *PostgresDigestLogRepository) TouchLegacyTracker(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `
      INSERT INTO mdl_manager_emails (userid, recent_lastsentdate, all_lastsentdate)
      VALUES ($1, NOW(), NOW())
      ON CONFLICT (userid) DO UPDATE
        SET recent_lastsentdate = NOW(), all_lastsentdate = NOW()`, userID)
	if err != nil {
		return fmt.Errorf("error updating legacy manager emails tracker: %w", err)
	}
	return nil
}
