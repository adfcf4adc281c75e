// internal/infra/database/postgres_report_repository.go
package database

import (
	"context"
	"fmt"

	"cohort_report_service/internal/domain/report"

	"github.com/jmoiron/sqlx"
)

// ErrEmptyCohortScope is returned when a query is attempted with no cohorts.
// The service layer short-circuits this case; reaching the repository with an
// empty scope is a programming error, not an empty report.
var ErrEmptyCohortScope = fmt.Errorf("report query requires a non-empty cohort scope")

type PostgresReportRepository struct {
	db *sqlx.DB
}

func NewPostgresReportRepository(db *sqlx.DB) *PostgresReportRepository {
	return &PostgresReportRepository{db: db}
}

func (r *PostgresReportRepository) RecentEnrollments(ctx context.Context, courseID int64, cohortIDs []int64, sinceTS int64) ([]report.RecentRow, error) {
	if len(cohortIDs) == 0 {
		return nil, ErrEmptyCohortScope
	}

	query := `
      SELECT u.id AS userid, u.firstname, u.lastname, u.email,
             ch.id AS cohortid, ch.name AS cohortname,
             ue.timecreated AS enroll_ts,
             to_char(to_timestamp(ue.timecreated), 'YYYY-MM-DD HH24:MI:SS') AS enrollment_date,
             CASE WHEN cc.timecompleted IS NULL THEN 'Not Complete'
                  ELSE to_char(to_timestamp(cc.timecompleted), 'YYYY-MM-DD HH24:MI:SS') END AS completed_date
      FROM mdl_user u
      JOIN mdl_cohort_members cm  ON cm.userid = u.id
      JOIN mdl_cohort ch          ON ch.id = cm.cohortid
      JOIN mdl_user_enrolments ue ON ue.userid = u.id
      JOIN mdl_enrol e            ON e.id = ue.enrolid AND e.courseid = ?
      LEFT JOIN mdl_course_completions cc ON cc.userid = u.id AND cc.course = e.courseid
      WHERE cm.cohortid IN (?) AND ue.timecreated > ?
      ORDER BY ue.timecreated DESC`

	// sqlx.In expands the cohort list into bound placeholders; values are
	// never interpolated into the SQL text.
	query, args, err := sqlx.In(query, courseID, cohortIDs, sinceTS)
	if err != nil {
		return nil, fmt.Errorf("error binding recent enrollments query: %w", err)
	}
	query = r.db.Rebind(query)

	rows := make([]report.RecentRow, 0)
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("error querying recent enrollments: %w", err)
	}
	return rows, nil
}

func (r *PostgresReportRepository) NotCompleted(ctx context.Context, courseID int64, cohortIDs []int64, yearCutoffTS int64) ([]report.IncompleteRow, error) {
	if len(cohortIDs) == 0 {
		return nil, ErrEmptyCohortScope
	}

	query := `
      SELECT u.id AS userid, u.firstname, u.lastname, u.email,
             ch.id AS cohortid, ch.name AS cohortname,
             MAX(ue.timecreated) AS latest_enroll_ts
      FROM mdl_cohort_members cm
      JOIN mdl_cohort ch ON ch.id = cm.cohortid
      JOIN mdl_user u    ON u.id = cm.userid
      LEFT JOIN mdl_course_completions cc ON cc.userid = u.id AND cc.course = ?
      JOIN mdl_user_enrolments ue ON ue.userid = u.id
      JOIN mdl_enrol e ON e.id = ue.enrolid AND e.courseid = ?
      WHERE cm.cohortid IN (?) AND cc.timecompleted IS NULL
      GROUP BY u.id, u.firstname, u.lastname, u.email, ch.id, ch.name`

	args := []interface{}{courseID, courseID, cohortIDs}
	if yearCutoffTS > 0 {
		// Digest behavior: exclude learners whose latest enrollment predates
		// the lookback window. The interactive report passes 0 and lists all.
		query += `
      HAVING MAX(ue.timecreated) >= ?`
		args = append(args, yearCutoffTS)
	}
	query += `
      ORDER BY latest_enroll_ts DESC`

	query, boundArgs, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("error binding not-completed query: %w", err)
	}
	query = r.db.Rebind(query)

	rows := make([]report.IncompleteRow, 0)
	if err := r.db.SelectContext(ctx, &rows, query, boundArgs...); err != nil {
		return nil, fmt.Errorf("error querying not-completed learners: %w", err)
	}
	return rows, nil
}
