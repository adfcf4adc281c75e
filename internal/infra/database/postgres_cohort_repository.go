// internal/infra/database/postgres_cohort_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"cohort_report_service/internal/domain/cohort"

	"github.com/jmoiron/sqlx"
)

// Custom errors
var ErrRecipientNotFound = fmt.Errorf("recipient user not found")

// System context level in the host platform's context table. A role assigned
// at this level applies site-wide rather than to a single cohort.
const systemContextLevel = 10

type PostgresCohortRepository struct {
	db *sqlx.DB
}

func NewPostgresCohortRepository(db *sqlx.DB) *PostgresCohortRepository {
	return &PostgresCohortRepository{db: db}
}

const managerCohortColumns = `u.id AS userid, u.firstname, u.lastname, u.email,
             ch.id AS cohortid, ch.name AS cohortname`

// managerCohortJoin pairs each holder of the manager role with the cohorts
// they are a member of. The role assignment must sit either at system level
// (contextlevel 10) or at the cohort's own context.
const managerCohortJoin = `
      FROM mdl_user u
      JOIN mdl_role_assignments ra ON ra.userid = u.id AND ra.roleid = $1
      JOIN mdl_cohort_members cm   ON cm.userid = u.id
      JOIN mdl_cohort ch           ON ch.id = cm.cohortid
      JOIN mdl_context ctx ON ctx.id = ra.contextid
           AND (ctx.contextlevel = 10 OR ctx.id = ch.contextid)`

func (r *PostgresCohortRepository) ListManagerCohorts(ctx context.Context, roleID int64) ([]cohort.ManagerCohort, error) {
	query := `SELECT DISTINCT ` + managerCohortColumns + managerCohortJoin + `
      ORDER BY u.lastname, u.firstname, ch.name`
	rows, err := r.db.QueryContext(ctx, query, roleID)
	if err != nil {
		return nil, fmt.Errorf("error querying manager cohorts: %w", err)
	}
	defer rows.Close()
	return scanManagerCohorts(rows)
}

func (r *PostgresCohortRepository) ListManagerCohortsFor(ctx context.Context, userID, roleID int64) ([]cohort.ManagerCohort, error) {
	query := `SELECT DISTINCT ` + managerCohortColumns + managerCohortJoin + `
      WHERE u.id = $2
      ORDER BY ch.name`
	rows, err := r.db.QueryContext(ctx, query, roleID, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying manager cohorts for user %d: %w", userID, err)
	}
	defer rows.Close()
	return scanManagerCohorts(rows)
}

func scanManagerCohorts(rows *sql.Rows) ([]cohort.ManagerCohort, error) {
	pairs := make([]cohort.ManagerCohort, 0)
	for rows.Next() {
		var mc cohort.ManagerCohort
		if err := rows.Scan(&mc.UserID, &mc.FirstName, &mc.LastName, &mc.Email, &mc.CohortID, &mc.CohortName); err != nil {
			return nil, fmt.Errorf("error scanning manager cohort row: %w", err)
		}
		pairs = append(pairs, mc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating manager cohort rows: %w", err)
	}
	return pairs, nil
}

func (r *PostgresCohortRepository) ListAllCohorts(ctx context.Context) (map[int64]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM mdl_cohort ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("error querying all cohorts: %w", err)
	}
	defer rows.Close()

	cohorts := make(map[int64]string)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("error scanning cohort row: %w", err)
		}
		cohorts[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cohort rows: %w", err)
	}
	return cohorts, nil
}

// IsSiteManagerOrAdmin checks the host platform's site-administrator list
// (the comma-separated "siteadmins" config value) first, then falls back to a
// manager role assignment at system context.
func (r *PostgresCohortRepository) IsSiteManagerOrAdmin(ctx context.Context, userID, siteRoleID int64) (bool, error) {
	var siteAdmins string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM mdl_config WHERE name = 'siteadmins'`).Scan(&siteAdmins)
	if err != nil && err != sql.ErrNoRows {
		return false, fmt.Errorf("error reading siteadmins config: %w", err)
	}
	for _, part := range strings.Split(siteAdmins, ",") {
		id, convErr := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if convErr == nil && id == userID {
			return true, nil
		}
	}

	var holdsRole bool
	err = r.db.QueryRowContext(ctx, `
      SELECT EXISTS (
        SELECT 1
        FROM mdl_role_assignments ra
        JOIN mdl_context ctx ON ctx.id = ra.contextid AND ctx.contextlevel = $1
        WHERE ra.userid = $2 AND ra.roleid = $3
      )`, systemContextLevel, userID, siteRoleID).Scan(&holdsRole)
	if err != nil {
		return false, fmt.Errorf("error checking site manager role: %w", err)
	}
	return holdsRole, nil
}

func (r *PostgresCohortRepository) GetRecipient(ctx context.Context, userID int64) (*cohort.Recipient, error) {
	rec := &cohort.Recipient{}
	err := r.db.QueryRowContext(ctx, `
      SELECT id, firstname, lastname, email
      FROM mdl_user
      WHERE id = $1 AND deleted = 0`, userID).
		Scan(&rec.UserID, &rec.FirstName, &rec.LastName, &rec.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRecipientNotFound
		}
		return nil, fmt.Errorf("error getting recipient user %d: %w", userID, err)
	}
	return rec, nil
}
