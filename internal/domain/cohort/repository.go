package cohort

import "context"

// ManagerCohort is one (manager, cohort) pair from the role/membership join.
type ManagerCohort struct {
	UserID     int64
	FirstName  string
	LastName   string
	Email      string
	CohortID   int64
	CohortName string
}

// Repository defines the read-only access this service needs into the host
// platform's user/role/cohort tables.
type Repository interface {
	// ListManagerCohorts returns every (manager, cohort) pair where the user
	// holds roleID and is a member of the cohort, ordered by manager name
	// then cohort name.
	ListManagerCohorts(ctx context.Context, roleID int64) ([]ManagerCohort, error)
	// ListManagerCohortsFor is the same join restricted to a single user.
	ListManagerCohortsFor(ctx context.Context, userID, roleID int64) ([]ManagerCohort, error)
	// ListAllCohorts returns every cohort in the system, ordered by name.
	ListAllCohorts(ctx context.Context) (map[int64]string, error)
	// IsSiteManagerOrAdmin reports whether the user is a site administrator
	// or holds siteRoleID at the system context.
	IsSiteManagerOrAdmin(ctx context.Context, userID, siteRoleID int64) (bool, error)
	// GetRecipient loads the user record used as an email destination.
	GetRecipient(ctx context.Context, userID int64) (*Recipient, error)
}
