package app_test

import (
	"context"
	"testing"

	"cohort_report_service/internal/app"
	"cohort_report_service/internal/domain/cohort"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const managerRoleID = 10

func scopeFixture() *fakeCohortRepo {
	return &fakeCohortRepo{
		pairs: []cohort.ManagerCohort{
			{UserID: 101, FirstName: "Ann", LastName: "Adams", Email: "ann@x.org", CohortID: 1, CohortName: "Alpha"},
			{UserID: 101, FirstName: "Ann", LastName: "Adams", Email: "ann@x.org", CohortID: 2, CohortName: "Beta"},
			{UserID: 202, FirstName: "Bob", LastName: "Brown", Email: "bob@x.org", CohortID: 3, CohortName: "Gamma"},
		},
	}
}

func TestResolveAdminSeesUnionAndManagerIndex(t *testing.T) {
	svc := app.NewScopeService(scopeFixture(), managerRoleID)

	scope, err := svc.Resolve(context.Background(), cohort.Viewer{UserID: 1, IsAdmin: true}, 0, 0)
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2, 3}, scope.CohortIDs())
	require.Len(t, scope.Managers, 2)
	assert.Equal(t, map[int64]string{1: "Alpha", 2: "Beta"}, scope.Managers[101].Cohorts)
	assert.Equal(t, "Bob Brown", scope.Managers[202].FullName())
}

func TestResolveAdminNarrowsByManager(t *testing.T) {
	svc := app.NewScopeService(scopeFixture(), managerRoleID)

	scope, err := svc.Resolve(context.Background(), cohort.Viewer{UserID: 1, IsAdmin: true}, 202, 0)
	require.NoError(t, err)

	assert.Equal(t, []int64{3}, scope.CohortIDs())
	// The manager index stays intact for the dropdown.
	assert.Len(t, scope.Managers, 2)
}

func TestResolveAdminUnknownManagerKeepsFullSet(t *testing.T) {
	svc := app.NewScopeService(scopeFixture(), managerRoleID)

	scope, err := svc.Resolve(context.Background(), cohort.Viewer{UserID: 1, IsAdmin: true}, 999, 0)
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2, 3}, scope.CohortIDs())
}

func TestResolveNonAdminSeesOwnCohortsOnly(t *testing.T) {
	svc := app.NewScopeService(scopeFixture(), managerRoleID)

	scope, err := svc.Resolve(context.Background(), cohort.Viewer{UserID: 101}, 0, 0)
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2}, scope.CohortIDs())
	assert.Empty(t, scope.Managers)
}

func TestResolveNonAdminWithoutRoleGetsEmptyScope(t *testing.T) {
	svc := app.NewScopeService(scopeFixture(), managerRoleID)

	scope, err := svc.Resolve(context.Background(), cohort.Viewer{UserID: 555}, 0, 0)
	require.NoError(t, err)

	assert.Empty(t, scope.CohortIDs())
}

func TestResolveCohortNarrowing(t *testing.T) {
	svc := app.NewScopeService(scopeFixture(), managerRoleID)
	viewer := cohort.Viewer{UserID: 101}

	scope, err := svc.Resolve(context.Background(), viewer, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, scope.CohortIDs())

	// A cohort outside the visible set falls back to the full visible set
	// instead of failing or leaking the cohort.
	scope, err = svc.Resolve(context.Background(), viewer, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, scope.CohortIDs())
}

func TestScopeSummary(t *testing.T) {
	svc := app.NewScopeService(scopeFixture(), managerRoleID)

	scope, err := svc.Resolve(context.Background(), cohort.Viewer{UserID: 101}, 0, 0)
	require.NoError(t, err)

	assert.Equal(t, "1: Alpha, 2: Beta", scope.Summary())
}
