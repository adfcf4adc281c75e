package app

import (
	"context"
	"fmt"
	"sort"

	"cohort_report_service/internal/domain/cohort"
)

// Scope is the set of cohorts a viewer may report on, plus (for admins) the
// manager index used for drill-down filtering.
type Scope struct {
	Cohorts  map[int64]string // cohort id -> name
	Managers map[int64]*cohort.Manager
}

// CohortIDs returns the visible cohort ids in ascending order.
func (s *Scope) CohortIDs() []int64 {
	ids := make([]int64, 0, len(s.Cohorts))
	for id := range s.Cohorts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Summary renders the scope as "id: name, id: name" for the audit log.
func (s *Scope) Summary() string {
	return cohort.Summarize(s.CohortIDs(), s.Cohorts)
}

type ScopeService struct {
	cohortRepo    cohort.Repository
	managerRoleID int64
}

func NewScopeService(cr cohort.Repository, managerRoleID int64) *ScopeService {
	return &ScopeService{
		cohortRepo:    cr,
		managerRoleID: managerRoleID,
	}
}

// Resolve computes the cohorts visible to the viewer. Admins see every
// cohort that has a manager (and get the full manager index); everyone else
// sees only the cohorts they manage themselves.
//
// requestedManagerID narrows an admin's scope to one manager's cohorts.
// requestedCohortID narrows to a single cohort; an unknown cohort id is
// silently ignored and the full visible set is used instead. That fallback is
// a UX choice, not a security control: the query layer only ever receives the
// resolved set.
func (s *ScopeService) Resolve(ctx context.Context, viewer cohort.Viewer, requestedManagerID, requestedCohortID int64) (*Scope, error) {
	scope := &Scope{
		Cohorts:  make(map[int64]string),
		Managers: make(map[int64]*cohort.Manager),
	}

	if viewer.IsAdmin {
		pairs, err := s.cohortRepo.ListManagerCohorts(ctx, s.managerRoleID)
		if err != nil {
			return nil, fmt.Errorf("failed to list manager cohorts: %w", err)
		}
		for _, p := range pairs {
			m, ok := scope.Managers[p.UserID]
			if !ok {
				m = &cohort.Manager{
					UserID:    p.UserID,
					FirstName: p.FirstName,
					LastName:  p.LastName,
					Email:     p.Email,
					Cohorts:   make(map[int64]string),
				}
				scope.Managers[p.UserID] = m
			}
			m.Cohorts[p.CohortID] = p.CohortName
			scope.Cohorts[p.CohortID] = p.CohortName
		}

		if requestedManagerID != 0 {
			if m, ok := scope.Managers[requestedManagerID]; ok {
				scope.Cohorts = make(map[int64]string, len(m.Cohorts))
				for id, name := range m.Cohorts {
					scope.Cohorts[id] = name
				}
			}
		}
	} else {
		pairs, err := s.cohortRepo.ListManagerCohortsFor(ctx, viewer.UserID, s.managerRoleID)
		if err != nil {
			return nil, fmt.Errorf("failed to list cohorts for viewer %d: %w", viewer.UserID, err)
		}
		for _, p := range pairs {
			scope.Cohorts[p.CohortID] = p.CohortName
		}
	}

	if requestedCohortID != 0 {
		if name, ok := scope.Cohorts[requestedCohortID]; ok {
			scope.Cohorts = map[int64]string{requestedCohortID: name}
		}
		// Unknown cohort id: fall through with the full visible set.
	}

	return scope, nil
}
