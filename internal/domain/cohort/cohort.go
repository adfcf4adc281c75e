package cohort

import "fmt"

// Viewer is the identity on whose behalf a report is scoped. It is supplied
// by the host platform's authentication layer and never persisted here.
type Viewer struct {
	UserID  int64
	IsAdmin bool
}

// Manager is a cohort manager: a user holding the cohort-manager role who is
// also a member of the cohort(s) they manage. Self-membership is the
// authorization signal; there is no separate ACL table.
type Manager struct {
	UserID    int64
	FirstName string
	LastName  string
	Email     string
	Cohorts   map[int64]string // cohort id -> cohort name
}

// FullName returns "First Last" for display and email headers.
func (m *Manager) FullName() string {
	if m.LastName == "" {
		return m.FirstName
	}
	return m.FirstName + " " + m.LastName
}

// Recipient is a minimal user record used as an email destination.
type Recipient struct {
	UserID    int64
	FirstName string
	LastName  string
	Email     string
}

func (r *Recipient) FullName() string {
	if r.LastName == "" {
		return r.FirstName
	}
	return r.FirstName + " " + r.LastName
}

// AllCohortsSummary is the audit-log cohort summary used for a site-context
// (all cohorts) digest instead of an enumerated list.
const AllCohortsSummary = "ALL_COHORTS (site-context)"

// Summarize renders a cohort map as "id: name, id: name" in the order of ids.
func Summarize(ids []int64, names map[int64]string) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%d: %s", id, names[id])
	}
	return out
}
