package export

import (
	"context"
	"regexp"
	"strconv"

	"weeklog/internal/calendar"
	"weeklog/internal/redmine"
)

// Mapping redirects a calendar category to a time-entry activity by id.
type Mapping struct {
	Category   string
	ActivityID int
}

// IssueFinder is the remote issue store consulted for work-item links.
type IssueFinder interface {
	FindIssue(ctx context.Context, id int, closed bool) (*redmine.Issue, error)
}

// IssueLookup classifies the outcome of an issue resolution. A failed
// lookup is distinct from a clean miss so callers can log it, but neither
// outcome ever blocks the export of the time entry itself.
type IssueLookup int

const (
	IssueFound IssueLookup = iota
	IssueNotFound
	IssueLookupFailed
)

var issueRef = regexp.MustCompile(`#([0-9]+)`)

// Resolver maps appointments to activities and optionally to issues.
type Resolver struct {
	activities []redmine.Activity
	mappings   []Mapping
	issues     IssueFinder
}

func NewResolver(activities []redmine.Activity, mappings []Mapping, issues IssueFinder) *Resolver {
	return &Resolver{
		activities: activities,
		mappings:   mappings,
		issues:     issues,
	}
}

// ResolveActivity finds the activity for an appointment's category: first
// an activity named exactly like the category, then the custom mapping
// for that category. A mapping whose target id matches no known activity
// resolves nothing — the fallback to a default activity is the exporter's
// business decision, not the resolver's.
func (r *Resolver) ResolveActivity(app calendar.Appointment) (redmine.Activity, bool) {
	for _, a := range r.activities {
		if a.Name == app.Category {
			return a, true
		}
	}
	for _, m := range r.mappings {
		if m.Category == app.Category {
			for _, a := range r.activities {
				if a.ID == m.ActivityID {
					return a, true
				}
			}
			break
		}
	}
	return redmine.Activity{}, false
}

// ResolveIssue scans the subject for a "#123" reference and looks the
// issue up remotely, first among open issues, then closed ones. Remote
// errors degrade to IssueLookupFailed: a missing or unreachable issue
// only forgoes the link.
func (r *Resolver) ResolveIssue(ctx context.Context, subject string) (int, IssueLookup) {
	m := issueRef.FindStringSubmatch(subject)
	if m == nil {
		return 0, IssueNotFound
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, IssueNotFound
	}

	failed := false
	for _, closed := range []bool{false, true} {
		issue, err := r.issues.FindIssue(ctx, id, closed)
		if err != nil {
			failed = true
			continue
		}
		if issue != nil {
			return issue.ID, IssueFound
		}
	}
	if failed {
		return 0, IssueLookupFailed
	}
	return 0, IssueNotFound
}
