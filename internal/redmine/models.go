package redmine

// DateFormat is the date layout Redmine uses for spent_on values.
const DateFormat = "2006-01-02"

// Named is Redmine's id/name reference pair used inside other resources.
type Named struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Activity is a time-entry activity the server knows about.
type Activity struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// TimeEntry is a time entry as returned by the server.
type TimeEntry struct {
	ID       int     `json:"id"`
	Project  Named   `json:"project"`
	User     Named   `json:"user"`
	Activity Named   `json:"activity"`
	Issue    *Named  `json:"issue,omitempty"`
	Hours    float64 `json:"hours"`
	Comments string  `json:"comments"`
	SpentOn  string  `json:"spent_on"`
}

// NewTimeEntry is the creation payload for a time entry.
type NewTimeEntry struct {
	SpentOn    string  `json:"spent_on"`
	Hours      float64 `json:"hours"`
	ActivityID int     `json:"activity_id"`
	Comments   string  `json:"comments"`
	IssueID    int     `json:"issue_id,omitempty"`
}

// Issue is the subset of a Redmine issue the exporter cares about.
type Issue struct {
	ID      int    `json:"id"`
	Subject string `json:"subject"`
	Status  Named  `json:"status"`
}
