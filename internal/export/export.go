package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"weeklog/internal/calendar"
	"weeklog/internal/redmine"
)

var (
	ErrYearNotFound   = errors.New("year not found in calendar")
	ErrWeekNotFound   = errors.New("week not found in calendar")
	ErrNoAppointments = errors.New("no appointments to export")

	// ErrEntriesExist aborts an export whose window already holds remote
	// time entries; the accompanying Report enumerates them.
	ErrEntriesExist = errors.New("time entries already exist for the export window")
)

// TimeEntryStore is the remote store exports are reconciled against.
type TimeEntryStore interface {
	FindTimeEntries(ctx context.Context, userID string, from, to time.Time) ([]redmine.TimeEntry, error)
	CreateTimeEntry(ctx context.Context, entry redmine.NewTimeEntry) (*redmine.TimeEntry, error)
}

// Result is the outcome of exporting a single appointment.
type Result struct {
	Appointment calendar.Appointment
	EntryID     int   // assigned by the remote store on success
	IssueID     int   // linked issue, 0 when none
	Err         error // nil on success
}

// Report summarizes one export window.
type Report struct {
	Created   []Result
	Failed    []Result
	Conflicts []redmine.TimeEntry
}

// Exporter reconciles a day or week of the aggregated calendar against
// the remote store: a duplicate guard first, then one time entry per
// appointment, each created independently.
type Exporter struct {
	store      TimeEntryStore
	resolver   *Resolver
	activities []redmine.Activity
	userID     string
	logger     *slog.Logger
}

func NewExporter(store TimeEntryStore, resolver *Resolver, activities []redmine.Activity, userID string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Exporter{
		store:      store,
		resolver:   resolver,
		activities: activities,
		userID:     userID,
		logger:     logger,
	}
}

// ExportDay exports every appointment starting on the given calendar day.
func (e *Exporter) ExportDay(ctx context.Context, cal *calendar.Calendar, day time.Time) (*Report, error) {
	daily, ok := cal.AppointmentsOn(day)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrYearNotFound, day.Year())
	}
	if len(daily) == 0 {
		return nil, fmt.Errorf("%w: day %s", ErrNoAppointments, day.Format(redmine.DateFormat))
	}
	return e.exportWindow(ctx, daily, day, day)
}

// ExportWeek exports every appointment of the given week bucket. The
// duplicate guard covers the week's working days starting at its ISO
// Monday, the boundary the remote store filters by.
func (e *Exporter) ExportWeek(ctx context.Context, cal *calendar.Calendar, year, week int) (*Report, error) {
	wk, ok := cal.FindWeek(year, week)
	if !ok {
		return nil, fmt.Errorf("%w: week %d of %d", ErrWeekNotFound, week, year)
	}
	if len(wk.Appointments) == 0 {
		return nil, fmt.Errorf("%w: week %d of %d", ErrNoAppointments, week, year)
	}
	monday := calendar.FirstDateOfISOWeek(year, week)
	return e.exportWindow(ctx, wk.Appointments, monday, monday.AddDate(0, 0, 5))
}

func (e *Exporter) exportWindow(ctx context.Context, apps []calendar.Appointment, from, to time.Time) (*Report, error) {
	existing, err := e.store.FindTimeEntries(ctx, e.userID, from, to)
	if err != nil {
		// An inconclusive read must not lead to double-booking: treat it
		// like a failed guard and write nothing.
		return nil, fmt.Errorf("checking existing time entries: %w", err)
	}
	if len(existing) > 0 {
		for _, entry := range existing {
			e.logger.Error("existing time entry blocks export",
				"spent_on", entry.SpentOn, "activity", entry.Activity.Name,
				"comment", entry.Comments, "hours", entry.Hours)
		}
		return &Report{Conflicts: existing}, ErrEntriesExist
	}

	report := &Report{}
	for _, app := range apps {
		res := e.exportAppointment(ctx, app)
		if res.Err != nil {
			e.logger.Error("export of appointment failed",
				"subject", app.Subject, "start", app.Start, "error", res.Err)
			report.Failed = append(report.Failed, res)
			continue
		}
		e.logger.Info("appointment exported as time entry",
			"subject", app.Subject, "start", app.Start, "entry_id", res.EntryID)
		report.Created = append(report.Created, res)
	}
	return report, nil
}

func (e *Exporter) exportAppointment(ctx context.Context, app calendar.Appointment) Result {
	res := Result{Appointment: app}

	activity, ok := e.resolver.ResolveActivity(app)
	if !ok {
		activity = e.fallbackActivity()
		e.logger.Warn("no activity matches the appointment, using fallback",
			"subject", app.Subject, "category", app.Category, "activity_id", activity.ID)
	}

	entry := redmine.NewTimeEntry{
		SpentOn:    app.Start.Format(redmine.DateFormat),
		Hours:      (time.Duration(app.Duration) * time.Minute).Hours(),
		ActivityID: activity.ID,
		Comments:   app.Subject,
	}

	issueID, lookup := e.resolver.ResolveIssue(ctx, app.Subject)
	switch lookup {
	case IssueFound:
		entry.IssueID = issueID
		res.IssueID = issueID
	case IssueLookupFailed:
		e.logger.Warn("issue lookup failed, no issue will be linked", "subject", app.Subject)
	case IssueNotFound:
		e.logger.Warn("no corresponding issue found, no issue will be linked", "subject", app.Subject)
	}

	created, err := e.store.CreateTimeEntry(ctx, entry)
	if err != nil {
		res.Err = err
		return res
	}
	res.EntryID = created.ID
	return res
}

// fallbackActivity is the business default for unresolvable categories:
// the first configured activity, or the unassigned activity when none
// are configured at all.
func (e *Exporter) fallbackActivity() redmine.Activity {
	if len(e.activities) > 0 {
		return e.activities[0]
	}
	return redmine.Activity{ID: 0}
}
