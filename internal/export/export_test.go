package export

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weeklog/internal/calendar"
	"weeklog/internal/redmine"
)

type fakeStore struct {
	existing  []redmine.TimeEntry
	findErr   error
	failOn    map[string]error // comment → creation error
	created   []redmine.NewTimeEntry
	nextID    int
	findFrom  time.Time
	findTo    time.Time
	findCalls int
}

func (f *fakeStore) FindTimeEntries(ctx context.Context, userID string, from, to time.Time) ([]redmine.TimeEntry, error) {
	f.findCalls++
	f.findFrom, f.findTo = from, to
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.existing, nil
}

func (f *fakeStore) CreateTimeEntry(ctx context.Context, entry redmine.NewTimeEntry) (*redmine.TimeEntry, error) {
	if err, ok := f.failOn[entry.Comments]; ok {
		return nil, err
	}
	f.nextID++
	f.created = append(f.created, entry)
	return &redmine.TimeEntry{
		ID:       f.nextID + 100,
		Hours:    entry.Hours,
		Comments: entry.Comments,
		SpentOn:  entry.SpentOn,
	}, nil
}

func weekCalendar(apps ...calendar.Appointment) *calendar.Calendar {
	var total time.Duration
	for _, a := range apps {
		total += time.Duration(a.Duration) * time.Minute
	}
	return &calendar.Calendar{Years: []*calendar.Year{{
		Year:      2024,
		TimeSpent: total,
		Weeks:     []*calendar.Week{{Number: 10, TimeSpent: total, Appointments: apps}},
	}}}
}

func weekAppointment(subject, category string, day, hour, minutes int) calendar.Appointment {
	start := time.Date(2024, time.March, day, hour, 0, 0, 0, time.UTC)
	return calendar.Appointment{
		Subject:  subject,
		Category: category,
		Start:    start,
		End:      start.Add(time.Duration(minutes) * time.Minute),
		Duration: minutes,
	}
}

func newTestExporter(store *fakeStore, issues IssueFinder, activities []redmine.Activity) *Exporter {
	if issues == nil {
		issues = &fakeIssues{}
	}
	return NewExporter(store, NewResolver(activities, nil, issues), activities, "17", nil)
}

func TestExportWeek(t *testing.T) {
	activities := []redmine.Activity{{ID: 5, Name: "Dev"}}

	t.Run("creates one entry per appointment", func(t *testing.T) {
		store := &fakeStore{}
		exp := newTestExporter(store, nil, activities)
		cal := weekCalendar(
			weekAppointment("Sync", "Dev", 4, 9, 90),
			weekAppointment("Review", "Dev", 5, 14, 30),
		)

		report, err := exp.ExportWeek(context.Background(), cal, 2024, 10)
		require.NoError(t, err)
		assert.Len(t, report.Created, 2)
		assert.Empty(t, report.Failed)
		require.Len(t, store.created, 2)
		assert.Equal(t, "2024-03-04", store.created[0].SpentOn)
		assert.InDelta(t, 1.5, store.created[0].Hours, 1e-9)
		assert.Equal(t, 5, store.created[0].ActivityID)
		assert.NotZero(t, report.Created[0].EntryID)
	})

	t.Run("guard window spans the iso monday plus five days", func(t *testing.T) {
		store := &fakeStore{}
		exp := newTestExporter(store, nil, activities)
		cal := weekCalendar(weekAppointment("Sync", "Dev", 6, 9, 60))

		_, err := exp.ExportWeek(context.Background(), cal, 2024, 10)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC), store.findFrom)
		assert.Equal(t, time.Date(2024, time.March, 9, 0, 0, 0, 0, time.UTC), store.findTo)
	})

	t.Run("existing entries abort the whole window", func(t *testing.T) {
		store := &fakeStore{existing: []redmine.TimeEntry{
			{ID: 7, SpentOn: "2024-03-04", Activity: redmine.Named{Name: "Dev"}, Comments: "Old entry", Hours: 2},
		}}
		exp := newTestExporter(store, nil, activities)
		cal := weekCalendar(weekAppointment("Sync", "Dev", 4, 9, 60))

		report, err := exp.ExportWeek(context.Background(), cal, 2024, 10)
		assert.ErrorIs(t, err, ErrEntriesExist)
		require.NotNil(t, report)
		require.Len(t, report.Conflicts, 1)
		assert.Equal(t, "Old entry", report.Conflicts[0].Comments)
		assert.Empty(t, store.created, "no entry may be created on conflict")
	})

	t.Run("guard read failure aborts without writes", func(t *testing.T) {
		store := &fakeStore{findErr: errors.New("connection reset")}
		exp := newTestExporter(store, nil, activities)
		cal := weekCalendar(weekAppointment("Sync", "Dev", 4, 9, 60))

		report, err := exp.ExportWeek(context.Background(), cal, 2024, 10)
		assert.Nil(t, report)
		assert.ErrorContains(t, err, "checking existing time entries")
		assert.Empty(t, store.created)
	})

	t.Run("a failing appointment does not abort its siblings", func(t *testing.T) {
		store := &fakeStore{failOn: map[string]error{"Review": errors.New("422 validation failed")}}
		exp := newTestExporter(store, nil, activities)
		cal := weekCalendar(
			weekAppointment("Sync", "Dev", 4, 9, 60),
			weekAppointment("Review", "Dev", 5, 10, 30),
			weekAppointment("Retro", "Dev", 6, 15, 45),
		)

		report, err := exp.ExportWeek(context.Background(), cal, 2024, 10)
		require.NoError(t, err)
		require.Len(t, report.Created, 2)
		assert.Equal(t, "Sync", report.Created[0].Appointment.Subject)
		assert.Equal(t, "Retro", report.Created[1].Appointment.Subject)
		assert.NotZero(t, report.Created[0].EntryID)
		assert.NotZero(t, report.Created[1].EntryID)
		require.Len(t, report.Failed, 1)
		assert.Equal(t, "Review", report.Failed[0].Appointment.Subject)
		assert.ErrorContains(t, report.Failed[0].Err, "validation failed")
	})

	t.Run("missing week bucket", func(t *testing.T) {
		store := &fakeStore{}
		exp := newTestExporter(store, nil, activities)
		cal := weekCalendar(weekAppointment("Sync", "Dev", 4, 9, 60))

		_, err := exp.ExportWeek(context.Background(), cal, 2024, 11)
		assert.ErrorIs(t, err, ErrWeekNotFound)
		assert.Zero(t, store.findCalls, "guard must not run for a missing week")
	})

	t.Run("empty week bucket", func(t *testing.T) {
		store := &fakeStore{}
		exp := newTestExporter(store, nil, activities)
		cal := &calendar.Calendar{Years: []*calendar.Year{{
			Year:  2024,
			Weeks: []*calendar.Week{{Number: 10}},
		}}}

		_, err := exp.ExportWeek(context.Background(), cal, 2024, 10)
		assert.ErrorIs(t, err, ErrNoAppointments)
	})
}

func TestExportDay(t *testing.T) {
	activities := []redmine.Activity{{ID: 5, Name: "Dev"}}
	march4 := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

	t.Run("exports only the target day's appointments", func(t *testing.T) {
		store := &fakeStore{}
		exp := newTestExporter(store, nil, activities)
		cal := weekCalendar(
			weekAppointment("Sync", "Dev", 4, 9, 60),
			weekAppointment("Other day", "Dev", 5, 9, 60),
		)

		report, err := exp.ExportDay(context.Background(), cal, march4)
		require.NoError(t, err)
		require.Len(t, report.Created, 1)
		assert.Equal(t, "Sync", report.Created[0].Appointment.Subject)
		assert.Equal(t, march4, store.findFrom)
		assert.Equal(t, march4, store.findTo)
	})

	t.Run("missing year", func(t *testing.T) {
		exp := newTestExporter(&fakeStore{}, nil, activities)
		cal := weekCalendar(weekAppointment("Sync", "Dev", 4, 9, 60))

		_, err := exp.ExportDay(context.Background(), cal, march4.AddDate(-1, 0, 0))
		assert.ErrorIs(t, err, ErrYearNotFound)
	})

	t.Run("day without appointments", func(t *testing.T) {
		exp := newTestExporter(&fakeStore{}, nil, activities)
		cal := weekCalendar(weekAppointment("Sync", "Dev", 4, 9, 60))

		_, err := exp.ExportDay(context.Background(), cal, march4.AddDate(0, 3, 0))
		assert.ErrorIs(t, err, ErrNoAppointments)
	})

	t.Run("resolves activity by name and links the referenced issue", func(t *testing.T) {
		store := &fakeStore{}
		issues := &fakeIssues{open: map[int]*redmine.Issue{42: {ID: 42}}}
		exp := newTestExporter(store, issues, activities)
		cal := weekCalendar(weekAppointment("Sync #42", "Dev", 4, 9, 90))

		report, err := exp.ExportDay(context.Background(), cal, march4)
		require.NoError(t, err)
		require.Len(t, report.Created, 1)
		assert.Equal(t, 42, report.Created[0].IssueID)
		require.Len(t, store.created, 1)
		assert.Equal(t, 5, store.created[0].ActivityID)
		assert.Equal(t, 42, store.created[0].IssueID)
		assert.InDelta(t, 1.5, store.created[0].Hours, 1e-9)
		assert.Equal(t, []int{42}, issues.lookups)
	})

	t.Run("failed issue lookup does not block the entry", func(t *testing.T) {
		store := &fakeStore{}
		issues := &fakeIssues{err: errors.New("timeout")}
		exp := newTestExporter(store, issues, activities)
		cal := weekCalendar(weekAppointment("Sync #42", "Dev", 4, 9, 60))

		report, err := exp.ExportDay(context.Background(), cal, march4)
		require.NoError(t, err)
		require.Len(t, report.Created, 1)
		assert.Zero(t, report.Created[0].IssueID)
		require.Len(t, store.created, 1)
		assert.Zero(t, store.created[0].IssueID)
	})

	t.Run("unresolvable category falls back to the first activity", func(t *testing.T) {
		store := &fakeStore{}
		exp := newTestExporter(store, nil, activities)
		cal := weekCalendar(weekAppointment("Errand", "Personal", 4, 9, 60))

		_, err := exp.ExportDay(context.Background(), cal, march4)
		require.NoError(t, err)
		require.Len(t, store.created, 1)
		assert.Equal(t, 5, store.created[0].ActivityID)
	})

	t.Run("no configured activities falls back to the unassigned activity", func(t *testing.T) {
		store := &fakeStore{}
		exp := newTestExporter(store, nil, nil)
		cal := weekCalendar(weekAppointment("Errand", "Personal", 4, 9, 60))

		_, err := exp.ExportDay(context.Background(), cal, march4)
		require.NoError(t, err)
		require.Len(t, store.created, 1)
		assert.Zero(t, store.created[0].ActivityID)
	})
}
