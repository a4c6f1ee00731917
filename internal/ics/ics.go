// Package ics reads appointments from an iCalendar feed, the calendar
// source the aggregation engine consumes.
package ics

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	ical "github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"

	"weeklog/internal/calendar"
)

// Window bounds recurrence expansion. Events without a recurrence rule
// are always included; only the generated occurrences of recurring
// events need a finite range.
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowForRanges derives the expansion window from the configured
// per-year week ranges: the whole span of the earliest through the
// latest configured year. Without any ranges it falls back to the
// current year.
func WindowForRanges(ranges []calendar.YearRange, now time.Time) Window {
	if len(ranges) == 0 {
		return Window{
			Start: time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(now.Year()+1, time.January, 1, 0, 0, 0, 0, time.UTC),
		}
	}
	minYear, maxYear := ranges[0].Year, ranges[0].Year
	for _, r := range ranges[1:] {
		if r.Year < minYear {
			minYear = r.Year
		}
		if r.Year > maxYear {
			maxYear = r.Year
		}
	}
	return Window{
		Start: time.Date(minYear, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(maxYear+1, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Source reads appointments from an ICS URL or file path. It implements
// calendar.Source.
type Source struct {
	location   string
	window     Window
	httpClient *http.Client
	logger     *slog.Logger
}

func New(location string, window Window, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Source{
		location: location,
		window:   window,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// Appointments fetches and parses the feed. A missing or unreachable
// calendar is an error — there is nothing to aggregate then.
func (s *Source) Appointments(ctx context.Context) ([]calendar.Appointment, error) {
	r, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	dec := ical.NewDecoder(r)
	var appointments []calendar.Appointment

	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing calendar: %w", err)
		}

		for _, component := range cal.Children {
			if component.Name != ical.CompEvent {
				continue
			}
			appointments = append(appointments, s.eventAppointments(ical.Event{Component: component})...)
		}
	}

	s.logger.Debug("calendar source read", "location", s.location, "appointments", len(appointments))
	return appointments, nil
}

func (s *Source) open(ctx context.Context) (io.ReadCloser, error) {
	if strings.HasPrefix(s.location, "http://") || strings.HasPrefix(s.location, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.location, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching calendar: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("calendar fetch returned status %d", resp.StatusCode)
		}
		return resp.Body, nil
	}

	f, err := os.Open(s.location)
	if err != nil {
		return nil, fmt.Errorf("opening calendar file: %w", err)
	}
	return f, nil
}

// eventAppointments turns one VEVENT into zero or more appointments,
// expanding recurrence rules within the source's window. Malformed
// events are skipped, not fatal.
func (s *Source) eventAppointments(event ical.Event) []calendar.Appointment {
	start, err := event.DateTimeStart(nil)
	if err != nil {
		s.logger.Warn("skipping event without a valid start", "error", err)
		return nil
	}
	end, err := event.DateTimeEnd(nil)
	if err != nil {
		s.logger.Warn("skipping event without a valid end", "error", err)
		return nil
	}

	subject, _ := event.Props.Text(ical.PropSummary)
	category := firstCategory(event.Props)
	duration := end.Sub(start)

	roption, err := event.Props.RecurrenceRule()
	if err != nil {
		s.logger.Warn("skipping event with a malformed recurrence rule", "subject", subject, "error", err)
		return nil
	}
	if roption == nil {
		return []calendar.Appointment{makeAppointment(subject, category, start, duration)}
	}

	roption.Dtstart = start
	rule, err := rrule.NewRRule(*roption)
	if err != nil {
		s.logger.Warn("skipping event with an unusable recurrence rule", "subject", subject, "error", err)
		return nil
	}

	var set rrule.Set
	set.RRule(rule)
	for _, prop := range event.Props[ical.PropExceptionDates] {
		ex, err := prop.DateTime(start.Location())
		if err != nil {
			s.logger.Warn("ignoring malformed exception date", "subject", subject, "error", err)
			continue
		}
		set.ExDate(ex)
	}

	var out []calendar.Appointment
	for _, occStart := range set.Between(s.window.Start, s.window.End, true) {
		out = append(out, makeAppointment(subject, category, occStart, duration))
	}
	return out
}

func makeAppointment(subject, category string, start time.Time, duration time.Duration) calendar.Appointment {
	return calendar.Appointment{
		Subject:  subject,
		Category: category,
		Start:    start,
		End:      start.Add(duration),
		Duration: int(duration.Minutes()),
	}
}

// firstCategory returns the first CATEGORIES value; Outlook-style feeds
// carry a single category per event, comma-joined lists keep the first.
func firstCategory(props ical.Props) string {
	text, err := props.Text(ical.PropCategories)
	if err != nil || text == "" {
		return ""
	}
	if idx := strings.IndexByte(text, ','); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
