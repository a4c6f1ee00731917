package calendar

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"time"
)

// Source supplies the raw appointments to aggregate. Implementations
// return an error when no calendar is available at all; the aggregation
// then aborts instead of producing a partial result.
type Source interface {
	Appointments(ctx context.Context) ([]Appointment, error)
}

// YearRange bounds the weeks of one year that take part in aggregation.
// WeekRange must hold exactly a starting and an ending week (inclusive);
// anything else is a configuration error.
type YearRange struct {
	Year      int
	WeekRange []int
}

// Aggregator builds the year/week hierarchy from a calendar source under
// the configured exclusion and range rules. The configuration is fixed at
// construction.
type Aggregator struct {
	source             Source
	excludedSubjects   []string
	excludedCategories []string
	ranges             []YearRange
	logger             *slog.Logger
}

func NewAggregator(source Source, excludedSubjects, excludedCategories []string, ranges []YearRange, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Aggregator{
		source:             source,
		excludedSubjects:   excludedSubjects,
		excludedCategories: excludedCategories,
		ranges:             ranges,
		logger:             logger,
	}
}

// Aggregate reads the full calendar source and groups its appointments
// into year and week buckets. Appointments without a category cannot be
// classified and are dropped silently; excluded subjects and categories
// are matched exactly. Years without a configured range produce no bucket
// at all, and each surviving year's total covers only its in-range weeks.
func (a *Aggregator) Aggregate(ctx context.Context) (*Calendar, error) {
	appointments, err := a.source.Appointments(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading calendar source: %w", err)
	}

	byYear := make(map[int][]Appointment)
	var years []int
	for _, app := range appointments {
		if app.Category == "" {
			a.logger.Debug("dropping uncategorized appointment", "subject", app.Subject, "start", app.Start)
			continue
		}
		if slices.Contains(a.excludedSubjects, app.Subject) {
			continue
		}
		if slices.Contains(a.excludedCategories, app.Category) {
			continue
		}
		year := app.Start.Year()
		if _, seen := byYear[year]; !seen {
			years = append(years, year)
		}
		byYear[year] = append(byYear[year], app)
	}
	sort.Ints(years)

	cal := &Calendar{}
	for _, year := range years {
		yearRange, ok := a.findRange(year)
		if !ok {
			// Deliberate policy, not a fallback: unconfigured years are
			// left out entirely. The log line is what distinguishes this
			// from a year that simply had no appointments.
			a.logger.Warn("year has no configured week range, skipping", "year", year)
			continue
		}
		if len(yearRange.WeekRange) != 2 {
			return nil, fmt.Errorf("week range for year %d must define a starting and an ending week", year)
		}
		startWeek, endWeek := yearRange.WeekRange[0], yearRange.WeekRange[1]

		byWeek := make(map[int][]Appointment)
		var weekNums []int
		for _, app := range byYear[year] {
			week := WeekOfYear(app.Start)
			if week < startWeek || week > endWeek {
				continue
			}
			if _, seen := byWeek[week]; !seen {
				weekNums = append(weekNums, week)
			}
			byWeek[week] = append(byWeek[week], app)
		}
		sort.Ints(weekNums)

		yearBucket := &Year{Year: year}
		for _, num := range weekNums {
			apps := byWeek[num]
			var total time.Duration
			for _, app := range apps {
				total += time.Duration(app.Duration) * time.Minute
			}
			yearBucket.Weeks = append(yearBucket.Weeks, &Week{
				Number:       num,
				TimeSpent:    total,
				Appointments: apps,
			})
			yearBucket.TimeSpent += total
		}
		cal.Years = append(cal.Years, yearBucket)
	}

	return cal, nil
}

func (a *Aggregator) findRange(year int) (YearRange, bool) {
	for _, r := range a.ranges {
		if r.Year == year {
			return r, true
		}
	}
	return YearRange{}, false
}
