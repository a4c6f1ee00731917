package calendar

import "time"

// Appointment is a single calendar item as read from the source.
// It is never mutated after aggregation.
type Appointment struct {
	Subject  string
	Category string
	Start    time.Time
	End      time.Time
	Duration int // minutes
}

// Basis is the working-time basis that overtime is computed against:
// overtime = hours spent − daily hours × days per week × working percentage.
type Basis struct {
	DailyHours        float64
	DaysPerWeek       int
	WorkingPercentage float64
}

// Week holds the appointments of one calendar week, in source order.
type Week struct {
	Number       int
	TimeSpent    time.Duration
	Appointments []Appointment
}

// ComputeOvertime returns the hours spent beyond the weekly basis.
func (w *Week) ComputeOvertime(basis Basis) float64 {
	return w.TimeSpent.Hours() - basis.DailyHours*float64(basis.DaysPerWeek)*basis.WorkingPercentage
}

// Year holds the in-range weeks of one calendar year, ascending by week
// number. TimeSpent covers only those weeks, never the whole raw year.
type Year struct {
	Year      int
	TimeSpent time.Duration
	Weeks     []*Week
}

// ComputeOvertime sums the overtime of the year's weeks. It is deliberately
// not basis × number of weeks computed once: each week contributes its own
// balance, which also holds when the basis values are reconfigured.
func (y *Year) ComputeOvertime(basis Basis) float64 {
	var total float64
	for _, w := range y.Weeks {
		total += w.ComputeOvertime(basis)
	}
	return total
}

// Appointments returns the year's appointments flattened in week order.
func (y *Year) Appointments() []Appointment {
	var all []Appointment
	for _, w := range y.Weeks {
		all = append(all, w.Appointments...)
	}
	return all
}

// FindWeek returns the week with the given number, if present.
func (y *Year) FindWeek(week int) (*Week, bool) {
	for _, w := range y.Weeks {
		if w.Number == week {
			return w, true
		}
	}
	return nil, false
}

// Calendar is the aggregated year/week hierarchy, ascending by year.
type Calendar struct {
	Years []*Year
}

// FindYear returns the bucket for the given year, if present.
func (c *Calendar) FindYear(year int) (*Year, bool) {
	for _, y := range c.Years {
		if y.Year == year {
			return y, true
		}
	}
	return nil, false
}

// FindWeek returns the bucket for the given year and week, if present.
func (c *Calendar) FindWeek(year, week int) (*Week, bool) {
	y, ok := c.FindYear(year)
	if !ok {
		return nil, false
	}
	return y.FindWeek(week)
}

// AppointmentsOn returns the appointments starting on the given calendar
// day, searched across all weeks of the matching year. The bool reports
// whether that year exists at all, so callers can tell "year missing"
// apart from "day has no appointments".
func (c *Calendar) AppointmentsOn(day time.Time) ([]Appointment, bool) {
	y, ok := c.FindYear(day.Year())
	if !ok {
		return nil, false
	}
	var daily []Appointment
	for _, app := range y.Appointments() {
		if SameDate(app.Start, day) {
			daily = append(daily, app)
		}
	}
	return daily, true
}

// SameDate reports whether two instants fall on the same calendar date.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
