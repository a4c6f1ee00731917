package calendar

import "time"

// WeekOfYear returns the week number used for grouping appointments:
// weeks start on Sunday and week 1 is the first week with at least four
// days in the new year. Dates in an old year's trailing week keep that
// year's high week number (52/53).
//
// This is NOT the ISO-8601 rule. Grouping uses the Sunday convention
// while date-range computations (FirstDateOfISOWeek) use Monday; remote
// date filtering depends on the difference, so the two must stay separate.
func WeekOfYear(t time.Time) int {
	return weekOfYearFullDays(t, time.Sunday, 4)
}

func weekOfYearFullDays(t time.Time, firstDay time.Weekday, fullDays int) int {
	dayOfYear := t.YearDay() - 1
	dayForJan1 := int(t.Weekday()) - dayOfYear%7
	offset := (int(firstDay) - dayForJan1 + 14) % 7
	if offset != 0 && offset >= fullDays {
		offset -= 7
	}
	day := dayOfYear - offset
	if day >= 0 {
		return day/7 + 1
	}
	// The date belongs to the last week of the previous year.
	return weekOfYearFullDays(t.AddDate(0, 0, -(dayOfYear+1)), firstDay, fullDays)
}

// FirstDateOfISOWeek returns the Monday beginning the given ISO-8601 week.
// It anchors on the first Thursday of January, which can never land in
// week 52/53, then steps whole weeks and backs up three days to Monday.
func FirstDateOfISOWeek(year, week int) time.Time {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	daysOffset := int(time.Thursday) - int(jan1.Weekday())
	firstThursday := jan1.AddDate(0, 0, daysOffset)

	weekNum := week
	// When the anchor Thursday already sits in week 1, stepping a full
	// week from it would overshoot by one.
	if weekOfYearFullDays(firstThursday, time.Monday, 4) == 1 {
		weekNum--
	}

	return firstThursday.AddDate(0, 0, weekNum*7-3)
}
