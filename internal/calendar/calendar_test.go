package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeOvertime(t *testing.T) {
	basis := Basis{DailyHours: 8, DaysPerWeek: 5, WorkingPercentage: 1}

	t.Run("week balance against the full basis", func(t *testing.T) {
		w := &Week{Number: 10, TimeSpent: 42 * time.Hour}
		assert.InDelta(t, 2.0, w.ComputeOvertime(basis), 1e-9)
	})

	t.Run("working percentage scales the basis", func(t *testing.T) {
		w := &Week{Number: 10, TimeSpent: 30 * time.Hour}
		part := Basis{DailyHours: 8, DaysPerWeek: 5, WorkingPercentage: 0.8}
		assert.InDelta(t, -2.0, w.ComputeOvertime(part), 1e-9)
	})

	t.Run("year overtime is the sum of week overtimes", func(t *testing.T) {
		y := &Year{
			Year: 2024,
			Weeks: []*Week{
				{Number: 10, TimeSpent: 42 * time.Hour},
				{Number: 11, TimeSpent: 38 * time.Hour},
				{Number: 12, TimeSpent: 40 * time.Hour},
			},
		}
		for _, pct := range []float64{0, 0.25, 0.5, 0.8, 1} {
			b := Basis{DailyHours: 8, DaysPerWeek: 5, WorkingPercentage: pct}
			var want float64
			for _, w := range y.Weeks {
				want += w.ComputeOvertime(b)
			}
			assert.InDelta(t, want, y.ComputeOvertime(b), 1e-9, "percentage %v", pct)
		}
	})
}

func TestCalendarQueries(t *testing.T) {
	monday := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)
	tuesday := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)
	cal := &Calendar{Years: []*Year{{
		Year: 2024,
		Weeks: []*Week{
			{Number: 10, Appointments: []Appointment{
				appt("Sync", "Dev", monday, 60),
				appt("Review", "Dev", tuesday, 30),
			}},
			{Number: 11, Appointments: []Appointment{
				appt("Planning", "Meetings", monday.AddDate(0, 0, 7), 45),
			}},
		},
	}}}

	t.Run("find year", func(t *testing.T) {
		y, ok := cal.FindYear(2024)
		require.True(t, ok)
		assert.Equal(t, 2024, y.Year)

		_, ok = cal.FindYear(2023)
		assert.False(t, ok)
	})

	t.Run("find week", func(t *testing.T) {
		w, ok := cal.FindWeek(2024, 11)
		require.True(t, ok)
		assert.Equal(t, 11, w.Number)

		_, ok = cal.FindWeek(2024, 12)
		assert.False(t, ok)
		_, ok = cal.FindWeek(2023, 10)
		assert.False(t, ok)
	})

	t.Run("flattened year appointments keep week order", func(t *testing.T) {
		y, ok := cal.FindYear(2024)
		require.True(t, ok)
		all := y.Appointments()
		require.Len(t, all, 3)
		assert.Equal(t, "Sync", all[0].Subject)
		assert.Equal(t, "Planning", all[2].Subject)
	})

	t.Run("appointments on a day", func(t *testing.T) {
		daily, ok := cal.AppointmentsOn(time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC))
		require.True(t, ok)
		require.Len(t, daily, 1)
		assert.Equal(t, "Sync", daily[0].Subject)
	})

	t.Run("day in a missing year is not found, not merely empty", func(t *testing.T) {
		daily, ok := cal.AppointmentsOn(time.Date(2023, time.March, 4, 0, 0, 0, 0, time.UTC))
		assert.False(t, ok)
		assert.Empty(t, daily)
	})

	t.Run("day without appointments in a known year is found but empty", func(t *testing.T) {
		daily, ok := cal.AppointmentsOn(time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC))
		assert.True(t, ok)
		assert.Empty(t, daily)
	})
}
