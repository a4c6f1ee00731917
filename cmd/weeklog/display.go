package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"weeklog/internal/calendar"
	"weeklog/internal/export"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))

	subHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("14"))

	faintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))
)

func formatDuration(d time.Duration) string {
	total := int(d.Minutes())
	return fmt.Sprintf("%dh %02dm", total/60, total%60)
}

func formatOvertime(hours float64) string {
	if hours >= 0 {
		return fmt.Sprintf("+%.2fh", hours)
	}
	return fmt.Sprintf("%.2fh", hours)
}

func printYears(cal *calendar.Calendar, basis calendar.Basis) {
	if len(cal.Years) == 0 {
		fmt.Println("No appointments in the configured ranges.")
		return
	}
	for _, y := range cal.Years {
		fmt.Println(headerStyle.Render(fmt.Sprintf("YEAR %d", y.Year)))
		fmt.Printf("  Time spent: %s\n", formatDuration(y.TimeSpent))
		fmt.Printf("  Overtime:   %s\n", formatOvertime(y.ComputeOvertime(basis)))
		fmt.Println()
	}
}

func printWeeks(cal *calendar.Calendar, basis calendar.Basis) {
	if len(cal.Years) == 0 {
		fmt.Println("No appointments in the configured ranges.")
		return
	}
	for _, y := range cal.Years {
		fmt.Println(headerStyle.Render(fmt.Sprintf("YEAR %d", y.Year)))
		for _, w := range y.Weeks {
			fmt.Printf("  WEEK %-3d  %s  %s\n",
				w.Number, formatDuration(w.TimeSpent), formatOvertime(w.ComputeOvertime(basis)))
		}
		fmt.Println()
	}
}

func printWeek(year int, w *calendar.Week, basis calendar.Basis) {
	fmt.Println(headerStyle.Render(fmt.Sprintf("WEEK %d of %d", w.Number, year)))
	fmt.Printf("  Time spent: %s\n", formatDuration(w.TimeSpent))
	fmt.Printf("  Overtime:   %s\n\n", formatOvertime(w.ComputeOvertime(basis)))
	printAppointments(w.Appointments)
}

func printDays(cal *calendar.Calendar) {
	if len(cal.Years) == 0 {
		fmt.Println("No appointments in the configured ranges.")
		return
	}
	for _, y := range cal.Years {
		fmt.Println(headerStyle.Render(fmt.Sprintf("YEAR %d", y.Year)))
		var lastDay string
		for _, app := range y.Appointments() {
			day := app.Start.Format("2006-01-02 Mon")
			if day != lastDay {
				fmt.Println(subHeaderStyle.Render("  " + day))
				lastDay = day
			}
			printAppointmentLine("    ", app)
		}
		fmt.Println()
	}
}

func printDay(day time.Time, apps []calendar.Appointment) {
	fmt.Println(headerStyle.Render(day.Format("2006-01-02 Mon")))
	if len(apps) == 0 {
		fmt.Println("  No appointments.")
		return
	}
	printAppointments(apps)
}

func printAppointments(apps []calendar.Appointment) {
	for _, app := range apps {
		printAppointmentLine("  ", app)
	}
}

func printAppointmentLine(indent string, app calendar.Appointment) {
	fmt.Printf("%s%s–%s  %-4s  %-15s  %s\n",
		indent,
		app.Start.Format("15:04"),
		app.End.Format("15:04"),
		fmt.Sprintf("%dm", app.Duration),
		app.Category,
		app.Subject,
	)
}

func printReport(report *export.Report) {
	if report == nil {
		return
	}

	if len(report.Conflicts) > 0 {
		fmt.Println("Existing time entries block this export:")
		for _, entry := range report.Conflicts {
			fmt.Printf("  %s  %.2fh  %-15s  %s\n",
				entry.SpentOn, entry.Hours, entry.Activity.Name, entry.Comments)
		}
		return
	}

	for _, res := range report.Created {
		issue := ""
		if res.IssueID != 0 {
			issue = faintStyle.Render(fmt.Sprintf("  #%d", res.IssueID))
		}
		fmt.Printf("  created #%d  %s  %.2fh  %s%s\n",
			res.EntryID,
			res.Appointment.Start.Format("2006-01-02"),
			float64(res.Appointment.Duration)/60,
			res.Appointment.Subject,
			issue,
		)
	}
	for _, res := range report.Failed {
		fmt.Printf("  failed  %s  %s: %v\n",
			res.Appointment.Start.Format("2006-01-02"),
			res.Appointment.Subject,
			res.Err,
		)
	}

	summary := fmt.Sprintf("%d created", len(report.Created))
	if len(report.Failed) > 0 {
		summary += fmt.Sprintf(", %d failed", len(report.Failed))
	}
	fmt.Println("\n" + summary)
}

func reportSummary(report *export.Report) string {
	var parts []string
	if len(report.Created) > 0 {
		parts = append(parts, fmt.Sprintf("%d entries created", len(report.Created)))
	}
	if len(report.Failed) > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", len(report.Failed)))
	}
	if len(parts) == 0 {
		return "nothing exported"
	}
	return strings.Join(parts, ", ")
}
