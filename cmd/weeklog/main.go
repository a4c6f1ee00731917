package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	naturaldate "github.com/tj/go-naturaldate"

	"weeklog/internal/calendar"
	"weeklog/internal/config"
	"weeklog/internal/export"
	"weeklog/internal/ics"
	"weeklog/internal/notify"
	"weeklog/internal/redmine"
	"weeklog/internal/store"
	"weeklog/internal/tui"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "weeklog",
	Short: "Aggregate calendar time per week and export it to Redmine",
	Long:  "weeklog reads an iCalendar feed, groups appointments into years and weeks with overtime balances, and exports them as Redmine time entries.",
	RunE:  runInteractive,
}

var yearsCmd = &cobra.Command{
	Use:   "years",
	Short: "Show time spent and overtime per year",
	RunE:  runYears,
}

var weeksCmd = &cobra.Command{
	Use:   "weeks",
	Short: "Show time spent and overtime per week",
	RunE:  runWeeks,
}

var weekCmd = &cobra.Command{
	Use:   "week <year> <week>",
	Short: "Show one week's appointments",
	Args:  cobra.ExactArgs(2),
	RunE:  runWeek,
}

var daysCmd = &cobra.Command{
	Use:   "days",
	Short: "Show all appointments grouped by day",
	RunE:  runDays,
}

var dayCmd = &cobra.Command{
	Use:   "day <date>",
	Short: "Show one day's appointments",
	Args:  cobra.ExactArgs(1),
	RunE:  runDay,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export appointments as Redmine time entries",
}

var exportDayCmd = &cobra.Command{
	Use:   "day <date>",
	Short: "Export one day's appointments",
	Args:  cobra.ExactArgs(1),
	RunE:  runExportDay,
}

var exportWeekCmd = &cobra.Command{
	Use:   "week <year> <week>",
	Short: "Export one week's appointments",
	Args:  cobra.ExactArgs(2),
	RunE:  runExportWeek,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently journaled exports",
	RunE:  runHistory,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Open config file in your editor",
	RunE:  runConfig,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	historyCmd.Flags().Int("limit", 20, "Number of records to show")

	exportCmd.AddCommand(exportDayCmd)
	exportCmd.AddCommand(exportWeekCmd)

	rootCmd.AddCommand(yearsCmd)
	rootCmd.AddCommand(weeksCmd)
	rootCmd.AddCommand(weekCmd)
	rootCmd.AddCommand(daysCmd)
	rootCmd.AddCommand(dayCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Calendar.Source == "" {
		return nil, fmt.Errorf("calendar source not configured — run 'weeklog config' to set it up")
	}
	return cfg, nil
}

func yearRanges(cfg *config.Config) []calendar.YearRange {
	ranges := make([]calendar.YearRange, 0, len(cfg.Calendar.WeekRanges))
	for _, r := range cfg.Calendar.WeekRanges {
		ranges = append(ranges, calendar.YearRange{Year: r.Year, WeekRange: r.WeekRange})
	}
	return ranges
}

func buildCalendar(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*calendar.Calendar, error) {
	ranges := yearRanges(cfg)
	source := ics.New(cfg.Calendar.Source, ics.WindowForRanges(ranges, time.Now()), logger)
	agg := calendar.NewAggregator(
		source,
		cfg.Calendar.ExcludedSubjects,
		cfg.Calendar.ExcludedCategories,
		ranges,
		logger,
	)
	cal, err := agg.Aggregate(ctx)
	if err != nil {
		return nil, fmt.Errorf("aggregating calendar: %w", err)
	}
	return cal, nil
}

func overtimeBasis(cfg *config.Config) calendar.Basis {
	return calendar.Basis{
		DailyHours:        cfg.Overtime.DailyHours,
		DaysPerWeek:       cfg.Overtime.DaysPerWeek,
		WorkingPercentage: cfg.Calendar.WorkingPercentage,
	}
}

func newExporter(cfg *config.Config, logger *slog.Logger) (*export.Exporter, error) {
	if err := cfg.ValidateExport(); err != nil {
		return nil, err
	}

	client := redmine.NewClient(cfg.Redmine.URL, cfg.Redmine.APIKey, logger)

	activities := make([]redmine.Activity, 0, len(cfg.Redmine.Activities))
	for _, a := range cfg.Redmine.Activities {
		activities = append(activities, redmine.Activity{ID: a.ID, Name: a.Name})
	}
	mappings := make([]export.Mapping, 0, len(cfg.Redmine.Mappings))
	for _, m := range cfg.Redmine.Mappings {
		mappings = append(mappings, export.Mapping{Category: m.Category, ActivityID: m.ActivityID})
	}

	resolver := export.NewResolver(activities, mappings, client)
	return export.NewExporter(client, resolver, activities, cfg.Redmine.UserID, logger), nil
}

// parseDay accepts an ISO date or a natural phrase like "yesterday" or
// "last monday", resolved backwards from now.
func parseDay(arg string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", arg); err == nil {
		return t, nil
	}
	t, err := naturaldate.Parse(arg, time.Now(), naturaldate.WithDirection(naturaldate.Past))
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized date %q", arg)
	}
	return t, nil
}

func parseYearWeek(yearArg, weekArg string) (int, int, error) {
	year, err := strconv.Atoi(yearArg)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid year %q", yearArg)
	}
	week, err := strconv.Atoi(weekArg)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid week %q", weekArg)
	}
	return year, week, nil
}

func runYears(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cal, err := buildCalendar(cmd.Context(), cfg, newLogger())
	if err != nil {
		return err
	}

	printYears(cal, overtimeBasis(cfg))
	return nil
}

func runWeeks(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cal, err := buildCalendar(cmd.Context(), cfg, newLogger())
	if err != nil {
		return err
	}

	printWeeks(cal, overtimeBasis(cfg))
	return nil
}

func runWeek(cmd *cobra.Command, args []string) error {
	year, week, err := parseYearWeek(args[0], args[1])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cal, err := buildCalendar(cmd.Context(), cfg, newLogger())
	if err != nil {
		return err
	}

	wk, ok := cal.FindWeek(year, week)
	if !ok {
		return fmt.Errorf("no appointments for week %d of %d", week, year)
	}

	printWeek(year, wk, overtimeBasis(cfg))
	return nil
}

func runDays(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cal, err := buildCalendar(cmd.Context(), cfg, newLogger())
	if err != nil {
		return err
	}

	printDays(cal)
	return nil
}

func runDay(cmd *cobra.Command, args []string) error {
	day, err := parseDay(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cal, err := buildCalendar(cmd.Context(), cfg, newLogger())
	if err != nil {
		return err
	}

	apps, ok := cal.AppointmentsOn(day)
	if !ok {
		return fmt.Errorf("no appointments for year %d", day.Year())
	}

	printDay(day, apps)
	return nil
}

func runExportDay(cmd *cobra.Command, args []string) error {
	day, err := parseDay(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	cal, err := buildCalendar(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	exporter, err := newExporter(cfg, logger)
	if err != nil {
		return err
	}

	report, err := exporter.ExportDay(cmd.Context(), cal, day)
	return finishExport(cfg, logger, fmt.Sprintf("Export %s", day.Format("2006-01-02")), report, err)
}

func runExportWeek(cmd *cobra.Command, args []string) error {
	year, week, err := parseYearWeek(args[0], args[1])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	cal, err := buildCalendar(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	exporter, err := newExporter(cfg, logger)
	if err != nil {
		return err
	}

	report, err := exporter.ExportWeek(cmd.Context(), cal, year, week)
	return finishExport(cfg, logger, fmt.Sprintf("Export week %d of %d", week, year), report, err)
}

// finishExport prints the report, journals its results, and sends the
// completion notification. Journal and notification failures are logged
// but never turn a finished export into an error.
func finishExport(cfg *config.Config, logger *slog.Logger, title string, report *export.Report, err error) error {
	printReport(report)

	if err != nil {
		if errors.Is(err, export.ErrEntriesExist) {
			return fmt.Errorf("export aborted: %w", err)
		}
		return err
	}

	journalReport(logger, report)

	if cfg.Notifications.Enabled {
		if nerr := notify.Send(title, reportSummary(report)); nerr != nil {
			logger.Warn("sending notification failed", "error", nerr)
		}
	}

	if len(report.Failed) > 0 {
		return fmt.Errorf("%d of %d entries failed to export",
			len(report.Failed), len(report.Created)+len(report.Failed))
	}
	return nil
}

func journalReport(logger *slog.Logger, report *export.Report) {
	db, err := store.Open()
	if err != nil {
		logger.Warn("opening export journal failed", "error", err)
		return
	}
	defer db.Close()

	for _, res := range report.Created {
		record := store.ExportRecord{
			RedmineID: res.EntryID,
			SpentOn:   res.Appointment.Start.Format("2006-01-02"),
			Activity:  res.Appointment.Category,
			Comment:   res.Appointment.Subject,
			Hours:     float64(res.Appointment.Duration) / 60,
			Status:    store.StatusCreated,
		}
		if _, err := db.RecordExport(&record); err != nil {
			logger.Warn("journaling export failed", "comment", record.Comment, "error", err)
		}
	}
	for _, res := range report.Failed {
		record := store.ExportRecord{
			SpentOn:  res.Appointment.Start.Format("2006-01-02"),
			Activity: res.Appointment.Category,
			Comment:  res.Appointment.Subject,
			Hours:    float64(res.Appointment.Duration) / 60,
			Status:   store.StatusFailed,
			Error:    res.Err.Error(),
		}
		if _, err := db.RecordExport(&record); err != nil {
			logger.Warn("journaling export failed", "comment", record.Comment, "error", err)
		}
	}
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening export journal: %w", err)
	}
	defer db.Close()

	records, err := db.RecentExports(limit)
	if err != nil {
		return fmt.Errorf("reading export journal: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No exports journaled yet.")
		return nil
	}

	for _, r := range records {
		line := fmt.Sprintf("  %s  %s  %.2fh  %-15s  %s",
			r.CreatedAt.Format("2006-01-02 15:04"), r.SpentOn, r.Hours, r.Activity, r.Comment)
		if r.Status == store.StatusFailed {
			line += fmt.Sprintf("  [failed: %s]", r.Error)
		} else {
			line += fmt.Sprintf("  [#%d]", r.RedmineID)
		}
		fmt.Println(line)
	}

	return nil
}

func runInteractive(cmd *cobra.Command, args []string) error {
	for {
		menu := tui.NewMenu()
		if _, err := tea.NewProgram(menu).Run(); err != nil {
			return fmt.Errorf("running menu: %w", err)
		}

		result := menu.Result()
		if result.Action == tui.ActionQuit || result.Action == tui.ActionNone {
			return nil
		}

		if err := dispatch(cmd, result); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		fmt.Println()
	}
}

func dispatch(cmd *cobra.Command, result tui.MenuResult) error {
	switch result.Action {
	case tui.ActionYears:
		return runYears(cmd, nil)
	case tui.ActionWeeks:
		return runWeeks(cmd, nil)
	case tui.ActionWeek:
		fields := strings.Fields(result.Param)
		if len(fields) != 2 {
			return fmt.Errorf("expected year and week, got %q", result.Param)
		}
		return runWeek(cmd, fields)
	case tui.ActionDays:
		return runDays(cmd, nil)
	case tui.ActionDay:
		return runDay(cmd, []string{result.Param})
	case tui.ActionExportDay:
		return runExportDay(cmd, []string{result.Param})
	case tui.ActionExportWeek:
		fields := strings.Fields(result.Param)
		if len(fields) != 2 {
			return fmt.Errorf("expected year and week, got %q", result.Param)
		}
		return runExportWeek(cmd, fields)
	}
	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath, err := config.ConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := config.DefaultConfig()
		data := fmt.Sprintf(`[calendar]
source = "%s"
working_percentage = %v
excluded_subjects = []
excluded_categories = []

# One table per year, week_range is [first, last] inclusive.
# [[calendar.week_ranges]]
# year = %d
# week_range = [1, 52]

[redmine]
url = "%s"
api_key = "%s"
user_id = "%s"

# [[redmine.activities]]
# id = 9
# name = "Development"

# [[redmine.mappings]]
# category = "Dev"
# activity_id = 9

[overtime]
daily_hours = %v
days_per_week = %d

[notifications]
enabled = %t
`,
			cfg.Calendar.Source,
			cfg.Calendar.WorkingPercentage,
			time.Now().Year(),
			cfg.Redmine.URL,
			cfg.Redmine.APIKey,
			cfg.Redmine.UserID,
			cfg.Overtime.DailyHours,
			cfg.Overtime.DaysPerWeek,
			cfg.Notifications.Enabled,
		)
		if err := os.WriteFile(configPath, []byte(data), 0644); err != nil {
			return fmt.Errorf("writing default config: %w", err)
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	fmt.Printf("Opening %s with %s...\n", configPath, editor)

	proc := os.ProcAttr{
		Files: []*os.File{os.Stdin, os.Stdout, os.Stderr},
	}
	process, err := os.StartProcess(editor, []string{editor, configPath}, &proc)
	if err != nil {
		fmt.Printf("Could not open editor. Config file is at: %s\n", configPath)
		return nil
	}
	_, err = process.Wait()
	return err
}
