package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Calendar      CalendarConfig `toml:"calendar"`
	Redmine       RedmineConfig  `toml:"redmine"`
	Overtime      OvertimeConfig `toml:"overtime"`
	Notifications NotifyConfig   `toml:"notifications"`
}

type CalendarConfig struct {
	Source             string      `toml:"source"` // ICS URL or file path
	WorkingPercentage  float64     `toml:"working_percentage"`
	ExcludedSubjects   []string    `toml:"excluded_subjects"`
	ExcludedCategories []string    `toml:"excluded_categories"`
	WeekRanges         []WeekRange `toml:"week_ranges"`
}

// WeekRange carries a raw [start, end] pair for one year. The element
// count is validated by the aggregation engine, not here, so a malformed
// range fails the operation that depends on it.
type WeekRange struct {
	Year      int   `toml:"year"`
	WeekRange []int `toml:"week_range"`
}

type RedmineConfig struct {
	URL        string     `toml:"url"`
	APIKey     string     `toml:"api_key"`
	UserID     string     `toml:"user_id"`
	Activities []Activity `toml:"activities"`
	Mappings   []Mapping  `toml:"mappings"`
}

type Activity struct {
	ID   int    `toml:"id"`
	Name string `toml:"name"`
}

type Mapping struct {
	Category   string `toml:"category"`
	ActivityID int    `toml:"activity_id"`
}

type OvertimeConfig struct {
	DailyHours  float64 `toml:"daily_hours"`
	DaysPerWeek int     `toml:"days_per_week"`
}

type NotifyConfig struct {
	Enabled bool `toml:"enabled"`
}

func DefaultConfig() Config {
	return Config{
		Calendar: CalendarConfig{
			WorkingPercentage: 1.0,
		},
		Overtime: OvertimeConfig{
			DailyHours:  8,
			DaysPerWeek: 5,
		},
		Notifications: NotifyConfig{
			Enabled: true,
		},
	}
}

func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "weeklog"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			applyEnvOverrides(&cfg)
			return &cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REDMINE_URL"); v != "" {
		cfg.Redmine.URL = v
	}
	if v := os.Getenv("REDMINE_API_KEY"); v != "" {
		cfg.Redmine.APIKey = v
	}
	if v := os.Getenv("REDMINE_USER_ID"); v != "" {
		cfg.Redmine.UserID = v
	}
	if v := os.Getenv("WEEKLOG_CALENDAR"); v != "" {
		cfg.Calendar.Source = v
	}
}

// Validate checks structural correctness of the loaded values. Export
// commands additionally require the Redmine fields; see ValidateExport.
func (c *Config) Validate() error {
	if c.Calendar.WorkingPercentage < 0 || c.Calendar.WorkingPercentage > 1 {
		return fmt.Errorf("working_percentage must be between 0 and 1, got %v", c.Calendar.WorkingPercentage)
	}
	if c.Overtime.DailyHours <= 0 {
		return fmt.Errorf("daily_hours must be positive, got %v", c.Overtime.DailyHours)
	}
	if c.Overtime.DaysPerWeek <= 0 || c.Overtime.DaysPerWeek > 7 {
		return fmt.Errorf("days_per_week must be between 1 and 7, got %d", c.Overtime.DaysPerWeek)
	}
	return nil
}

// ValidateExport checks the fields the export path depends on.
func (c *Config) ValidateExport() error {
	if c.Redmine.URL == "" {
		return fmt.Errorf("redmine url not configured — set it in config.toml or the REDMINE_URL env var")
	}
	if c.Redmine.APIKey == "" {
		return fmt.Errorf("redmine API key not configured — set it in config.toml or the REDMINE_API_KEY env var")
	}
	if c.Redmine.UserID == "" {
		return fmt.Errorf("redmine target user id not configured — set it in config.toml or the REDMINE_USER_ID env var")
	}
	return nil
}

func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}
