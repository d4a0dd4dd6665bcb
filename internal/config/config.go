// Package config handles configuration loading and validation for skein.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/okvist/skein/internal/schedule"
	"github.com/okvist/skein/internal/ui/theme"
)

// Config holds the application configuration.
type Config struct {
	DBPath        string         `yaml:"db_path"`
	Theme         string         `yaml:"theme"`
	Workweek      WorkweekConfig `yaml:"workweek"`
	Notifications bool           `yaml:"notifications"`
	LogLevel      string         `yaml:"log_level"`
	LogFile       string         `yaml:"log_file"`
	DataDir       string         `yaml:"-"` // set by caller, not from config file
}

// WorkweekConfig describes the working calendar used for schedule estimates.
type WorkweekConfig struct {
	HoursPerDay float64  `yaml:"hours_per_day"`
	Days        []string `yaml:"days"`
}

// DefaultConfig returns the configuration used when no config file exists.
// Logging is off by default: the TUI owns the terminal, so logs only go to
// a file the user opts into.
func DefaultConfig() Config {
	return Config{
		Theme:         "nord",
		Notifications: true,
		LogLevel:      "info",
		Workweek: WorkweekConfig{
			HoursPerDay: 8,
			Days:        []string{"monday", "tuesday", "wednesday", "thursday", "friday"},
		},
	}
}

// DefaultConfigPath returns ~/.config/skein/config.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".config", "skein", "config.yaml"), nil
}

// DefaultDataDir returns ~/.local/share/skein.
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".local", "share", "skein"), nil
}

// Load reads the config file at configPath, layering it over DefaultConfig.
// A missing file is not an error; defaults apply. dataDir is always set by
// the caller and anchors relative defaults like the database path.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Theme == "" {
		c.Theme = defaults.Theme
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.Workweek.HoursPerDay == 0 {
		c.Workweek.HoursPerDay = defaults.Workweek.HoursPerDay
	}
	if len(c.Workweek.Days) == 0 {
		c.Workweek.Days = defaults.Workweek.Days
	}
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "skein.db")
	}
}

// Validate checks structural constraints. Filesystem checks live in
// ValidateDeep so Load stays cheap.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	if c.Workweek.HoursPerDay <= 0 || c.Workweek.HoursPerDay > 24 {
		return fmt.Errorf("workweek.hours_per_day must be between 0 and 24, got %v", c.Workweek.HoursPerDay)
	}

	if len(c.Workweek.Days) == 0 {
		return fmt.Errorf("workweek.days cannot be empty")
	}

	if _, ok := theme.ByName(c.Theme); !ok {
		return fmt.Errorf("unknown theme %q", c.Theme)
	}

	if err := validLogLevel(c.LogLevel); err != nil {
		return err
	}

	return c.validateDays()
}

// Schedule converts the configured day names into a schedule.Workweek.
func (w WorkweekConfig) Schedule() (schedule.Workweek, error) {
	days := make(map[time.Weekday]bool, len(w.Days))
	for _, name := range w.Days {
		d, err := parseWeekday(name)
		if err != nil {
			return schedule.Workweek{}, err
		}
		days[d] = true
	}
	return schedule.Workweek{HoursPerDay: w.HoursPerDay, Days: days}, nil
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"sun":       time.Sunday,
	"monday":    time.Monday,
	"mon":       time.Monday,
	"tuesday":   time.Tuesday,
	"tue":       time.Tuesday,
	"wednesday": time.Wednesday,
	"wed":       time.Wednesday,
	"thursday":  time.Thursday,
	"thu":       time.Thursday,
	"friday":    time.Friday,
	"fri":       time.Friday,
	"saturday":  time.Saturday,
	"sat":       time.Saturday,
}

func parseWeekday(name string) (time.Weekday, error) {
	d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", name)
	}
	return d, nil
}
