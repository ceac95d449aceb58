package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Jira          JiraConfig   `toml:"jira"`
	Work          WorkConfig   `toml:"work"`
	Report        ReportConfig `toml:"report"`
	Notifications NotifyConfig `toml:"notifications"`
	Remind        RemindConfig `toml:"remind"`
}

type JiraConfig struct {
	BaseURL          string `toml:"base_url"`
	Cookie           string `toml:"cookie"`    // raw Cookie header from a logged-in browser session
	ATLToken         string `toml:"atl_token"` // used when the issue page carries no atlassian-token meta
	MaxRetries       int    `toml:"max_retries"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
	UserCacheMinutes int    `toml:"user_cache_minutes"`
}

type WorkConfig struct {
	HoursPerDay      float64   `toml:"hours_per_day"`
	TimePresets      []float64 `toml:"time_presets"`
	StoragePrefix    string    `toml:"storage_prefix"`
	MaxSavedComments int       `toml:"max_saved_comments"`
}

type ReportConfig struct {
	Locale string `toml:"locale"` // "ru" or "en"
	Format string `toml:"format"` // "text", "json", "yaml" or "ics"
}

type NotifyConfig struct {
	Enabled bool `toml:"enabled"`
	Desktop bool `toml:"desktop"`
}

type RemindConfig struct {
	At       string `toml:"at"`
	WorkDays []int  `toml:"work_days"`
}

func DefaultConfig() Config {
	return Config{
		Jira: JiraConfig{
			MaxRetries:       2,
			TimeoutSeconds:   30,
			UserCacheMinutes: 60,
		},
		Work: WorkConfig{
			HoursPerDay:      8,
			TimePresets:      []float64{0.5, 1, 1.5, 2, 2.5, 3, 3.5, 4, 4.5, 5, 5.5, 6, 6.5, 7, 7.5, 8},
			StoragePrefix:    "jira-worklog-",
			MaxSavedComments: 10,
		},
		Report: ReportConfig{
			Locale: "ru",
			Format: "text",
		},
		Notifications: NotifyConfig{
			Enabled: true,
			Desktop: false,
		},
		Remind: RemindConfig{
			At:       "17:30",
			WorkDays: []int{1, 2, 3, 4, 5},
		},
	}
}

func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "worklogr"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	return LoadFile(path)
}

// LoadFile reads the config at path over DefaultConfig. A missing file is not
// an error.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("JIRA_BASE_URL"); v != "" {
		cfg.Jira.BaseURL = v
	}
	if v := os.Getenv("JIRA_COOKIE"); v != "" {
		cfg.Jira.Cookie = v
	}
	if v := os.Getenv("JIRA_ATL_TOKEN"); v != "" {
		cfg.Jira.ATLToken = v
	}
	if v := os.Getenv("WORKLOGR_LOCALE"); v != "" {
		cfg.Report.Locale = v
	}
}

// Validate reports settings the tool cannot run with.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Jira.BaseURL) == "" {
		errs = append(errs, errors.New("jira base_url is not configured; run 'worklogr config' to set it up"))
	}
	if c.Work.HoursPerDay <= 0 {
		errs = append(errs, fmt.Errorf("work hours_per_day must be positive, got %v", c.Work.HoursPerDay))
	}
	if c.Work.MaxSavedComments <= 0 {
		errs = append(errs, fmt.Errorf("work max_saved_comments must be positive, got %d", c.Work.MaxSavedComments))
	}
	if len(c.Work.TimePresets) == 0 {
		errs = append(errs, errors.New("work time_presets must list at least one duration"))
	}
	for _, p := range c.Work.TimePresets {
		if p <= 0 || p > 24 {
			errs = append(errs, fmt.Errorf("time preset %v is outside (0, 24]", p))
		}
	}
	if _, _, err := ParseClock(c.Remind.At); err != nil {
		errs = append(errs, fmt.Errorf("remind at: %w", err))
	}
	return errors.Join(errs...)
}

// ParseClock parses a "HH:MM" wall-clock time.
func ParseClock(s string) (int, int, error) {
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}

func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// WriteDefault writes cfg to path as TOML.
func WriteDefault(path string, cfg Config) error {
	out, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, out, 0600)
}
