package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	defaultLogLevel               = "info"
	defaultHorizonDays            = 30
	defaultMaxOccurrencesPerEvent = 500
)

// ImportConfig describes one iCalendar source loaded into the schedule at
// startup.
type ImportConfig struct {
	// ID is an internal identifier used for logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
	// Path is a local file path or an http(s) URL.
	Path string `yaml:"path" json:"path"`
}

// Config is the top-level application configuration.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// HorizonDays bounds recurrence expansion, counted from the first
	// occurrence of a recurring event.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`

	// MaxOccurrencesPerEvent caps how many events a single recurring rule
	// may produce.
	MaxOccurrencesPerEvent int `yaml:"max_occurrences_per_event" json:"max_occurrences_per_event"`

	// Metrics enables the in-process operation counters and the stats
	// command. A nil value means enabled.
	Metrics *bool `yaml:"metrics,omitempty" json:"metrics,omitempty"`

	// Imports are loaded in order before the menu starts.
	Imports []ImportConfig `yaml:"imports" json:"imports"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	enabled := true
	return &Config{
		LogLevel:               defaultLogLevel,
		HorizonDays:            defaultHorizonDays,
		MaxOccurrencesPerEvent: defaultMaxOccurrencesPerEvent,
		Metrics:                &enabled,
		Imports:                []ImportConfig{},
	}
}

// DefaultPath returns the per-user config location,
// e.g. ~/.config/evsched/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "evsched.yaml"
	}
	return filepath.Join(dir, "evsched", "config.yaml")
}

// MetricsEnabled reports whether metrics are on; unset counts as on.
func (c *Config) MetricsEnabled() bool {
	return c.Metrics == nil || *c.Metrics
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = defaultHorizonDays
	}
	if c.MaxOccurrencesPerEvent <= 0 {
		c.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}
	if c.Metrics == nil {
		enabled := true
		c.Metrics = &enabled
	}
	if c.Imports == nil {
		c.Imports = []ImportConfig{}
	}
	for i := range c.Imports {
		if c.Imports[i].ID == "" {
			if c.Imports[i].Name != "" {
				c.Imports[i].ID = c.Imports[i].Name
			} else {
				c.Imports[i].ID = c.Imports[i].Path
			}
		}
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written there with
//     0600 perms and returned.
//   - Otherwise the YAML is unmarshalled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms,
// creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".evsched-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}
