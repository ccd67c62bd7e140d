// Copyright 2026 The GPUScope Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gpuscope-project/gpuscope/lib/gputelem"
)

// minPollInterval is the floor for the sampling interval. Anything
// faster hammers the native query APIs without adding chart detail.
const minPollInterval = 250 * time.Millisecond

// Config is the GPUScope configuration.
type Config struct {
	// PollInterval is how often a harvest cycle runs, as a Go
	// duration string ("1s", "500ms"). Minimum 250ms.
	PollInterval string `yaml:"poll_interval"`

	// Verticals selects which telemetry verticals each cycle
	// requests. Unrequested verticals cost no native calls.
	Verticals VerticalsConfig `yaml:"verticals"`

	// TemperatureFilter limits which devices get their temperature
	// sensor read, by device name.
	TemperatureFilter FilterConfig `yaml:"temperature_filter"`

	// History configures the durable sample store used by --record.
	History HistoryConfig `yaml:"history"`

	// Dashboard configures the terminal UI.
	Dashboard DashboardConfig `yaml:"dashboard"`

	// Log configures diagnostic logging.
	Log LogConfig `yaml:"log"`
}

// VerticalsConfig mirrors the per-vertical demand flags.
type VerticalsConfig struct {
	Memory      bool `yaml:"memory"`
	Temperature bool `yaml:"temperature"`
	Processes   bool `yaml:"processes"`
	Metrics     bool `yaml:"metrics"`
}

// FilterConfig is a name-based device filter. With Exclude false,
// only devices matching a pattern are kept; with Exclude true, the
// list inverts. An empty pattern list keeps everything.
type FilterConfig struct {
	Patterns []string `yaml:"patterns"`
	Exclude  bool     `yaml:"exclude"`
}

// HistoryConfig configures the on-disk sample store.
type HistoryConfig struct {
	// Path is the SQLite database file. The parent directory is
	// created on first open.
	Path string `yaml:"path"`

	// Retention is how long recorded samples are kept, as a Go
	// duration string. Older rows are pruned during recording.
	Retention string `yaml:"retention"`

	// WindowSamples is the in-memory chart window length.
	WindowSamples int `yaml:"window_samples"`
}

// DashboardConfig configures the terminal UI.
type DashboardConfig struct {
	// ShowLegend toggles the per-device legend table under the chart.
	ShowLegend bool `yaml:"show_legend"`
}

// LogConfig configures diagnostic logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is text or json. The dashboard forces logging to a file
	// regardless, so the terminal stays clean.
	Format string `yaml:"format"`
}

// Default returns a configuration that works with no config file:
// one-second sampling of every vertical, no temperature filter, a
// day of history under the user cache directory.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		PollInterval: "1s",
		Verticals: VerticalsConfig{
			Memory:      true,
			Temperature: true,
			Processes:   true,
			Metrics:     true,
		},
		History: HistoryConfig{
			Path:          filepath.Join(homeDir, ".cache", "gpuscope", "history.db"),
			Retention:     "24h",
			WindowSamples: 120,
		},
		Dashboard: DashboardConfig{
			ShowLegend: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from the file named by GPUSCOPE_CONFIG.
// Fails when the variable is unset; use [Default] or --config for
// the no-environment case.
func Load() (*Config, error) {
	configPath := os.Getenv("GPUSCOPE_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("GPUSCOPE_CONFIG environment variable not set; " +
			"set it to the path of your gpuscope.yaml, or use --config")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path, merging over [Default].
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

// expandVariables expands ${VAR} patterns in path fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.History.Path = expandVars(c.History.Path, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns, consulting
// the provided vars first and the environment second.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors, reporting all of them
// rather than the first.
func (c *Config) Validate() error {
	var errs []error

	if interval, err := time.ParseDuration(c.PollInterval); err != nil {
		errs = append(errs, fmt.Errorf("poll_interval %q: %w", c.PollInterval, err))
	} else if interval < minPollInterval {
		errs = append(errs, fmt.Errorf("poll_interval %s is below the %s minimum",
			interval, minPollInterval))
	}

	if _, err := time.ParseDuration(c.History.Retention); err != nil {
		errs = append(errs, fmt.Errorf("history.retention %q: %w", c.History.Retention, err))
	}

	if c.History.WindowSamples <= 0 {
		errs = append(errs, fmt.Errorf("history.window_samples must be positive, got %d",
			c.History.WindowSamples))
	}

	if c.History.Path == "" {
		errs = append(errs, fmt.Errorf("history.path is required"))
	}

	if _, err := c.Filter(); err != nil {
		errs = append(errs, fmt.Errorf("temperature_filter: %w", err))
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn, or error, got %q",
			c.Log.Level))
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Interval returns the parsed poll interval. Call Validate first; an
// unparseable value degrades to the default one second here.
func (c *Config) Interval() time.Duration {
	interval, err := time.ParseDuration(c.PollInterval)
	if err != nil || interval < minPollInterval {
		return time.Second
	}
	return interval
}

// Retention returns the parsed history retention, defaulting to 24h
// for unparseable values.
func (c *Config) Retention() time.Duration {
	retention, err := time.ParseDuration(c.History.Retention)
	if err != nil || retention <= 0 {
		return 24 * time.Hour
	}
	return retention
}

// Demand returns the configured vertical flags as a harvest demand.
func (c *Config) Demand() gputelem.Demand {
	return gputelem.Demand{
		Memory:      c.Verticals.Memory,
		Temperature: c.Verticals.Temperature,
		Processes:   c.Verticals.Processes,
		Metrics:     c.Verticals.Metrics,
	}
}

// Filter compiles the configured temperature filter. An empty pattern
// list yields a filter that keeps everything.
func (c *Config) Filter() (*gputelem.Filter, error) {
	return gputelem.NewFilter(c.TemperatureFilter.Patterns, c.TemperatureFilter.Exclude)
}
