// Package config provides configuration management for exhandler.
// Supports TOML configuration files with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/NexTeck/ExceptionHandler/pkg/configstore"
	"github.com/NexTeck/ExceptionHandler/pkg/errorlog"
	"github.com/NexTeck/ExceptionHandler/pkg/logger"
	"github.com/NexTeck/ExceptionHandler/pkg/reporting"
)

// ErrInvalidConfig is returned when configuration validation fails
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the complete exhandler configuration
type Config struct {
	Reporting ReportingConfig `toml:"reporting"`
	Store     StoreConfig     `toml:"store"`
	Logging   LoggingConfig   `toml:"logging"`
	Metrics   MetricsConfig   `toml:"metrics"`
}

// ReportingConfig controls what happens when a failure is reported
type ReportingConfig struct {
	// Title of operator notifications; the executable name when empty
	ProgramName string `toml:"program_name"`

	// Show failure messages to the operator (development builds)
	ShowProgrammerErrors bool `toml:"show_programmer_errors"`

	// Also show the cause chain; needs show_programmer_errors
	ShowErrorDetails bool `toml:"show_error_details"`

	// Persist reports to the error log
	SaveReports bool `toml:"save_reports"`

	// Restart the process after a fatal report
	RestartOnFatal bool `toml:"restart_on_fatal"`

	// Minimum time between repeated notifications of one failure code,
	// e.g. "5m". Empty or "0" disables sampling.
	NotifyRateWindow string `toml:"notify_rate_window"`

	// Notification sink: console, log, both or none
	Notifier string `toml:"notifier"`
}

// StoreConfig selects where the error log is kept
type StoreConfig struct {
	// Backend: file, sqlite or badger
	Backend string `toml:"backend"`

	// Directory (file, badger) or database file (sqlite); derived from
	// the data directory when empty
	Path string `toml:"path"`

	// Codec: gob or toml
	Codec string `toml:"codec"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	// Log level: debug, info, warn, error
	Level string `toml:"level"`

	// Log format: console, json, text
	Format string `toml:"format"`

	// Output: stdout, stderr, or a file path
	Output string `toml:"output"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Reporting: ReportingConfig{
			SaveReports:      true,
			RestartOnFatal:   true,
			NotifyRateWindow: "1m",
			Notifier:         "console",
		},
		Store: StoreConfig{
			Backend: configstore.BackendFile,
			Codec:   "gob",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9464",
		},
	}
}

// DataDir returns the default directory for exhandler data
func DataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".exhandler"
	}
	return filepath.Join(homeDir, ".exhandler")
}

// ConfigPaths returns the list of default configuration file paths to check
func ConfigPaths() []string {
	return []string{
		filepath.Join(DataDir(), "config.toml"),
		filepath.Join("/etc", "exhandler", "config.toml"),
		"./config.toml",
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := c.NotifyRateWindow(); err != nil {
		return fmt.Errorf("%w: reporting.notify_rate_window: %w", ErrInvalidConfig, err)
	}

	validNotifiers := map[string]bool{
		"console": true,
		"log":     true,
		"both":    true,
		"none":    true,
	}
	if !validNotifiers[c.Reporting.Notifier] {
		return fmt.Errorf("%w: reporting.notifier must be one of: console, log, both, none", ErrInvalidConfig)
	}

	validBackends := map[string]bool{
		configstore.BackendFile:   true,
		configstore.BackendSQLite: true,
		configstore.BackendBadger: true,
	}
	if !validBackends[c.Store.Backend] {
		return fmt.Errorf("%w: store.backend must be one of: file, sqlite, badger", ErrInvalidConfig)
	}

	if _, ok := configstore.CodecByName(c.Store.Codec); !ok {
		return fmt.Errorf("%w: store.codec must be one of: gob, toml", ErrInvalidConfig)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("%w: logging.level must be one of: debug, info, warn, error", ErrInvalidConfig)
	}

	validFormats := map[string]bool{
		"console": true,
		"json":    true,
		"text":    true,
	}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("%w: logging.format must be one of: console, json, text", ErrInvalidConfig)
	}

	if c.Logging.Output == "" {
		return fmt.Errorf("%w: logging.output is required", ErrInvalidConfig)
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("%w: metrics.addr is required when metrics are enabled", ErrInvalidConfig)
	}

	return nil
}

// NotifyRateWindow parses reporting.notify_rate_window
func (c *Config) NotifyRateWindow() (time.Duration, error) {
	if c.Reporting.NotifyRateWindow == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Reporting.NotifyRateWindow)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", d)
	}
	return d, nil
}

// ToReportingConfig converts the Config to reporting.Config
func (c *Config) ToReportingConfig() reporting.Config {
	rc := reporting.DefaultConfig()
	if c.Reporting.ProgramName != "" {
		rc.ProgramName = c.Reporting.ProgramName
	}
	rc.ShowProgrammerErrors = c.Reporting.ShowProgrammerErrors
	rc.ShowErrorDetails = c.Reporting.ShowErrorDetails
	rc.SaveReports = c.Reporting.SaveReports
	rc.RestartOnFatal = c.Reporting.RestartOnFatal
	rc.NotifyRateWindow, _ = c.NotifyRateWindow()
	return rc
}

// ToLoggerConfig converts the Config to logger.Config
func (c *Config) ToLoggerConfig() logger.Config {
	return logger.Config{
		Level:     c.Logging.Level,
		Format:    c.Logging.Format,
		Output:    c.Logging.Output,
		Component: "exhandler",
	}
}

// StorePath returns the configured store path, or the backend's default
// location under the data directory.
func (c *Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	switch c.Store.Backend {
	case configstore.BackendSQLite:
		return filepath.Join(DataDir(), "exhandler.db")
	case configstore.BackendBadger:
		return filepath.Join(DataDir(), "badger")
	default:
		return DataDir()
	}
}

// OpenErrorLog opens the configured backend and returns the error log store
func (c *Config) OpenErrorLog(opts ...configstore.Option) (*configstore.Store[errorlog.Log], error) {
	codec, ok := configstore.CodecByName(c.Store.Codec)
	if !ok {
		return nil, fmt.Errorf("%w: unknown codec %q", ErrInvalidConfig, c.Store.Codec)
	}

	backend, err := configstore.OpenBackend(c.Store.Backend, c.StorePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open error log store: %w", err)
	}

	return configstore.New[errorlog.Log](backend, codec, errorlog.StoreKey, opts...), nil
}
