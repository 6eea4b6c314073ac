package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/NexTeck/ExceptionHandler/pkg/configstore"
	errsys "github.com/NexTeck/ExceptionHandler/pkg/errors"
	"github.com/NexTeck/ExceptionHandler/pkg/logger"
)

// fileStore returns a TOML store for the config file at path
func fileStore(path string) *configstore.Store[Config] {
	ext := filepath.Ext(path)
	key := strings.TrimSuffix(filepath.Base(path), ext)
	backend := configstore.NewFileBackend(filepath.Dir(path), configstore.WithExtension(ext))

	return configstore.New[Config](backend, configstore.TOMLCodec{}, key,
		configstore.WithLogger(logger.Global().WithComponent("config")),
	).DecodeOnto(DefaultConfig)
}

// Load loads configuration from a file path
func Load(path string) (*Config, error) {
	// If path is empty, search for default config files
	if path == "" {
		for _, p := range ConfigPaths() {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	cfg := DefaultConfig()

	if path == "" {
		logger.Warn("no configuration file found, using defaults",
			"checked", ConfigPaths(),
			"hint", "create one with: exhandler init",
		)
	} else {
		loaded, err := fileStore(path).Load(context.Background())
		if err != nil {
			return nil, errsys.WrapWithMessage(errsys.CodeConfigLoad, err,
				fmt.Sprintf("failed to load config file %s", path))
		}
		cfg = loaded
	}

	// Apply environment variable overrides
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) error {
	var errs []error
	setBool := func(name string, dst *bool) {
		v := os.Getenv(name)
		if v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		*dst = b
	}
	setString := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	// Reporting overrides
	setString("EXHANDLER_PROGRAM_NAME", &cfg.Reporting.ProgramName)
	setBool("EXHANDLER_SHOW_PROGRAMMER_ERRORS", &cfg.Reporting.ShowProgrammerErrors)
	setBool("EXHANDLER_SHOW_ERROR_DETAILS", &cfg.Reporting.ShowErrorDetails)
	setBool("EXHANDLER_SAVE_REPORTS", &cfg.Reporting.SaveReports)
	setBool("EXHANDLER_RESTART_ON_FATAL", &cfg.Reporting.RestartOnFatal)
	setString("EXHANDLER_NOTIFY_RATE_WINDOW", &cfg.Reporting.NotifyRateWindow)
	setString("EXHANDLER_NOTIFIER", &cfg.Reporting.Notifier)

	// Store overrides
	setString("EXHANDLER_STORE_BACKEND", &cfg.Store.Backend)
	setString("EXHANDLER_STORE_PATH", &cfg.Store.Path)
	setString("EXHANDLER_STORE_CODEC", &cfg.Store.Codec)

	// Logging overrides
	setString("EXHANDLER_LOG_LEVEL", &cfg.Logging.Level)
	setString("EXHANDLER_LOG_FORMAT", &cfg.Logging.Format)
	setString("EXHANDLER_LOG_OUTPUT", &cfg.Logging.Output)

	// Metrics overrides
	setBool("EXHANDLER_METRICS_ENABLED", &cfg.Metrics.Enabled)
	setString("EXHANDLER_METRICS_ADDR", &cfg.Metrics.Addr)

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func Save(cfg *Config, path string) error {
	// Validate before saving
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("cannot save invalid configuration: %w", err)
	}

	// Forward slashes keep Windows paths from being read as TOML escapes
	cfgCopy := *cfg
	cfgCopy.Store.Path = filepath.ToSlash(cfg.Store.Path)
	if cfg.Logging.Output != "stdout" && cfg.Logging.Output != "stderr" {
		cfgCopy.Logging.Output = filepath.ToSlash(cfg.Logging.Output)
	}

	if err := fileStore(path).Save(context.Background(), &cfgCopy); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateExampleConfig generates an example configuration file
func GenerateExampleConfig(path string) error {
	cfg := DefaultConfig()

	// Add example values
	cfg.Reporting.ProgramName = "my-service"
	cfg.Reporting.NotifyRateWindow = "5m"
	cfg.Store.Path = filepath.Join(DataDir(), "reports")
	cfg.Logging.Level = "info"

	return Save(cfg, path)
}
