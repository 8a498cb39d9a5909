// Package config provides daemon configuration with support for command-line flags, environment variables, and .env files.
package config

import (
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/listenupapp/watcherd/internal/errors"
)

// DefaultJobsFile is used when no jobs file is configured.
const DefaultJobsFile = "~/.watcher/jobs.yml"

// Config holds the daemon configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Jobs     JobsConfig
	Metrics  MetricsConfig
	Dispatch DispatchConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
	// Format is json, pretty or text; empty picks by environment.
	Format string
}

// JobsConfig locates the jobs file.
type JobsConfig struct {
	Path string
	// IsDefault is set when Path came from DefaultJobsFile; that file is
	// created empty on first run.
	IsDefault bool
}

// MetricsConfig holds the status and metrics endpoint configuration.
type MetricsConfig struct {
	// Addr is the listen address, e.g. "127.0.0.1:9180". Empty disables the endpoint.
	Addr string
}

// DispatchConfig holds command execution configuration.
type DispatchConfig struct {
	// Shell runs commands of jobs with shell enabled (default: /bin/sh).
	Shell string
	// ShutdownGrace bounds how long shutdown waits for running commands (default: 10s).
	ShutdownGrace time.Duration
}

// Flags carries command-line values. Empty fields are unset.
type Flags struct {
	Env           string
	LogLevel      string
	LogFormat     string
	Jobs          string
	MetricsAddr   string
	ShutdownGrace string
	Shell         string
	EnvFile       string
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig(flags Flags) (*Config, error) {
	envFile := flags.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	// godotenv never overrides variables already in the environment.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrapf(err, errors.CodeConfig, "load env file %s", envFile)
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(flags.Env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level:  getConfigValue(flags.LogLevel, "LOG_LEVEL", "info"),
			Format: getConfigValue(flags.LogFormat, "LOG_FORMAT", ""),
		},
		Metrics: MetricsConfig{
			Addr: getConfigValue(flags.MetricsAddr, "METRICS_ADDR", ""),
		},
		Dispatch: DispatchConfig{
			Shell: getConfigValue(flags.Shell, "WATCHER_SHELL", "/bin/sh"),
		},
	}

	graceStr := getConfigValue(flags.ShutdownGrace, "SHUTDOWN_GRACE", "10s")
	grace, err := time.ParseDuration(graceStr)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeConfig, "invalid shutdown grace %q", graceStr)
	}
	cfg.Dispatch.ShutdownGrace = grace

	jobsPath := getConfigValue(flags.Jobs, "WATCHER_JOBS", "")
	cfg.Jobs.IsDefault = jobsPath == ""
	if cfg.Jobs.IsDefault {
		jobsPath = DefaultJobsFile
	}
	if cfg.Jobs.Path, err = expandPath(jobsPath); err != nil {
		return nil, errors.Wrap(err, errors.CodeConfig, "invalid jobs file path")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return errors.Configf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return errors.Configf("invalid log level: %q (must be debug, info, warn, or error)", c.Logger.Level)
	}

	validFormats := map[string]bool{
		"":       true,
		"json":   true,
		"pretty": true,
		"text":   true,
	}
	if !validFormats[c.Logger.Format] {
		return errors.Configf("invalid log format: %q (must be json, pretty, or text)", c.Logger.Format)
	}

	if c.Jobs.Path == "" {
		return errors.Config("jobs file path cannot be empty")
	}

	if c.Metrics.Addr != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.Addr); err != nil {
			return errors.Wrapf(err, errors.CodeConfig, "invalid metrics address %q", c.Metrics.Addr)
		}
	}

	if !filepath.IsAbs(c.Dispatch.Shell) {
		return errors.Configf("shell must be an absolute path, got %q", c.Dispatch.Shell)
	}

	if c.Dispatch.ShutdownGrace < 0 {
		return errors.Configf("shutdown grace cannot be negative, got %s", c.Dispatch.ShutdownGrace)
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
func expandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, strings.TrimPrefix(path[1:], "/"))
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}

	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	return defaultValue
}
