package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Store selects the event and report persistence backend.
type Store struct {
	Driver   string `toml:"driver"`
	DSN      string `toml:"dsn"`
	Database string `toml:"database"`
	Timeout  int    `toml:"timeout"`
}

// Reports optionally moves the latest-wins report documents to Redis.
type Reports struct {
	Backend       string `toml:"backend"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	KeyPrefix     string `toml:"key_prefix"`
}

// Notifications contains configuration for the alert webhook.
type Notifications struct {
	WebhookURL     string `toml:"webhook_url"`
	Format         string `toml:"format"`
	RequestTimeout int    `toml:"request_timeout"`
}

// SLO contains the release-governance thresholds.
type SLO struct {
	TargetErrorRatePercent float64 `toml:"target_error_rate_percent"`
	WindowDays             int     `toml:"window_days"`
	TopErrorsLimit         int     `toml:"top_errors_limit"`
}

// Summary contains the periodic workflow digest settings.
type Summary struct {
	WindowDays     int    `toml:"window_days"`
	TopErrorsLimit int    `toml:"top_errors_limit"`
	Key            string `toml:"key"`
}

// Schedule contains cron expressions evaluated in a fixed time zone.
type Schedule struct {
	Enabled     bool   `toml:"enabled"`
	Timezone    string `toml:"timezone"`
	SummaryCron string `toml:"summary_cron"`
	SLOCron     string `toml:"slo_cron"`
}

// Workflow contains invocation limits.
type Workflow struct {
	InvocationTimeout int `toml:"invocation_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for vigil.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and API bind address
//   - Store: event store driver and connection
//   - Reports: optional Redis backend for latest reports
//   - Notifications: alert webhook destination and format
//   - SLO: error-rate target, window and top error count for the release check
//   - Summary: window, top error count and key for the workflow digest
//   - Schedule: cron cadence and time zone
//   - Workflow: per-invocation deadline
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Store         Store         `toml:"store"`
	Reports       Reports       `toml:"reports"`
	Notifications Notifications `toml:"notifications"`
	SLO           SLO           `toml:"slo"`
	Summary       Summary       `toml:"summary"`
	Schedule      Schedule      `toml:"schedule"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("vigil.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// InvocationTimeout returns the bounded deadline applied to each job run.
func (c *Config) InvocationTimeout() time.Duration {
	return time.Duration(c.Workflow.InvocationTimeout) * time.Second
}

// StoreTimeout returns the per-operation timeout for network-backed stores.
func (c *Config) StoreTimeout() time.Duration {
	return time.Duration(c.Store.Timeout) * time.Second
}

// NotificationTimeout returns the HTTP client timeout for alert delivery.
func (c *Config) NotificationTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeout) * time.Second
}

// Location resolves the schedule time zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Schedule.Timezone)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
