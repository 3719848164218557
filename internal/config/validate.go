package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateReports(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateSLO(); err != nil {
		return err
	}
	if err := c.validateSummary(); err != nil {
		return err
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case DriverSQLite, DriverMemory:
		return nil
	case DriverPostgres, DriverMongo:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn must be set when store.driver is %q (or set VIGIL_STORE_DSN)", c.Store.Driver)
		}
		return nil
	default:
		return fmt.Errorf("store.driver: unsupported value %q (expected sqlite, postgres, mongo or memory)", c.Store.Driver)
	}
}

func (c *Config) validateReports() error {
	switch c.Reports.Backend {
	case ReportsBackendStore:
		return nil
	case ReportsBackendRedis:
		if c.Reports.RedisDB < 0 {
			return errors.New("reports.redis_db must be >= 0")
		}
		return nil
	default:
		return fmt.Errorf("reports.backend: unsupported value %q (expected empty or redis)", c.Reports.Backend)
	}
}

func (c *Config) validateNotifications() error {
	switch c.Notifications.Format {
	case FormatSlack, FormatNtfy, FormatJSON:
	default:
		return fmt.Errorf("notifications.format: unsupported value %q (expected slack, ntfy or json)", c.Notifications.Format)
	}
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	if c.Notifications.WebhookURL == "" {
		return nil
	}
	parsed, err := url.Parse(c.Notifications.WebhookURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("notifications.webhook_url must be an http(s) URL, got %q", c.Notifications.WebhookURL)
	}
	return nil
}

func (c *Config) validateSLO() error {
	if c.SLO.TargetErrorRatePercent <= 0 || c.SLO.TargetErrorRatePercent > 100 {
		return errors.New("slo.target_error_rate_percent must be greater than 0 and at most 100")
	}
	return ensurePositiveMap(map[string]int{
		"slo.window_days":      c.SLO.WindowDays,
		"slo.top_errors_limit": c.SLO.TopErrorsLimit,
	})
}

func (c *Config) validateSummary() error {
	if err := ensurePositiveMap(map[string]int{
		"summary.window_days":      c.Summary.WindowDays,
		"summary.top_errors_limit": c.Summary.TopErrorsLimit,
	}); err != nil {
		return err
	}
	if strings.ContainsAny(c.Summary.Key, " /:") {
		return fmt.Errorf("summary.key must not contain spaces, slashes or colons, got %q", c.Summary.Key)
	}
	return nil
}

func (c *Config) validateSchedule() error {
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	if !c.Schedule.Enabled {
		return nil
	}
	if c.Schedule.SummaryCron == "" && c.Schedule.SLOCron == "" {
		return errors.New("schedule.summary_cron or schedule.slo_cron must be set when schedule.enabled is true")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.InvocationTimeout <= 0 || c.Workflow.InvocationTimeout > 3600 {
		return errors.New("workflow.invocation_timeout must be between 1 and 3600 seconds")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
