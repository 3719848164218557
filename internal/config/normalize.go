package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStore(); err != nil {
		return err
	}
	c.normalizeReports()
	c.normalizeNotifications()
	c.normalizeSchedule()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("VIGIL_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeStore() error {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch c.Store.Driver {
	case "", "sqlite3":
		c.Store.Driver = DriverSQLite
	case "postgresql", "pgx":
		c.Store.Driver = DriverPostgres
	case "mongodb":
		c.Store.Driver = DriverMongo
	}
	c.Store.DSN = strings.TrimSpace(c.Store.DSN)
	if c.Store.DSN == "" {
		if value, ok := os.LookupEnv("VIGIL_STORE_DSN"); ok {
			c.Store.DSN = strings.TrimSpace(value)
		}
	}
	if c.Store.Driver == DriverSQLite {
		if c.Store.DSN == "" {
			c.Store.DSN = filepath.Join(c.Paths.DataDir, "vigil.db")
		}
		var err error
		if c.Store.DSN, err = expandPath(c.Store.DSN); err != nil {
			return fmt.Errorf("store.dsn: %w", err)
		}
	}
	c.Store.Database = strings.TrimSpace(c.Store.Database)
	if c.Store.Database == "" {
		c.Store.Database = defaultStoreDatabase
	}
	if c.Store.Timeout <= 0 {
		c.Store.Timeout = defaultStoreTimeout
	}
	return nil
}

func (c *Config) normalizeReports() {
	c.Reports.Backend = strings.ToLower(strings.TrimSpace(c.Reports.Backend))
	if c.Reports.Backend == "store" {
		c.Reports.Backend = ReportsBackendStore
	}
	c.Reports.RedisAddr = strings.TrimSpace(c.Reports.RedisAddr)
	if c.Reports.RedisAddr == "" {
		c.Reports.RedisAddr = defaultRedisAddr
	}
	if c.Reports.RedisPassword == "" {
		if value, ok := os.LookupEnv("VIGIL_REDIS_PASSWORD"); ok {
			c.Reports.RedisPassword = value
		}
	}
	c.Reports.KeyPrefix = strings.Trim(strings.TrimSpace(c.Reports.KeyPrefix), ":")
	if c.Reports.KeyPrefix == "" {
		c.Reports.KeyPrefix = defaultReportKeyPrefix
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.WebhookURL = strings.TrimSpace(c.Notifications.WebhookURL)
	if c.Notifications.WebhookURL == "" {
		if value, ok := os.LookupEnv("SLACK_ALERT_WEBHOOK_URL"); ok && strings.TrimSpace(value) != "" {
			c.Notifications.WebhookURL = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("SLACK_WEBHOOK_URL"); ok {
			c.Notifications.WebhookURL = strings.TrimSpace(value)
		}
	}
	c.Notifications.Format = strings.ToLower(strings.TrimSpace(c.Notifications.Format))
	if c.Notifications.Format == "" {
		c.Notifications.Format = defaultNotifyFormat
	}
}

func (c *Config) normalizeSchedule() {
	c.Schedule.Timezone = strings.TrimSpace(c.Schedule.Timezone)
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = defaultTimezone
	}
	c.Schedule.SummaryCron = strings.TrimSpace(c.Schedule.SummaryCron)
	c.Schedule.SLOCron = strings.TrimSpace(c.Schedule.SLOCron)
	c.Summary.Key = strings.TrimSpace(c.Summary.Key)
	if c.Summary.Key == "" {
		c.Summary.Key = defaultSummaryKey
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case LogFormatJSON:
	default:
		c.Logging.Format = LogFormatConsole
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
