package testsupport

import (
	"path/filepath"
	"testing"

	"vigil/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The store defaults to SQLite inside the temp dir and the API binds to an
// ephemeral port.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Store.Driver = config.DriverSQLite
	cfgVal.Store.DSN = filepath.Join(base, "data", "vigil.db")
	cfgVal.Notifications.WebhookURL = ""
	cfgVal.Schedule.Enabled = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithMemoryStore switches the config to the in-memory driver.
func WithMemoryStore() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Store.Driver = config.DriverMemory
		b.cfg.Store.DSN = ""
	}
}

// WithStore selects a driver and DSN.
func WithStore(driver, dsn string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Store.Driver = driver
		b.cfg.Store.DSN = dsn
	}
}

// WithWebhook points alert delivery at url using format.
func WithWebhook(url, format string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.WebhookURL = url
		if format != "" {
			b.cfg.Notifications.Format = format
		}
	}
}

// WithAPIToken requires bearer authentication on the API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithSLOTarget overrides the error-rate target.
func WithSLOTarget(percent float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.SLO.TargetErrorRatePercent = percent
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
