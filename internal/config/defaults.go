package config

const (
	defaultConfigPath           = "~/.config/vigil/config.toml"
	defaultDataDir              = "~/.local/share/vigil"
	defaultLogDir               = "~/.local/share/vigil/logs"
	defaultAPIBind              = "127.0.0.1:7490"
	defaultStoreDriver          = DriverSQLite
	defaultStoreDatabase        = "vigil"
	defaultStoreTimeout         = 5
	defaultRedisAddr            = "127.0.0.1:6379"
	defaultReportKeyPrefix      = "vigil"
	defaultNotifyFormat         = FormatSlack
	defaultNotifyRequestTimeout = 10
	defaultSLOTarget            = 1.0
	defaultSLOWindowDays        = 7
	defaultSLOTopErrors         = 5
	defaultSummaryWindowDays    = 7
	defaultSummaryTopErrors     = 3
	defaultSummaryKey           = "weekly"
	defaultTimezone             = "Asia/Seoul"
	defaultSummaryCron          = "0 8 * * 1"
	defaultSLOCron              = "0 10 * * 1"
	defaultInvocationTimeout    = 120
	defaultLogFormat            = LogFormatConsole
	defaultLogLevel             = "info"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// Report backends. An empty backend keeps reports next to events.
const (
	ReportsBackendStore = ""
	ReportsBackendRedis = "redis"
)

// Log output formats.
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

// Notification payload formats.
const (
	FormatSlack = "slack"
	FormatNtfy  = "ntfy"
	FormatJSON  = "json"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Store: Store{
			Driver:   defaultStoreDriver,
			Database: defaultStoreDatabase,
			Timeout:  defaultStoreTimeout,
		},
		Reports: Reports{
			RedisAddr: defaultRedisAddr,
			KeyPrefix: defaultReportKeyPrefix,
		},
		Notifications: Notifications{
			Format:         defaultNotifyFormat,
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		SLO: SLO{
			TargetErrorRatePercent: defaultSLOTarget,
			WindowDays:             defaultSLOWindowDays,
			TopErrorsLimit:         defaultSLOTopErrors,
		},
		Summary: Summary{
			WindowDays:     defaultSummaryWindowDays,
			TopErrorsLimit: defaultSummaryTopErrors,
			Key:            defaultSummaryKey,
		},
		Schedule: Schedule{
			Enabled:     true,
			Timezone:    defaultTimezone,
			SummaryCron: defaultSummaryCron,
			SLOCron:     defaultSLOCron,
		},
		Workflow: Workflow{
			InvocationTimeout: defaultInvocationTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
