package logging_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vigil/internal/config"
	"vigil/internal/logging"
	"vigil/internal/services"
)

func logPathFor(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name+".log")
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from config")

	content := readLog(t, filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if !strings.Contains(content, "hello from config") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerOmitsSourceForInfo(t *testing.T) {
	logPath := logPathFor(t, "console-info")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without source")

	if content := readLog(t, logPath); strings.Contains(content, ".go:") {
		t.Fatalf("expected no source information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesSourceForDebug(t *testing.T) {
	logPath := logPathFor(t, "console-debug")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Debug("message with source")

	if content := readLog(t, logPath); !strings.Contains(content, "logger_test.go:") {
		t.Fatalf("expected source information in debug logs, got %q", content)
	}
}

func TestConsoleLoggerLiftsContextFields(t *testing.T) {
	logPath := logPathFor(t, "console-ctx")
	base, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithJob(context.Background(), "releaseCheck")
	ctx = services.WithRequestID(ctx, "req-1")
	logger := logging.WithContext(ctx, logging.NewComponentLogger(base, "slo-evaluator"))
	logger.Info("slo evaluated", logging.Int("total", 12))

	content := readLog(t, logPath)
	for _, fragment := range []string{"slo-evaluator: slo evaluated", "[releaseCheck cid=req-1]", "total=12"} {
		if !strings.Contains(content, fragment) {
			t.Fatalf("expected %q in %q", fragment, content)
		}
	}
}

func TestJSONLoggerUsesStableKeys(t *testing.T) {
	logPath := logPathFor(t, "json-info")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.WarnWithContext(logger, "alert delivery failed", "alert_delivery_failed", logging.String("severity", "warning"))

	var entry map[string]any
	line := strings.TrimSpace(readLog(t, logPath))
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("decode json log line %q: %v", line, err)
	}
	if entry["level"] != "warn" {
		t.Fatalf("unexpected level: %v", entry["level"])
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", entry)
	}
	if entry[logging.FieldEventType] != "alert_delivery_failed" {
		t.Fatalf("expected event_type injected, got %v", entry)
	}
	if entry[logging.FieldImpact] == nil || entry[logging.FieldErrorHint] == nil {
		t.Fatalf("expected impact and error_hint defaults, got %v", entry)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNopLoggerIsSafe(t *testing.T) {
	logger := logging.NewNop()
	logger.Error("discarded")
	logging.WarnWithContext(nil, "nil logger", "noop")
	if logging.NewComponentLogger(nil, "x") == nil {
		t.Fatal("expected component logger")
	}
}

func TestJSONLoggerWritesDurationsAsMilliseconds(t *testing.T) {
	logPath := logPathFor(t, "json-duration")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("job completed", logging.Job("releaseCheck"), logging.Duration("duration", 1500*time.Millisecond), logging.Percent("error_rate_percent", 33.3333))

	var entry map[string]any
	line := strings.TrimSpace(readLog(t, logPath))
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("decode json log line %q: %v", line, err)
	}
	if entry["duration_ms"] != float64(1500) {
		t.Fatalf("expected duration_ms=1500, got %v", entry)
	}
	if entry[logging.FieldJob] != "releaseCheck" {
		t.Fatalf("expected job field, got %v", entry)
	}
	if entry["error_rate_percent"] != 33.33 {
		t.Fatalf("expected rounded percent, got %v", entry["error_rate_percent"])
	}
}

func TestConsoleLoggerFormatsDurationsAndPercents(t *testing.T) {
	logPath := logPathFor(t, "console-values")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("job completed",
		logging.Duration("duration", 2500*time.Millisecond),
		logging.Float64("error_rate_percent", 4.5),
		logging.String("detail", "two words"),
	)

	content := readLog(t, logPath)
	for _, fragment := range []string{"duration=2500ms", "error_rate_percent=4.50%", `detail="two words"`} {
		if !strings.Contains(content, fragment) {
			t.Fatalf("expected %q in %q", fragment, content)
		}
	}
}

func TestConsoleLoggerCollapsesInvocationHeader(t *testing.T) {
	logPath := logPathFor(t, "console-header")
	base, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithJob(context.Background(), "releaseCheck")
	ctx = services.WithStep(ctx, "evaluate")
	ctx = services.WithTrigger(ctx, "schedule")
	logger := logging.WithContext(ctx, logging.NewComponentLogger(base, "scheduler"))
	logging.WarnWithContext(logger, "alert delivery failed", "alert_delivery_failed",
		logging.Error(errors.New("connection refused")),
		logging.Int64("latency_ms", 42),
		logging.Duration("elapsed", 12500*time.Millisecond),
		logging.Int("breached_percent", 5),
	)

	line := strings.TrimSpace(readLog(t, logPath))
	for _, fragment := range []string{
		"scheduler: alert delivery failed [releaseCheck/evaluate via=schedule]",
		"latency_ms=42ms",
		"elapsed=12.5s",
		"breached_percent=5.00%",
	} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("expected %q in %q", fragment, line)
		}
	}
	if strings.Contains(line, "job=") || strings.Contains(line, "trigger=") {
		t.Fatalf("invocation fields should not repeat in the tail: %q", line)
	}
	errAt := strings.Index(line, `error="connection refused"`)
	hintAt := strings.Index(line, logging.FieldErrorHint+"=")
	impactAt := strings.Index(line, logging.FieldImpact+"=")
	eventAt := strings.Index(line, logging.FieldEventType+"=")
	if errAt < 0 || hintAt < errAt || impactAt < hintAt || eventAt > errAt {
		t.Fatalf("expected event_type before error, error_hint, impact at the end: %q", line)
	}
}

func TestNewAcceptsWarningAlias(t *testing.T) {
	logPath := logPathFor(t, "console-warning")
	logger, err := logging.New(logging.Options{Format: "console", Level: "Warning", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("suppressed")
	logger.Warn("kept")

	content := readLog(t, logPath)
	if strings.Contains(content, "suppressed") || !strings.Contains(content, "kept") {
		t.Fatalf("expected only warn output, got %q", content)
	}
}

func TestLogPath(t *testing.T) {
	if got := logging.LogPath(nil); got != "" {
		t.Fatalf("expected empty path for nil config, got %q", got)
	}
	cfg := config.Default()
	cfg.Paths.LogDir = "/var/log/vigil"
	if got := logging.LogPath(&cfg); got != filepath.Join("/var/log/vigil", logging.LogFileName) {
		t.Fatalf("unexpected log path %q", got)
	}
	cfg.Paths.LogDir = " "
	if got := logging.LogPath(&cfg); got != "" {
		t.Fatalf("expected empty path for blank log dir, got %q", got)
	}
}
