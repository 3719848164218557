package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"vigil/internal/config"
)

// LogFileName is the daemon log file created inside the configured log directory.
const LogFileName = "vigil.log"

// LogPath returns where the daemon writes its log, or "" when no log
// directory is configured. The CLI logs command tails the same path.
func LogPath(cfg *config.Config) string {
	if cfg == nil || strings.TrimSpace(cfg.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(cfg.Paths.LogDir, LogFileName)
}

// Options describes logger construction parameters. OutputPaths accepts
// "stdout", "stderr" or file paths; an empty list means stdout.
type Options struct {
	Level       string
	Format      string
	OutputPaths []string
	Development bool
}

type handlerFactory func(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler

var handlerFactories = map[string]handlerFactory{
	config.LogFormatConsole: newConsoleHandler,
	config.LogFormatJSON:    newJSONHandler,
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = config.LogFormatConsole
	}
	factory, ok := handlerFactories[format]
	if !ok {
		return nil, fmt.Errorf("log format: unsupported value %q (want %s)", opts.Format, strings.Join(supportedFormats(), " or "))
	}

	levelVar := new(slog.LevelVar)
	levelVar.Set(parseLevel(opts.Level))

	writer, err := openOutputs(opts.OutputPaths)
	if err != nil {
		return nil, err
	}
	addSource := opts.Development || levelVar.Level() <= slog.LevelDebug
	return slog.New(factory(writer, levelVar, addSource)), nil
}

// NewFromConfig creates the daemon logger: stdout plus vigil.log when a log
// directory is configured.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info", Format: config.LogFormatConsole})
	}
	outputs := []string{"stdout"}
	if path := LogPath(cfg); path != "" {
		outputs = append(outputs, path)
	}
	return New(Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
	})
}

func supportedFormats() []string {
	names := make([]string, 0, len(handlerFactories))
	for name := range handlerFactories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// parseLevel accepts slog level names ("debug", "warn", "INFO+2") plus the
// "warning" alias. Anything unparseable logs at info.
func parseLevel(level string) slog.Level {
	text := strings.TrimSpace(level)
	if strings.EqualFold(text, "warning") {
		return slog.LevelWarn
	}
	var lvl slog.Level
	if text == "" || lvl.UnmarshalText([]byte(text)) != nil {
		return slog.LevelInfo
	}
	return lvl
}

func openOutputs(paths []string) (io.Writer, error) {
	var writers []io.Writer
	seen := map[string]bool{}
	for _, raw := range paths {
		path := strings.TrimSpace(raw)
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true
		w, err := openOutput(path)
		if err != nil {
			return nil, err
		}
		writers = append(writers, w)
	}
	switch len(writers) {
	case 0:
		return os.Stdout, nil
	case 1:
		return writers[0], nil
	default:
		return io.MultiWriter(writers...), nil
	}
}

func openOutput(path string) (io.Writer, error) {
	switch path {
	case "stdout", "-":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir for %s: %w", path, err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(discardHandler{})
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool { return false }

func (discardHandler) Handle(context.Context, slog.Record) error { return nil }

func (discardHandler) WithAttrs([]slog.Attr) slog.Handler { return discardHandler{} }

func (discardHandler) WithGroup(string) slog.Handler { return discardHandler{} }
