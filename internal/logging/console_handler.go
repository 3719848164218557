package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// trailingFields always close a console line so the operator's next step is
// the last thing printed.
var trailingFields = []string{"error", FieldErrorHint, FieldImpact}

// consoleHandler prints one line per record:
//
//	2026-03-02 08:00:01 INFO  scheduler: job completed [releaseCheck/evaluate via=schedule cid=ab12] duration=840ms
//
// Job and step collapse into "job/step", trigger prints as via= and the
// correlation id as cid=.
type consoleHandler struct {
	mu        *sync.Mutex
	writer    io.Writer
	level     *slog.LevelVar
	attrs     []slog.Attr
	groups    []string
	addSource bool
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{mu: &sync.Mutex{}, writer: w, level: lvl, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// invocation is the subset of a record that identifies which health job run
// produced it.
type invocation struct {
	component string
	job       string
	step      string
	trigger   string
	requestID string
}

func (inv invocation) header() string {
	parts := make([]string, 0, 3)
	switch {
	case inv.job != "" && inv.step != "":
		parts = append(parts, inv.job+"/"+inv.step)
	case inv.job != "":
		parts = append(parts, inv.job)
	case inv.step != "":
		parts = append(parts, "step="+inv.step)
	}
	if inv.trigger != "" {
		parts = append(parts, "via="+inv.trigger)
	}
	if inv.requestID != "" {
		parts = append(parts, "cid="+inv.requestID)
	}
	if len(parts) == 0 {
		return ""
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// split lifts invocation fields out of kvs and returns the rest with the
// trailing fields moved to the end.
func split(kvs []kv) (invocation, []kv) {
	var inv invocation
	tail := make([]kv, 0, len(kvs))
	var trailing []kv
	for _, item := range kvs {
		switch item.key {
		case FieldComponent:
			inv.component = plainValue(item.value)
		case FieldJob:
			inv.job = plainValue(item.value)
		case FieldStep:
			inv.step = plainValue(item.value)
		case FieldTrigger:
			inv.trigger = plainValue(item.value)
		case FieldCorrelationID:
			inv.requestID = plainValue(item.value)
		case "":
		default:
			if slices.Contains(trailingFields, item.key) {
				trailing = append(trailing, item)
				continue
			}
			tail = append(tail, item)
		}
	}
	for _, key := range trailingFields {
		for _, item := range trailing {
			if item.key == key {
				tail = append(tail, item)
			}
		}
	}
	return inv, tail
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	if record.Level < h.level.Level() {
		return nil
	}

	kvs := make([]kv, 0, record.NumAttrs()+len(h.attrs))
	flattenAttrs(&kvs, h.groups, h.attrs)
	record.Attrs(func(attr slog.Attr) bool {
		flattenAttr(&kvs, h.groups, attr)
		return true
	})
	inv, tail := split(dedupeKVsByKey(kvs))

	timestamp := record.Time
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	var buf bytes.Buffer
	buf.Grow(128 + len(tail)*24)
	buf.WriteString(formatTimestamp(timestamp))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(record.Level))
	buf.WriteByte(' ')
	if inv.component != "" {
		buf.WriteString(inv.component)
		buf.WriteString(": ")
	}
	if msg := strings.TrimSpace(record.Message); msg != "" {
		buf.WriteString(msg)
	} else {
		buf.WriteString("(no message)")
	}
	if header := inv.header(); header != "" {
		buf.WriteByte(' ')
		buf.WriteString(header)
	}
	if h.addSource {
		if src := record.Source(); src != nil && src.File != "" {
			buf.WriteString(" (")
			buf.WriteString(filepath.Base(src.File))
			buf.WriteByte(':')
			buf.WriteString(strconv.Itoa(src.Line))
			buf.WriteByte(')')
		}
	}
	for _, item := range tail {
		buf.WriteByte(' ')
		buf.WriteString(item.key)
		buf.WriteByte('=')
		buf.WriteString(renderValue(item.key, item.value, true))
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.writer.Write(buf.Bytes())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	clone.attrs = append(clone.attrs, attrs...)
	return clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *consoleHandler) clone() *consoleHandler {
	return &consoleHandler{
		mu:        h.mu,
		writer:    h.writer,
		level:     h.level,
		addSource: h.addSource,
		attrs:     append([]slog.Attr(nil), h.attrs...),
		groups:    append([]string(nil), h.groups...),
	}
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN "
	case level >= slog.LevelInfo:
		return "INFO "
	default:
		return "DEBUG"
	}
}
