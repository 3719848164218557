package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"vigil/internal/services"
)

// Status is the outcome of one unit of work.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Valid reports whether s is one of the known outcomes.
func (s Status) Valid() bool {
	return s == StatusSuccess || s == StatusError
}

// ParseStatus normalizes user input into a Status.
func ParseStatus(value string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	if !status.Valid() {
		return "", services.Wrap(services.ErrValidation, "store", "parse status", fmt.Sprintf("unknown status %q (expected success or error)", value), nil)
	}
	return status, nil
}

// WorkflowEvent is one recorded execution outcome.
type WorkflowEvent struct {
	ID           string            `json:"id"`
	Step         string            `json:"step"`
	Status       Status            `json:"status"`
	DurationMs   int64             `json:"durationMs"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
}

// Range selects events with Since <= timestamp (<= Until when set).
type Range struct {
	Since time.Time
	Until *time.Time
}

// Contains reports whether ts falls inside the range.
func (r Range) Contains(ts time.Time) bool {
	if ts.Before(r.Since) {
		return false
	}
	if r.Until != nil && ts.After(*r.Until) {
		return false
	}
	return true
}

// Report is a stored latest-wins document.
type Report struct {
	Namespace string
	Key       string
	Body      json.RawMessage
	UpdatedAt time.Time
}

// EventStore is the append-only workflow event log.
type EventStore interface {
	AppendEvent(ctx context.Context, event WorkflowEvent) (string, error)
	ListEvents(ctx context.Context, r Range) ([]WorkflowEvent, error)
}

// ReportStore keeps one document per namespace and key.
type ReportStore interface {
	PutReport(ctx context.Context, namespace, key string, body []byte) error
	GetReport(ctx context.Context, namespace, key string) (Report, error)
}

// Store combines both collaborators with lifecycle hooks.
type Store interface {
	EventStore
	ReportStore
	Ping(ctx context.Context) error
	Close() error
}

// prepareEvent validates an event for appending and stamps it with a fresh id
// and the store's clock.
func prepareEvent(event WorkflowEvent, now time.Time) (WorkflowEvent, error) {
	event.Step = strings.TrimSpace(event.Step)
	if event.Step == "" {
		return WorkflowEvent{}, services.Wrap(services.ErrValidation, "store", "append event", "step is required", nil)
	}
	if !event.Status.Valid() {
		return WorkflowEvent{}, services.Wrap(services.ErrValidation, "store", "append event", fmt.Sprintf("unknown status %q", event.Status), nil)
	}
	if event.DurationMs < 0 {
		return WorkflowEvent{}, services.Wrap(services.ErrValidation, "store", "append event", "duration must not be negative", nil)
	}
	if event.Status == StatusError {
		event.ErrorMessage = strings.TrimSpace(event.ErrorMessage)
	} else {
		event.ErrorMessage = ""
	}
	event.Metadata = copyMetadata(event.Metadata)
	event.ID = uuid.NewString()
	event.Timestamp = now.UTC()
	return event, nil
}

// decodeEvent applies the explicit defaults for rows written by older or
// foreign writers.
func decodeEvent(event WorkflowEvent) WorkflowEvent {
	event.Step = strings.TrimSpace(event.Step)
	if event.Step == "" {
		event.Step = "unknown"
	}
	event.Status = Status(strings.ToLower(strings.TrimSpace(string(event.Status))))
	if event.DurationMs < 0 {
		event.DurationMs = 0
	}
	if len(event.Metadata) == 0 {
		event.Metadata = nil
	}
	event.Timestamp = event.Timestamp.UTC()
	return event
}

func validateReportKey(namespace, key string) error {
	if strings.TrimSpace(namespace) == "" || strings.TrimSpace(key) == "" {
		return services.Wrap(services.ErrValidation, "store", "report key", "namespace and key are required", nil)
	}
	return nil
}

func copyMetadata(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func encodeMetadata(in map[string]string) (string, error) {
	if len(in) == 0 {
		return "", nil
	}
	data, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return string(data), nil
}

func decodeMetadata(raw string) map[string]string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return map[string]string{"raw": raw}
	}
	return out
}

func notFound(namespace, key string) error {
	return services.Wrap(services.ErrNotFound, "store", "get report", fmt.Sprintf("%s/%s", namespace, key), nil)
}
