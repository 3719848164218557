package api

import (
	"encoding/json"
	"time"

	"vigil/internal/jobs"
	"vigil/internal/preflight"
	"vigil/internal/scheduler"
	"vigil/internal/store"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Envelope wraps every API response.
type Envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// WorkflowEvent describes a stored event in a transport-friendly format.
type WorkflowEvent struct {
	ID           string            `json:"id"`
	Step         string            `json:"step"`
	Status       string            `json:"status"`
	DurationMs   int64             `json:"durationMs"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Timestamp    string            `json:"timestamp"`
}

// RecordEventRequest is the body of POST /api/events.
type RecordEventRequest struct {
	Step         string            `json:"step"`
	Status       string            `json:"status"`
	DurationMs   int64             `json:"durationMs"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// RecordEventResponse returns the id assigned by the store.
type RecordEventResponse struct {
	ID string `json:"id"`
}

// EventListResponse wraps a range query.
type EventListResponse struct {
	Since  string          `json:"since"`
	Until  string          `json:"until,omitempty"`
	Events []WorkflowEvent `json:"events"`
}

// ScheduleEntry mirrors a registered cron job.
type ScheduleEntry struct {
	Job  string `json:"job"`
	Spec string `json:"spec"`
	Next string `json:"next,omitempty"`
	Prev string `json:"prev,omitempty"`
}

// JobRun describes the latest run of a job.
type JobRun struct {
	Job        string `json:"job"`
	Trigger    string `json:"trigger,omitempty"`
	StartedAt  string `json:"startedAt"`
	FinishedAt string `json:"finishedAt"`
	DurationMs int64  `json:"durationMs"`
	OK         bool   `json:"ok"`
	Error      string `json:"error,omitempty"`
}

// CheckResult mirrors a preflight check.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running         bool            `json:"running"`
	PID             int             `json:"pid"`
	StartedAt       string          `json:"startedAt,omitempty"`
	LockFilePath    string          `json:"lockFilePath"`
	LogPath         string          `json:"logPath"`
	StoreDriver     string          `json:"storeDriver"`
	ReportsBackend  string          `json:"reportsBackend,omitempty"`
	AlertingEnabled bool            `json:"alertingEnabled"`
	Timezone        string          `json:"timezone"`
	Schedule        []ScheduleEntry `json:"schedule"`
	LastRuns        []JobRun        `json:"lastRuns"`
	Checks          []CheckResult   `json:"checks"`
}

// TestNotifyResponse reports the outcome of a test alert.
type TestNotifyResponse struct {
	Sent   bool   `json:"sent"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// FromWorkflowEvent converts a stored event.
func FromWorkflowEvent(ev store.WorkflowEvent) WorkflowEvent {
	return WorkflowEvent{
		ID:           ev.ID,
		Step:         ev.Step,
		Status:       string(ev.Status),
		DurationMs:   ev.DurationMs,
		ErrorMessage: ev.ErrorMessage,
		Metadata:     ev.Metadata,
		Timestamp:    formatTime(ev.Timestamp),
	}
}

// FromWorkflowEvents converts a slice, never returning nil.
func FromWorkflowEvents(events []store.WorkflowEvent) []WorkflowEvent {
	out := make([]WorkflowEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, FromWorkflowEvent(ev))
	}
	return out
}

// FromScheduleEntries converts scheduler entries.
func FromScheduleEntries(entries []scheduler.EntryStatus) []ScheduleEntry {
	out := make([]ScheduleEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, ScheduleEntry{
			Job:  e.Job,
			Spec: e.Spec,
			Next: formatTime(e.Next),
			Prev: formatTime(e.Prev),
		})
	}
	return out
}

// FromJobRuns converts runner history.
func FromJobRuns(runs []jobs.RunStatus) []JobRun {
	out := make([]JobRun, 0, len(runs))
	for _, r := range runs {
		out = append(out, JobRun{
			Job:        r.Job,
			Trigger:    r.Trigger,
			StartedAt:  formatTime(r.StartedAt),
			FinishedAt: formatTime(r.FinishedAt),
			DurationMs: r.Duration.Milliseconds(),
			OK:         r.OK,
			Error:      r.Error,
		})
	}
	return out
}

// FromChecks converts preflight results.
func FromChecks(results []preflight.Result) []CheckResult {
	out := make([]CheckResult, 0, len(results))
	for _, r := range results {
		out = append(out, CheckResult{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
	}
	return out
}

// ParseTime accepts RFC3339 (with or without fractional seconds) or a bare
// YYYY-MM-DD date interpreted in UTC.
func ParseTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
