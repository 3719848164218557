// Package api defines the wire-format types shared by the daemon HTTP server
// and the CLI, plus the HTTP client the CLI uses.
//
// # Envelope
//
// Every response body is {"ok": bool, "data": ..., "error": "..."}. Summary and
// SLO payloads reuse the health report documents unchanged so the stored,
// served and rendered shapes never drift.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds.
// Converters (FromWorkflowEvent, FromJobRuns, FromScheduleEntries, FromChecks)
// keep internal types out of the transport layer.
package api
