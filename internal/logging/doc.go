// Package logging assembles structured slog loggers and formatting helpers used
// across vigil.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so job code automatically tags
// log lines with job names, workflow steps, triggers and correlation IDs. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
//
// Swallowed failures (event recording, alert delivery) must go through
// WarnWithContext so every warning carries an event type, a hint and the
// user-facing impact.
package logging
