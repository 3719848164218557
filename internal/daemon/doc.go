// Package daemon coordinates the long-running vigil process.
//
// It wires configuration, the event store, the job runner and the cron
// scheduler into a single lifecycle with flock-based locking to prevent
// multiple instances. The HTTP API server exposes manual triggers, the latest
// reports, event recording and status.
//
// Keep orchestration logic here: aggregation and SLO rules live in
// internal/health while the daemon focuses on startup, shutdown and the
// transport surface.
package daemon
