// Package store persists workflow events and the latest-wins report documents
// built from them.
//
// An EventStore is append-only: events get their identifier and timestamp from
// the store at write time and are never mutated. A ReportStore keeps one
// document per (namespace, key) and replaces it on every write. Backends:
// SQLite (default, embedded), Postgres through the pgx stdlib driver, MongoDB,
// an in-memory store for tests, and Redis for reports only. Open selects the
// backend from configuration.
//
// Validation happens at this boundary: appends reject events without a step or
// with an unknown status, and decoding tolerates legacy rows by defaulting
// missing fields explicitly.
package store
