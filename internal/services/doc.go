// Package services defines shared utilities consumed by the recorder, the
// health jobs and the HTTP surface.
//
// Key responsibilities:
//   - Context helpers that stamp step names, job names, triggers and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so store and job failures
//     classify consistently (validation vs not found vs transient) and map to
//     HTTP status codes in one place.
package services
