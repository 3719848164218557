// Package preflight provides readiness checks for the filesystem paths and
// backends vigil depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and logs every failed check.
//   - The status endpoint (and therefore "vigil status") reports the same
//     results alongside the schedule.
//
// Each check is gated by its config toggle -- disabled features are reported
// as passed with a "Disabled" detail.
package preflight
