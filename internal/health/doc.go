// Package health turns the workflow event log into periodic reports.
//
// Summarize and EvaluateSLO are pure functions over a slice of events. The
// Aggregator and Evaluator wrap them with the store reads and writes and the
// alert side effects: a store failure is returned to the caller, an alert
// failure never is. Both reports are latest-wins documents; a run that fails
// before the final write leaves the previous document untouched.
package health
