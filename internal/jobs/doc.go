// Package jobs is the invocation boundary shared by the scheduler, the HTTP
// trigger and the CLI. A run applies the configured deadline, records its own
// workflow event and sends an error alert when it fails.
package jobs
