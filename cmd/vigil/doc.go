// Command vigil is the command-line client for the vigil daemon.
//
// It triggers the summary and release-check jobs, shows the latest stored
// reports, lists and records workflow events, reports daemon status and
// manages the configuration file. Every daemon-facing command accepts --json
// for machine-readable output.
package main
