// Package logs reads the daemon log file for `vigil logs`.
//
// Reads are bounded: Last keeps a ring of the requested number of lines and
// Follow polls from a byte offset until its context ends. A missing file is
// treated as empty so the CLI works before the daemon first starts.
package logs
