package preflight

import (
	"context"

	"vigil/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// Pinger is satisfied by every store backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// MinFreeBytes is the free space required in the data directory when the
// embedded SQLite store is in use.
const MinFreeBytes uint64 = 64 << 20

// RunAll executes all applicable preflight checks for the given config.
// The store check is skipped when st is nil.
func RunAll(ctx context.Context, cfg *config.Config, st Pinger) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Data directory (always checked)
	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))

	if cfg.Paths.LogDir != "" && cfg.Paths.LogDir != cfg.Paths.DataDir {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}

	// Only the embedded store writes to local disk.
	if cfg.Store.Driver == config.DriverSQLite {
		results = append(results, CheckFreeSpace("Data free space", cfg.Paths.DataDir, MinFreeBytes))
	}

	if st != nil {
		results = append(results, CheckStore(ctx, "Event store", st))
	}

	results = append(results, CheckAlertingFromConfig(cfg))
	return results
}

// Failed filters results down to failed checks.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
