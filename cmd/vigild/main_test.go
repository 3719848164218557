package main

import (
	"context"
	"testing"

	"vigil/internal/config"
	"vigil/internal/logging"
	"vigil/internal/testsupport"
)

func TestBuildDaemonWithSQLite(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	d, err := buildDaemon(context.Background(), cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("buildDaemon: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if d.APIAddr() == "" {
		t.Fatal("expected API listener")
	}
	if _, err := d.Runner().RunSummary(context.Background()); err != nil {
		t.Fatalf("RunSummary: %v", err)
	}
}

func TestBuildDaemonRejectsUnknownDriver(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Store.Driver = "oracle"
	if _, err := buildDaemon(context.Background(), cfg, logging.NewNop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestReportsBackendLabel(t *testing.T) {
	cfg := config.Default()
	if got := reportsBackend(&cfg); got != config.DriverSQLite {
		t.Fatalf("unexpected label %q", got)
	}
	cfg.Reports.Backend = config.ReportsBackendRedis
	if got := reportsBackend(&cfg); got != "redis" {
		t.Fatalf("unexpected label %q", got)
	}
}
