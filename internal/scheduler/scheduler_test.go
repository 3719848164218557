package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vigil/internal/jobs"
	"vigil/internal/scheduler"
	"vigil/internal/services"
	"vigil/internal/testsupport"
)

type fakeRunner struct {
	mu       sync.Mutex
	calls    []string
	triggers []string
	err      error
}

func (f *fakeRunner) Run(ctx context.Context, name string) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	trigger, _ := services.TriggerFromContext(ctx)
	f.calls = append(f.calls, name)
	f.triggers = append(f.triggers, trigger)
	return nil, f.err
}

func (f *fakeRunner) snapshot() ([]string, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...), append([]string(nil), f.triggers...)
}

func TestDefaultCadenceInSeoul(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Schedule.Enabled = true
	s, err := scheduler.New(cfg, &fakeRunner{}, nil, scheduler.JobsFromConfig(cfg)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Sunday noon UTC is Sunday 21:00 in Seoul.
	after := time.Date(2025, 1, 12, 12, 0, 0, 0, time.UTC)

	next, ok := s.Next(jobs.JobSummary, after)
	if !ok {
		t.Fatal("summary job not registered")
	}
	if want := time.Date(2025, 1, 12, 23, 0, 0, 0, time.UTC); !next.Equal(want) {
		t.Fatalf("summary next = %s, want %s", next.UTC(), want)
	}
	next, ok = s.Next(jobs.JobReleaseCheck, after)
	if !ok {
		t.Fatal("release check not registered")
	}
	if want := time.Date(2025, 1, 13, 1, 0, 0, 0, time.UTC); !next.Equal(want) {
		t.Fatalf("release check next = %s, want %s", next.UTC(), want)
	}
	if len(s.Entries()) != 2 {
		t.Fatalf("expected two entries, got %+v", s.Entries())
	}
}

func TestDisabledScheduleRegistersNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Schedule.Enabled = false
	s, err := scheduler.New(cfg, &fakeRunner{}, nil, scheduler.JobsFromConfig(cfg)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(s.Entries()) != 0 {
		t.Fatalf("expected no entries, got %+v", s.Entries())
	}
	s.Start(context.Background())
	s.Stop(context.Background())
}

func TestInvalidCronRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Schedule.Enabled = true
	_, err := scheduler.New(cfg, &fakeRunner{}, nil, scheduler.Job{Name: jobs.JobSummary, Spec: "every monday"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestScheduledRunsCarryTrigger(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for a cron tick")
	}
	cfg := testsupport.NewConfig(t)
	cfg.Schedule.Enabled = true
	runner := &fakeRunner{err: errors.New("store offline")}
	s, err := scheduler.New(cfg, runner, nil, scheduler.Job{Name: jobs.JobReleaseCheck, Spec: "@every 1s"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Start(context.Background())
	defer s.Stop(context.Background())

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		calls, triggers := runner.snapshot()
		if len(calls) > 0 {
			if calls[0] != jobs.JobReleaseCheck || triggers[0] != scheduler.TriggerSchedule {
				t.Fatalf("unexpected call %q trigger %q", calls[0], triggers[0])
			}
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("scheduled job never ran")
}
