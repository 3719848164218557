// Package scheduler triggers the health jobs on cron expressions evaluated in
// a fixed time zone.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"vigil/internal/config"
	"vigil/internal/jobs"
	"vigil/internal/logging"
	"vigil/internal/services"
)

// TriggerSchedule labels runs started by the scheduler.
const TriggerSchedule = "schedule"

// Runner executes a named job. *jobs.Runner satisfies it.
type Runner interface {
	Run(ctx context.Context, name string) (any, error)
}

// Job binds a job name to its cron expression.
type Job struct {
	Name string
	Spec string
}

// EntryStatus reports the timing of a registered job.
type EntryStatus struct {
	Job  string    `json:"job"`
	Spec string    `json:"spec"`
	Next time.Time `json:"next,omitempty"`
	Prev time.Time `json:"prev,omitempty"`
}

// JobsFromConfig pairs the health jobs with their configured cron expressions.
func JobsFromConfig(cfg *config.Config) []Job {
	return []Job{
		{Name: jobs.JobSummary, Spec: cfg.Schedule.SummaryCron},
		{Name: jobs.JobReleaseCheck, Spec: cfg.Schedule.SLOCron},
	}
}

type entry struct {
	job      Job
	id       cron.EntryID
	schedule cron.Schedule
}

// Scheduler owns the cron loop.
type Scheduler struct {
	cron     *cron.Cron
	runner   Runner
	logger   *slog.Logger
	location *time.Location
	entries  []entry

	mu      sync.Mutex
	baseCtx context.Context
	running bool
}

// New registers jobs from the [schedule] section. A disabled schedule yields
// a scheduler with no entries.
func New(cfg *config.Config, runner Runner, logger *slog.Logger, jobs ...Job) (*Scheduler, error) {
	if cfg == nil || runner == nil {
		return nil, services.Wrap(services.ErrConfiguration, "scheduler", "init", "config and runner are required", nil)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "scheduler", "init", "load time zone", err)
	}
	logger = logging.NewComponentLogger(logger, "scheduler")
	adapter := cronLogger{logger: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(adapter),
			cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
		),
		runner:   runner,
		logger:   logger,
		location: loc,
		baseCtx:  context.Background(),
	}
	if !cfg.Schedule.Enabled {
		return s, nil
	}
	for _, job := range jobs {
		if job.Spec == "" {
			continue
		}
		if err := s.add(job); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Scheduler) add(job Job) error {
	schedule, err := cron.ParseStandard(job.Spec)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "scheduler", "parse cron", fmt.Sprintf("%s: %q", job.Name, job.Spec), err)
	}
	name := job.Name
	id := s.cron.Schedule(schedule, cron.FuncJob(func() { s.trigger(name) }))
	s.entries = append(s.entries, entry{job: job, id: id, schedule: schedule})
	return nil
}

func (s *Scheduler) trigger(name string) {
	s.mu.Lock()
	base := s.baseCtx
	s.mu.Unlock()

	ctx := services.WithTrigger(base, TriggerSchedule)
	logger := logging.WithContext(services.WithJob(ctx, name), s.logger)
	logger.Info("scheduled run starting")
	if _, err := s.runner.Run(ctx, name); err != nil {
		logger.Warn("scheduled run failed; waiting for next trigger",
			logging.Error(err),
			logging.String(logging.FieldEventType, "scheduled_run_failed"),
		)
	}
}

// Start begins dispatching. Runs inherit ctx values and cancellation.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	if ctx != nil {
		s.baseCtx = ctx
	}
	s.running = true
	s.cron.Start()
	for _, e := range s.entries {
		s.logger.Info("job scheduled",
			logging.Job(e.job.Name),
			logging.String("spec", e.job.Spec),
			logging.Time("next", e.schedule.Next(time.Now().In(s.location))),
		)
	}
}

// Stop halts the loop and waits for in-flight runs until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out with runs in flight",
			logging.String(logging.FieldEventType, "scheduler_stop_timeout"),
		)
	}
}

// Entries reports the registered jobs with their next and previous fire times.
func (s *Scheduler) Entries() []EntryStatus {
	out := make([]EntryStatus, 0, len(s.entries))
	now := time.Now().In(s.location)
	for _, e := range s.entries {
		status := EntryStatus{Job: e.job.Name, Spec: e.job.Spec}
		live := s.cron.Entry(e.id)
		if live.Valid() && !live.Next.IsZero() {
			status.Next = live.Next
			status.Prev = live.Prev
		} else {
			status.Next = e.schedule.Next(now)
		}
		out = append(out, status)
	}
	return out
}

// Next returns the first fire time of the named job after t.
func (s *Scheduler) Next(name string, after time.Time) (time.Time, bool) {
	for _, e := range s.entries {
		if e.job.Name == name {
			return e.schedule.Next(after.In(s.location)), true
		}
	}
	return time.Time{}, false
}

type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	args := append([]any{logging.Error(err)}, keysAndValues...)
	l.logger.Error("cron: "+msg, args...)
}
