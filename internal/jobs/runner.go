package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"vigil/internal/config"
	"vigil/internal/health"
	"vigil/internal/logging"
	"vigil/internal/recorder"
	"vigil/internal/services"
)

// Job names double as the step names their runs are recorded under.
const (
	JobSummary      = "generateWorkflowSummary"
	JobReleaseCheck = health.JobReleaseCheck
)

// Options wires a Runner.
type Options struct {
	Config     *config.Config
	Logger     *slog.Logger
	Aggregator *health.Aggregator
	Evaluator  *health.Evaluator
	Recorder   *recorder.Recorder
	Notifier   health.Notifier
	// Now overrides the clock used for window bounds.
	Now func() time.Time
}

// RunStatus describes the most recent run of a job.
type RunStatus struct {
	Job        string        `json:"job"`
	Trigger    string        `json:"trigger,omitempty"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	Duration   time.Duration `json:"durationNs"`
	OK         bool          `json:"ok"`
	Error      string        `json:"error,omitempty"`
}

// Runner executes named jobs.
type Runner struct {
	cfg        *config.Config
	logger     *slog.Logger
	aggregator *health.Aggregator
	evaluator  *health.Evaluator
	recorder   *recorder.Recorder
	notifier   health.Notifier
	now        func() time.Time

	mu   sync.Mutex
	last map[string]RunStatus
}

// New builds a Runner. Config, Aggregator and Evaluator are required.
func New(opts Options) (*Runner, error) {
	if opts.Config == nil {
		return nil, services.Wrap(services.ErrConfiguration, "jobs", "init", "config is required", nil)
	}
	if opts.Aggregator == nil || opts.Evaluator == nil {
		return nil, services.Wrap(services.ErrConfiguration, "jobs", "init", "aggregator and evaluator are required", nil)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Runner{
		cfg:        opts.Config,
		logger:     logging.NewComponentLogger(opts.Logger, "jobs"),
		aggregator: opts.Aggregator,
		evaluator:  opts.Evaluator,
		recorder:   opts.Recorder,
		notifier:   opts.Notifier,
		now:        now,
		last:       make(map[string]RunStatus),
	}, nil
}

// Names lists the runnable jobs.
func Names() []string {
	return []string{JobSummary, JobReleaseCheck}
}

// Known reports whether name is a runnable job.
func Known(name string) bool {
	return name == JobSummary || name == JobReleaseCheck
}

// Run executes the named job and returns its result: a health.WindowSummary
// for the summary job and a health.SLOCheckResult for the release check.
func (r *Runner) Run(ctx context.Context, name string) (any, error) {
	switch name {
	case JobSummary:
		return r.RunSummary(ctx)
	case JobReleaseCheck:
		return r.RunReleaseCheck(ctx)
	default:
		return nil, services.Wrap(services.ErrValidation, "jobs", "run", fmt.Sprintf("unknown job %q", name), nil)
	}
}

// RunSummary aggregates the summary window and stores it under the configured key.
func (r *Runner) RunSummary(ctx context.Context) (health.WindowSummary, error) {
	var summary health.WindowSummary
	err := r.invoke(ctx, JobSummary, func(runCtx context.Context) error {
		var err error
		summary, err = r.aggregator.Aggregate(runCtx, r.cfg.Summary.WindowDays, r.now())
		return err
	})
	return summary, err
}

// RunReleaseCheck evaluates the SLO window against the configured target.
func (r *Runner) RunReleaseCheck(ctx context.Context) (health.SLOCheckResult, error) {
	var result health.SLOCheckResult
	err := r.invoke(ctx, JobReleaseCheck, func(runCtx context.Context) error {
		var err error
		result, err = r.evaluator.Evaluate(runCtx, r.cfg.SLO.WindowDays, r.cfg.SLO.TargetErrorRatePercent, r.now())
		return err
	})
	return result, err
}

// LastRuns returns the latest status per job, sorted by name.
func (r *Runner) LastRuns() []RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RunStatus, 0, len(r.last))
	for _, status := range r.last {
		out = append(out, status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Job < out[j].Job })
	return out
}

func (r *Runner) invoke(ctx context.Context, job string, fn func(context.Context) error) error {
	jobCtx := services.WithJob(ctx, job)
	if timeout := r.cfg.InvocationTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(jobCtx, timeout)
		defer cancel()
	}
	logger := logging.WithContext(jobCtx, r.logger)
	trigger, _ := services.TriggerFromContext(jobCtx)

	logger.Info("job started", logging.String(logging.FieldEventType, "job_start"))
	started := time.Now()

	var metadata map[string]string
	if trigger != "" {
		metadata = map[string]string{"trigger": trigger}
	}
	err := r.recorder.Track(jobCtx, job, metadata, fn)

	status := RunStatus{
		Job:        job,
		Trigger:    trigger,
		StartedAt:  started.UTC(),
		FinishedAt: time.Now().UTC(),
		Duration:   time.Since(started),
		OK:         err == nil,
	}
	if err != nil {
		status.Error = strings.TrimSpace(err.Error())
	}
	r.mu.Lock()
	r.last[job] = status
	r.mu.Unlock()

	if err != nil {
		r.handleFailure(jobCtx, logger, job, err)
		return err
	}
	logger.Info("job completed",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.Duration("duration", status.Duration),
	)
	return nil
}

func (r *Runner) handleFailure(ctx context.Context, logger *slog.Logger, job string, err error) {
	logging.ErrorWithContext(logger, "job failed", "job_failure",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, hintFor(err)),
	)
	if r.notifier == nil || health.Alerted(err) {
		return
	}
	r.notifier.Dispatch(ctx, health.FormatFailure(job, err))
}

func hintFor(err error) string {
	switch services.Classify(err) {
	case services.ErrTimeout:
		return "raise workflow.invocation_timeout or check store latency"
	case services.ErrValidation, services.ErrConfiguration:
		return "check the slo and summary settings"
	default:
		return "check event store connectivity"
	}
}
