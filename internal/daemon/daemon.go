package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"vigil/internal/alerts"
	"vigil/internal/config"
	"vigil/internal/health"
	"vigil/internal/jobs"
	"vigil/internal/logging"
	"vigil/internal/preflight"
	"vigil/internal/recorder"
	"vigil/internal/scheduler"
	"vigil/internal/store"
)

// Daemon coordinates the scheduler and HTTP API and enforces single-instance execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      store.Store
	dispatcher *alerts.Dispatcher
	runner     *jobs.Runner
	scheduler  *scheduler.Scheduler
	api        *apiServer
	logPath    string

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	startedAt atomic.Int64
	cancel    context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	StartedAt    time.Time
	LockFilePath string
	LogPath      string
	Schedule     []scheduler.EntryStatus
	LastRuns     []jobs.RunStatus
	Checks       []preflight.Result
}

// New constructs a daemon with initialized dependencies. dispatcher may be
// nil, which disables alerting.
func New(cfg *config.Config, st store.Store, logger *slog.Logger, dispatcher *alerts.Dispatcher) (*Daemon, error) {
	if cfg == nil || st == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, and logger")
	}
	if dispatcher == nil {
		dispatcher = alerts.NewDispatcher(nil, logger)
	}

	aggregator := health.NewAggregator(st, st, dispatcher, logger, health.AggregatorOptions{
		Key:            cfg.Summary.Key,
		TopErrorsLimit: cfg.Summary.TopErrorsLimit,
		SendDigest:     true,
	})
	evaluator := health.NewEvaluator(st, st, dispatcher, logger, cfg.SLO.TopErrorsLimit)
	runner, err := jobs.New(jobs.Options{
		Config:     cfg,
		Logger:     logger,
		Aggregator: aggregator,
		Evaluator:  evaluator,
		Recorder:   recorder.New(st, logger),
		Notifier:   dispatcher,
	})
	if err != nil {
		return nil, err
	}
	sched, err := scheduler.New(cfg, runner, logger, scheduler.JobsFromConfig(cfg)...)
	if err != nil {
		return nil, err
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "vigild.lock")
	d := &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		store:      st,
		dispatcher: dispatcher,
		runner:     runner,
		scheduler:  sched,
		logPath:    logging.LogPath(cfg),
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, runs preflight checks and launches the
// scheduler and API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another vigil daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	for _, failed := range preflight.Failed(preflight.RunAll(runCtx, d.cfg, d.store)) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", failed.Name),
			logging.String("detail", failed.Detail),
			logging.String(logging.FieldImpact, "jobs may fail until this is fixed"),
		)
	}

	if err := d.api.start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		return fmt.Errorf("start api: %w", err)
	}
	d.scheduler.Start(runCtx)

	d.cancel = cancel
	d.startedAt.Store(time.Now().UnixNano())
	d.running.Store(true)
	d.logger.Info("vigil daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.APIAddr()),
		logging.Int("scheduled_jobs", len(d.scheduler.Entries())),
	)
	return nil
}

// Stop halts the scheduler and API server and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), d.cfg.InvocationTimeout())
	defer cancel()
	d.scheduler.Stop(stopCtx)
	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("vigil daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Runner exposes the job runner shared by the scheduler and API.
func (d *Daemon) Runner() *jobs.Runner {
	return d.runner
}

// APIAddr returns the address the API server listens on, or "" before Start.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// TestNotification sends a test alert through the configured destination.
func (d *Daemon) TestNotification(ctx context.Context) alerts.Delivery {
	return d.dispatcher.Notify(ctx, alerts.SeverityInfo, "vigil test notification")
}

// RecordEvent appends an externally reported event. Unlike the recorder it
// surfaces validation and store errors to the caller.
func (d *Daemon) RecordEvent(ctx context.Context, ev store.WorkflowEvent) (string, error) {
	return d.store.AppendEvent(ctx, ev)
}

// ListEvents returns events in r.
func (d *Daemon) ListEvents(ctx context.Context, r store.Range) ([]store.WorkflowEvent, error) {
	return d.store.ListEvents(ctx, r)
}

// Reports exposes the report store for read endpoints.
func (d *Daemon) Reports() store.ReportStore {
	return d.store
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		LockFilePath: d.lockPath,
		LogPath:      d.logPath,
		Schedule:     d.scheduler.Entries(),
		LastRuns:     d.runner.LastRuns(),
		Checks:       preflight.RunAll(ctx, d.cfg, d.store),
	}
	if ns := d.startedAt.Load(); ns != 0 && status.Running {
		status.StartedAt = time.Unix(0, ns).UTC()
	}
	return status
}
