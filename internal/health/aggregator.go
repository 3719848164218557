package health

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"vigil/internal/alerts"
	"vigil/internal/logging"
	"vigil/internal/services"
	"vigil/internal/store"
)

// Notifier is the best-effort alert collaborator. *alerts.Dispatcher
// satisfies it.
type Notifier interface {
	Dispatch(ctx context.Context, msg alerts.Message) alerts.Delivery
}

// AggregatorOptions tunes an Aggregator.
type AggregatorOptions struct {
	// Key is the latest-wins summary key. Defaults to "weekly".
	Key string
	// TopErrorsLimit caps the failure list. Defaults to 3.
	TopErrorsLimit int
	// SendDigest dispatches an info digest after each successful write.
	SendDigest bool
}

// Aggregator builds and persists window summaries.
type Aggregator struct {
	events   store.EventStore
	reports  store.ReportStore
	notifier Notifier
	logger   *slog.Logger
	opts     AggregatorOptions
}

// NewAggregator wires the collaborators. notifier may be nil.
func NewAggregator(events store.EventStore, reports store.ReportStore, notifier Notifier, logger *slog.Logger, opts AggregatorOptions) *Aggregator {
	if opts.Key == "" {
		opts.Key = DefaultSummaryKey
	}
	if opts.TopErrorsLimit <= 0 {
		opts.TopErrorsLimit = 3
	}
	return &Aggregator{
		events:   events,
		reports:  reports,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "aggregator"),
		opts:     opts,
	}
}

// Aggregate summarizes the trailing windowDays and replaces the summary stored
// at the configured key.
func (a *Aggregator) Aggregate(ctx context.Context, windowDays int, now time.Time) (WindowSummary, error) {
	return a.aggregate(ctx, a.opts.Key, windowDays, now)
}

// AggregateVersioned writes to a fresh "policy-<unix seconds>" key instead of
// the fixed one and returns that key.
func (a *Aggregator) AggregateVersioned(ctx context.Context, windowDays int, now time.Time) (WindowSummary, string, error) {
	key := "policy-" + strconv.FormatInt(now.Unix(), 10)
	summary, err := a.aggregate(ctx, key, windowDays, now)
	return summary, key, err
}

func (a *Aggregator) aggregate(ctx context.Context, key string, windowDays int, now time.Time) (WindowSummary, error) {
	if windowDays <= 0 {
		return WindowSummary{}, services.Wrap(services.ErrValidation, "aggregator", "aggregate", fmt.Sprintf("window days must be positive, got %d", windowDays), nil)
	}
	logger := logging.WithContext(ctx, a.logger)
	window := NewWindow(windowDays, now)

	events, err := a.events.ListEvents(ctx, window.Range())
	if err != nil {
		return WindowSummary{}, services.Wrap(services.ErrTransient, "aggregator", "read events", "", err)
	}
	summary := Summarize(events, window, a.opts.TopErrorsLimit, now)

	// The write is the last step: a run cancelled before this point leaves
	// the previous summary in place.
	if err := ctx.Err(); err != nil {
		return WindowSummary{}, services.Wrap(services.ErrTimeout, "aggregator", "aggregate", "deadline reached before write", err)
	}
	if err := putReport(ctx, a.reports, NamespaceSummary, key, summary); err != nil {
		return WindowSummary{}, services.Wrap(services.ErrTransient, "aggregator", "write summary", key, err)
	}

	logger.Info("workflow summary updated",
		logging.String("key", key),
		logging.String("window_start", summary.WindowStart),
		logging.Int("total", summary.Total),
		logging.Int("errors", summary.Error),
		logging.String("success_rate", summary.SuccessRate),
		logging.Int64("avg_duration_ms", summary.AvgDurationMs),
	)

	if a.opts.SendDigest && a.notifier != nil {
		a.notifier.Dispatch(ctx, FormatSummaryDigest(summary))
	}
	return summary, nil
}
