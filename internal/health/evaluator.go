package health

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"vigil/internal/logging"
	"vigil/internal/services"
	"vigil/internal/store"
)

// JobReleaseCheck is the step name SLO evaluations run and alert under.
const JobReleaseCheck = "releaseCheck"

// Evaluator runs the SLO check and persists the verdict.
type Evaluator struct {
	events         store.EventStore
	reports        store.ReportStore
	notifier       Notifier
	logger         *slog.Logger
	topErrorsLimit int
}

// NewEvaluator wires the collaborators. notifier may be nil.
func NewEvaluator(events store.EventStore, reports store.ReportStore, notifier Notifier, logger *slog.Logger, topErrorsLimit int) *Evaluator {
	if topErrorsLimit <= 0 {
		topErrorsLimit = 5
	}
	return &Evaluator{
		events:         events,
		reports:        reports,
		notifier:       notifier,
		logger:         logging.NewComponentLogger(logger, "slo-evaluator"),
		topErrorsLimit: topErrorsLimit,
	}
}

// Evaluate aggregates the trailing window, computes the error budget against
// target and replaces the latest SLO check. A missed target dispatches a
// warning; a failed event read dispatches an error alert and returns the
// error.
func (e *Evaluator) Evaluate(ctx context.Context, windowDays int, target float64, now time.Time) (SLOCheckResult, error) {
	if windowDays <= 0 {
		return SLOCheckResult{}, services.Wrap(services.ErrValidation, "slo-evaluator", "evaluate", fmt.Sprintf("window days must be positive, got %d", windowDays), nil)
	}
	if err := ValidateTarget(target); err != nil {
		return SLOCheckResult{}, err
	}
	logger := logging.WithContext(ctx, e.logger)
	window := NewWindow(windowDays, now)

	events, err := e.events.ListEvents(ctx, window.Range())
	if err != nil {
		err = services.Wrap(services.ErrTransient, "slo-evaluator", "read events", "", err)
		logging.ErrorWithContext(logger, "slo check could not read events", "slo_read_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check event store connectivity"),
		)
		if e.notifier != nil {
			e.notifier.Dispatch(ctx, FormatFailure(JobReleaseCheck, err))
			return SLOCheckResult{}, &alertedError{err: err}
		}
		return SLOCheckResult{}, err
	}

	summary := Summarize(events, window, e.topErrorsLimit, now)
	result, err := EvaluateSLO(summary, target, now)
	if err != nil {
		return SLOCheckResult{}, err
	}

	if err := ctx.Err(); err != nil {
		return SLOCheckResult{}, services.Wrap(services.ErrTimeout, "slo-evaluator", "evaluate", "deadline reached before write", err)
	}
	if err := putReport(ctx, e.reports, NamespaceSLO, KeyLatest, result); err != nil {
		return SLOCheckResult{}, services.Wrap(services.ErrTransient, "slo-evaluator", "write slo check", KeyLatest, err)
	}

	logger.Info("slo evaluated",
		logging.Int("total", result.Total),
		logging.Int("errors", result.Error),
		logging.Percent("error_rate_percent", result.ErrorRatePercent),
		logging.Float64("target_percent", target),
		logging.Bool("slo_met", result.SLOMet),
		logging.Float64("budget_used_percent", result.ErrorBudgetUsedPercent),
	)

	if !result.SLOMet && e.notifier != nil {
		e.notifier.Dispatch(ctx, FormatSLOAlert(result))
	}
	return result, nil
}
