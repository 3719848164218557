// Package recorder appends one workflow event per executed unit of work.
//
// Record never fails from the caller's point of view: invalid input and store
// errors are logged and dropped so the caller's own success or failure path is
// never disturbed.
package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"vigil/internal/logging"
	"vigil/internal/store"
)

// defaultWriteTimeout bounds the append so a slow store cannot stall the
// caller's tail path.
const defaultWriteTimeout = 5 * time.Second

// Entry describes one finished unit of work.
type Entry struct {
	Step         string
	Status       store.Status
	Duration     time.Duration
	ErrorMessage string
	Metadata     map[string]string
}

// Recorder writes workflow events. It holds no mutable state and is safe for
// concurrent use.
type Recorder struct {
	events       store.EventStore
	logger       *slog.Logger
	writeTimeout time.Duration
}

// New constructs a recorder. A nil events store turns Record into a logged no-op.
func New(events store.EventStore, logger *slog.Logger) *Recorder {
	return &Recorder{
		events:       events,
		logger:       logging.NewComponentLogger(logger, "recorder"),
		writeTimeout: defaultWriteTimeout,
	}
}

// Record appends entry to the event store. Failures are logged and swallowed.
//
// The write detaches from ctx cancellation so that a run which just hit its
// deadline still leaves a trace.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if r == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	logger := logging.WithContext(ctx, r.logger)
	if r.events == nil {
		logger.Debug("no event store configured; workflow event dropped", logging.Step(entry.Step))
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			logging.WarnWithContext(logger, "workflow event recorder panicked",
				"workflow_event_panic",
				logging.Step(entry.Step),
				logging.String("panic", fmt.Sprint(rec)),
				logging.String(logging.FieldImpact, "this run is missing from health reports"),
			)
		}
	}()

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.writeTimeout)
	defer cancel()

	id, err := r.events.AppendEvent(writeCtx, store.WorkflowEvent{
		Step:         entry.Step,
		Status:       entry.Status,
		DurationMs:   entry.Duration.Milliseconds(),
		ErrorMessage: entry.ErrorMessage,
		Metadata:     entry.Metadata,
	})
	if err != nil {
		logging.WarnWithContext(logger, "workflow event not recorded",
			"workflow_event_write_failed",
			logging.Step(entry.Step),
			logging.String("status", string(entry.Status)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check event store connectivity and the event fields"),
			logging.String(logging.FieldImpact, "health reports will not count this run"),
		)
		return
	}
	logger.Debug("workflow event recorded",
		logging.String("event_id", id),
		logging.Step(entry.Step),
		logging.String("status", string(entry.Status)),
		logging.Int64("duration_ms", entry.Duration.Milliseconds()),
	)
}

// Track runs fn, records its outcome under step and returns fn's error
// unchanged.
func (r *Recorder) Track(ctx context.Context, step string, metadata map[string]string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	entry := Entry{
		Step:     step,
		Status:   store.StatusSuccess,
		Duration: time.Since(start),
		Metadata: metadata,
	}
	if err != nil {
		entry.Status = store.StatusError
		entry.ErrorMessage = err.Error()
	}
	r.Record(ctx, entry)
	return err
}
