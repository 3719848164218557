package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"vigil/internal/logging"
)

// DeliveryStatus is the outcome of one dispatch.
type DeliveryStatus string

const (
	DeliverySent    DeliveryStatus = "sent"
	DeliverySkipped DeliveryStatus = "skipped"
	DeliveryFailed  DeliveryStatus = "failed"
)

// Delivery reports what happened to an alert. It is informational only.
type Delivery struct {
	Status DeliveryStatus `json:"status"`
	Detail string         `json:"detail,omitempty"`
}

// defaultSendTimeout applies when the caller's context carries no deadline of
// its own after detaching.
const defaultSendTimeout = 15 * time.Second

// Dispatcher delivers alerts without ever failing its caller.
type Dispatcher struct {
	sender  Sender
	logger  *slog.Logger
	timeout time.Duration
}

// NewDispatcher wraps sender. A nil sender means alerting is disabled.
func NewDispatcher(sender Sender, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		sender:  sender,
		logger:  logging.NewComponentLogger(logger, "alerts"),
		timeout: defaultSendTimeout,
	}
}

// Enabled reports whether a destination is configured.
func (d *Dispatcher) Enabled() bool {
	return d != nil && d.sender != nil
}

// Notify sends a plain text alert.
func (d *Dispatcher) Notify(ctx context.Context, severity Severity, text string) Delivery {
	return d.Dispatch(ctx, Message{Severity: severity, Text: text})
}

// Dispatch delivers msg. Missing configuration and transport failures are
// logged and reported in the returned Delivery; nothing propagates.
//
// Delivery detaches from ctx cancellation so that a failure alert for a run
// that just timed out is still sent.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) (delivery Delivery) {
	if ctx == nil {
		ctx = context.Background()
	}
	msg = msg.normalized()
	if d == nil {
		return Delivery{Status: DeliverySkipped, Detail: "alerting not configured"}
	}
	logger := logging.WithContext(ctx, d.logger)
	if d.sender == nil {
		logging.WarnWithContext(logger, "alert destination not configured; alert skipped",
			"alert_skipped",
			logging.String("severity", string(msg.Severity)),
			logging.String("title", msg.Title),
			logging.String(logging.FieldErrorHint, "set notifications.webhook_url or SLACK_ALERT_WEBHOOK_URL"),
			logging.String(logging.FieldImpact, "operators are not notified"),
		)
		return Delivery{Status: DeliverySkipped, Detail: "alerting not configured"}
	}

	defer func() {
		if rec := recover(); rec != nil {
			detail := fmt.Sprintf("sender panicked: %v", rec)
			logging.WarnWithContext(logger, "alert delivery failed", "alert_delivery_failed",
				logging.String("severity", string(msg.Severity)),
				logging.String("error", detail),
			)
			delivery = Delivery{Status: DeliveryFailed, Detail: detail}
		}
	}()

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	if err := d.sender.Send(sendCtx, msg); err != nil {
		logging.WarnWithContext(logger, "alert delivery failed", "alert_delivery_failed",
			logging.String("severity", string(msg.Severity)),
			logging.String("title", msg.Title),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the webhook URL and network reachability"),
			logging.String(logging.FieldImpact, "operators are not notified; the primary result is unaffected"),
		)
		return Delivery{Status: DeliveryFailed, Detail: err.Error()}
	}
	logger.Info("alert delivered",
		logging.String("severity", string(msg.Severity)),
		logging.String("title", msg.Title),
	)
	return Delivery{Status: DeliverySent}
}
