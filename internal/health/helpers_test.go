package health_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"vigil/internal/alerts"
	"vigil/internal/store"
)

var now = time.Date(2025, 1, 13, 1, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []alerts.Message
}

func (n *recordingNotifier) Dispatch(_ context.Context, msg alerts.Message) alerts.Delivery {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return alerts.Delivery{Status: alerts.DeliverySent}
}

func (n *recordingNotifier) messages() []alerts.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]alerts.Message(nil), n.msgs...)
}

// seed writes success and failure events spread over the hour before now.
func seed(t *testing.T, mem *store.Memory, success, failures int) {
	t.Helper()
	events := make([]store.WorkflowEvent, 0, success+failures)
	for i := 0; i < success; i++ {
		events = append(events, store.WorkflowEvent{
			ID:         "ok",
			Step:       "generateWeeklyReport",
			Status:     store.StatusSuccess,
			DurationMs: 100,
			Timestamp:  now.Add(-time.Duration(i+1) * time.Second),
		})
	}
	for i := 0; i < failures; i++ {
		events = append(events, store.WorkflowEvent{
			ID:           "err",
			Step:         "generateInsightPDF",
			Status:       store.StatusError,
			DurationMs:   300,
			ErrorMessage: "render timeout",
			Timestamp:    now.Add(-time.Duration(i+1) * time.Minute),
		})
	}
	mem.Seed(events...)
}
