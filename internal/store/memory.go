package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is a process-local Store. It backs tests and the "memory" driver.
type Memory struct {
	mu      sync.RWMutex
	now     func() time.Time
	events  []WorkflowEvent
	reports map[string]Report

	// FailAppend and FailList inject backend failures when set.
	FailAppend error
	FailList   error
}

// NewMemory returns an empty in-memory store.
func NewMemory(opts ...Option) *Memory {
	o := buildOptions(opts)
	return &Memory{now: o.now, reports: make(map[string]Report)}
}

func (m *Memory) AppendEvent(ctx context.Context, event WorkflowEvent) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAppend != nil {
		return "", m.FailAppend
	}
	prepared, err := prepareEvent(event, m.now())
	if err != nil {
		return "", err
	}
	m.events = append(m.events, prepared)
	return prepared.ID, nil
}

func (m *Memory) ListEvents(ctx context.Context, r Range) ([]WorkflowEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailList != nil {
		return nil, m.FailList
	}
	out := make([]WorkflowEvent, 0, len(m.events))
	for _, ev := range m.events {
		if r.Contains(ev.Timestamp) {
			ev.Metadata = copyMetadata(ev.Metadata)
			out = append(out, ev)
		}
	}
	// Stable keeps insertion order for equal timestamps.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (m *Memory) PutReport(ctx context.Context, namespace, key string, body []byte) error {
	if err := validateReportKey(namespace, key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[namespace+"/"+key] = Report{
		Namespace: namespace,
		Key:       key,
		Body:      append([]byte(nil), body...),
		UpdatedAt: m.now().UTC(),
	}
	return nil
}

func (m *Memory) GetReport(ctx context.Context, namespace, key string) (Report, error) {
	if err := validateReportKey(namespace, key); err != nil {
		return Report{}, err
	}
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	report, ok := m.reports[namespace+"/"+key]
	if !ok {
		return Report{}, notFound(namespace, key)
	}
	report.Body = append([]byte(nil), report.Body...)
	return report, nil
}

// Seed stores events verbatim, bypassing id and timestamp assignment.
func (m *Memory) Seed(events ...WorkflowEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range events {
		m.events = append(m.events, decodeEvent(ev))
	}
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
