package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vigil/internal/config"
	"vigil/internal/services"
)

const defaultTimeout = 5 * time.Second

type storeOptions struct {
	now     func() time.Time
	timeout time.Duration
}

// Option customizes a backend.
type Option func(*storeOptions)

// WithClock overrides the clock used to stamp events and reports.
func WithClock(now func() time.Time) Option {
	return func(o *storeOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithTimeout bounds every backend operation.
func WithTimeout(d time.Duration) Option {
	return func(o *storeOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func buildOptions(opts []Option) storeOptions {
	o := storeOptions{now: time.Now, timeout: defaultTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Open selects the event backend from cfg.Store and, when configured, moves
// reports to Redis.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (Store, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "store", "open", "config is required", nil)
	}
	opts = append([]Option{WithTimeout(cfg.StoreTimeout())}, opts...)

	var (
		base Store
		err  error
	)
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		base, err = OpenSQLite(ctx, cfg.Store.DSN, opts...)
	case config.DriverPostgres:
		base, err = OpenPostgres(ctx, cfg.Store.DSN, opts...)
	case config.DriverMongo:
		base, err = OpenMongo(ctx, cfg.Store.DSN, cfg.Store.Database, opts...)
	case config.DriverMemory:
		base = NewMemory(opts...)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "store", "open", fmt.Sprintf("unsupported driver %q", cfg.Store.Driver), nil)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "store", "open", cfg.Store.Driver, err)
	}

	if cfg.Reports.Backend != config.ReportsBackendRedis {
		return base, nil
	}
	reports, err := OpenRedisReports(ctx, RedisOptions{
		Addr:      cfg.Reports.RedisAddr,
		Password:  cfg.Reports.RedisPassword,
		DB:        cfg.Reports.RedisDB,
		KeyPrefix: cfg.Reports.KeyPrefix,
	}, opts...)
	if err != nil {
		_ = base.Close()
		return nil, services.Wrap(services.ErrUnavailable, "store", "open", "redis reports", err)
	}
	return Split(base, reports), nil
}

// splitStore reads and writes events in one backend and reports in another.
type splitStore struct {
	events  Store
	reports Store
}

// Split routes events to events and reports to reports. Ping and Close fan
// out to both.
func Split(events, reports Store) Store {
	return &splitStore{events: events, reports: reports}
}

func (s *splitStore) AppendEvent(ctx context.Context, event WorkflowEvent) (string, error) {
	return s.events.AppendEvent(ctx, event)
}

func (s *splitStore) ListEvents(ctx context.Context, r Range) ([]WorkflowEvent, error) {
	return s.events.ListEvents(ctx, r)
}

func (s *splitStore) PutReport(ctx context.Context, namespace, key string, body []byte) error {
	return s.reports.PutReport(ctx, namespace, key, body)
}

func (s *splitStore) GetReport(ctx context.Context, namespace, key string) (Report, error) {
	return s.reports.GetReport(ctx, namespace, key)
}

func (s *splitStore) Ping(ctx context.Context) error {
	return errors.Join(s.events.Ping(ctx), s.reports.Ping(ctx))
}

func (s *splitStore) Close() error {
	return errors.Join(s.events.Close(), s.reports.Close())
}
