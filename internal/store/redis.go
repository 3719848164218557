package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"vigil/internal/services"
)

// RedisOptions configures the Redis report backend.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// redisReports keeps reports in Redis hashes:
//
//	<prefix>:report:<namespace>:<key>  => HASH {body, updated_at}
//	<prefix>:reports                   => SET of "<namespace>:<key>"
//
// It does not hold events; AppendEvent and ListEvents report
// ErrConfiguration so a misrouted call fails loudly.
type redisReports struct {
	client  *redis.Client
	prefix  string
	now     func() time.Time
	timeout time.Duration
}

// OpenRedisReports connects to Redis and verifies the connection.
func OpenRedisReports(ctx context.Context, ro RedisOptions, opts ...Option) (Store, error) {
	o := buildOptions(opts)
	client := redis.NewClient(&redis.Options{
		Addr:     ro.Addr,
		Password: ro.Password,
		DB:       ro.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisReports(client, ro.KeyPrefix, opts...), nil
}

// NewRedisReports wraps an existing client.
func NewRedisReports(client *redis.Client, prefix string, opts ...Option) Store {
	o := buildOptions(opts)
	prefix = strings.Trim(prefix, ":")
	if prefix == "" {
		prefix = "vigil"
	}
	return &redisReports{client: client, prefix: prefix, now: o.now, timeout: o.timeout}
}

func (s *redisReports) keyReport(namespace, key string) string {
	return s.prefix + ":report:" + namespace + ":" + key
}

func (s *redisReports) keyIndex() string {
	return s.prefix + ":reports"
}

func (s *redisReports) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *redisReports) AppendEvent(context.Context, WorkflowEvent) (string, error) {
	return "", services.Wrap(services.ErrConfiguration, "store", "append event", "redis holds reports only", nil)
}

func (s *redisReports) ListEvents(context.Context, Range) ([]WorkflowEvent, error) {
	return nil, services.Wrap(services.ErrConfiguration, "store", "list events", "redis holds reports only", nil)
}

func (s *redisReports) PutReport(ctx context.Context, namespace, key string, body []byte) error {
	if err := validateReportKey(namespace, key); err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.keyReport(namespace, key),
			"body", string(body),
			"updated_at", strconv.FormatInt(s.now().UTC().UnixNano(), 10),
		)
		pipe.SAdd(ctx, s.keyIndex(), namespace+":"+key)
		return nil
	})
	if err != nil {
		return services.Wrap(services.ErrTransient, "store", "put report", "redis", err)
	}
	return nil
}

func (s *redisReports) GetReport(ctx context.Context, namespace, key string) (Report, error) {
	if err := validateReportKey(namespace, key); err != nil {
		return Report{}, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	fields, err := s.client.HGetAll(ctx, s.keyReport(namespace, key)).Result()
	if errors.Is(err, redis.Nil) || (err == nil && len(fields) == 0) {
		return Report{}, notFound(namespace, key)
	}
	if err != nil {
		return Report{}, services.Wrap(services.ErrTransient, "store", "get report", "redis", err)
	}
	updated, _ := strconv.ParseInt(fields["updated_at"], 10, 64)
	return Report{
		Namespace: namespace,
		Key:       key,
		Body:      []byte(fields["body"]),
		UpdatedAt: time.Unix(0, updated).UTC(),
	}, nil
}

func (s *redisReports) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		return services.Wrap(services.ErrUnavailable, "store", "ping", "redis", err)
	}
	return nil
}

func (s *redisReports) Close() error {
	return s.client.Close()
}
