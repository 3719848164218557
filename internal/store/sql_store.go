package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"vigil/internal/services"
)

// schemaVersion is bumped whenever either embedded schema changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// dialect captures the differences between the SQL backends.
type dialect struct {
	name        string
	schema      string
	numbered    bool
	isRetryable func(error) bool
}

// sqlStore implements Store on top of database/sql.
type sqlStore struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
	timeout time.Duration
}

const (
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func newSQLStore(ctx context.Context, db *sql.DB, d dialect, opts storeOptions) (*sqlStore, error) {
	s := &sqlStore{db: db, dialect: d, now: opts.now, timeout: opts.timeout}
	if err := s.initSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// rebind rewrites ? placeholders into $n for dialects that number them.
func (s *sqlStore) rebind(query string) string {
	if !s.dialect.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (s *sqlStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *sqlStore) retry(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if s.dialect.isRetryable == nil || !s.dialect.isRetryable(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *sqlStore) exec(ctx context.Context, query string, args ...any) error {
	query = s.rebind(query)
	return s.retry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

func (s *sqlStore) initSchema(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range splitStatements(s.dialect.schema) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create %s schema: %w", s.dialect.name, err)
		}
	}

	var version int
	err = tx.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx, s.rebind("INSERT INTO schema_version (version) VALUES (?)"), schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case version != schemaVersion:
		return fmt.Errorf("%w: database has version %d, expected %d (delete the database or drop its tables)",
			ErrSchemaMismatch, version, schemaVersion)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// boundNanos clamps times outside the int64 nanosecond range so open-ended
// ranges such as the zero time still compare correctly.
func boundNanos(t time.Time) int64 {
	switch {
	case t.Year() < 1678:
		return math.MinInt64
	case t.Year() > 2261:
		return math.MaxInt64
	default:
		return t.UnixNano()
	}
}

func splitStatements(schema string) []string {
	parts := strings.Split(schema, ";")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if stmt := strings.TrimSpace(part); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// AppendEvent implements EventStore.
func (s *sqlStore) AppendEvent(ctx context.Context, event WorkflowEvent) (string, error) {
	prepared, err := prepareEvent(event, s.now())
	if err != nil {
		return "", err
	}
	metadata, err := encodeMetadata(prepared.Metadata)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "store", "append event", "", err)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	err = s.exec(ctx,
		`INSERT INTO workflow_events (id, step, status, duration_ms, error_message, metadata, ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		prepared.ID,
		prepared.Step,
		string(prepared.Status),
		prepared.DurationMs,
		prepared.ErrorMessage,
		metadata,
		prepared.Timestamp.UnixNano(),
	)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "store", "append event", s.dialect.name, err)
	}
	return prepared.ID, nil
}

// ListEvents implements EventStore.
func (s *sqlStore) ListEvents(ctx context.Context, r Range) ([]WorkflowEvent, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `SELECT id, step, status, duration_ms, error_message, metadata, ts
		FROM workflow_events WHERE ts >= ?`
	args := []any{boundNanos(r.Since)}
	if r.Until != nil {
		query += " AND ts <= ?"
		args = append(args, boundNanos(*r.Until))
	}
	query += " ORDER BY ts ASC, seq ASC"

	var events []WorkflowEvent
	err := s.retry(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		events = events[:0]
		for rows.Next() {
			var (
				ev       WorkflowEvent
				status   string
				metadata sql.NullString
				errMsg   sql.NullString
				ts       int64
			)
			if err := rows.Scan(&ev.ID, &ev.Step, &status, &ev.DurationMs, &errMsg, &metadata, &ts); err != nil {
				return err
			}
			ev.Status = Status(status)
			ev.ErrorMessage = errMsg.String
			ev.Metadata = decodeMetadata(metadata.String)
			ev.Timestamp = time.Unix(0, ts)
			events = append(events, decodeEvent(ev))
		}
		return rows.Err()
	})
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "store", "list events", s.dialect.name, err)
	}
	return events, nil
}

// PutReport implements ReportStore.
func (s *sqlStore) PutReport(ctx context.Context, namespace, key string, body []byte) error {
	if err := validateReportKey(namespace, key); err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	err := s.exec(ctx,
		`INSERT INTO reports (namespace, report_key, body, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (namespace, report_key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		namespace, key, string(body), s.now().UTC().UnixNano(),
	)
	if err != nil {
		return services.Wrap(services.ErrTransient, "store", "put report", namespace+"/"+key, err)
	}
	return nil
}

// GetReport implements ReportStore.
func (s *sqlStore) GetReport(ctx context.Context, namespace, key string) (Report, error) {
	if err := validateReportKey(namespace, key); err != nil {
		return Report{}, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var (
		body    string
		updated int64
	)
	err := s.retry(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			s.rebind("SELECT body, updated_at FROM reports WHERE namespace = ? AND report_key = ?"),
			namespace, key,
		).Scan(&body, &updated)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Report{}, notFound(namespace, key)
	}
	if err != nil {
		return Report{}, services.Wrap(services.ErrTransient, "store", "get report", namespace+"/"+key, err)
	}
	return Report{
		Namespace: namespace,
		Key:       key,
		Body:      []byte(body),
		UpdatedAt: time.Unix(0, updated).UTC(),
	}, nil
}

// Ping verifies the database connection.
func (s *sqlStore) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return services.Wrap(services.ErrUnavailable, "store", "ping", s.dialect.name, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *sqlStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
