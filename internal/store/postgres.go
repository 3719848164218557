package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed schema_postgres.sql
var postgresSchema string

var postgresDialect = dialect{
	name:        "postgres",
	schema:      postgresSchema,
	numbered:    true,
	isRetryable: isPostgresRetryable,
}

// Serialization failures and deadlocks are safe to replay.
func isPostgresRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

// OpenPostgres connects through the pgx database/sql driver and applies the
// schema.
func OpenPostgres(ctx context.Context, dsn string, opts ...Option) (Store, error) {
	o := buildOptions(opts)
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(8)

	pingCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	s, err := newSQLStore(ctx, db, postgresDialect, o)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}
