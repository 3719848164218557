package store_test

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
)

// truncatePostgres empties the shared container database between subtests.
func truncatePostgres(t *testing.T, dsn string) {
	t.Helper()
	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.ExecContext(context.Background(), "TRUNCATE workflow_events, reports")
	require.NoError(t, err)
}

func sanitize(name string) string {
	r := strings.NewReplacer("/", "_", " ", "_", ".", "_")
	name = r.Replace(name)
	if len(name) > 40 {
		name = name[len(name)-40:]
	}
	return name
}
