package store_test

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"vigil/internal/store"
	"vigil/internal/testsupport"
)

func TestPostgresStoreContract(t *testing.T) {
	dsn := testsupport.StartPostgres(t)
	runContract(t, func(t *testing.T, clock *testsupport.Clock) store.Store {
		st, err := store.OpenPostgres(context.Background(), dsn, store.WithClock(clock.Now))
		require.NoError(t, err)
		truncatePostgres(t, dsn)
		t.Cleanup(func() { _ = st.Close() })
		return st
	})
}

func TestMongoStoreContract(t *testing.T) {
	uri := testsupport.StartMongo(t)
	runContract(t, func(t *testing.T, clock *testsupport.Clock) store.Store {
		st, err := store.OpenMongo(context.Background(), uri, "vigil_"+sanitize(t.Name()), store.WithClock(clock.Now))
		require.NoError(t, err)
		t.Cleanup(func() { _ = st.Close() })
		return st
	})
}

func TestRedisReportsBehindSplitStore(t *testing.T) {
	addr := testsupport.StartRedis(t)
	runContract(t, func(t *testing.T, clock *testsupport.Clock) store.Store {
		client := redis.NewClient(&redis.Options{Addr: addr})
		require.NoError(t, client.FlushDB(context.Background()).Err())
		reports := store.NewRedisReports(client, "vigil:test:", store.WithClock(clock.Now))
		st := store.Split(store.NewMemory(store.WithClock(clock.Now)), reports)
		t.Cleanup(func() { _ = st.Close() })
		return st
	})
}

func TestRedisReportsRejectEvents(t *testing.T) {
	addr := testsupport.StartRedis(t)
	client := redis.NewClient(&redis.Options{Addr: addr})
	reports := store.NewRedisReports(client, "")
	defer reports.Close()

	_, err := reports.AppendEvent(context.Background(), store.WorkflowEvent{Step: "x", Status: store.StatusSuccess})
	require.Error(t, err)
}
