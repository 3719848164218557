package store_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"vigil/internal/services"
	"vigil/internal/store"
	"vigil/internal/testsupport"
)

// factory opens a fresh backend whose clock is driven by clock.
type factory func(t *testing.T, clock *testsupport.Clock) store.Store

var base = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func runContract(t *testing.T, open factory) {
	t.Run("AppendAssignsIdentityAndTime", func(t *testing.T) {
		clock := testsupport.NewClock(base)
		st := open(t, clock)
		ctx := context.Background()

		id, err := st.AppendEvent(ctx, store.WorkflowEvent{
			Step:       " generateWorkflowSummary ",
			Status:     store.StatusSuccess,
			DurationMs: 120,
			Metadata:   map[string]string{"trigger": "cron"},
		})
		require.NoError(t, err)
		require.NotEmpty(t, id)

		events, err := st.ListEvents(ctx, store.Range{Since: base.Add(-time.Hour)})
		require.NoError(t, err)
		require.Len(t, events, 1)
		ev := events[0]
		require.Equal(t, id, ev.ID)
		require.Equal(t, "generateWorkflowSummary", ev.Step)
		require.Equal(t, store.StatusSuccess, ev.Status)
		require.Equal(t, int64(120), ev.DurationMs)
		require.True(t, ev.Timestamp.Equal(base), "timestamp %s", ev.Timestamp)
		require.Equal(t, "cron", ev.Metadata["trigger"])
	})

	t.Run("IdentifiersAreUnique", func(t *testing.T) {
		clock := testsupport.NewClock(base)
		st := open(t, clock)
		seen := map[string]bool{}
		for i := 0; i < 20; i++ {
			id, err := st.AppendEvent(context.Background(), store.WorkflowEvent{Step: "s", Status: store.StatusSuccess})
			require.NoError(t, err)
			require.False(t, seen[id], "duplicate id %s", id)
			seen[id] = true
		}
	})

	t.Run("RangeIsInclusiveAndOrdered", func(t *testing.T) {
		clock := testsupport.NewClock(base)
		st := open(t, clock)
		for _, offset := range []time.Duration{3 * time.Hour, time.Hour, 2 * time.Hour, 5 * time.Hour} {
			testsupport.RecordAt(t, st, clock, base.Add(offset), store.WorkflowEvent{
				Step:   offset.String(),
				Status: store.StatusSuccess,
			})
		}
		until := base.Add(3 * time.Hour)
		events, err := st.ListEvents(context.Background(), store.Range{Since: base.Add(time.Hour), Until: &until})
		require.NoError(t, err)
		steps := make([]string, 0, len(events))
		for _, ev := range events {
			steps = append(steps, ev.Step)
		}
		require.Equal(t, []string{"1h0m0s", "2h0m0s", "3h0m0s"}, steps)
	})

	t.Run("EqualTimestampsKeepInsertionOrder", func(t *testing.T) {
		clock := testsupport.NewClock(base)
		st := open(t, clock)
		for _, step := range []string{"first", "second", "third"} {
			_, err := st.AppendEvent(context.Background(), store.WorkflowEvent{Step: step, Status: store.StatusSuccess})
			require.NoError(t, err)
		}
		events, err := st.ListEvents(context.Background(), store.Range{Since: base})
		require.NoError(t, err)
		require.Len(t, events, 3)
		require.Equal(t, "first", events[0].Step)
		require.Equal(t, "second", events[1].Step)
		require.Equal(t, "third", events[2].Step)
	})

	t.Run("ErrorMessageOnlyKeptForErrors", func(t *testing.T) {
		clock := testsupport.NewClock(base)
		st := open(t, clock)
		ctx := context.Background()
		_, err := st.AppendEvent(ctx, store.WorkflowEvent{Step: "ok", Status: store.StatusSuccess, ErrorMessage: "ignored"})
		require.NoError(t, err)
		clock.Advance(time.Second)
		_, err = st.AppendEvent(ctx, store.WorkflowEvent{Step: "bad", Status: store.StatusError, ErrorMessage: "boom"})
		require.NoError(t, err)

		events, err := st.ListEvents(ctx, store.Range{Since: base})
		require.NoError(t, err)
		require.Len(t, events, 2)
		require.Empty(t, events[0].ErrorMessage)
		require.Equal(t, "boom", events[1].ErrorMessage)
	})

	t.Run("RejectsInvalidEvents", func(t *testing.T) {
		clock := testsupport.NewClock(base)
		st := open(t, clock)
		ctx := context.Background()
		invalid := []store.WorkflowEvent{
			{Step: "", Status: store.StatusSuccess},
			{Step: "   ", Status: store.StatusError},
			{Step: "x", Status: "partial"},
			{Step: "x", Status: store.StatusSuccess, DurationMs: -1},
		}
		for _, ev := range invalid {
			_, err := st.AppendEvent(ctx, ev)
			require.Error(t, err)
			require.True(t, errors.Is(err, services.ErrValidation), "expected validation error, got %v", err)
		}
		events, err := st.ListEvents(ctx, store.Range{Since: time.Time{}})
		require.NoError(t, err)
		require.Empty(t, events)
	})

	t.Run("ReportsAreLatestWins", func(t *testing.T) {
		clock := testsupport.NewClock(base)
		st := open(t, clock)
		ctx := context.Background()

		_, err := st.GetReport(ctx, "summary", "weekly")
		require.True(t, errors.Is(err, services.ErrNotFound), "expected not found, got %v", err)

		require.NoError(t, st.PutReport(ctx, "summary", "weekly", []byte(`{"total":1}`)))
		clock.Advance(time.Minute)
		require.NoError(t, st.PutReport(ctx, "summary", "weekly", []byte(`{"total":2}`)))
		require.NoError(t, st.PutReport(ctx, "slo", "latest", []byte(`{"sloMet":true}`)))

		report, err := st.GetReport(ctx, "summary", "weekly")
		require.NoError(t, err)
		var body map[string]int
		require.NoError(t, json.Unmarshal(report.Body, &body))
		require.Equal(t, 2, body["total"])
		require.True(t, report.UpdatedAt.Equal(base.Add(time.Minute)), "updated at %s", report.UpdatedAt)

		other, err := st.GetReport(ctx, "slo", "latest")
		require.NoError(t, err)
		require.JSONEq(t, `{"sloMet":true}`, string(other.Body))
	})

	t.Run("ReportKeysAreRequired", func(t *testing.T) {
		st := open(t, testsupport.NewClock(base))
		err := st.PutReport(context.Background(), "", "weekly", []byte(`{}`))
		require.True(t, errors.Is(err, services.ErrValidation))
	})

	t.Run("Ping", func(t *testing.T) {
		st := open(t, testsupport.NewClock(base))
		require.NoError(t, st.Ping(context.Background()))
	})
}
