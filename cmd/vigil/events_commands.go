package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vigil/internal/api"
)

func newEventsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect and record workflow events",
	}
	cmd.AddCommand(newEventsListCommand(ctx))
	cmd.AddCommand(newEventsRecordCommand(ctx))
	return cmd
}

func newEventsListCommand(ctx *commandContext) *cobra.Command {
	var sinceFlag, untilFlag string
	var days int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events recorded in a time range",
		RunE: func(cmd *cobra.Command, args []string) error {
			since, until, err := eventRange(sinceFlag, untilFlag, days, time.Now())
			if err != nil {
				return err
			}
			return ctx.withClient(cmd, func(reqCtx context.Context, client *api.Client) error {
				resp, err := client.Events(reqCtx, since, until)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, resp, func() error {
					out := cmd.OutOrStdout()
					if len(resp.Events) == 0 {
						fmt.Fprintln(out, "No events in range")
						return nil
					}
					fmt.Fprintln(out, renderEventsTable(resp.Events))
					return nil
				})
			})
		},
	}
	cmd.Flags().StringVar(&sinceFlag, "since", "", "Range start (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&untilFlag, "until", "", "Range end (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().IntVar(&days, "days", 7, "Days to look back when --since is not set")
	return cmd
}

// eventRange resolves the list flags into an explicit range. A zero until
// means open-ended.
func eventRange(sinceFlag, untilFlag string, days int, now time.Time) (time.Time, time.Time, error) {
	var since, until time.Time
	if v := strings.TrimSpace(sinceFlag); v != "" {
		t, err := api.ParseTime(v)
		if err != nil {
			return since, until, fmt.Errorf("invalid --since %q: %w", v, err)
		}
		since = t
	} else {
		if days <= 0 {
			return since, until, fmt.Errorf("--days must be positive, got %d", days)
		}
		since = now.UTC().AddDate(0, 0, -days)
	}
	if v := strings.TrimSpace(untilFlag); v != "" {
		t, err := api.ParseTime(v)
		if err != nil {
			return since, until, fmt.Errorf("invalid --until %q: %w", v, err)
		}
		if !t.After(since) {
			return since, until, fmt.Errorf("--until must be after --since")
		}
		until = t
	}
	return since, until, nil
}

func renderEventsTable(events []api.WorkflowEvent) string {
	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		when := ev.Timestamp
		if t, err := api.ParseTime(ev.Timestamp); err == nil {
			when = formatWhen(t)
		}
		rows = append(rows, []string{
			when,
			ev.Step,
			ev.Status,
			strconv.FormatInt(ev.DurationMs, 10),
			ev.ErrorMessage,
		})
	}
	return renderTable([]column{
		{header: "When"},
		{header: "Step"},
		{header: "Status"},
		{header: "Duration (ms)", right: true},
		{header: "Error", maxWidth: 50},
	}, rows)
}

func newEventsRecordCommand(ctx *commandContext) *cobra.Command {
	var req api.RecordEventRequest
	var duration time.Duration
	var meta []string
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record one workflow event",
		RunE: func(cmd *cobra.Command, args []string) error {
			metadata, err := parseMetadata(meta)
			if err != nil {
				return err
			}
			req.Metadata = metadata
			req.DurationMs = duration.Milliseconds()
			return ctx.withClient(cmd, func(reqCtx context.Context, client *api.Client) error {
				id, err := client.RecordEvent(reqCtx, req)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, api.RecordEventResponse{ID: id}, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "Recorded event %s\n", id)
					return nil
				})
			})
		},
	}
	cmd.Flags().StringVar(&req.Step, "step", "", "Workflow step name")
	cmd.Flags().StringVar(&req.Status, "status", "success", "Outcome: success or error")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Step duration (e.g. 1.5s)")
	cmd.Flags().StringVar(&req.ErrorMessage, "error", "", "Error message for failed steps")
	cmd.Flags().StringArrayVar(&meta, "meta", nil, "Metadata as key=value (repeatable)")
	_ = cmd.MarkFlagRequired("step")
	return cmd
}

func parseMetadata(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --meta %q (expected key=value)", pair)
		}
		out[key] = value
	}
	return out, nil
}
