package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"vigil/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status, schedule and recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(reqCtx context.Context, client *api.Client) error {
				status, err := client.Status(reqCtx)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, status, func() error {
					newPrinter(cmd.OutOrStdout()).daemonStatus(status)
					return nil
				})
			})
		},
	}
}

func (p *printer) daemonStatus(status api.DaemonStatus) {
	p.section("Daemon", true)
	if status.Running {
		p.status("State", statusOK, fmt.Sprintf("running (pid %d)", status.PID))
	} else {
		p.status("State", statusError, "not running")
	}
	p.value("Started", displayTimestamp(status.StartedAt))
	p.value("Store", status.StoreDriver)
	p.value("Reports", reportsLabel(status.ReportsBackend))
	p.value("Alerting", yesNo(status.AlertingEnabled))
	p.value("Log", status.LogPath)
	p.value("Lock", status.LockFilePath)

	if len(status.Checks) > 0 {
		p.section("Checks", false)
		for _, check := range status.Checks {
			kind := statusOK
			if !check.Passed {
				kind = statusWarn
			}
			p.status(check.Name, kind, check.Detail)
		}
	}

	p.section("Schedule ("+status.Timezone+")", false)
	if len(status.Schedule) == 0 {
		p.note("Schedule disabled")
	} else {
		rows := make([][]string, 0, len(status.Schedule))
		for _, e := range status.Schedule {
			rows = append(rows, []string{e.Job, e.Spec, displayTimestamp(e.Next), displayTimestamp(e.Prev)})
		}
		p.table(renderTable([]column{
			{header: "Job"},
			{header: "Cron"},
			{header: "Next"},
			{header: "Previous"},
		}, rows))
	}

	if len(status.LastRuns) == 0 {
		return
	}
	p.section("Last runs", false)
	rows := make([][]string, 0, len(status.LastRuns))
	for _, r := range status.LastRuns {
		result := "ok"
		if !r.OK {
			result = r.Error
		}
		rows = append(rows, []string{r.Job, r.Trigger, displayTimestamp(r.StartedAt), strconv.FormatInt(r.DurationMs, 10), result})
	}
	p.table(renderTable([]column{
		{header: "Job"},
		{header: "Trigger"},
		{header: "Started"},
		{header: "Duration (ms)", right: true},
		{header: "Result", maxWidth: 50},
	}, rows))
}

func displayTimestamp(value string) string {
	if value == "" {
		return "-"
	}
	t, err := api.ParseTime(value)
	if err != nil {
		return value
	}
	return formatWhen(t)
}

func reportsLabel(backend string) string {
	if backend == "" {
		return "event store"
	}
	return backend
}
