package main

import (
	"context"

	"github.com/spf13/cobra"

	"vigil/internal/api"
	"vigil/internal/health"
)

func newSummaryCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Workflow summary reports",
	}
	cmd.AddCommand(newSummaryRunCommand(ctx))
	cmd.AddCommand(newSummaryShowCommand(ctx))
	return cmd
}

func newSummaryRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Aggregate the summary window now and store the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(reqCtx context.Context, client *api.Client) error {
				summary, err := client.RunSummary(reqCtx)
				if err != nil {
					return err
				}
				return ctx.printSummary(cmd, summary)
			})
		},
	}
}

func newSummaryShowCommand(ctx *commandContext) *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the latest stored summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(reqCtx context.Context, client *api.Client) error {
				summary, err := client.Summary(reqCtx, key)
				if err != nil {
					return err
				}
				return ctx.printSummary(cmd, summary)
			})
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "Summary key (defaults to summary.key)")
	return cmd
}

func (c *commandContext) printSummary(cmd *cobra.Command, s health.WindowSummary) error {
	return c.emit(cmd, s, func() error {
		newPrinter(cmd.OutOrStdout()).summary(s)
		return nil
	})
}
