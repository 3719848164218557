package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"vigil/internal/api"
	"vigil/internal/health"
)

func newSLOCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slo",
		Short: "Release-governance SLO checks",
	}
	cmd.AddCommand(newSLORunCommand(ctx))
	cmd.AddCommand(newSLOShowCommand(ctx))
	return cmd
}

func newSLORunCommand(ctx *commandContext) *cobra.Command {
	var failOnBreach bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate the SLO window now and store the verdict",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(reqCtx context.Context, client *api.Client) error {
				result, err := client.RunSLO(reqCtx)
				if err != nil {
					return err
				}
				if err := ctx.printSLO(cmd, result); err != nil {
					return err
				}
				if failOnBreach && !result.SLOMet {
					return fmt.Errorf("slo not met: error rate %.2f%% exceeds target %.2f%%", health.RoundHalfUp(result.ErrorRatePercent, 2), result.SLOTargetErrorRatePercent)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&failOnBreach, "fail-on-breach", false, "Exit non-zero when the SLO is not met (for release gates)")
	return cmd
}

func newSLOShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the latest stored SLO check",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(reqCtx context.Context, client *api.Client) error {
				result, err := client.SLO(reqCtx)
				if err != nil {
					return err
				}
				return ctx.printSLO(cmd, result)
			})
		},
	}
}

func (c *commandContext) printSLO(cmd *cobra.Command, r health.SLOCheckResult) error {
	return c.emit(cmd, r, func() error {
		newPrinter(cmd.OutOrStdout()).sloCheck(r)
		return nil
	})
}
