package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"vigil/internal/api"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(reqCtx context.Context, client *api.Client) error {
				resp, err := client.TestNotification(reqCtx)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, resp, func() error {
					out := cmd.OutOrStdout()
					switch {
					case resp.Detail != "":
						fmt.Fprintln(out, resp.Detail)
					case resp.Sent:
						fmt.Fprintln(out, "Test notification sent")
					default:
						fmt.Fprintln(out, "Notification not sent")
					}
					return nil
				})
			})
		},
	}
}
