package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vigil/internal/logging"
	"vigil/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			tailer := logs.NewTailer(logging.LogPath(cfg))

			recent, offset, err := tailer.Last(lines)
			if err != nil {
				return fmt.Errorf("tail logs: %w", err)
			}
			for _, line := range recent {
				fmt.Fprintln(out, line)
			}
			if !follow {
				if len(recent) == 0 {
					fmt.Fprintln(out, "No log entries available")
				}
				return nil
			}
			return tailer.Follow(cmd.Context(), offset, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show")
	return cmd
}
