package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"clipforge/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display pipeline logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := logs.Path(cfg)
			if path == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Log directory is not configured")
				return nil
			}

			if follow {
				signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer cancel()
				return logs.Follow(signalCtx, cmd.OutOrStdout(), path, lines)
			}

			tail, err := logs.Tail(path, lines)
			if err != nil {
				return err
			}
			if len(tail) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No log entries available")
				return nil
			}
			for _, line := range tail {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines to show")
	return cmd
}
