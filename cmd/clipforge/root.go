package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:   "clipforge",
		Short: "Compose vertical social videos from talking-head footage",
		Long: `ClipForge plans, fetches, composes, and renders short vertical videos
from a talking-head recording, a word-level transcript, and a brand kit.
Run "clipforge run" for a single job or "clipforge batch" for a directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	for _, sub := range []*cobra.Command{
		newRunCommand(ctx),
		newBatchCommand(ctx),
		newPlanCommand(ctx),
		newJobsCommand(ctx),
		newCacheCommand(ctx),
		newConfigCommand(ctx),
		newDoctorCommand(ctx),
		newLogsCommand(ctx),
		newVersionCommand(),
	} {
		rootCmd.AddCommand(sub)
	}

	return rootCmd
}
