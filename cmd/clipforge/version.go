package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Overridden at build time via -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = ""
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if commit != "" {
				fmt.Fprintf(out, "clipforge %s (%s)\n", version, commit)
				return nil
			}
			fmt.Fprintf(out, "clipforge %s\n", version)
			return nil
		},
	}
}
