package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"clipforge/internal/queue"
	"clipforge/internal/render"
)

var videoExtensions = map[string]bool{
	".mp4": true,
	".mov": true,
	".m4v": true,
	".mkv": true,
}

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var platform string

	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Compose every video in a directory",
		Long: "Queues one job per video file in the directory. Sidecar files are\n" +
			"matched by stem: <name>.words.json (or <name>.json) supplies the\n" +
			"transcript and <name>.broll.csv the cutaway plan.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if name := strings.TrimSpace(platform); name != "" {
				if _, err := render.ProfileByName(name); err != nil {
					return err
				}
			}
			specs, err := collectBatchSpecs(args[0], platform)
			if err != nil {
				return err
			}
			if len(specs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No videos found to queue")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Found %d videos\n", len(specs))
			return runJobs(cmd, cfg, specs)
		},
	}

	cmd.Flags().StringVarP(&platform, "platform", "p", "", "Target platform profile for every job")
	return cmd
}

func collectBatchSpecs(dir, platform string) ([]queue.JobSpec, error) {
	root, err := filepath.Abs(strings.TrimSpace(dir))
	if err != nil {
		return nil, fmt.Errorf("resolve batch directory: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("batch directory %s is not readable: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read batch directory: %w", err)
	}

	var specs []queue.JobSpec
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !videoExtensions[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		spec, err := buildJobSpec(
			filepath.Join(root, name),
			findSidecar(root, stem, ".words.json", ".json"),
			findSidecar(root, stem, ".broll.csv"),
			"", "", platform,
		)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// findSidecar returns the first stem+suffix file that exists, or "".
func findSidecar(dir, stem string, suffixes ...string) string {
	for _, suffix := range suffixes {
		path := filepath.Join(dir, stem+suffix)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}
