package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"clipforge/internal/clipcache"
	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/preflight"
	"clipforge/internal/queue"
	"clipforge/internal/stage"
	"clipforge/internal/workflow"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose configuration and environment problems",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			problems := 0

			printSection(out, "Configuration", colorize)
			_, path, exists, loadErr := config.Load(ctx.configPathFlag())
			switch {
			case loadErr != nil:
				problems++
				fmt.Fprintln(out, renderStatusLine("Config file", statusError, loadErr.Error(), colorize))
			case exists:
				fmt.Fprintln(out, renderStatusLine("Config file", statusOK, path, colorize))
			default:
				fmt.Fprintln(out, renderStatusLine("Config file", statusInfo, path+" (missing; defaults in use)", colorize))
			}

			printSection(out, "Preflight", colorize)
			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				kind := statusOK
				if !result.Passed {
					kind = statusError
					problems++
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}

			printSection(out, "System dependencies", colorize)
			for _, status := range preflight.CheckSystemDeps(cmd.Context(), cfg) {
				kind := statusOK
				message := status.Description
				if !status.Available {
					message = status.Detail
					if status.Optional {
						kind = statusWarn
					} else {
						kind = statusError
						problems++
					}
				}
				fmt.Fprintln(out, renderStatusLine(status.Name, kind, message, colorize))
			}

			printSection(out, "Job database", colorize)
			problems += printDatabaseHealth(cmd.Context(), out, cfg, colorize)

			printSection(out, "Stages", colorize)
			problems += printStageHealth(cmd.Context(), out, cfg, colorize)

			fmt.Fprintln(out)
			if problems > 0 {
				return fmt.Errorf("%d problems found", problems)
			}
			fmt.Fprintln(out, "No problems found")
			return nil
		},
	}
}

func printSection(out io.Writer, title string, colorize bool) {
	fmt.Fprintln(out)
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(out, line)
	}
}

func printDatabaseHealth(ctx context.Context, out io.Writer, cfg *config.Config, colorize bool) int {
	store, err := queue.Open(cfg)
	if err != nil {
		fmt.Fprintln(out, renderStatusLine("Database", statusError, err.Error(), colorize))
		return 1
	}
	defer store.Close()

	health, err := store.CheckHealth(ctx)
	if err != nil {
		fmt.Fprintln(out, renderStatusLine("Database", statusError, err.Error(), colorize))
		return 1
	}

	problems := 0
	fmt.Fprintln(out, renderStatusLine("Database", statusOK, health.DBPath, colorize))
	if len(health.MissingColumns) > 0 {
		problems++
		fmt.Fprintln(out, renderStatusLine("Schema", statusError,
			"missing columns: "+strings.Join(health.MissingColumns, ", "), colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Schema", statusOK, health.SchemaVersion, colorize))
	}
	if health.IntegrityCheck {
		fmt.Fprintln(out, renderStatusLine("Integrity", statusOK, "", colorize))
	} else {
		problems++
		fmt.Fprintln(out, renderStatusLine("Integrity", statusError, "integrity check failed", colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Jobs", statusInfo, strconv.Itoa(health.TotalJobs), colorize))
	return problems
}

// printStageHealth runs each pipeline stage's own readiness probe. A fetch
// stage without an API key is a warning rather than a problem: jobs without
// cutaways never touch the clip source.
func printStageHealth(ctx context.Context, out io.Writer, cfg *config.Config, colorize bool) int {
	store, err := queue.Open(cfg)
	if err != nil {
		fmt.Fprintln(out, renderStatusLine("Stages", statusError, err.Error(), colorize))
		return 1
	}
	defer store.Close()

	cache, err := clipcache.Open(cfg.Paths.CacheDir, cacheMaxBytes(cfg), logging.NewNop())
	if err != nil {
		fmt.Fprintln(out, renderStatusLine("Clip cache", statusError, err.Error(), colorize))
		return 1
	}
	defer cache.Close()

	set := workflow.NewStageSet(cfg, store, logging.NewNop(), cache)
	problems := 0
	for _, item := range []struct {
		label   string
		handler stage.Handler
	}{
		{"Plan stage", set.Plan},
		{"Fetch stage", set.Fetch},
		{"Compose stage", set.Compose},
		{"Render stage", set.Render},
	} {
		health := item.handler.HealthCheck(ctx)
		switch {
		case health.Ready:
			fmt.Fprintln(out, renderStatusLine(item.label, statusOK, "", colorize))
		case health.Name == "fetch":
			fmt.Fprintln(out, renderStatusLine(item.label, statusWarn, health.Detail, colorize))
		default:
			problems++
			fmt.Fprintln(out, renderStatusLine(item.label, statusError, health.Detail, colorize))
		}
	}
	return problems
}
