package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"clipforge/internal/queue"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and manage the job queue",
	}

	jobsCmd.AddCommand(newJobsStatusCommand(ctx))
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsClearCommand(ctx))
	jobsCmd.AddCommand(newJobsResetCommand(ctx))
	jobsCmd.AddCommand(newJobsRetryCommand(ctx))
	jobsCmd.AddCommand(newJobsHealthCommand(ctx))

	return jobsCmd
}

func newJobsStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show job counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				rows := buildJobStatusRows(stats)
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable([]string{"Status", "Count"}, rows, alignLeft, alignRight)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []queue.Status
			for _, raw := range listStatuses {
				status, ok := queue.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q", raw)
				}
				statuses = append(statuses, status)
			}

			return ctx.withStore(func(store *queue.Store) error {
				jobs, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Video", "Status", "Progress", "Created"},
					buildJobListRows(jobs),
					alignRight, alignLeft, alignLeft, alignLeft, alignLeft,
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by job status (repeatable)")
	return cmd
}

func newJobsClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool
	var clearFailed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove jobs from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearCompleted && clearFailed {
				return errors.New("specify only one of --completed or --failed")
			}
			return ctx.withStore(func(store *queue.Store) error {
				out := cmd.OutOrStdout()
				switch {
				case clearCompleted:
					removed, err := store.ClearCompleted(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d completed jobs\n", removed)
				case clearFailed:
					removed, err := store.ClearFailed(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d failed jobs\n", removed)
				default:
					removed, err := store.Clear(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d jobs\n", removed)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove only completed jobs")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove only failed jobs")
	return cmd
}

func newJobsResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-stuck",
		Short: "Return in-flight jobs to their stage start",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				updated, err := store.ResetStuckProcessing(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d jobs\n", updated)
				return nil
			})
		},
	}
}

func newJobsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [jobID...]",
		Short: "Retry failed jobs",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid job id %q", arg)
				}
				ids = append(ids, id)
			}

			return ctx.withStore(func(store *queue.Store) error {
				out := cmd.OutOrStdout()
				if len(ids) == 0 {
					updated, err := store.RetryFailed(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Retried %d failed jobs\n", updated)
					return nil
				}

				jobs, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				jobsByID := make(map[int64]*queue.Job, len(jobs))
				for _, job := range jobs {
					jobsByID[job.ID] = job
				}

				for _, id := range ids {
					job, ok := jobsByID[id]
					if !ok {
						fmt.Fprintf(out, "Job %d not found\n", id)
						continue
					}
					if job.Status != queue.StatusFailed {
						fmt.Fprintf(out, "Job %d is not in failed state\n", id)
						continue
					}
					updated, err := store.RetryFailed(cmd.Context(), id)
					if err != nil {
						return err
					}
					if updated > 0 {
						fmt.Fprintf(out, "Job %d reset for retry\n", id)
					} else {
						fmt.Fprintf(out, "Job %d is not in failed state\n", id)
					}
				}
				return nil
			})
		},
	}
}

func newJobsHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Summarize queue health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				health, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Total:      %d\n", health.Total)
				fmt.Fprintf(out, "Pending:    %d\n", health.Pending)
				fmt.Fprintf(out, "Processing: %d\n", health.Processing)
				fmt.Fprintf(out, "Review:     %d\n", health.Review)
				fmt.Fprintf(out, "Failed:     %d\n", health.Failed)
				fmt.Fprintf(out, "Completed:  %d\n", health.Completed)
				return nil
			})
		},
	}
}

// buildJobStatusRows orders counts by pipeline position rather than
// alphabetically so the table reads in processing order.
func buildJobStatusRows(stats map[queue.Status]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	var rows [][]string
	for _, status := range queue.AllStatuses() {
		count, ok := stats[status]
		if !ok {
			continue
		}
		rows = append(rows, []string{formatStatusLabel(string(status)), strconv.Itoa(count)})
	}
	return rows
}

func buildJobListRows(jobs []*queue.Job) [][]string {
	if len(jobs) == 0 {
		return nil
	}
	sorted := make([]*queue.Job, len(jobs))
	copy(sorted, jobs)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].ID > sorted[j].ID
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	rows := make([][]string, 0, len(sorted))
	for _, job := range sorted {
		video := strings.TrimSpace(job.VideoPath)
		if video != "" {
			video = filepath.Base(video)
		} else {
			video = "Unknown"
		}
		rows = append(rows, []string{
			strconv.FormatInt(job.ID, 10),
			video,
			formatStatusLabel(string(job.Status)),
			progressCell(job),
			job.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return rows
}

func progressCell(job *queue.Job) string {
	stage := strings.TrimSpace(job.ProgressStage)
	if stage == "" {
		return ""
	}
	if job.IsProcessing() {
		return fmt.Sprintf("%s %.0f%%", stage, job.ProgressPercent)
	}
	return stage
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(strings.ToLower(status))
	if status == "" {
		return ""
	}
	return strings.ToUpper(status[:1]) + status[1:]
}
