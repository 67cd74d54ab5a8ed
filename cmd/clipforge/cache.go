package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipforge/internal/clipcache"
	"clipforge/internal/config"
	"clipforge/internal/logging"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the clip cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCachePruneCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))

	return cacheCmd
}

// openCache opens the clip cache for one subcommand. Mutating subcommands
// take the exclusive lock so they never race a running pipeline.
func openCache(ctx *commandContext, exclusive bool) (*clipcache.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	if exclusive {
		return clipcache.OpenExclusive(cfg.Paths.CacheDir, cacheMaxBytes(cfg), logging.NewNop())
	}
	return clipcache.Open(cfg.Paths.CacheDir, cacheMaxBytes(cfg), logging.NewNop())
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show clip cache usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := openCache(ctx, false)
			if err != nil {
				return err
			}
			defer cache.Close()

			stats, err := cache.Stats()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Entries: %d\n", stats.Entries)
			fmt.Fprintf(out, "Size:    %s / %s\n", humanBytes(stats.TotalBytes), humanBytes(stats.MaxBytes))
			fmt.Fprintf(out, "Disk:    %s free (%.1f%%)\n", humanBytes(int64(stats.FreeBytes)), stats.FreeRatio*100)
			return nil
		},
	}
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List cached clips",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := openCache(ctx, false)
			if err != nil {
				return err
			}
			defer cache.Close()

			entries := cache.Entries()
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Cache is empty")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				resolution := ""
				if entry.Width > 0 && entry.Height > 0 {
					resolution = fmt.Sprintf("%dx%d", entry.Width, entry.Height)
				}
				rows = append(rows, []string{
					entry.Query,
					humanBytes(entry.SizeBytes),
					fmt.Sprintf("%.1fs", entry.DurationSeconds),
					resolution,
					entry.Source,
					entry.LastUsedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			table := renderTable(
				[]string{"Query", "Size", "Duration", "Resolution", "Source", "Last used"},
				rows,
				alignLeft, alignRight, alignRight, alignLeft, alignLeft, alignLeft,
			)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Prune the clip cache now",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := openCache(ctx, true)
			if err != nil {
				return err
			}
			defer cache.Close()

			before, err := cache.Stats()
			if err != nil {
				return err
			}
			if err := cache.Prune(cmd.Context()); err != nil {
				return err
			}
			after, err := cache.Stats()
			if err != nil {
				return err
			}
			freed := before.TotalBytes - after.TotalBytes
			if freed <= 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No cache entries pruned")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %s (now %s / %s)\n",
				humanBytes(freed), humanBytes(after.TotalBytes), humanBytes(after.MaxBytes))
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached clip",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := openCache(ctx, true)
			if err != nil {
				return err
			}
			defer cache.Close()

			count := len(cache.Entries())
			if err := cache.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached clips\n", count)
			return nil
		},
	}
}

func cacheMaxBytes(cfg *config.Config) int64 {
	return int64(cfg.Cache.MaxGiB) << 30
}

func humanBytes(v int64) string {
	const unit = 1024
	if v < unit {
		return fmt.Sprintf("%d B", v)
	}
	div := int64(unit)
	exp := 0
	for n := v / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	value := float64(v) / float64(div)
	return fmt.Sprintf("%.1f %ciB", value, "KMGTPEZY"[exp])
}
