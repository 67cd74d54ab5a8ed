package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"clipforge/internal/brollplan"
	"clipforge/internal/captions"
	"clipforge/internal/composition"
	"clipforge/internal/logging"
	"clipforge/internal/timeline"
	"clipforge/internal/transcript"
	"clipforge/internal/transitions"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var transcriptPath string
	var brollPath string
	var duration float64
	var jsonOutput bool
	var outputPath string

	cmd := &cobra.Command{
		Use:   "plan <video>",
		Short: "Preview the composition plan without queueing a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			// With an explicit duration the video is never probed, so the
			// file does not have to exist yet.
			var video string
			if duration > 0 {
				video, err = filepath.Abs(strings.TrimSpace(args[0]))
				if err != nil {
					return fmt.Errorf("resolve video path: %w", err)
				}
			} else {
				video, err = absoluteExistingFile("video", args[0])
				if err != nil {
					return err
				}
			}

			var words []timeline.Word
			if path := strings.TrimSpace(transcriptPath); path != "" {
				doc, err := transcript.Load(path)
				if err != nil {
					return err
				}
				words = doc.Words
			}

			var requests []timeline.BrollRequest
			if path := strings.TrimSpace(brollPath); path != "" {
				requests, err = brollplan.Load(path)
				if err != nil {
					return err
				}
			}

			probe := composition.FFprobeMedia(cfg.FFprobeBinary())
			assembler := composition.NewAssembler(probe, logging.NewNop())
			plan, err := assembler.Assemble(cmd.Context(), composition.Inputs{
				AvatarPath:     video,
				AvatarDuration: duration,
				Words:          words,
				Requests:       requests,
				Transitions: transitions.Policy{
					Styles:         cfg.TransitionStyles(),
					Duration:       cfg.Transitions.DurationSeconds,
					AudioCrossfade: cfg.Transitions.AudioCrossfade,
				},
				Captions: captions.Options{
					MaxWordsPerCue:    cfg.Captions.MaxWordsPerCue,
					MergeBelowSeconds: cfg.Captions.MergeBelowSeconds,
					MinCueSeconds:     cfg.Captions.MinCueSeconds,
					MaxCueSeconds:     cfg.Captions.MaxCueSeconds,
				},
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				data, err := json.MarshalIndent(plan, "", "  ")
				if err != nil {
					return fmt.Errorf("encode plan: %w", err)
				}
				fmt.Fprintln(out, string(data))
			} else {
				printPlan(out, plan)
				if findings := captions.Inspect(plan.Cues); len(findings) > 0 {
					fmt.Fprintf(out, "Caption timing warnings (%d):\n", len(findings))
					for _, finding := range findings {
						fmt.Fprintf(out, "  %s\n", finding)
					}
				}
			}

			if path := strings.TrimSpace(outputPath); path != "" {
				if err := composition.WritePlan(path, plan); err != nil {
					return err
				}
				fmt.Fprintf(out, "Wrote plan to %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&transcriptPath, "transcript", "t", "", "Word-timing transcript JSON")
	cmd.Flags().StringVarP(&brollPath, "broll", "b", "", "B-roll plan CSV")
	cmd.Flags().Float64Var(&duration, "duration", 0, "Timeline duration in seconds (skips probing the video)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the plan as JSON instead of tables")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the plan JSON to this path")
	return cmd
}

func printPlan(out io.Writer, plan timeline.Plan) {
	fmt.Fprintf(out, "Timeline: %s across %d segments (%d cutaways, %d cues)\n",
		formatSeconds(plan.TotalDuration), len(plan.Segments), plan.CutawayCount(), len(plan.Cues))

	segmentRows := make([][]string, 0, len(plan.Segments))
	for i, seg := range plan.Segments {
		source := seg.SourcePath
		if seg.Kind == timeline.SegmentCutaway && source == "" {
			source = fmt.Sprintf("query %q", seg.Query)
		}
		display := ""
		if seg.Kind == timeline.SegmentCutaway {
			display = string(seg.DisplayMode)
		}
		segmentRows = append(segmentRows, []string{
			strconv.Itoa(i),
			string(seg.Kind),
			formatSeconds(seg.Start),
			formatSeconds(seg.End),
			formatSeconds(seg.Duration()),
			display,
			source,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Kind", "Start", "End", "Duration", "Display", "Source"},
		segmentRows,
		alignRight, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft,
	))

	if len(plan.Transitions) == 0 {
		return
	}
	transitionRows := make([][]string, 0, len(plan.Transitions))
	for _, op := range plan.Transitions {
		transitionRows = append(transitionRows, []string{
			formatSeconds(op.AtTime),
			string(op.Style),
			formatSeconds(op.Duration),
			fmt.Sprintf("%d-%d", op.LeftIndex, op.RightIndex),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"At", "Style", "Duration", "Segments"},
		transitionRows,
		alignRight, alignLeft, alignRight, alignLeft,
	))
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64) + "s"
}
