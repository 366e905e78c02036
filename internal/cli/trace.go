package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/stopover/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - list runs when empty
	Label    string // optional - filter to one event label
	Tail     int    // optional - keep only the last N events
}

// TraceEvent represents a single stored firing in the timeline.
type TraceEvent struct {
	Seq      int64  `json:"seq"`
	ID       string `json:"id"`
	Clock    string `json:"clock"`
	Label    string `json:"label"`
	Position string `json:"position"`
	Instant  string `json:"instant"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	RunID    string       `json:"run_id"`
	Scenario string       `json:"scenario"`
	Timeline []TraceEvent `json:"timeline"`
	Stats    TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEvents int            `json:"total_events"`
	PerClock    map[string]int `json:"per_clock"`
	LabelCount  *int           `json:"label_count,omitempty"` // set with --label
}

// RunSummary is one line of the run listing.
type RunSummary struct {
	ID       string `json:"id"`
	Scenario string `json:"scenario"`
	Seq      int64  `json:"seq"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show stored runs and their traces",
		Long: `Read runs recorded with "stopover run --db".

Without --run, lists every stored run in the order it was first
written. With --run, shows that run's timeline: every fired event
with its clock, position and group instant.

Examples:
  stopover trace --db ./runs.db
  stopover trace --db ./runs.db --run 3f2a...
  stopover trace --db ./runs.db --run 3f2a... --tail 20
  stopover trace --db ./runs.db --run 3f2a... --label fast-1 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to show")
	cmd.Flags().StringVar(&opts.Label, "label", "", "filter to one event label (requires --run)")
	cmd.Flags().IntVar(&opts.Tail, "tail", 0, "show only the last N events, after --label filtering (requires --run)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Label != "" && opts.RunID == "" {
		return NewExitError(ExitCommandError, "--label requires --run")
	}
	if opts.Tail != 0 && opts.RunID == "" {
		return NewExitError(ExitCommandError, "--tail requires --run")
	}
	if opts.Tail < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--tail must be positive, got %d", opts.Tail))
	}

	// Open database
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.RunID == "" {
		return listRuns(ctx, opts, st, cmd.OutOrStdout())
	}

	run, err := st.ReadRun(ctx, opts.RunID)
	if errors.Is(err, store.ErrRunNotFound) {
		if opts.Format == "json" {
			return outputTraceJSON(cmd.OutOrStdout(),
				errorResponse(ErrCodeRunNotFound, fmt.Sprintf("run not found: %s", opts.RunID), nil),
				NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID)))
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	var firings []store.Firing
	if opts.Tail > 0 {
		firings, err = st.TailFirings(ctx, run.ID, opts.Label, opts.Tail)
	} else {
		firings, err = st.ReadFirings(ctx, run.ID)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read firings", err)
	}

	result := TraceResult{
		RunID:    run.ID,
		Scenario: run.Scenario,
		Timeline: buildTimeline(firings, opts.Label),
		Stats:    TraceStats{PerClock: make(map[string]int)},
	}
	result.Stats.TotalEvents = len(result.Timeline)
	for _, ev := range result.Timeline {
		result.Stats.PerClock[ev.Clock]++
	}

	if opts.Label != "" {
		count, err := st.CountLabel(ctx, run.ID, opts.Label)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to count label", err)
		}
		result.Stats.LabelCount = &count
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd.OutOrStdout(), okResponse(result, run.ID), nil)
	}

	return outputTraceText(cmd.OutOrStdout(), result, opts.Verbose)
}

func listRuns(ctx context.Context, opts *TraceOptions, st *store.Store, w io.Writer) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	summaries := make([]RunSummary, len(runs))
	for i, run := range runs {
		summaries[i] = RunSummary{ID: run.ID, Scenario: run.Scenario, Seq: run.CreatedSeq}
	}

	if opts.Format == "json" {
		return outputTraceJSON(w, okResponse(summaries, ""), nil)
	}

	if len(summaries) == 0 {
		fmt.Fprintln(w, "No runs stored.")
		return nil
	}
	fmt.Fprintln(w, "=== Runs ===")
	for _, s := range summaries {
		id := s.ID
		if !opts.Verbose {
			id = truncateID(id)
		}
		fmt.Fprintf(w, "  [%d] %s %s\n", s.Seq, id, s.Scenario)
	}
	return nil
}

// buildTimeline converts stored firings to timeline events, keeping only
// labelFilter when it is set.
func buildTimeline(firings []store.Firing, labelFilter string) []TraceEvent {
	timeline := []TraceEvent{}
	for _, f := range firings {
		if labelFilter != "" && f.Label != labelFilter {
			continue
		}
		timeline = append(timeline, TraceEvent{
			Seq:      f.Seq,
			ID:       f.ID,
			Clock:    f.Clock,
			Label:    f.Label,
			Position: f.Position,
			Instant:  f.Instant,
		})
	}
	return timeline
}

// outputTraceJSON writes resp and then returns exitErr, so failures still
// produce a JSON body.
func outputTraceJSON(w io.Writer, resp Response, exitErr error) error {
	if err := writeResponse(w, resp); err != nil {
		return err
	}
	return exitErr
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) error {
	fmt.Fprintf(w, "Trace for Run: %s\n", result.RunID)
	fmt.Fprintf(w, "Scenario: %s\n", result.Scenario)
	fmt.Fprintln(w)

	// Timeline section
	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	}
	for _, ev := range result.Timeline {
		fmt.Fprintf(w, "  [%d] %s on %s at %s (instant %s)\n", ev.Seq, ev.Label, ev.Clock, ev.Position, ev.Instant)
		if verbose {
			fmt.Fprintf(w, "       ID: %s\n", truncateID(ev.ID))
		}
	}
	fmt.Fprintln(w)

	// Stats section
	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Events: %d\n", result.Stats.TotalEvents)
	for _, clock := range sortedKeys(result.Stats.PerClock) {
		fmt.Fprintf(w, "  %s: %d\n", clock, result.Stats.PerClock[clock])
	}
	if result.Stats.LabelCount != nil {
		fmt.Fprintf(w, "  Label Count:  %d\n", *result.Stats.LabelCount)
	}

	return nil
}

// sortedKeys returns the keys of m in ascending order for deterministic
// output.
func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
