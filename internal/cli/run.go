package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/stopover/internal/harness"
	"github.com/roach88/stopover/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string // optional; runs are persisted when set
}

// RunOutput is the data payload of the run command.
type RunOutput struct {
	Scenario  string                `json:"scenario"`
	RunID     string                `json:"run_id"`
	Pass      bool                  `json:"pass"`
	Trace     []harness.TraceEvent  `json:"trace"`
	Positions map[string]string     `json:"positions"`
	Errors    []string              `json:"errors,omitempty"`
	Failures  []harness.StepFailure `json:"failures,omitempty"`
	Stored    *bool                 `json:"stored,omitempty"` // nil without --db
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario-file>",
		Short: "Execute a scenario and print its trace",
		Long: `Execute a single scenario file (YAML or CUE) and print the events
fired along the way, in order, with every clock's final position.

With --db the run and its trace are written to a SQLite database
(created if it doesn't exist). Runs are content-addressed: storing
an identical run twice is a no-op.

Exit codes:
  0 - Scenario passed
  1 - A step or assertion failed
  2 - Command error (unreadable scenario, database error)

Example:
  stopover run ./scenarios/two_vehicles.yaml
  stopover run --db ./runs.db ./scenarios/two_vehicles.yaml --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database to record the run in")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	// Setup signal handling so Ctrl-C abandons the journey in flight.
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, abandoning run", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	logger.Debug("running scenario", "scenario", scenario.Name, "path", path)
	result, err := harness.Run(ctx, scenario, harness.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to execute scenario", err)
	}

	out := RunOutput{
		Scenario:  scenario.Name,
		RunID:     result.RunID,
		Pass:      result.Pass,
		Trace:     result.Trace,
		Positions: result.Positions,
		Errors:    result.Errors,
		Failures:  result.Failures,
	}

	if opts.Database != "" {
		created, err := persistRun(ctx, opts.Database, scenario.Name, result, logger)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to store run", err)
		}
		out.Stored = &created
	}

	if opts.Format == "json" {
		if err := outputRunJSON(cmd.OutOrStdout(), out); err != nil {
			return err
		}
	} else {
		outputRunText(cmd.OutOrStdout(), scenario, out)
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

func persistRun(ctx context.Context, path, scenarioName string, result *harness.Result, logger *slog.Logger) (bool, error) {
	st, err := store.Open(path)
	if err != nil {
		return false, err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	created, err := harness.Persist(ctx, st, scenarioName, result)
	if err != nil {
		return false, err
	}
	logger.Debug("run stored", "run", result.RunID, "created", created)
	return created, nil
}

func outputRunJSON(w io.Writer, out RunOutput) error {
	response := okResponse(out, out.RunID)
	if !out.Pass {
		response = errorResponse(ErrCodeRunFailed, fmt.Sprintf("scenario %s failed", out.Scenario), out.Errors)
		response.Data = out
		response.RunID = out.RunID
	}
	return writeResponse(w, response)
}

func outputRunText(w io.Writer, scenario *harness.Scenario, out RunOutput) {
	fmt.Fprintf(w, "Scenario: %s\n", out.Scenario)
	fmt.Fprintf(w, "Run: %s\n", out.RunID)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Trace ===")
	if len(out.Trace) == 0 {
		fmt.Fprintln(w, "  (no events fired)")
	}
	for _, ev := range out.Trace {
		fmt.Fprintf(w, "  [%d] %s on %s at %s (instant %s)\n", ev.Seq, ev.Label, ev.Clock, ev.Position, ev.Instant)
	}
	fmt.Fprintln(w)

	// Positions in declaration order
	fmt.Fprintln(w, "=== Positions ===")
	for _, def := range scenario.Clocks {
		fmt.Fprintf(w, "  %s: %s\n", def.Name, out.Positions[def.Name])
	}
	fmt.Fprintln(w)

	if len(out.Failures) > 0 {
		fmt.Fprintln(w, "=== Failed Steps ===")
		for _, f := range out.Failures {
			fmt.Fprintf(w, "  %s\n", describeFailure(f))
		}
		fmt.Fprintln(w)
	}

	if out.Stored != nil {
		if *out.Stored {
			fmt.Fprintln(w, "Stored: yes")
		} else {
			fmt.Fprintln(w, "Stored: already present")
		}
	}

	if out.Pass {
		fmt.Fprintf(w, "✓ %s\n", out.Scenario)
		return
	}
	fmt.Fprintf(w, "✗ %s\n", out.Scenario)
	for _, e := range out.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}
