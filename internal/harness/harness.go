package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/stopover/internal/canon"
	"github.com/roach88/stopover/internal/ordinate"
	"github.com/roach88/stopover/internal/platoon"
	"github.com/roach88/stopover/internal/testutil"
	"github.com/roach88/stopover/internal/vclock"
)

// Harness is the scenario execution engine.
// It owns one set of clocks (and their group) for a single run.
type Harness struct {
	scenario *Scenario
	clocks   map[string]*vclock.Clock
	order    map[string]int
	scales   map[string]ordinate.Ordinate
	group    *platoon.Platoon
	recorder *recorder
	release  chan struct{} // unblocks functions declared with block
	logger   *slog.Logger
	seq      int64
}

// Option configures a run.
type Option func(*runConfig)

type runConfig struct {
	logger *slog.Logger
}

// WithLogger routes clock and group logs to logger. By default logs are
// discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// Run executes a scenario and returns the result.
//
// Each run builds fresh clocks with deterministic tickets. Execution flow:
//  1. Create clocks and the group of scaled clocks
//  2. Schedule (and cancel) the declared events
//  3. Execute steps in order, checking expected errors
//  4. Evaluate assertions against the trace and final positions
//
// Step and assertion failures are reported in the Result. The returned
// error is reserved for scenarios that cannot be executed at all.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	h, err := newHarness(scenario, cfg.logger)
	if err != nil {
		return nil, err
	}
	defer close(h.release)

	h.scheduleEvents()

	result := NewResult()
	for i, step := range scenario.Steps {
		h.executeStep(ctx, i, step, result)
		if err := h.flush(result); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for _, def := range scenario.Clocks {
		result.Positions[def.Name] = h.clocks[def.Name].Position().String()
	}

	ids := make([]string, len(result.Trace))
	for i, ev := range result.Trace {
		ids[i] = ev.ID
	}
	runID, err := canon.RunID(scenario.Name, ids)
	if err != nil {
		return nil, err
	}
	result.RunID = runID

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}

	return result, nil
}

func newHarness(scenario *Scenario, logger *slog.Logger) (*Harness, error) {
	turn, hasTurn, err := scenario.turn()
	if err != nil {
		return nil, err
	}

	h := &Harness{
		scenario: scenario,
		clocks:   make(map[string]*vclock.Clock, len(scenario.Clocks)),
		order:    make(map[string]int, len(scenario.Clocks)),
		scales:   make(map[string]ordinate.Ordinate, len(scenario.Clocks)),
		recorder: newRecorder(),
		release:  make(chan struct{}),
		logger:   logger,
	}

	var members []platoon.Member
	for i, def := range scenario.Clocks {
		opts := []vclock.Option{
			vclock.WithName(def.Name),
			vclock.WithLogger(logger),
			vclock.WithTicketGenerator(testutil.NewSequenceTickets()),
		}
		if hasTurn {
			opts = append(opts, vclock.WithTurn(turn))
		}
		clock := vclock.New(opts...)

		h.clocks[def.Name] = clock
		h.order[def.Name] = i
		h.scales[def.Name] = ordinate.FromInt(1)
		if def.Scale != nil {
			h.scales[def.Name] = *def.Scale
			members = append(members, platoon.Member{Vehicle: clock, Scale: *def.Scale})
		}
	}

	group, err := platoon.New(members, platoon.WithName(scenario.Name), platoon.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("building group: %w", err)
	}
	h.group = group

	return h, nil
}

func (h *Harness) scheduleEvents() {
	for _, def := range h.scenario.Events {
		clock := h.clocks[def.Clock]
		ticket := clock.Schedule(def.At, h.fire(def))
		if def.Cancel {
			clock.Cancel(ticket)
		}
	}
}

// fire builds the scheduled function for an event declaration.
func (h *Harness) fire(def EventDef) vclock.Func {
	clock := h.clocks[def.Clock]
	scale := h.scales[def.Clock]
	order := h.order[def.Clock]

	return func(ctx context.Context) error {
		position := clock.Position()
		h.recorder.record(firing{
			clock:    def.Clock,
			order:    order,
			label:    def.Label,
			position: position,
			instant:  position.Quo(scale),
		})

		switch {
		case def.Block:
			<-h.release
		case def.Reenter:
			return clock.Travel(ctx, ordinate.Zero())
		case def.Fail != "":
			return errors.New(def.Fail)
		}
		return nil
	}
}

func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) {
	target := "group"
	if step.Clock != "" {
		target = step.Clock
	}

	if step.Reset {
		if step.Clock == "" {
			h.group.Reset()
		} else {
			h.clocks[step.Clock].Reset()
		}
		return
	}

	var err error
	if step.Clock == "" {
		err = h.group.Travel(ctx, *step.Travel)
	} else {
		err = h.clocks[step.Clock].Travel(ctx, *step.Travel)
	}

	h.logger.Debug("step executed",
		"step", index,
		"target", target,
		"travel", step.Travel.String(),
		"error", err,
	)

	if msg := checkStepError(step.ExpectError, err); msg != "" {
		result.AddError(fmt.Sprintf("steps[%d] (%s travel %s): %s", index, target, step.Travel, msg))

		failure := StepFailure{Step: index, Target: target, Expect: step.ExpectError}
		if code, ok := vclock.CodeOf(err); ok {
			failure.Code = string(code)
		}
		result.Failures = append(result.Failures, failure)
	}
}

// checkStepError compares a step's error with its expectation. Returns an
// empty string if they agree.
func checkStepError(expect string, err error) string {
	if expect == "" {
		if err != nil {
			return fmt.Sprintf("unexpected error: %v", err)
		}
		return ""
	}

	if err == nil {
		return fmt.Sprintf("expected %s error, travel succeeded", expect)
	}

	var match bool
	switch expect {
	case ExpectConcurrentJourney:
		match = vclock.IsConcurrentJourney(err)
	case ExpectScheduledAsync:
		match = vclock.IsScheduledAsync(err)
	case ExpectCallbackFailed:
		match = vclock.IsCallbackFailed(err)
	}
	if !match {
		return fmt.Sprintf("expected %s error, got: %v", expect, err)
	}
	return ""
}

// flush moves the firings of the last step into the trace.
func (h *Harness) flush(result *Result) error {
	for _, f := range h.recorder.drain() {
		h.seq++
		ev := TraceEvent{
			Seq:      h.seq,
			Clock:    f.clock,
			Label:    f.label,
			Position: f.position.String(),
			Instant:  f.instant.String(),
		}

		id, err := canon.FiringID(canon.Firing{
			Seq:      ev.Seq,
			Clock:    ev.Clock,
			Label:    ev.Label,
			Position: ev.Position,
			Instant:  ev.Instant,
		})
		if err != nil {
			return err
		}
		ev.ID = id

		result.Trace = append(result.Trace, ev)
	}
	return nil
}
