package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/stopover/internal/ordinate"
)

// Scenario describes clocks, the events scheduled on them, the travels and
// resets to perform, and what the resulting trace must look like.
//
// Clocks with a scale join the scenario's group; clocks without one are
// driven only by steps that name them.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name" json:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description" json:"description"`

	// Turn overrides the per-function completion budget (Go duration syntax,
	// e.g. "20ms"). Empty means vclock.DefaultTurn.
	Turn string `yaml:"turn,omitempty" json:"turn,omitempty"`

	Clocks     []ClockDef  `yaml:"clocks" json:"clocks"`
	Events     []EventDef  `yaml:"events,omitempty" json:"events,omitempty"`
	Steps      []Step      `yaml:"steps" json:"steps"`
	Assertions []Assertion `yaml:"assertions,omitempty" json:"assertions,omitempty"`
}

// ClockDef declares a clock.
type ClockDef struct {
	Name string `yaml:"name" json:"name"`

	// Scale makes the clock a group member. Nil means not a member.
	Scale *ordinate.Ordinate `yaml:"scale,omitempty" json:"scale,omitempty"`
}

// EventDef schedules one labelled event before the first step.
type EventDef struct {
	Clock string            `yaml:"clock" json:"clock"`
	At    ordinate.Ordinate `yaml:"at" json:"at"`
	Label string            `yaml:"label" json:"label"`

	// Cancel cancels the event right after scheduling it.
	Cancel bool `yaml:"cancel,omitempty" json:"cancel,omitempty"`

	// Fail makes the event's function return an error with this message.
	Fail string `yaml:"fail,omitempty" json:"fail,omitempty"`

	// Block makes the event's function outlive its turn.
	Block bool `yaml:"block,omitempty" json:"block,omitempty"`

	// Reenter makes the event's function travel its own clock, which is
	// refused while that clock is travelling.
	Reenter bool `yaml:"reenter,omitempty" json:"reenter,omitempty"`
}

// Step is one action on the group or on a single clock.
//
// Exactly one of Travel and Reset is set. An empty Clock targets the group.
type Step struct {
	Travel *ordinate.Ordinate `yaml:"travel,omitempty" json:"travel,omitempty"`
	Reset  bool               `yaml:"reset,omitempty" json:"reset,omitempty"`
	Clock  string             `yaml:"clock,omitempty" json:"clock,omitempty"`

	// ExpectError names the error class the step must fail with.
	// One of: concurrent_journey, scheduled_async, callback_failed.
	ExpectError string `yaml:"expect_error,omitempty" json:"expect_error,omitempty"`
}

// Assertion validates the final trace or clock positions.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_order": labels appear in this order
	// - "trace_count": label appears exactly Count times
	// - "final_position": clock ends at Position
	Type string `yaml:"type" json:"type"`

	// Labels is the expected label order (trace_order).
	Labels []string `yaml:"labels,omitempty" json:"labels,omitempty"`

	// Label and Count are used by trace_count.
	Label string `yaml:"label,omitempty" json:"label,omitempty"`
	Count int    `yaml:"count,omitempty" json:"count,omitempty"`

	// Clock and Position are used by final_position.
	Clock    string             `yaml:"clock,omitempty" json:"clock,omitempty"`
	Position *ordinate.Ordinate `yaml:"position,omitempty" json:"position,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalPosition = "final_position"
)

// Expected error classes for Step.ExpectError.
const (
	ExpectConcurrentJourney = "concurrent_journey"
	ExpectScheduledAsync    = "scheduled_async"
	ExpectCallbackFailed    = "callback_failed"
)

// LoadScenario reads and parses a scenario file. Files ending in .cue are
// evaluated as CUE against the embedded schema; everything else is YAML.
//
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario *Scenario
	if filepath.Ext(path) == ".cue" {
		scenario, err = parseCUE(data, path)
	} else {
		scenario, err = parseYAML(data)
	}
	if err != nil {
		return nil, err
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return scenario, nil
}

// ParseScenarioYAML parses and validates scenario YAML.
func ParseScenarioYAML(data []byte) (*Scenario, error) {
	scenario, err := parseYAML(data)
	if err != nil {
		return nil, err
	}
	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

func parseYAML(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// turn returns the configured turn, or ok=false if none is set.
func (s *Scenario) turn() (time.Duration, bool, error) {
	if s.Turn == "" {
		return 0, false, nil
	}
	d, err := time.ParseDuration(s.Turn)
	if err != nil {
		return 0, false, fmt.Errorf("turn: %w", err)
	}
	return d, true, nil
}

// hasGroup reports whether any clock carries a scale.
func (s *Scenario) hasGroup() bool {
	for _, c := range s.Clocks {
		if c.Scale != nil {
			return true
		}
	}
	return false
}

// validateScenario checks that required fields are present and that every
// reference resolves.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if len(s.Clocks) == 0 {
		return fmt.Errorf("clocks list is required and must be non-empty")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if _, _, err := s.turn(); err != nil {
		return err
	}

	clocks := make(map[string]bool, len(s.Clocks))
	for i, c := range s.Clocks {
		if c.Name == "" {
			return fmt.Errorf("clocks[%d]: name is required", i)
		}
		if clocks[c.Name] {
			return fmt.Errorf("clocks[%d]: duplicate clock %q", i, c.Name)
		}
		if c.Scale != nil && (c.Scale.Sign() <= 0 || c.Scale.IsInf()) {
			return fmt.Errorf("clocks[%d]: scale must be a finite positive number, got %s", i, c.Scale)
		}
		clocks[c.Name] = true
	}

	for i, e := range s.Events {
		if !clocks[e.Clock] {
			return fmt.Errorf("events[%d]: unknown clock %q", i, e.Clock)
		}
		if e.Label == "" {
			return fmt.Errorf("events[%d]: label is required", i)
		}
		if e.At.IsInf() {
			return fmt.Errorf("events[%d]: at must be finite", i)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step, clocks, s.hasGroup()); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, clocks); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, step Step, clocks map[string]bool, hasGroup bool) error {
	if (step.Travel != nil) == step.Reset {
		return fmt.Errorf("steps[%d]: exactly one of travel and reset is required", index)
	}
	if step.Travel != nil && step.Travel.IsInf() {
		return fmt.Errorf("steps[%d]: travel must be finite", index)
	}

	if step.Clock == "" {
		if !hasGroup {
			return fmt.Errorf("steps[%d]: group step requires at least one clock with a scale", index)
		}
	} else if !clocks[step.Clock] {
		return fmt.Errorf("steps[%d]: unknown clock %q", index, step.Clock)
	}

	switch step.ExpectError {
	case "", ExpectConcurrentJourney, ExpectScheduledAsync, ExpectCallbackFailed:
	default:
		return fmt.Errorf("steps[%d]: unknown expect_error %q", index, step.ExpectError)
	}
	if step.ExpectError != "" && step.Reset {
		return fmt.Errorf("steps[%d]: reset never fails, expect_error is not allowed", index)
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, clocks map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceOrder:
		if len(a.Labels) == 0 {
			return fmt.Errorf("assertions[%d]: labels list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Label == "" {
			return fmt.Errorf("assertions[%d]: label is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalPosition:
		if !clocks[a.Clock] {
			return fmt.Errorf("assertions[%d]: unknown clock %q for final_position", index, a.Clock)
		}
		if a.Position == nil {
			return fmt.Errorf("assertions[%d]: position is required for final_position", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
