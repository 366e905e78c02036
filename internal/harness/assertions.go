package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/stopover/internal/ordinate"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s on %s at %s (instant %s)\n", ev.Seq, ev.Label, ev.Clock, ev.Position, ev.Instant)
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
// Returns an empty slice if all assertions pass.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	errs := []string{}
	for i, a := range assertions {
		if err := evaluateAssertion(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion) error {
	switch a.Type {
	case AssertTraceOrder:
		return assertTraceOrder(result.Trace, a)
	case AssertTraceCount:
		return assertTraceCount(result.Trace, a)
	case AssertFinalPosition:
		return assertFinalPosition(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertTraceOrder checks that labels first appear in the specified order.
// Labels don't need to be consecutive (intervening firings are allowed).
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	positions := make(map[string]int)
	for i, ev := range trace {
		if _, seen := positions[ev.Label]; !seen {
			positions[ev.Label] = i + 1 // 1-indexed for readability
		}
	}

	for _, label := range a.Labels {
		if positions[label] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all labels present: %v", a.Labels),
				Actual:   fmt.Sprintf("missing label: %s", label),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(a.Labels); i++ {
		prev, curr := a.Labels[i-1], a.Labels[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("labels in order: %v", a.Labels),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks that the label fired exactly Count times.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Label == a.Label {
			count++
		}
	}

	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d firings of %s", a.Count, a.Label),
			Actual:   fmt.Sprintf("%d firings", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalPosition compares a clock's final position numerically, so
// 8000 and 8e3 are equal.
func assertFinalPosition(result *Result, a Assertion) error {
	got, ok := result.Positions[a.Clock]
	if !ok {
		return fmt.Errorf("no position recorded for clock %q", a.Clock)
	}

	actual, err := ordinate.Parse(got)
	if err != nil {
		return fmt.Errorf("clock %q: %w", a.Clock, err)
	}

	if !actual.Equal(*a.Position) {
		return &AssertionError{
			Type:     AssertFinalPosition,
			Expected: fmt.Sprintf("%s at %s", a.Clock, a.Position),
			Actual:   fmt.Sprintf("%s at %s", a.Clock, got),
			Trace:    result.Trace,
		}
	}
	return nil
}
