package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/stopover/internal/canon"
)

// Snapshot renders a result as canonical JSON for golden comparison.
//
// Content-addressed ids are left out: they follow from the other fields,
// and keeping them out lets golden files be written by hand.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	trace := make([]any, len(result.Trace))
	for i, ev := range result.Trace {
		trace[i] = canon.Object{
			"seq":      ev.Seq,
			"clock":    ev.Clock,
			"label":    ev.Label,
			"position": ev.Position,
			"instant":  ev.Instant,
		}
	}

	positions := make(canon.Object, len(result.Positions))
	for clock, pos := range result.Positions {
		positions[clock] = pos
	}

	return canon.Marshal(canon.Object{
		"scenario_name": scenarioName,
		"trace":         trace,
		"positions":     positions,
	})
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, snapshot)

	return nil
}
