package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stopover/internal/ordinate"
)

// writeScenario writes content to name inside a fresh temp dir.
func writeScenario(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, "test.yaml", `
name: test_scenario
description: "Test scenario for validation"
turn: 20ms
clocks:
  - name: fast
    scale: 1000
  - name: solo
events:
  - {clock: fast, at: 1000, label: first}
  - {clock: solo, at: "0.1", label: tenth, fail: nope}
steps:
  - travel: 8
  - {clock: solo, travel: 1, expect_error: callback_failed}
  - {clock: solo, reset: true}
assertions:
  - type: trace_order
    labels: [first]
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	assert.Equal(t, "20ms", scenario.Turn)
	require.Len(t, scenario.Clocks, 2)
	require.NotNil(t, scenario.Clocks[0].Scale)
	assert.True(t, scenario.Clocks[0].Scale.Equal(ordinate.FromInt(1000)))
	assert.Nil(t, scenario.Clocks[1].Scale)

	require.Len(t, scenario.Events, 2)
	assert.True(t, scenario.Events[1].At.Equal(ordinate.MustParse("0.1")))
	assert.Equal(t, "nope", scenario.Events[1].Fail)

	require.Len(t, scenario.Steps, 3)
	assert.True(t, scenario.Steps[0].Travel.Equal(ordinate.FromInt(8)))
	assert.Empty(t, scenario.Steps[0].Clock)
	assert.Equal(t, ExpectCallbackFailed, scenario.Steps[1].ExpectError)
	assert.True(t, scenario.Steps[2].Reset)
	assert.Nil(t, scenario.Steps[2].Travel)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, "typo.yaml", `
name: typo
clocks:
  - name: solo
steps:
  - {clock: solo, travel: 1}
assertion:
  - {type: trace_order, labels: [x]}
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_BadOrdinate(t *testing.T) {
	path := writeScenario(t, "bad.yaml", `
name: bad
clocks:
  - name: solo
steps:
  - {clock: solo, travel: soon}
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenarioYAML_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing name",
			content: `
clocks: [{name: solo}]
steps: [{clock: solo, travel: 1}]
`,
			wantErr: "name is required",
		},
		{
			name: "no clocks",
			content: `
name: x
clocks: []
steps: [{travel: 1}]
`,
			wantErr: "clocks list is required",
		},
		{
			name: "no steps",
			content: `
name: x
clocks: [{name: solo}]
`,
			wantErr: "steps list is required",
		},
		{
			name: "bad turn",
			content: `
name: x
turn: forever
clocks: [{name: solo}]
steps: [{clock: solo, travel: 1}]
`,
			wantErr: "turn:",
		},
		{
			name: "duplicate clock",
			content: `
name: x
clocks: [{name: solo}, {name: solo}]
steps: [{clock: solo, travel: 1}]
`,
			wantErr: `duplicate clock "solo"`,
		},
		{
			name: "zero scale",
			content: `
name: x
clocks: [{name: solo, scale: 0}]
steps: [{travel: 1}]
`,
			wantErr: "scale must be a finite positive number",
		},
		{
			name: "infinite scale",
			content: `
name: x
clocks: [{name: solo, scale: Infinity}]
steps: [{travel: 1}]
`,
			wantErr: "scale must be a finite positive number",
		},
		{
			name: "event on unknown clock",
			content: `
name: x
clocks: [{name: solo}]
events: [{clock: other, at: 1, label: a}]
steps: [{clock: solo, travel: 1}]
`,
			wantErr: `events[0]: unknown clock "other"`,
		},
		{
			name: "event without label",
			content: `
name: x
clocks: [{name: solo}]
events: [{clock: solo, at: 1}]
steps: [{clock: solo, travel: 1}]
`,
			wantErr: "events[0]: label is required",
		},
		{
			name: "travel and reset",
			content: `
name: x
clocks: [{name: solo}]
steps: [{clock: solo, travel: 1, reset: true}]
`,
			wantErr: "exactly one of travel and reset",
		},
		{
			name: "neither travel nor reset",
			content: `
name: x
clocks: [{name: solo}]
steps: [{clock: solo}]
`,
			wantErr: "exactly one of travel and reset",
		},
		{
			name: "group step without group",
			content: `
name: x
clocks: [{name: solo}]
steps: [{travel: 1}]
`,
			wantErr: "group step requires at least one clock with a scale",
		},
		{
			name: "unknown expect_error",
			content: `
name: x
clocks: [{name: solo}]
steps: [{clock: solo, travel: 1, expect_error: timeout}]
`,
			wantErr: `unknown expect_error "timeout"`,
		},
		{
			name: "expect_error on reset",
			content: `
name: x
clocks: [{name: solo}]
steps: [{clock: solo, reset: true, expect_error: callback_failed}]
`,
			wantErr: "reset never fails",
		},
		{
			name: "unknown assertion type",
			content: `
name: x
clocks: [{name: solo}]
steps: [{clock: solo, travel: 1}]
assertions: [{type: trace_contains}]
`,
			wantErr: `unknown assertion type "trace_contains"`,
		},
		{
			name: "final_position without position",
			content: `
name: x
clocks: [{name: solo}]
steps: [{clock: solo, travel: 1}]
assertions: [{type: final_position, clock: solo}]
`,
			wantErr: "position is required",
		},
		{
			name: "trace_count without label",
			content: `
name: x
clocks: [{name: solo}]
steps: [{clock: solo, travel: 1}]
assertions: [{type: trace_count, count: 1}]
`,
			wantErr: "label is required for trace_count",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenarioYAML([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_CUE(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "fractional.cue"))
	require.NoError(t, err)

	assert.Equal(t, "fractional", scenario.Name)
	require.Len(t, scenario.Clocks, 2)
	assert.True(t, scenario.Clocks[0].Scale.Equal(ordinate.FromInt(4)))
	require.Len(t, scenario.Events, 2)
	assert.True(t, scenario.Events[1].At.Equal(ordinate.MustParse("0.5")))
	require.Len(t, scenario.Assertions, 3)
	assert.True(t, scenario.Assertions[1].Position.Equal(ordinate.FromInt(4)))
}

func TestLoadScenario_CUEClosedSchema(t *testing.T) {
	path := writeScenario(t, "typo.cue", `
name: "typo"
clocks: [{name: "solo", speed: 2}]
steps: [{clock: "solo", travel: 1}]
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario does not match schema")
}

func TestLoadScenario_CUEBadExpectError(t *testing.T) {
	path := writeScenario(t, "bad.cue", `
name: "bad"
clocks: [{name: "solo"}]
steps: [{clock: "solo", travel: 1, expect_error: "timeout"}]
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario does not match schema")
}

func TestLoadScenario_CUESyntaxError(t *testing.T) {
	path := writeScenario(t, "broken.cue", `name: "broken`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse CUE")
}

func TestLoadScenario_CUEStillValidated(t *testing.T) {
	// Schema-valid but references a clock that does not exist.
	path := writeScenario(t, "ref.cue", `
name: "ref"
clocks: [{name: "solo"}]
steps: [{clock: "other", travel: 1}]
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown clock "other"`)
}
