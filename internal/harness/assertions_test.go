package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stopover/internal/ordinate"
)

func testResult() *Result {
	r := NewResult()
	r.Trace = []TraceEvent{
		{Seq: 1, Clock: "fast", Label: "a", Position: "1000", Instant: "1"},
		{Seq: 2, Clock: "slow", Label: "b", Position: "3", Instant: "3"},
		{Seq: 3, Clock: "slow", Label: "a", Position: "4", Instant: "4"},
	}
	r.Positions = map[string]string{"fast": "8000", "slow": "8"}
	return r
}

func position(s string) *ordinate.Ordinate {
	o := ordinate.MustParse(s)
	return &o
}

func TestEvaluateAssertions(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{
			name:      "order holds",
			assertion: Assertion{Type: AssertTraceOrder, Labels: []string{"a", "b"}},
		},
		{
			name:      "order uses first appearance",
			assertion: Assertion{Type: AssertTraceOrder, Labels: []string{"b", "a"}},
			wantErr:   "b (pos 2) should be before a (pos 1)",
		},
		{
			name:      "order missing label",
			assertion: Assertion{Type: AssertTraceOrder, Labels: []string{"a", "c"}},
			wantErr:   "missing label: c",
		},
		{
			name:      "count matches",
			assertion: Assertion{Type: AssertTraceCount, Label: "a", Count: 2},
		},
		{
			name:      "count zero",
			assertion: Assertion{Type: AssertTraceCount, Label: "c", Count: 0},
		},
		{
			name:      "count mismatch",
			assertion: Assertion{Type: AssertTraceCount, Label: "b", Count: 2},
			wantErr:   "1 firings",
		},
		{
			name:      "position compares numerically",
			assertion: Assertion{Type: AssertFinalPosition, Clock: "fast", Position: position("8e3")},
		},
		{
			name:      "position mismatch",
			assertion: Assertion{Type: AssertFinalPosition, Clock: "slow", Position: position("7.5")},
			wantErr:   "slow at 8",
		},
		{
			name:      "position unknown clock",
			assertion: Assertion{Type: AssertFinalPosition, Clock: "other", Position: position("1")},
			wantErr:   `no position recorded for clock "other"`,
		},
		{
			name:      "unknown type",
			assertion: Assertion{Type: "trace_contains"},
			wantErr:   `unknown assertion type "trace_contains"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(testResult(), []Assertion{tt.assertion})
			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], "assertions[0]")
			assert.Contains(t, errs[0], tt.wantErr)
		})
	}
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := &AssertionError{
		Type:     AssertTraceCount,
		Expected: "2 firings of b",
		Actual:   "1 firings",
		Trace:    testResult().Trace,
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: trace_count")
	assert.Contains(t, msg, "Expected: 2 firings of b")
	assert.Contains(t, msg, "Actual: 1 firings")
	assert.Contains(t, msg, "[1] a on fast at 1000 (instant 1)")
	assert.Contains(t, msg, "[3] a on slow at 4 (instant 4)")
}

func TestEvaluateAssertions_ReportsEveryFailure(t *testing.T) {
	errs := EvaluateAssertions(testResult(), []Assertion{
		{Type: AssertTraceCount, Label: "a", Count: 1},
		{Type: AssertTraceOrder, Labels: []string{"a", "b"}},
		{Type: AssertFinalPosition, Clock: "slow", Position: position("1")},
	})

	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "assertions[0]")
	assert.Contains(t, errs[1], "assertions[2]")
}
