package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stopover/internal/store"
)

// storedRun runs the passing scenario with --db and returns the database
// path and the run id.
func storedRun(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := writeFile(t, dir, "pass.yaml", passingScenario)
	dbPath := filepath.Join(dir, "runs.db")

	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--db", dbPath, path})
	require.NoError(t, cmd.Execute())

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.NotEmpty(t, resp.RunID)
	return dbPath, resp.RunID
}

func executeTrace(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTraceMissingDatabaseFlag(t *testing.T) {
	_, err := executeTrace(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
	assert.Contains(t, err.Error(), "db")
}

func TestTraceListRuns(t *testing.T) {
	dbPath, runID := storedRun(t)

	output, err := executeTrace(t, "text", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, output, "=== Runs ===")
	assert.Contains(t, output, "[1] "+truncateID(runID)+" pass_one")
}

func TestTraceListRunsEmpty(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")

	output, err := executeTrace(t, "text", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, output, "No runs stored.")
}

func TestTraceListRunsJSON(t *testing.T) {
	dbPath, runID := storedRun(t)

	output, err := executeTrace(t, "json", "--db", dbPath)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   []RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, runID, resp.Data[0].ID)
	assert.Equal(t, int64(1), resp.Data[0].Seq)
}

func TestTraceShowRun(t *testing.T) {
	dbPath, runID := storedRun(t)

	output, err := executeTrace(t, "text", "--db", dbPath, "--run", runID)
	require.NoError(t, err)
	assert.Contains(t, output, "Trace for Run: "+runID)
	assert.Contains(t, output, "Scenario: pass_one")
	assert.Contains(t, output, "[1] fast-1 on fast at 10 (instant 1)")
	assert.Contains(t, output, "[2] slow-2 on slow at 2 (instant 2)")
	assert.Contains(t, output, "Total Events: 2")
	assert.Contains(t, output, "fast: 1")
}

func TestTraceShowRunJSONWithLabel(t *testing.T) {
	dbPath, runID := storedRun(t)

	output, err := executeTrace(t, "json", "--db", dbPath, "--run", runID, "--label", "slow-2")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		RunID  string      `json:"run_id"`
		Data   TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, runID, resp.RunID)
	require.Len(t, resp.Data.Timeline, 1)
	assert.Equal(t, "slow-2", resp.Data.Timeline[0].Label)
	assert.Equal(t, int64(2), resp.Data.Timeline[0].Seq)
	require.NotNil(t, resp.Data.Stats.LabelCount)
	assert.Equal(t, 1, *resp.Data.Stats.LabelCount)
	assert.Equal(t, map[string]int{"slow": 1}, resp.Data.Stats.PerClock)
}

func TestTraceRunNotFound(t *testing.T) {
	dbPath, _ := storedRun(t)

	_, err := executeTrace(t, "text", "--db", dbPath, "--run", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "run not found: missing")

	output, err := executeTrace(t, "json", "--db", dbPath, "--run", "missing")
	require.Error(t, err)
	var resp Response
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeRunNotFound, resp.Error.Code)
}

func TestTraceLabelRequiresRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	_, err := executeTrace(t, "text", "--db", dbPath, "--label", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--label requires --run")
}

func TestTraceTail(t *testing.T) {
	dbPath, runID := storedRun(t)

	output, err := executeTrace(t, "json", "--db", dbPath, "--run", runID, "--tail", "1")
	require.NoError(t, err)

	var resp struct {
		Data TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	require.Len(t, resp.Data.Timeline, 1)
	assert.Equal(t, "slow-2", resp.Data.Timeline[0].Label)
	assert.Equal(t, int64(2), resp.Data.Timeline[0].Seq)
	assert.Equal(t, 1, resp.Data.Stats.TotalEvents)
}

func TestTraceTailValidation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	_, err := executeTrace(t, "text", "--db", dbPath, "--tail", "3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--tail requires --run")

	_, err = executeTrace(t, "text", "--db", dbPath, "--run", "x", "--tail=-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "--tail must be positive")
}

func TestBuildTimeline(t *testing.T) {
	firings := []store.Firing{
		{ID: "a", Seq: 1, Clock: "fast", Label: "x", Position: "10", Instant: "1"},
		{ID: "b", Seq: 2, Clock: "slow", Label: "y", Position: "2", Instant: "2"},
		{ID: "c", Seq: 3, Clock: "slow", Label: "x", Position: "3", Instant: "3"},
	}

	all := buildTimeline(firings, "")
	assert.Len(t, all, 3)

	filtered := buildTimeline(firings, "x")
	require.Len(t, filtered, 2)
	assert.Equal(t, "a", filtered[0].ID)
	assert.Equal(t, "c", filtered[1].ID)

	assert.NotNil(t, buildTimeline(nil, ""))
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, "01234567...89abcdef", truncateID("0123456789abcdef0123456789abcdef"))
}
