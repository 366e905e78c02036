package harness

import (
	"context"
	"fmt"

	"github.com/roach88/stopover/internal/store"
)

// Persist writes a run and its trace to st. Writing an identical run again
// is a no-op; created reports whether anything was written.
func Persist(ctx context.Context, st *store.Store, scenarioName string, result *Result) (created bool, err error) {
	firings := make([]store.Firing, len(result.Trace))
	for i, ev := range result.Trace {
		firings[i] = store.Firing{
			ID:       ev.ID,
			RunID:    result.RunID,
			Seq:      ev.Seq,
			Clock:    ev.Clock,
			Label:    ev.Label,
			Position: ev.Position,
			Instant:  ev.Instant,
		}
	}

	created, err = st.WriteRun(ctx, scenarioName, result.RunID, firings)
	if err != nil {
		return false, fmt.Errorf("persist run %s: %w", result.RunID, err)
	}
	return created, nil
}
