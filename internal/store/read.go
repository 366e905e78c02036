package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/eapache/queue"
)

// ReadRun returns the run with the given id, or ErrRunNotFound.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	var run Run
	err := s.db.QueryRowContext(ctx, `
		SELECT id, scenario, created_seq FROM runs WHERE id = ?
	`, id).Scan(&run.ID, &run.Scenario, &run.CreatedSeq)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns every run in write order.
//
// Returns an empty slice (not nil) if the store holds no runs.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scenario, created_seq FROM runs
		ORDER BY created_seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Scenario, &run.CreatedSeq); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadFirings returns the firings of a run in seq order.
//
// Returns an empty slice (not nil) if the run has no firings.
func (s *Store) ReadFirings(ctx context.Context, runID string) ([]Firing, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, seq, clock, label, position, instant
		FROM firings
		WHERE run_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query firings: %w", err)
	}
	defer rows.Close()

	firings := []Firing{}
	for rows.Next() {
		var f Firing
		if err := rows.Scan(&f.ID, &f.RunID, &f.Seq, &f.Clock, &f.Label, &f.Position, &f.Instant); err != nil {
			return nil, fmt.Errorf("scan firing: %w", err)
		}
		firings = append(firings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate firings: %w", err)
	}
	return firings, nil
}

// TailFirings returns the last n firings of a run in seq order, optionally
// restricted to one label (empty label means all).
//
// Rows are streamed through a ring buffer holding at most n firings, so
// memory stays bounded however long the run is. Returns an empty slice
// (not nil) if nothing matches; n <= 0 also returns an empty slice.
func (s *Store) TailFirings(ctx context.Context, runID, label string, n int) ([]Firing, error) {
	if n <= 0 {
		return []Firing{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, seq, clock, label, position, instant
		FROM firings
		WHERE run_id = ? AND (? = '' OR label = ?)
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, runID, label, label)
	if err != nil {
		return nil, fmt.Errorf("query firings: %w", err)
	}
	defer rows.Close()

	window := queue.New()
	for rows.Next() {
		var f Firing
		if err := rows.Scan(&f.ID, &f.RunID, &f.Seq, &f.Clock, &f.Label, &f.Position, &f.Instant); err != nil {
			return nil, fmt.Errorf("scan firing: %w", err)
		}
		window.Add(f)
		if window.Length() > n {
			window.Remove()
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate firings: %w", err)
	}

	firings := make([]Firing, 0, window.Length())
	for window.Length() > 0 {
		firings = append(firings, window.Remove().(Firing))
	}
	return firings, nil
}

// CountLabel returns how many firings of a run carry label.
func (s *Store) CountLabel(ctx context.Context, runID, label string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM firings WHERE run_id = ? AND label = ?
	`, runID, label).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count label %q: %w", label, err)
	}
	return n, nil
}
