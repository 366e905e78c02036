package store

import (
	"context"
	"fmt"
)

// WriteRun inserts a run together with its firings in one transaction.
//
// Runs are content-addressed: if a run with the same id exists, nothing is
// written and created is false. created_seq is assigned by the store.
func (s *Store) WriteRun(ctx context.Context, scenario, id string, firings []Firing) (created bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("write run: begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	// WHERE true keeps SQLite from parsing ON CONFLICT as a join constraint.
	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, scenario, created_seq)
		SELECT ?, ?, COALESCE(MAX(created_seq), 0) + 1 FROM runs WHERE true
		ON CONFLICT(id) DO NOTHING
	`, id, scenario)
	if err != nil {
		return false, fmt.Errorf("write run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write run: %w", err)
	}
	if n == 0 {
		return false, tx.Commit()
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO firings (id, run_id, seq, clock, label, position, instant)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return false, fmt.Errorf("write run: prepare firings: %w", err)
	}
	defer stmt.Close()

	for _, f := range firings {
		if _, err = stmt.ExecContext(ctx, f.ID, id, f.Seq, f.Clock, f.Label, f.Position, f.Instant); err != nil {
			return false, fmt.Errorf("write firing seq=%d: %w", f.Seq, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("write run: commit: %w", err)
	}
	return true, nil
}
