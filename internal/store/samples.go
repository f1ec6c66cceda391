package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"burnpace/internal/analysis"
)

// KeyMoveGoal holds the move goal served to the engine when samples come
// from the local database.
const KeyMoveGoal = "move_goal"

// ErrNoMoveGoal is returned when no move goal has been stored
var ErrNoMoveGoal = errors.New("no move goal stored")

// UpsertSamples stores samples in a single transaction. Re-inserting a
// sample with the same interval and source overwrites its value.
func (db *DB) UpsertSamples(ctx context.Context, source string, samples []analysis.Sample) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO samples (start_at, end_at, value, source)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(start_at, end_at, source) DO UPDATE SET
			value = excluded.value
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	n := 0
	for _, s := range samples {
		if s.Value < 0 {
			continue
		}
		if _, err := stmt.ExecContext(ctx, s.Start.Unix(), s.End.Unix(), s.Value, source); err != nil {
			return n, fmt.Errorf("inserting sample at %s: %w", s.Start.Format(time.RFC3339), err)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing samples: %w", err)
	}
	return n, nil
}

// ReadSamples returns samples starting in [from, to), ordered by start.
func (db *DB) ReadSamples(ctx context.Context, from, to time.Time) ([]analysis.Sample, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT start_at, end_at, value
		FROM samples
		WHERE start_at >= ? AND start_at < ?
		ORDER BY start_at, end_at
	`, from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("querying samples: %w", err)
	}
	defer rows.Close()

	var samples []analysis.Sample
	for rows.Next() {
		var start, end int64
		var s analysis.Sample
		if err := rows.Scan(&start, &end, &s.Value); err != nil {
			return nil, fmt.Errorf("scanning sample: %w", err)
		}
		s.Start = time.Unix(start, 0)
		s.End = time.Unix(end, 0)
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// CountSamples returns the number of stored samples.
func (db *DB) CountSamples(ctx context.Context) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM samples`).Scan(&n)
	return n, err
}

// PruneSamples deletes samples starting before cutoff.
func (db *DB) PruneSamples(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM samples WHERE start_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// MoveGoal returns the stored move goal.
func (db *DB) MoveGoal(ctx context.Context) (float64, error) {
	v, ok, err := db.GetFloat(KeyMoveGoal)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNoMoveGoal
	}
	return v, nil
}

// Authorized always holds for the local database.
func (db *DB) Authorized(ctx context.Context) (bool, error) {
	return true, nil
}
