package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// App state keys
const (
	KeyPreviousProjected = "previous_projected_total"
	KeyLastMoveGoal      = "last_move_goal"
	KeyRefreshCount      = "refresh_count"
	KeyLastSampleSync    = "last_sample_sync"
)

// GetState retrieves a state value by key
// Returns empty string if key doesn't exist
func (db *DB) GetState(key string) (string, error) {
	var value string
	err := db.QueryRow(`
		SELECT value FROM app_state WHERE key = ?
	`, key).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// SetState sets a state value
func (db *DB) SetState(key, value string) error {
	_, err := db.Exec(`
		INSERT INTO app_state (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

// GetFloat returns the float stored under key. ok is false when the key is unset.
func (db *DB) GetFloat(key string) (v float64, ok bool, err error) {
	raw, err := db.GetState(key)
	if err != nil || raw == "" {
		return 0, false, err
	}
	v, err = strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parsing %s: %w", key, err)
	}
	return v, true, nil
}

// SetFloat stores v under key.
func (db *DB) SetFloat(key string, v float64) error {
	return db.SetState(key, strconv.FormatFloat(v, 'g', -1, 64))
}

// GetInt returns the integer stored under key, or 0 when unset.
func (db *DB) GetInt(key string) (int64, error) {
	raw, err := db.GetState(key)
	if err != nil || raw == "" {
		return 0, err
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return v, nil
}

// IncrementInt adds one to the counter under key and returns the new value.
func (db *DB) IncrementInt(key string) (int64, error) {
	var v int64
	err := db.QueryRow(`
		INSERT INTO app_state (key, value, updated_at)
		VALUES (?, '1', CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = CAST(CAST(value AS INTEGER) + 1 AS TEXT),
			updated_at = CURRENT_TIMESTAMP
		RETURNING CAST(value AS INTEGER)
	`, key).Scan(&v)
	return v, err
}

// GetTime returns the instant stored under key, or the zero time when unset.
func (db *DB) GetTime(key string) (time.Time, error) {
	v, err := db.GetInt(key)
	if err != nil || v == 0 {
		return time.Time{}, err
	}
	return time.Unix(v, 0), nil
}

// SetTime stores t under key with second precision.
func (db *DB) SetTime(key string, t time.Time) error {
	return db.SetState(key, strconv.FormatInt(t.Unix(), 10))
}
