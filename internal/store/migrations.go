package store

import "database/sql"

// migrate runs all database migrations
func migrate(db *sql.DB) error {
	migrations := []string{
		// Authentication for the remote health API (singleton row)
		`CREATE TABLE IF NOT EXISTS auth (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			subject TEXT NOT NULL,
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			expires_at INTEGER NOT NULL,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		// Raw active energy samples copied from the remote API
		`CREATE TABLE IF NOT EXISTS samples (
			start_at INTEGER NOT NULL,
			end_at INTEGER NOT NULL,
			value REAL NOT NULL CHECK (value >= 0),
			source TEXT NOT NULL DEFAULT '',
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (start_at, end_at, source)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_samples_start ON samples(start_at)`,

		// Per-weekday average curve, replaced wholesale
		`CREATE TABLE IF NOT EXISTS weekday_snapshots (
			weekday INTEGER PRIMARY KEY CHECK (weekday BETWEEN 1 AND 7),
			payload BLOB NOT NULL,
			computed_at INTEGER NOT NULL,
			schema_version INTEGER NOT NULL,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		// Most recent "today" result (singleton row)
		`CREATE TABLE IF NOT EXISTS today_snapshot (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			payload BLOB NOT NULL,
			computed_at INTEGER NOT NULL,
			schema_version INTEGER NOT NULL,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		// App state (key-value store for goal, crossing memory, counters)
		`CREATE TABLE IF NOT EXISTS app_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}

	return nil
}
