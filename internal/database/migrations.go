package database

import "database/sql"

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS reading_cache (
    date TEXT PRIMARY KEY,
    day_name TEXT NOT NULL,
    liturgical_color TEXT NOT NULL,
    readings TEXT NOT NULL,
    cached_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS production_status (
    production_key TEXT PRIMARY KEY,
    date TEXT NOT NULL,
    kind TEXT NOT NULL,
    progress TEXT NOT NULL,
    active INTEGER NOT NULL DEFAULT 0,
    completed_stages INTEGER NOT NULL DEFAULT 0,
    last_touched TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_production_status_date ON production_status(date);
CREATE INDEX IF NOT EXISTS idx_production_status_active ON production_status(active);
`)
			return err
		},
	},
}
