package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "controls: singleton control state row",
		SQL: `
CREATE TABLE controls (
    id                  INTEGER PRIMARY KEY CHECK (id = 1),
    temperature         REAL NOT NULL,
    temp_set_at         INTEGER,
    default_temperature REAL NOT NULL,

    vote_1              INTEGER NOT NULL DEFAULT 0 CHECK (vote_1 >= 0),
    vote_2              INTEGER NOT NULL DEFAULT 0 CHECK (vote_2 >= 0),
    vote_3              INTEGER NOT NULL DEFAULT 0 CHECK (vote_3 >= 0),
    vote_label_1        TEXT NOT NULL DEFAULT '',
    vote_label_2        TEXT NOT NULL DEFAULT '',
    vote_label_3        TEXT NOT NULL DEFAULT '',

    trajectory_reason   TEXT NOT NULL DEFAULT '',
    updated_at          INTEGER NOT NULL
);
`,
	},
	{
		Version:     2,
		Description: "seeds: visitor idea inbox",
		SQL: `
CREATE TABLE seeds (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    text       TEXT NOT NULL CHECK (length(text) > 0),
    created_at INTEGER NOT NULL
);
`,
	},
	{
		Version:     3,
		Description: "artifacts: append-only agent output log",
		SQL: `
CREATE TABLE artifacts (
    seq              INTEGER PRIMARY KEY AUTOINCREMENT,
    id               INTEGER NOT NULL UNIQUE,
    created_at       INTEGER NOT NULL,
    brain            TEXT NOT NULL DEFAULT '',
    cycle            INTEGER,
    artifact_type    TEXT NOT NULL DEFAULT 'post',
    title            TEXT NOT NULL DEFAULT '',
    body_markdown    TEXT NOT NULL DEFAULT '',
    monologue_public TEXT NOT NULL DEFAULT '',
    channel          TEXT NOT NULL DEFAULT '',
    source_platform  TEXT NOT NULL DEFAULT '',
    source_id        TEXT NOT NULL DEFAULT '',
    source_parent_id TEXT NOT NULL DEFAULT '',
    source_url       TEXT NOT NULL DEFAULT '',
    search_queries   TEXT NOT NULL DEFAULT '',
    temperature      REAL
);
`,
	},
	{
		Version:     4,
		Description: "rate_limits: per-identity action counters for the current cycle",
		SQL: `
CREATE TABLE rate_limits (
    identity TEXT NOT NULL,
    action   TEXT NOT NULL CHECK (action IN ('vote', 'temperature')),
    count    INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (identity, action)
);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
