package database

import (
	"fmt"
	"log/slog"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	SQL     []string
}

// schemaVersionTable is created before any migration runs
const schemaVersionTable = `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

// migrations are written in the SQL subset shared by SQLite and PostgreSQL.
// Timestamps are stored as fixed-width UTC text so they sort the same on both.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_comparisons_table",
		SQL: []string{
			`CREATE TABLE IF NOT EXISTS comparisons (
				id TEXT PRIMARY KEY,
				article1 TEXT NOT NULL,
				article2 TEXT NOT NULL,
				result1 TEXT NOT NULL,
				result2 TEXT NOT NULL,
				neutral_summary TEXT NOT NULL,
				comparative_insight TEXT NOT NULL,
				complements TEXT NOT NULL,
				contradictions TEXT NOT NULL,
				created_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_comparisons_created_at ON comparisons(created_at)`,
		},
	},
	{
		Version: 2,
		Name:    "create_emotional_terms_table",
		SQL: []string{
			`CREATE TABLE IF NOT EXISTS emotional_terms (
				comparison_id TEXT NOT NULL,
				article INTEGER NOT NULL,
				term TEXT NOT NULL,
				PRIMARY KEY (comparison_id, article, term),
				FOREIGN KEY (comparison_id) REFERENCES comparisons(id) ON DELETE CASCADE
			)`,
			`CREATE INDEX IF NOT EXISTS idx_emotional_terms_term ON emotional_terms(term)`,
		},
	},
	{
		Version: 3,
		Name:    "add_bias_score_columns",
		SQL: []string{
			`ALTER TABLE comparisons ADD COLUMN bias_score1 REAL NOT NULL DEFAULT 0`,
			`ALTER TABLE comparisons ADD COLUMN bias_score2 REAL NOT NULL DEFAULT 0`,
		},
	},
}

// Migrate runs all pending migrations
func (db *DB) Migrate() error {
	if _, err := db.conn.Exec(schemaVersionTable); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var currentVersion int
	err := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}
	slog.Debug("current schema version", "version", currentVersion, "driver", db.driver)

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		for _, stmt := range migration.SQL {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("failed to run migration %d (%s): %w", migration.Version, migration.Name, err)
			}
		}

		if _, err := tx.Exec(db.rebind("INSERT INTO schema_version (version) VALUES (?)"), migration.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}

		slog.Info("applied migration", "version", migration.Version, "name", migration.Name)
	}

	return nil
}

// Version returns the highest applied migration
func (db *DB) Version() (int, error) {
	var v int
	if err := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return v, nil
}
