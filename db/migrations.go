package db

import (
	"database/sql"
	"fmt"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// migrations list all database migrations in order.
// The SQL must stay valid for both DuckDB and SQLite.
var migrations = []Migration{
	{
		Version:     1,
		Description: "Create tasks and steps",
		SQL: `
			CREATE TABLE IF NOT EXISTS tasks (
				id TEXT PRIMARY KEY,
				original_goal TEXT NOT NULL,
				status TEXT NOT NULL CHECK (status IN ('active', 'paused', 'completed')),
				energy_level TEXT CHECK (energy_level IS NULL OR energy_level IN ('low', 'medium', 'high')),
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			);

			-- Steps are append-only: rows are completed, never deleted
			CREATE TABLE IF NOT EXISTS steps (
				id TEXT PRIMARY KEY,
				task_id TEXT NOT NULL,
				step_text TEXT NOT NULL,
				estimated_seconds INTEGER NOT NULL,
				actual_duration_seconds INTEGER,
				step_order INTEGER NOT NULL,
				simplification_level INTEGER NOT NULL DEFAULT 0,
				completed BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMP NOT NULL,
				completed_at TIMESTAMP,
				FOREIGN KEY (task_id) REFERENCES tasks(id)
			);
			CREATE INDEX IF NOT EXISTS idx_steps_task_order ON steps(task_id, step_order);
		`,
	},
	{
		Version:     2,
		Description: "Index tasks by creation time",
		// Only never-updated columns are indexed; DuckDB rewrites updates to
		// indexed columns as delete+insert, which trips the steps foreign key.
		SQL: `
			CREATE INDEX IF NOT EXISTS idx_tasks_created ON tasks(created_at);
		`,
	},
}

// Migrate runs all pending database migrations
func (db *DB) Migrate() error {
	// First, ensure migrations table exists
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return serr.Wrap(err, "failed to create migrations table")
	}

	currentVersion, err := db.SchemaVersion()
	if err != nil {
		return err
	}

	logger.Info("Current migration version", "version", currentVersion)

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		logger.Info("Applying migration", "version", migration.Version, "description", migration.Description)

		err := db.Transaction(func(tx *sql.Tx) error {
			if _, err := tx.Exec(migration.SQL); err != nil {
				return serr.Wrap(err, fmt.Sprintf("failed to execute migration %d", migration.Version))
			}

			_, err := tx.Exec(
				"INSERT INTO migrations (version, description) VALUES (?, ?)",
				migration.Version, migration.Description,
			)
			if err != nil {
				return serr.Wrap(err, "failed to record migration")
			}

			return nil
		})

		if err != nil {
			return err
		}

		logger.Info("Migration applied successfully", "version", migration.Version)
	}

	return nil
}

// SchemaVersion returns the highest applied migration version
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM migrations").Scan(&version)
	if err != nil {
		return 0, serr.Wrap(err, "failed to get current migration version")
	}
	return version, nil
}
