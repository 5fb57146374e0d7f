package sqlite

import (
	"database/sql"
	"fmt"
)

func migrate(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("db is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Switch runs (audit-ish)
	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS runs(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			mode TEXT NOT NULL,
			dry_run INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL
		);
	`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS run_steps(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			name TEXT NOT NULL,
			status TEXT NOT NULL,
			policy TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL DEFAULT '',
			digest TEXT NOT NULL DEFAULT '',
			UNIQUE(run_id, seq),
			FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
		);
	`); err != nil {
		return err
	}

	if _, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_run_steps_run_id ON run_steps(run_id);`); err != nil {
		return err
	}

	return tx.Commit()
}
