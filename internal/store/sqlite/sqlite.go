package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"envswitch/internal/store"
)

type Store struct {
	db *sql.DB
}

var _ store.RunStore = (*Store)(nil)

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// conservative pool for single-file sqlite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Migrate() error {
	return migrate(s.db)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func (s *Store) RecordRun(r store.Run) (int64, error) {
	if r.Mode == "" {
		return 0, fmt.Errorf("mode is required")
	}
	if r.Status == "" {
		return 0, fmt.Errorf("status is required")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	dry := 0
	if r.DryRun {
		dry = 1
	}
	res, err := tx.Exec(`
		INSERT INTO runs(mode, dry_run, status, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.Mode, dry, r.Status, r.Error, formatTime(r.StartedAt), formatTime(r.FinishedAt))
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for i, st := range r.Steps {
		if _, err := tx.Exec(`
			INSERT INTO run_steps(run_id, seq, name, status, policy, message, digest)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, i, st.Name, st.Status, st.Policy, st.Message, st.Digest); err != nil {
			return 0, fmt.Errorf("insert step %s: %w", st.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ListRuns returns the newest runs first, each with its steps in order.
func (s *Store) ListRuns(limit int) ([]store.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, mode, dry_run, status, error, started_at, finished_at
		FROM runs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Run
	for rows.Next() {
		var r store.Run
		var dry int
		var started, finished string
		if err := rows.Scan(&r.ID, &r.Mode, &dry, &r.Status, &r.Error, &started, &finished); err != nil {
			return nil, err
		}
		r.DryRun = dry == 1
		if t, err := time.Parse(time.RFC3339Nano, started); err == nil {
			r.StartedAt = t
		}
		if t, err := time.Parse(time.RFC3339Nano, finished); err == nil {
			r.FinishedAt = t
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range out {
		steps, err := s.listSteps(out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Steps = steps
	}
	return out, nil
}

func (s *Store) listSteps(runID int64) ([]store.StepRecord, error) {
	rows, err := s.db.Query(`
		SELECT name, status, policy, message, digest
		FROM run_steps
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.StepRecord
	for rows.Next() {
		var st store.StepRecord
		if err := rows.Scan(&st.Name, &st.Status, &st.Policy, &st.Message, &st.Digest); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
