package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			batch TEXT,
			path TEXT NOT NULL,
			plan TEXT,
			started_at TEXT NOT NULL,
			status TEXT NOT NULL,
			dry_run INTEGER NOT NULL DEFAULT 0,
			changed INTEGER NOT NULL DEFAULT 0,
			bytes_before INTEGER,
			bytes_after INTEGER,
			lines_before INTEGER,
			lines_after INTEGER,
			line_ending TEXT,
			hash_before TEXT,
			hash_after TEXT,
			error TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS steps (
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			idx INTEGER NOT NULL,
			name TEXT,
			kind TEXT,
			status TEXT,
			matches INTEGER,
			error TEXT,
			PRIMARY KEY (run_id, idx)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_path ON runs(path);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// --- JournalStore Implementation ---

func (s *SQLiteStore) RecordRun(ctx context.Context, run *Run) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (batch, path, plan, started_at, status, dry_run, changed, bytes_before, bytes_after, lines_before, lines_after, line_ending, hash_before, hash_after, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.Batch, run.Path, run.Plan, run.StartedAt.UTC().Format(time.RFC3339Nano), run.Status, run.DryRun, run.Changed,
		run.BytesBefore, run.BytesAfter, run.LinesBefore, run.LinesAfter, run.LineEnding, run.HashBefore, run.HashAfter, run.Error)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO steps (run_id, idx, name, kind, status, matches, error) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, st := range run.Steps {
		if _, err := stmt.ExecContext(ctx, id, st.Index, st.Name, st.Kind, st.Status, st.Matches, st.Error); err != nil {
			return 0, fmt.Errorf("failed to insert step %d: %w", st.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	run.ID = id
	return id, nil
}

const runColumns = "id, batch, path, plan, started_at, status, dry_run, changed, bytes_before, bytes_after, lines_before, lines_after, line_ending, hash_before, hash_after, error"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		r       Run
		started string
		batch   sql.NullString
		plan    sql.NullString
		ending  sql.NullString
		before  sql.NullString
		after   sql.NullString
		errText sql.NullString
	)
	if err := row.Scan(&r.ID, &batch, &r.Path, &plan, &started, &r.Status, &r.DryRun, &r.Changed,
		&r.BytesBefore, &r.BytesAfter, &r.LinesBefore, &r.LinesAfter, &ending, &before, &after, &errText); err != nil {
		return nil, err
	}
	r.Plan, r.LineEnding, r.Error = plan.String, ending.String, errText.String
	r.HashBefore, r.HashAfter = before.String, after.String
	r.Batch = batch.String
	t, err := time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return nil, fmt.Errorf("bad started_at %q: %w", started, err)
	}
	r.StartedAt = t
	return &r, nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	r, err := scanRun(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadSteps(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, path string, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	query := "SELECT " + runColumns + " FROM runs"
	args := []any{}
	if path != "" {
		query += " WHERE path = ?"
		args = append(args, path)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for _, r := range runs {
		if err := s.loadSteps(ctx, r); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (s *SQLiteStore) loadSteps(ctx context.Context, r *Run) error {
	rows, err := s.db.QueryContext(ctx, "SELECT idx, name, kind, status, matches, error FROM steps WHERE run_id = ? ORDER BY idx", r.ID)
	if err != nil {
		return fmt.Errorf("failed to query steps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			st      StepRecord
			errText sql.NullString
		)
		if err := rows.Scan(&st.Index, &st.Name, &st.Kind, &st.Status, &st.Matches, &errText); err != nil {
			return fmt.Errorf("failed to scan step: %w", err)
		}
		st.Error = errText.String
		r.Steps = append(r.Steps, st)
	}
	return rows.Err()
}
