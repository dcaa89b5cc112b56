// Package history records plan runs in a local SQLite database so that
// operators can see what ran on a machine and where it stopped.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/imamik/xtserver/internal/provisioning"
)

// DefaultPath is where the CLI keeps its run history.
const DefaultPath = "/var/lib/xtuple/xtserver.db"

//go:embed schema.sql
var schemaSQL string

// Run is one plan invocation.
type Run struct {
	ID       string
	Plan     string
	Name     string
	Started  time.Time
	Finished time.Time

	// Success is nil while the run is in progress.
	Success *bool

	// Phase and Task name the failing hook of an unsuccessful run.
	Phase string
	Task  string
	Error string
}

// Status is a short label for the run outcome.
func (r Run) Status() string {
	switch {
	case r.Success == nil:
		return "running"
	case *r.Success:
		return "ok"
	default:
		return "failed"
	}
}

// Store persists runs.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Start records the beginning of a plan run.
func (s *Store) Start(ctx context.Context, plan, name string) (*Run, error) {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	run := &Run{ID: id.String(), Plan: plan, Name: name, Started: s.now().UTC()}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, plan, name, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Plan, run.Name, run.Started.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("failed to record run start: %w", err)
	}
	return run, nil
}

// Finish records the outcome of run. A *provisioning.PhaseError in runErr
// supplies the failing phase and task.
func (s *Store) Finish(ctx context.Context, run *Run, runErr error) error {
	ok := runErr == nil
	run.Success = &ok
	run.Finished = s.now().UTC()
	if runErr != nil {
		run.Error = runErr.Error()
		var pe *provisioning.PhaseError
		if errors.As(runErr, &pe) {
			run.Phase = string(pe.Phase)
			run.Task = pe.Task
		}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, success = ?, phase = ?, task = ?, error = ? WHERE id = ?`,
		run.Finished.Format(time.RFC3339Nano), ok, run.Phase, run.Task, run.Error, run.ID)
	if err != nil {
		return fmt.Errorf("failed to record run outcome: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", run.ID)
	}
	return nil
}

// List returns the most recent runs first. limit <= 0 returns all runs.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, plan, name, started_at, finished_at, success, phase, task, error
		FROM runs ORDER BY started_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}
	return runs, nil
}

func scanRun(rows *sql.Rows) (Run, error) {
	var (
		run      Run
		started  string
		finished sql.NullString
		success  sql.NullBool
	)
	if err := rows.Scan(&run.ID, &run.Plan, &run.Name, &started, &finished, &success,
		&run.Phase, &run.Task, &run.Error); err != nil {
		return Run{}, fmt.Errorf("failed to scan run: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return Run{}, fmt.Errorf("invalid start time %q: %w", started, err)
	}
	run.Started = t

	if finished.Valid {
		t, err := time.Parse(time.RFC3339Nano, finished.String)
		if err != nil {
			return Run{}, fmt.Errorf("invalid finish time %q: %w", finished.String, err)
		}
		run.Finished = t
	}
	if success.Valid {
		ok := success.Bool
		run.Success = &ok
	}
	return run, nil
}
