// Package runstore persists pipeline run history in a local sqlite database.
package runstore

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"
	_ "modernc.org/sqlite"

	"github.com/RukuLab/ruku/pkg/domain/interfaces"
	"github.com/RukuLab/ruku/pkg/domain/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	owner       TEXT NOT NULL,
	repo        TEXT NOT NULL,
	tag         TEXT NOT NULL,
	commit_sha  TEXT NOT NULL,
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	started_at  TEXT NOT NULL,
	finished_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS jobs (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	target      TEXT NOT NULL,
	status      TEXT NOT NULL,
	archive     TEXT NOT NULL DEFAULT '',
	checksum    TEXT NOT NULL DEFAULT '',
	error       TEXT NOT NULL DEFAULT '',
	started_at  TEXT NOT NULL DEFAULT '',
	finished_at TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, target)
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);
`

// Store is a sqlite-backed RunStore
type Store struct {
	db *sql.DB
}

var _ interfaces.RunStore = (*Store)(nil)

// New creates or opens the run database at path
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, goerr.Wrap(err, "failed to create run store directory", goerr.V("path", path))
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open run database", goerr.V("path", path))
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, goerr.Wrap(err, "failed to initialize run database schema")
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun inserts or updates a run together with its jobs
func (s *Store) SaveRun(ctx context.Context, run *model.PipelineRun) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, owner, repo, tag, commit_sha, status, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			error = excluded.error,
			finished_at = excluded.finished_at`,
		run.ID, run.Owner, run.Repo, run.Tag, run.Commit,
		string(run.Status), run.Error, formatTime(run.StartedAt), formatTime(run.FinishedAt),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to save run", goerr.V("run_id", run.ID))
	}

	for _, job := range run.Jobs {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO jobs (run_id, target, status, archive, checksum, error, started_at, finished_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(run_id, target) DO UPDATE SET
				status = excluded.status,
				archive = excluded.archive,
				checksum = excluded.checksum,
				error = excluded.error,
				started_at = excluded.started_at,
				finished_at = excluded.finished_at`,
			run.ID, job.Target, string(job.Status), job.Archive, job.Checksum,
			job.Error, formatTime(job.StartedAt), formatTime(job.FinishedAt),
		)
		if err != nil {
			return goerr.Wrap(err, "failed to save job",
				goerr.V("run_id", run.ID), goerr.V("target", job.Target))
		}
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit run", goerr.V("run_id", run.ID))
	}
	return nil
}

// GetRun returns a run by ID, or nil when not found
func (s *Store) GetRun(ctx context.Context, id string) (*model.PipelineRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner, repo, tag, commit_sha, status, error, started_at, finished_at
		FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get run", goerr.V("run_id", id))
	}

	if err := s.loadJobs(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns runs newest first, up to limit
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*model.PipelineRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner, repo, tag, commit_sha, status, error, started_at, finished_at
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list runs")
	}
	defer rows.Close()

	var runs []*model.PipelineRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan run")
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate runs")
	}

	for _, run := range runs {
		if err := s.loadJobs(ctx, run); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (s *Store) loadJobs(ctx context.Context, run *model.PipelineRun) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT target, status, archive, checksum, error, started_at, finished_at
		FROM jobs WHERE run_id = ? ORDER BY target`, run.ID)
	if err != nil {
		return goerr.Wrap(err, "failed to load jobs", goerr.V("run_id", run.ID))
	}
	defer rows.Close()

	for rows.Next() {
		var job model.JobResult
		var status, startedAt, finishedAt string
		if err := rows.Scan(&job.Target, &status, &job.Archive, &job.Checksum, &job.Error, &startedAt, &finishedAt); err != nil {
			return goerr.Wrap(err, "failed to scan job", goerr.V("run_id", run.ID))
		}
		job.Status = model.JobStatus(status)
		job.StartedAt = parseTime(startedAt)
		job.FinishedAt = parseTime(finishedAt)
		run.Jobs = append(run.Jobs, &job)
	}
	return rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*model.PipelineRun, error) {
	var run model.PipelineRun
	var status, startedAt, finishedAt string
	if err := row.Scan(&run.ID, &run.Owner, &run.Repo, &run.Tag, &run.Commit, &status, &run.Error, &startedAt, &finishedAt); err != nil {
		return nil, err
	}
	run.Status = model.RunStatus(status)
	run.StartedAt = parseTime(startedAt)
	run.FinishedAt = parseTime(finishedAt)
	return &run, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
