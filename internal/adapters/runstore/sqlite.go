package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/okian/orgwatch/internal/domain/pipeline"
	"github.com/okian/orgwatch/pkg/metrics"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'queued',
	items      INTEGER NOT NULL DEFAULT 0,
	summary    TEXT,
	result     TEXT,
	error      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

// Migrate creates the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Create(ctx context.Context, id string, items int) (*Run, error) {
	defer observe("create", time.Now())
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, items, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		id, string(StatusQueued), items, now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert run %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return nil, eris.Wrapf(ErrExists, "sqlite: insert run %s", id)
	}
	return &Run{ID: id, Status: StatusQueued, Items: items, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *SQLiteStore) MarkRunning(ctx context.Context, id string) error {
	defer observe("update", time.Now())
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(StatusRunning), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", id)
	}
	return checkRowsAffected(res, id)
}

func (s *SQLiteStore) Complete(ctx context.Context, id string, result pipeline.Result) error {
	defer observe("update", time.Now())
	summaryJSON, err := json.Marshal(result.Summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, summary = ?, result = ?, error = '', updated_at = ? WHERE id = ?`,
		string(StatusCompleted), string(summaryJSON), string(resultJSON), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run result %s", id)
	}
	return checkRowsAffected(res, id)
}

func (s *SQLiteStore) Fail(ctx context.Context, id string, msg string) error {
	defer observe("update", time.Now())
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(StatusFailed), msg, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", id)
	}
	return checkRowsAffected(res, id)
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Run, error) {
	defer observe("get", time.Now())
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, items, summary, result, error, created_at, updated_at FROM runs WHERE id = ?`,
		id,
	)
	return scanRun(row, true)
}

// List omits the full result of each run; use Get for it.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Run, error) {
	defer observe("list", time.Now())
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, items, summary, NULL, error, created_at, updated_at FROM runs
		 ORDER BY created_at DESC, id ASC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows, false)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	return eris.Wrapf(err, "sqlite: delete run %s", id)
}

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable, withResult bool) (*Run, error) {
	var r Run
	var status string
	var summaryJSON, resultJSON sql.NullString

	err := row.Scan(&r.ID, &status, &r.Items, &summaryJSON, &resultJSON, &r.Error, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	r.Status = Status(status)

	if summaryJSON.Valid {
		r.Summary = &pipeline.Summary{}
		if err := json.Unmarshal([]byte(summaryJSON.String), r.Summary); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal summary")
		}
	}
	if withResult && resultJSON.Valid {
		r.Result = &pipeline.Result{}
		if err := json.Unmarshal([]byte(resultJSON.String), r.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
	}
	return &r, nil
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency("runs", op, float64(time.Since(start).Microseconds())/1000)
}
