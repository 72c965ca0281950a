// Package runstore records asynchronous pipeline runs and their results.
package runstore

import (
	"context"
	"time"

	"github.com/okian/orgwatch/internal/domain/pipeline"
)

// Status is the lifecycle state of a run.
type Status string

// Run statuses.
const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run is one submitted batch.
type Run struct {
	ID        string            `json:"run_id"`
	Status    Status            `json:"status"`
	Items     int               `json:"items"`
	Summary   *pipeline.Summary `json:"summary,omitempty"`
	Result    *pipeline.Result  `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Store persists runs.
type Store interface {
	// Create records a queued run. Returns ErrExists for a known id.
	Create(ctx context.Context, id string, items int) (*Run, error)
	// MarkRunning moves a run to running.
	MarkRunning(ctx context.Context, id string) error
	// Complete stores the result of a finished run.
	Complete(ctx context.Context, id string, res pipeline.Result) error
	// Fail stores the failure message of a run.
	Fail(ctx context.Context, id string, msg string) error
	// Get returns a run. Returns ErrNotFound for an unknown id.
	Get(ctx context.Context, id string) (*Run, error)
	// List returns up to limit runs, newest first.
	List(ctx context.Context, limit int) ([]Run, error)
	// Delete drops a run. Deleting an unknown id is a no-op.
	Delete(ctx context.Context, id string) error
	Close() error
}

const defaultListLimit = 100

// Open returns a SQLite store for dsn, or an in-memory store when dsn is empty.
func Open(ctx context.Context, dsn string) (Store, error) {
	if dsn == "" {
		return NewMemory(), nil
	}
	s, err := NewSQLite(dsn)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}
