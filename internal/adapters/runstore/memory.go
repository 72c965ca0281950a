package runstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/orgwatch/internal/domain/pipeline"
)

// MemoryStore implements Store in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*Run
	now  func() time.Time
}

// NewMemory returns an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*Run), now: func() time.Time { return time.Now().UTC() }}
}

func (s *MemoryStore) Create(_ context.Context, id string, items int) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[id]; ok {
		return nil, ErrExists
	}
	now := s.now()
	r := &Run{ID: id, Status: StatusQueued, Items: items, CreatedAt: now, UpdatedAt: now}
	s.runs[id] = r
	return clone(r), nil
}

func (s *MemoryStore) MarkRunning(_ context.Context, id string) error {
	return s.update(id, func(r *Run) { r.Status = StatusRunning })
}

func (s *MemoryStore) Complete(_ context.Context, id string, res pipeline.Result) error {
	return s.update(id, func(r *Run) {
		summary := res.Summary
		r.Status = StatusCompleted
		r.Summary = &summary
		r.Result = &res
		r.Error = ""
	})
}

func (s *MemoryStore) Fail(_ context.Context, id string, msg string) error {
	return s.update(id, func(r *Run) {
		r.Status = StatusFailed
		r.Error = msg
	})
}

func (s *MemoryStore) update(id string, fn func(*Run)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return ErrNotFound
	}
	fn(r)
	r.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(r), nil
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	s.mu.RLock()
	out := make([]Run, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, *clone(r))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, id)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// clone copies the run header. Results are immutable once stored.
func clone(r *Run) *Run {
	c := *r
	return &c
}
