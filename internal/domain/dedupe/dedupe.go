// Package dedupe merges near-duplicate entities and tracks idempotency keys.
package dedupe

import (
	"context"
	"sync"
)

// Deduper records seen run IDs to ensure a submission runs at most once.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets an id so a failed submission can be retried.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// idSet keeps at most maxSize ids and evicts the oldest first.
// maxSize <= 0 means unbounded.
type idSet struct {
	mu      sync.Mutex
	seen    map[string]uint64 // id -> insertion sequence
	order   []orderEntry      // FIFO of insertions, may hold stale entries
	seq     uint64
	maxSize int
}

type orderEntry struct {
	id  string
	seq uint64
}

// NewInMemoryDeduper creates an in-memory Deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &idSet{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]uint64)
	return d
}

func (d *idSet) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	if d.maxSize > 0 {
		for len(d.seen) >= d.maxSize {
			d.evictOldest()
		}
	}
	d.seq++
	d.seen[id] = d.seq
	if d.maxSize > 0 {
		d.order = append(d.order, orderEntry{id: id, seq: d.seq})
	}
	return false
}

func (d *idSet) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	// the FIFO entry turns stale and is skipped on eviction
	delete(d.seen, id)
}

// evictOldest drops the oldest live id. Must be called with d.mu held.
func (d *idSet) evictOldest() {
	for len(d.order) > 0 {
		head := d.order[0]
		d.order = d.order[1:]
		if seq, ok := d.seen[head.id]; ok && seq == head.seq {
			delete(d.seen, head.id)
			return
		}
	}
}

func (d *idSet) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
