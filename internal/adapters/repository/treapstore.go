package repository

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/okian/orgwatch/internal/domain/model"
	"github.com/okian/orgwatch/internal/domain/normalize"
	"github.com/okian/orgwatch/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: score DESC, then slug ASC (deterministic).
// "less" means ranks earlier, so in-order traversal yields the ranking from
// riskiest to least risky. Node sizes make rank lookups O(log n).

const storeLabel = "profiles"

// treap node
type node struct {
	slug  string
	score int
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aScore, aSlug) should appear before (bScore, bSlug).
func less(aScore int, aSlug string, bScore int, bSlug string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aSlug < bSlug
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

// priority hashes the slug so the tree shape depends only on its contents.
func priority(slug string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(slug))
	return h.Sum64()
}

func insert(n *node, slug string, score int) *node {
	if n == nil {
		return &node{slug: slug, score: score, prio: priority(slug), size: 1}
	}
	if less(score, slug, n.score, n.slug) {
		n.left = insert(n.left, slug, score)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, slug, score)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, slug string, score int) *node {
	if n == nil {
		return nil
	}
	if score == n.score && slug == n.slug {
		// Rotate the higher priority child up until the node is a leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, slug, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, slug, score)
		}
	} else if less(score, slug, n.score, n.slug) {
		n.left = deleteNode(n.left, slug, score)
	} else {
		n.right = deleteNode(n.right, slug, score)
	}
	fix(n)
	return n
}

// rankOf returns the 1-based position of (score, slug) in the tree.
func rankOf(n *node, slug string, score int) int {
	rank := 0
	for n != nil {
		switch {
		case score == n.score && slug == n.slug:
			return rank + nsize(n.left) + 1
		case less(score, slug, n.score, n.slug):
			n = n.left
		default:
			rank += nsize(n.left) + 1
			n = n.right
		}
	}
	return 0
}

// collect appends up to limit slugs in rank order.
func collect(n *node, limit int, out *[]string) {
	if n == nil || len(*out) >= limit {
		return
	}
	collect(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n.slug)
	}
	if len(*out) < limit {
		collect(n.right, limit, out)
	}
}

// TreapStore is safe for concurrent use.
type TreapStore struct {
	mu     sync.RWMutex
	root   *node
	bySlug map[string]Profile
	now    func() time.Time
}

// NewTreapStore constructs an empty treap store.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{
		bySlug: make(map[string]Profile),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upsert implements Store.Upsert with O(log n) expected time.
func (s *TreapStore) Upsert(_ context.Context, p Profile) (bool, error) {
	defer observe("upsert", time.Now())

	if !normalize.IsValidSlug(p.Slug) {
		metrics.RecordErrorByComponent("repository", "invalid_slug")
		return false, ErrInvalidSlug
	}
	p.Rank = 0
	p.Entity = p.Entity.Clone()
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = s.now()
	}

	s.mu.Lock()
	old, existed := s.bySlug[p.Slug]
	if existed {
		s.root = deleteNode(s.root, old.Slug, old.Score)
	}
	s.bySlug[p.Slug] = p
	s.root = insert(s.root, p.Slug, p.Score)
	count := len(s.bySlug)
	s.mu.Unlock()

	metrics.UpdatePublishedProfiles(count)
	return !existed, nil
}

// Remove implements Store.Remove.
func (s *TreapStore) Remove(_ context.Context, slug string) (bool, error) {
	defer observe("remove", time.Now())

	s.mu.Lock()
	old, ok := s.bySlug[slug]
	if ok {
		s.root = deleteNode(s.root, old.Slug, old.Score)
		delete(s.bySlug, slug)
	}
	count := len(s.bySlug)
	s.mu.Unlock()

	metrics.UpdatePublishedProfiles(count)
	return ok, nil
}

// Get returns the profile and its rank in O(log n).
func (s *TreapStore) Get(_ context.Context, slug string) (Profile, error) {
	defer observe("get", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.bySlug[slug]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Profile{}, ErrNotFound
	}
	p.Rank = rankOf(s.root, p.Slug, p.Score)
	p.Entity = p.Entity.Clone()
	return p, nil
}

// TopN returns the top N profiles ordered by score desc.
func (s *TreapStore) TopN(_ context.Context, n int) ([]Profile, error) {
	defer observe("top_n", time.Now())

	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	slugs := make([]string, 0, min(n, len(s.bySlug)))
	collect(s.root, n, &slugs)

	out := make([]Profile, len(slugs))
	for i, slug := range slugs {
		p := s.bySlug[slug]
		p.Rank = i + 1
		p.Entity = p.Entity.Clone()
		out[i] = p
	}
	return out, nil
}

// Entities returns a copy of every stored entity in rank order.
func (s *TreapStore) Entities(_ context.Context) []model.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slugs := make([]string, 0, len(s.bySlug))
	collect(s.root, len(s.bySlug), &slugs)
	out := make([]model.Entity, len(slugs))
	for i, slug := range slugs {
		out[i] = s.bySlug[slug].Entity.Clone()
	}
	return out
}

// Count returns the number of stored profiles.
func (s *TreapStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bySlug)
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(storeLabel, op, float64(time.Since(start).Microseconds())/1000)
}
