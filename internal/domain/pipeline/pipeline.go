// Package pipeline chains extraction, normalization, merging, scoring and
// the publication gate into one deterministic batch transformation.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/orgwatch/internal/domain/dedupe"
	"github.com/okian/orgwatch/internal/domain/extract"
	"github.com/okian/orgwatch/internal/domain/model"
	"github.com/okian/orgwatch/internal/domain/normalize"
	"github.com/okian/orgwatch/internal/domain/publish"
	"github.com/okian/orgwatch/internal/domain/scoring"
)

// Stage names reported to an Observer.
const (
	StageExtract   = "extract"
	StageNormalize = "normalize"
	StageMerge     = "merge"
	StageScore     = "score"
	StageGate      = "gate"
)

// Observer receives the duration and output size of every stage.
type Observer interface {
	ObserveStage(stage string, elapsed time.Duration, out int)
}

// ScoredEntity is one merged entity with its score and decision.
type ScoredEntity struct {
	Entity   model.Entity     `json:"entity"`
	Score    scoring.Result   `json:"score"`
	Decision publish.Decision `json:"publish_decision"`
}

// Summary counts the outcome of a run.
type Summary struct {
	TotalCandidates int `json:"total_candidates"`
	TotalEntities   int `json:"total_entities"`
	PublishedCount  int `json:"published_count"`
	WatchlistCount  int `json:"watchlist_count"`
}

// Result is the full staged output of a run.
type Result struct {
	Candidates []model.Candidate `json:"candidates"`
	Entities   []model.Entity    `json:"entities"`
	Scored     []ScoredEntity    `json:"scored_entities"`
	Summary    Summary           `json:"summary"`
}

// Option applies a configuration option to the Pipeline.
type Option func(*Pipeline)

// WithObserver reports stage timings to o.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// WithExtractor replaces the default extractor.
func WithExtractor(x *extract.Extractor) Option {
	return func(p *Pipeline) {
		if x != nil {
			p.extractor = x
		}
	}
}

// WithMerger replaces the default merger.
func WithMerger(m *dedupe.Merger) Option {
	return func(p *Pipeline) {
		if m != nil {
			p.merger = m
		}
	}
}

// Pipeline holds no per-run state and is safe for concurrent use.
type Pipeline struct {
	extractor  *extract.Extractor
	normalizer *normalize.Normalizer
	merger     *dedupe.Merger
	scorer     *scoring.Scorer
	gate       *publish.Gate
	observer   Observer
}

// New builds a Pipeline from cfg. It fails on any contract violation in cfg.
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cat, err := cfg.catalog()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	norm, err := cfg.normalizer()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	p := &Pipeline{
		extractor:  extract.New(),
		normalizer: norm,
		merger:     dedupe.NewMerger(),
		scorer:     scoring.NewScorer(cat),
		gate:       publish.NewGate(publish.WithThresholds(cfg.Thresholds)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Catalog returns the signal catalog the scorer uses.
func (p *Pipeline) Catalog() *scoring.Catalog { return p.scorer.Catalog() }

// Run processes one batch. existing entities only take part in the gate's
// collision check.
func (p *Pipeline) Run(items []model.RawItem, existing []model.Entity) Result {
	var candidates []model.Candidate
	p.stage(StageExtract, func() int {
		candidates = p.extractor.Extract(items)
		return len(candidates)
	})

	var normalized []model.Entity
	p.stage(StageNormalize, func() int {
		normalized = p.normalizer.NormalizeAll(candidates)
		return len(normalized)
	})

	var entities []model.Entity
	p.stage(StageMerge, func() int {
		entities = p.merger.Merge(normalized)
		return len(entities)
	})

	scores := make([]scoring.Result, len(entities))
	p.stage(StageScore, func() int {
		for i, e := range entities {
			scores[i] = p.scorer.Score(e)
		}
		return len(scores)
	})

	res := Result{
		Candidates: nonNil(candidates),
		Entities:   nonNil(entities),
		Scored:     make([]ScoredEntity, len(entities)),
	}
	p.stage(StageGate, func() int {
		known := make([]model.Entity, 0, len(entities)+len(existing))
		known = append(append(known, entities...), existing...)
		for i, e := range entities {
			d := p.gate.Evaluate(e, scores[i], known)
			res.Scored[i] = ScoredEntity{Entity: e, Score: scores[i], Decision: d}
			if d.Publish {
				res.Summary.PublishedCount++
			} else {
				res.Summary.WatchlistCount++
			}
		}
		return len(res.Scored)
	})

	res.Summary.TotalCandidates = len(candidates)
	res.Summary.TotalEntities = len(entities)
	return res
}

func (p *Pipeline) stage(name string, fn func() int) {
	start := time.Now()
	n := fn()
	if p.observer != nil {
		p.observer.ObserveStage(name, time.Since(start), n)
	}
}

// RunBatches processes independent batches in parallel, at most concurrency
// at a time (unlimited when <= 0). Results keep the order of batches.
func (p *Pipeline) RunBatches(ctx context.Context, batches [][]model.RawItem, existing []model.Entity, concurrency int) ([]Result, error) {
	results := make([]Result, len(batches))
	g, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, batch := range batches {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = p.Run(batch, existing)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
