// Package scoring matches weighted risk signals against an entity's evidence
// and turns them into a 0-100 risk score.
package scoring

import (
	"math"
	"regexp"
	"sort"

	"github.com/okian/orgwatch/internal/domain/model"
)

const (
	// DefaultIntercept is the prior against risk (b0).
	DefaultIntercept = -1.2
	// DefaultWeakFactor scales the weight of a weak-pattern match.
	DefaultWeakFactor = 0.7
	// DefaultMaxBoost is the largest consistency boost (+15%).
	DefaultMaxBoost = 0.15

	bucketDays      = 30
	secondsPerDay   = 86400
	boostSaturation = 3.0
	maxScore        = 100
	topSignalsLimit = 10
	topEventsLimit  = 30
)

// TopSignal is the aggregate contribution of one signal.
type TopSignal struct {
	SignalID     string  `json:"signal_id"`
	Count        int     `json:"count"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
}

// SignalEvent is one evidence-level signal match.
type SignalEvent struct {
	SignalID     string         `json:"signal_id"`
	Weight       float64        `json:"weight"`
	Contribution float64        `json:"contribution"`
	Weak         bool           `json:"weak,omitempty"`
	Evidence     model.Evidence `json:"evidence"`
}

// Result is the outcome of scoring one entity.
type Result struct {
	Score        int           `json:"score"`
	Probability  float64       `json:"probability"`
	TopSignals   []TopSignal   `json:"top_signals"`
	SignalEvents []SignalEvent `json:"signal_events"`
}

// DistinctSignals returns the number of different signals that matched.
func (r Result) DistinctSignals() int { return len(r.TopSignals) }

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithIntercept overrides b0.
func WithIntercept(b0 float64) Option {
	return func(s *Scorer) { s.intercept = b0 }
}

// WithWeakFactor overrides the weak-match weight multiplier.
func WithWeakFactor(f float64) Option {
	return func(s *Scorer) {
		if f > 0 && f <= 1 {
			s.weakFactor = f
		}
	}
}

// WithMaxBoost overrides the consistency boost cap.
func WithMaxBoost(b float64) Option {
	return func(s *Scorer) {
		if b >= 0 {
			s.maxBoost = b
		}
	}
}

// Scorer is stateless between calls and safe for concurrent use.
type Scorer struct {
	catalog    *Catalog
	intercept  float64
	weakFactor float64
	maxBoost   float64
}

// NewScorer creates a Scorer over cat. A nil catalog means DefaultCatalog.
func NewScorer(cat *Catalog, opts ...Option) *Scorer {
	if cat == nil {
		cat = DefaultCatalog()
	}
	s := &Scorer{
		catalog:    cat,
		intercept:  DefaultIntercept,
		weakFactor: DefaultWeakFactor,
		maxBoost:   DefaultMaxBoost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the signal catalog in use.
func (s *Scorer) Catalog() *Catalog { return s.catalog }

type match struct {
	signal int
	weight float64
	weak   bool
	ev     model.Evidence
}

// matchAll returns every signal match across the evidence list. Each signal
// matches an evidence item at most once. Weak patterns are only tried while
// no strong match has been recorded.
func (s *Scorer) matchAll(evidence []model.Evidence) []match {
	var (
		out    []match
		strong bool
	)
	for _, ev := range evidence {
		text := ev.Excerpt + " " + ev.Match
		for i, sig := range s.catalog.signals {
			if firstMatch(sig.Strong, text) {
				out = append(out, match{signal: i, weight: sig.Weight, ev: ev})
				strong = true
				continue
			}
			if !strong && firstMatch(sig.Weak, text) {
				out = append(out, match{signal: i, weight: sig.Weight * s.weakFactor, weak: true, ev: ev})
			}
		}
	}
	return out
}

func firstMatch(patterns []*regexp.Regexp, text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// Score computes the risk score of e.
func (s *Scorer) Score(e model.Entity) Result {
	matches := s.matchAll(e.Mentions)

	counts := make([]int, s.catalog.Len())
	events := make([]SignalEvent, 0, len(matches))
	for _, m := range matches {
		counts[m.signal]++
		sig := s.catalog.signals[m.signal]
		events = append(events, SignalEvent{
			SignalID:     sig.ID,
			Weight:       m.weight,
			Contribution: m.weight * math.Log(1+float64(counts[m.signal])),
			Weak:         m.weak,
			Evidence:     m.ev,
		})
	}

	z := s.intercept
	top := make([]TopSignal, 0, len(counts))
	for i, n := range counts {
		if n == 0 {
			continue
		}
		sig := s.catalog.signals[i]
		c := sig.Weight * math.Log(1+float64(n))
		z += c
		top = append(top, TopSignal{SignalID: sig.ID, Count: n, Weight: sig.Weight, Contribution: c})
	}

	p := 1 / (1 + math.Exp(-z))
	raw := 100 * p * s.boost(e.Mentions)
	score := int(math.Round(math.Max(0, math.Min(maxScore, raw))))

	sort.SliceStable(top, func(i, j int) bool { return top[i].Contribution > top[j].Contribution })
	sort.SliceStable(events, func(i, j int) bool { return events[i].Contribution > events[j].Contribution })

	return Result{
		Score:        score,
		Probability:  p,
		TopSignals:   head(top, topSignalsLimit),
		SignalEvents: head(events, topEventsLimit),
	}
}

// boost rewards evidence spread across communities and time:
// 1 + maxBoost*min(1, (subreddits+buckets)/3).
func (s *Scorer) boost(mentions []model.Evidence) float64 {
	subs := make(map[string]struct{})
	buckets := make(map[int64]struct{})
	for _, m := range mentions {
		subs[m.Source.Subreddit] = struct{}{}
		buckets[bucketOf(m.Source.CreatedUTC)] = struct{}{}
	}
	c := math.Min(1, float64(len(subs)+len(buckets))/boostSaturation)
	return 1 + s.maxBoost*c
}

func bucketOf(epoch int64) int64 {
	return floorDiv(floorDiv(epoch, secondsPerDay), bucketDays)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
