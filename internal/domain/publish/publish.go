// Package publish decides whether a scored entity may be shown publicly.
package publish

import (
	"fmt"
	"regexp"

	"github.com/okian/orgwatch/internal/domain/model"
	"github.com/okian/orgwatch/internal/domain/scoring"
	"github.com/okian/orgwatch/internal/domain/textsim"
)

const secondsPerDay = 86400

var corporateSuffixRe = regexp.MustCompile(`(?i)\b(?:inc|llc|ltd|co|corp|corporation|company)\b`)

// Thresholds holds every gate limit.
type Thresholds struct {
	MinUniqueMentions   int     `json:"min_unique_mentions" yaml:"min_unique_mentions"`
	MinThreads          int     `json:"min_threads" yaml:"min_threads"`
	MinAuthors          int     `json:"min_authors" yaml:"min_authors"`
	MinSpanDays         int     `json:"min_span_days" yaml:"min_span_days"`
	MinSubreddits       int     `json:"min_subreddits" yaml:"min_subreddits"`
	MinScore            int     `json:"min_score" yaml:"min_score"`
	MinSignals          int     `json:"min_signals" yaml:"min_signals"`
	HighScore           int     `json:"high_score" yaml:"high_score"`
	MedScore            int     `json:"med_score" yaml:"med_score"`
	CollisionSimilarity float64 `json:"collision_similarity" yaml:"collision_similarity"`
}

// DefaultThresholds returns the standard gate limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinUniqueMentions:   5,
		MinThreads:          2,
		MinAuthors:          3,
		MinSpanDays:         30,
		MinSubreddits:       2,
		MinScore:            55,
		MinSignals:          2,
		HighScore:           85,
		MedScore:            70,
		CollisionSimilarity: 0.9,
	}
}

// Validate rejects thresholds that cannot describe a working gate.
func (t Thresholds) Validate() error {
	switch {
	case t.MinUniqueMentions < 0, t.MinThreads < 0, t.MinAuthors < 0, t.MinSpanDays < 0,
		t.MinSubreddits < 0, t.MinSignals < 0:
		return fmt.Errorf("%w: counts must not be negative", ErrInvalidThresholds)
	case t.MinScore < 0 || t.MinScore > 100:
		return fmt.Errorf("%w: min score %d outside 0..100", ErrInvalidThresholds, t.MinScore)
	case t.MedScore > t.HighScore:
		return fmt.Errorf("%w: med score %d above high score %d", ErrInvalidThresholds, t.MedScore, t.HighScore)
	case t.CollisionSimilarity <= 0 || t.CollisionSimilarity > 1:
		return fmt.Errorf("%w: collision similarity %v outside (0,1]", ErrInvalidThresholds, t.CollisionSimilarity)
	}
	return nil
}

// Decision is the gate outcome. Reasons lists every failed gate and any
// collision note.
type Decision struct {
	Publish bool     `json:"publish"`
	State   State    `json:"state"`
	Reasons []string `json:"reasons"`
}

// Stats are the mention statistics the gates read.
type Stats struct {
	UniqueMentions int
	Threads        int
	Authors        int
	Subreddits     int
	SpanDays       int
}

// Option configures a Gate.
type Option func(*Gate)

// WithThresholds replaces the gate limits.
func WithThresholds(t Thresholds) Option {
	return func(g *Gate) { g.t = t }
}

// Gate evaluates publication criteria. It is immutable and safe for concurrent use.
type Gate struct {
	t Thresholds
}

// NewGate builds a Gate with DefaultThresholds overridden by opts.
func NewGate(opts ...Option) *Gate {
	g := &Gate{t: DefaultThresholds()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Thresholds returns the limits in use.
func (g *Gate) Thresholds() Thresholds { return g.t }

// MentionStats summarizes e's mentions.
func MentionStats(e model.Entity) Stats {
	pairs := make(map[[2]string]struct{})
	threads := make(map[string]struct{})
	authors := make(map[string]struct{})
	subs := make(map[string]struct{})
	var lo, hi int64
	for i, m := range e.Mentions {
		src := m.Source
		pairs[[2]string{src.Permalink, src.Author}] = struct{}{}
		threads[src.Permalink] = struct{}{}
		authors[src.Author] = struct{}{}
		subs[src.Subreddit] = struct{}{}
		if i == 0 || src.CreatedUTC < lo {
			lo = src.CreatedUTC
		}
		if i == 0 || src.CreatedUTC > hi {
			hi = src.CreatedUTC
		}
	}
	return Stats{
		UniqueMentions: len(pairs),
		Threads:        len(threads),
		Authors:        len(authors),
		Subreddits:     len(subs),
		SpanDays:       int((hi - lo) / secondsPerDay),
	}
}

// Evaluate applies gates G1-G5 to e and its score. others is the set of
// known entities used for the informational collision check.
func (g *Gate) Evaluate(e model.Entity, r scoring.Result, others []model.Entity) Decision {
	st := MentionStats(e)
	reasons := make([]string, 0, 4)

	// G1 volume
	if st.UniqueMentions < g.t.MinUniqueMentions {
		reasons = append(reasons, fmt.Sprintf("Unique mentions (%d) below threshold (%d)", st.UniqueMentions, g.t.MinUniqueMentions))
	}
	// G2 diversity
	if st.Threads < g.t.MinThreads {
		reasons = append(reasons, fmt.Sprintf("Distinct threads (%d) below threshold (%d)", st.Threads, g.t.MinThreads))
	}
	if st.Authors < g.t.MinAuthors {
		reasons = append(reasons, fmt.Sprintf("Distinct authors (%d) below threshold (%d)", st.Authors, g.t.MinAuthors))
	}
	// G3 spread: a span must exceed the minimum to stand in for subreddit spread
	if st.SpanDays <= g.t.MinSpanDays && st.Subreddits < g.t.MinSubreddits {
		reasons = append(reasons, fmt.Sprintf("Time span (%d days) and subreddits (%d) both below thresholds", st.SpanDays, st.Subreddits))
	}
	// G4 strength
	if r.Score < g.t.MinScore {
		reasons = append(reasons, fmt.Sprintf("Risk score (%d) below threshold (%d)", r.Score, g.t.MinScore))
	}
	if r.DistinctSignals() < g.t.MinSignals {
		reasons = append(reasons, fmt.Sprintf("Distinct signals (%d) below threshold (%d)", r.DistinctSignals(), g.t.MinSignals))
	}
	// G5 clarity
	if !clearName(e) {
		reasons = append(reasons, "Name clarity insufficient (token count < 2 and no corporate suffix)")
	}

	failed := len(reasons) > 0

	if collides(e, others, g.t.CollisionSimilarity) {
		reasons = append(reasons, "Potential collision with existing entity detected")
	}

	if failed {
		return Decision{Publish: false, State: StateWatchlist, Reasons: reasons}
	}
	return Decision{Publish: true, State: g.tier(r.Score), Reasons: reasons}
}

func (g *Gate) tier(score int) State {
	switch {
	case score >= g.t.HighScore:
		return StatePublicHigh
	case score >= g.t.MedScore:
		return StatePublicMed
	default:
		return StatePublicLow
	}
}

func clearName(e model.Entity) bool {
	if len(textsim.Tokens(e.CanonicalKey)) >= 2 {
		return true
	}
	for _, a := range e.Aliases {
		if corporateSuffixRe.MatchString(a) {
			return true
		}
	}
	return false
}

func collides(e model.Entity, others []model.Entity, threshold float64) bool {
	for _, o := range others {
		if o.CanonicalKey == e.CanonicalKey {
			continue
		}
		if textsim.Jaccard(e.CanonicalKey, o.CanonicalKey) >= threshold {
			return true
		}
	}
	return false
}
