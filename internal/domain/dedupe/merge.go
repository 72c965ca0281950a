package dedupe

import (
	"strings"
	"unicode/utf8"

	"github.com/okian/orgwatch/internal/domain/model"
	"github.com/okian/orgwatch/internal/domain/normalize"
	"github.com/okian/orgwatch/internal/domain/textsim"
)

const (
	// DefaultSimilarity is the key similarity required before other guards apply.
	DefaultSimilarity = 0.9

	maxTokenCountDiff = 2
	maxUniquePerSide  = 1
	minMergeTokens    = 2
)

// DefaultLocationKeywords are city and state tokens. Keys that disagree on
// carrying one are never merged ("Acme Miami" vs "Acme").
var DefaultLocationKeywords = []string{ //nolint:gochecknoglobals // defaults
	"miami", "tampa", "rochester", "atlanta", "chicago", "dallas", "houston", "phoenix",
	"philadelphia", "san", "los", "new", "york", "florida", "texas", "california", "illinois",
}

// Merger collapses near-duplicate entities in one greedy pass.
type Merger struct {
	threshold float64
	locations map[string]struct{}
}

// NewMerger builds a Merger with default rules.
func NewMerger(opts ...MergerOption) *Merger {
	m := &Merger{
		threshold: DefaultSimilarity,
		locations: tokenSet(DefaultLocationKeywords),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func tokenSet(words []string) map[string]struct{} {
	s := make(map[string]struct{}, len(words))
	for _, w := range words {
		for _, t := range textsim.Tokens(strings.ToLower(w)) {
			s[t] = struct{}{}
		}
	}
	return s
}

// ShouldMerge reports whether a and b name the same organization.
func (m *Merger) ShouldMerge(a, b model.Entity) bool {
	if a.CanonicalKey == b.CanonicalKey {
		return true
	}
	ta, tb := textsim.Tokens(a.CanonicalKey), textsim.Tokens(b.CanonicalKey)
	if len(ta) < minMergeTokens || len(tb) < minMergeTokens {
		return false
	}
	if !strings.EqualFold(ta[0], tb[0]) {
		return false
	}
	if abs(len(ta)-len(tb)) > maxTokenCountDiff {
		return false
	}
	if m.hasLocation(ta) != m.hasLocation(tb) {
		return false
	}
	onlyA, onlyB := textsim.Unique(a.CanonicalKey, b.CanonicalKey)
	if onlyA > maxUniquePerSide || onlyB > maxUniquePerSide {
		return false
	}
	return textsim.Similar(a.CanonicalKey, b.CanonicalKey, m.threshold)
}

func (m *Merger) hasLocation(tokens []string) bool {
	for _, t := range tokens {
		if _, ok := m.locations[t]; ok {
			return true
		}
	}
	return false
}

// MergePair combines b into a. The longer display name and the shorter key
// win; ties keep a's value.
func MergePair(a, b model.Entity) model.Entity {
	out := model.Entity{
		CanonicalName: a.CanonicalName,
		CanonicalKey:  a.CanonicalKey,
		Aliases:       unionAliases(a.Aliases, b.Aliases),
		Mentions:      make([]model.Evidence, 0, len(a.Mentions)+len(b.Mentions)),
	}
	if utf8.RuneCountInString(b.CanonicalName) > utf8.RuneCountInString(a.CanonicalName) {
		out.CanonicalName = b.CanonicalName
	}
	if len(b.CanonicalKey) < len(a.CanonicalKey) {
		out.CanonicalKey = b.CanonicalKey
	}
	out.Mentions = append(append(out.Mentions, a.Mentions...), b.Mentions...)
	out.Slug = normalize.Slugify(out.CanonicalKey)
	return out
}

func unionAliases(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string(nil), a...), b...) {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Merge runs the single greedy pass and returns the merged entities in seed order.
func (m *Merger) Merge(entities []model.Entity) []model.Entity {
	out, _ := m.MergeGroups(entities)
	return out
}

// MergeGroups is Merge that also reports, for each output entity, the input
// indices it absorbed (seed first).
//
// Each seed is compared against every later entity not yet absorbed. A merge
// updates the seed before the scan continues, so later comparisons see the
// accumulated entity. Absorbed entities are never compared again.
func (m *Merger) MergeGroups(entities []model.Entity) ([]model.Entity, [][]int) {
	sets := newDisjointSet(len(entities))
	var (
		out    []model.Entity
		groups [][]int
	)
	for i := range entities {
		if sets.absorbed(i) {
			continue
		}
		seed := entities[i].Clone()
		members := []int{i}
		for j := i + 1; j < len(entities); j++ {
			if sets.absorbed(j) {
				continue
			}
			if m.ShouldMerge(seed, entities[j]) {
				seed = MergePair(seed, entities[j])
				sets.union(i, j)
				members = append(members, j)
			}
		}
		out = append(out, seed)
		groups = append(groups, members)
	}
	return out, groups
}

// disjointSet tracks which entity each input was absorbed into.
type disjointSet struct {
	parent []int
}

func newDisjointSet(n int) *disjointSet {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &disjointSet{parent: p}
}

func (d *disjointSet) find(i int) int {
	for d.parent[i] != i {
		d.parent[i] = d.parent[d.parent[i]]
		i = d.parent[i]
	}
	return i
}

// union links child under root's set.
func (d *disjointSet) union(root, child int) {
	d.parent[d.find(child)] = d.find(root)
}

func (d *disjointSet) absorbed(i int) bool {
	return d.find(i) != i
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
