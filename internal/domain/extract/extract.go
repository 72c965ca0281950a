// Package extract finds candidate organization mentions in raw social-media items.
//
// Four strategies run over every text field of an item: Title-Case phrases,
// acronyms next to an organization keyword, alias markers and hostnames.
// Matches with identical (case-insensitive) raw strings accumulate evidence.
package extract

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/okian/orgwatch/internal/domain/model"
)

// Confidence assigned per strategy.
const (
	ConfidenceTitleAdjacent = 0.7
	ConfidenceTitle         = 0.5
	ConfidenceAcronym       = 0.6
	ConfidenceAlias         = 0.8
	ConfidenceDomain        = 0.7
)

const (
	titleWindow   = 20
	acronymWindow = 30
	minAliasWords = 2
	minLabelLen   = 3

	// MaxExcerpt bounds an evidence excerpt in bytes, ellipses included.
	MaxExcerpt = 240
	ellipsis   = "..."
)

var (
	titleCaseRe = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+){1,5})\b`)
	acronymRe   = regexp.MustCompile(`\b([A-Z]{2,6})\b`)
	aliasMarkRe = regexp.MustCompile(
		`(?i:\b(?:doing\s+business\s+as|d/b/a|a\.?k\.?a\.?|also\s+known\s+as|formerly\s+known\s+as|formerly|rebranded\s+as|changed\s+(?:its\s+|their\s+)?name\s+to))` +
			`\s+["'“]?([A-Z][a-z]+(?:\s+[A-Z][a-z]+){0,4})`)
	aliasSuffixRe = regexp.MustCompile(
		`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+){0,4})\s+(?i:inc|llc|ltd|co|corp|corporation|company|group)\b`)
	domainRe = regexp.MustCompile(
		`https?://(?:www\.)?([a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+)`)
)

// Extractor is immutable after New and safe for concurrent use.
type Extractor struct {
	orgKeywords []string
	stopwords   []string
	denylist    []string
	reserved    []string

	keywordRe *regexp.Regexp
	stopRe    *regexp.Regexp
	keywords  map[string]struct{}
	reservedM map[string]struct{}
}

// New builds an Extractor from the default lists, overridden by opts.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		orgKeywords: DefaultOrgKeywords,
		stopwords:   DefaultStopwords,
		denylist:    DefaultDomainDenylist,
		reserved:    DefaultReservedLabels,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.keywordRe = regexp.MustCompile(`\b(?:` + quoteAll(e.orgKeywords) + `)\b`)
	e.stopRe = regexp.MustCompile(`(?i)^(?:` + quoteAll(e.stopwords) + `)\s`)
	e.keywords = lowerSet(e.orgKeywords)
	e.reservedM = lowerSet(e.reserved)
	return e
}

func quoteAll(words []string) string {
	q := make([]string, len(words))
	for i, w := range words {
		q[i] = regexp.QuoteMeta(strings.ToLower(w))
	}
	return strings.Join(q, "|")
}

func lowerSet(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[strings.ToLower(w)] = struct{}{}
	}
	return m
}

// Extract scans items and returns candidates ordered by the permalink of
// their first evidence, then by raw string. Items lacking provenance are skipped.
func (e *Extractor) Extract(items []model.RawItem) []model.Candidate {
	acc := newAccumulator()
	for i, item := range items {
		if !item.HasProvenance() {
			continue
		}
		for j, tf := range item.TextFields() {
			s := scan{acc: acc, item: i, field: j, text: tf.Text, src: item.Source(tf.Field)}
			e.titleCase(&s)
			e.acronyms(&s)
			e.aliases(&s)
			e.domains(&s)
		}
	}
	return acc.candidates()
}

// scan is the state of one text field being searched.
type scan struct {
	acc   *accumulator
	item  int
	field int
	text  string
	src   model.SourceRef
}

func (s *scan) emit(raw string, hint model.TypeHint, conf float64, start, end int) {
	ev := model.Evidence{
		Excerpt: Excerpt(s.text, start, end),
		Match:   s.text[start:end],
		Source:  s.src,
	}
	s.acc.add(occurrence{key: strings.ToLower(raw), item: s.item, field: s.field, offset: start}, raw, hint, conf, ev)
}

func (e *Extractor) titleCase(s *scan) {
	for _, m := range titleCaseRe.FindAllStringSubmatchIndex(s.text, -1) {
		start, end := m[2], m[3]
		phrase := s.text[start:end]
		if e.stopRe.MatchString(phrase) {
			continue
		}
		adjacent := e.nearKeyword(s.text, start, end, titleWindow)
		// two capitalized words are more often a person than an employer
		if len(strings.Fields(phrase)) == 2 && !adjacent {
			continue
		}
		conf := ConfidenceTitle
		if adjacent {
			conf = ConfidenceTitleAdjacent
		}
		s.emit(phrase, model.TypeOrgName, conf, start, end)
	}
}

func (e *Extractor) acronyms(s *scan) {
	for _, m := range acronymRe.FindAllStringSubmatchIndex(s.text, -1) {
		start, end := m[2], m[3]
		word := s.text[start:end]
		if _, isKeyword := e.keywords[strings.ToLower(word)]; isKeyword {
			continue
		}
		if !e.nearKeyword(s.text, start, end, acronymWindow) {
			continue
		}
		s.emit(word, model.TypeOrgName, ConfidenceAcronym, start, end)
	}
}

func (e *Extractor) aliases(s *scan) {
	for _, re := range []*regexp.Regexp{aliasMarkRe, aliasSuffixRe} {
		for _, m := range re.FindAllStringSubmatchIndex(s.text, -1) {
			start, end := m[2], m[3]
			name := s.text[start:end]
			if len(strings.Fields(name)) < minAliasWords {
				continue
			}
			s.emit(name, model.TypeAlias, ConfidenceAlias, start, end)
		}
	}
}

func (e *Extractor) domains(s *scan) {
	for _, m := range domainRe.FindAllStringSubmatchIndex(s.text, -1) {
		start, end := m[2], m[3]
		host := strings.ToLower(s.text[start:end])
		if e.denied(host) {
			continue
		}
		label := e.orgLabel(host)
		if label == "" {
			continue
		}
		s.emit(label, model.TypeDomain, ConfidenceDomain, start, end)
	}
}

func (e *Extractor) denied(host string) bool {
	for _, d := range e.denylist {
		d = strings.ToLower(d)
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// orgLabel picks the registrable label of host, skipping reserved labels
// such as the "co" of "co.uk".
func (e *Extractor) orgLabel(host string) string {
	labels := strings.Split(host, ".")
	for i := len(labels) - 2; i >= 0; i-- {
		l := labels[i]
		if _, ok := e.reservedM[l]; ok {
			continue
		}
		if len(l) < minLabelLen {
			return ""
		}
		return l
	}
	return ""
}

func (e *Extractor) nearKeyword(text string, start, end, window int) bool {
	before := text[max(0, start-window):start]
	after := text[end:min(len(text), end+window)]
	return e.keywordRe.MatchString(strings.ToLower(before + " " + after))
}

// Excerpt returns at most MaxExcerpt bytes of text centred on [start, end),
// marking truncated sides with an ellipsis.
func Excerpt(text string, start, end int) string {
	const budget = MaxExcerpt - 2*len(ellipsis)
	if len(text) <= MaxExcerpt {
		return strings.TrimSpace(text)
	}
	mid := (start + end) / 2
	from := max(0, mid-budget/2)
	to := min(len(text), from+budget)
	from = max(0, to-budget)
	for from > 0 && from < len(text) && !utf8.RuneStart(text[from]) {
		from++
	}
	for to < len(text) && to > from && !utf8.RuneStart(text[to]) {
		to--
	}

	body := strings.TrimSpace(text[from:to])
	if from > 0 {
		body = ellipsis + body
	}
	if to < len(text) {
		body += ellipsis
	}
	return body
}

type occurrence struct {
	key    string
	item   int
	field  int
	offset int
}

// accumulator merges hits by lowercase raw string in first-seen order.
type accumulator struct {
	order []*model.Candidate
	byKey map[string]*model.Candidate
	seen  map[occurrence]struct{}
}

func newAccumulator() *accumulator {
	return &accumulator{
		byKey: make(map[string]*model.Candidate),
		seen:  make(map[occurrence]struct{}),
	}
}

func (a *accumulator) add(occ occurrence, raw string, hint model.TypeHint, conf float64, ev model.Evidence) {
	if _, dup := a.seen[occ]; dup {
		return
	}
	a.seen[occ] = struct{}{}

	if c, ok := a.byKey[occ.key]; ok {
		c.Evidence = append(c.Evidence, ev)
		c.Confidence = (c.Confidence + conf) / 2
		return
	}
	c := &model.Candidate{Raw: raw, TypeHint: hint, Confidence: conf, Evidence: []model.Evidence{ev}}
	a.byKey[occ.key] = c
	a.order = append(a.order, c)
}

func (a *accumulator) candidates() []model.Candidate {
	out := make([]model.Candidate, len(a.order))
	for i, c := range a.order {
		out[i] = *c
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Evidence[0].Source.Permalink, out[j].Evidence[0].Source.Permalink
		if pi != pj {
			return pi < pj
		}
		return out[i].Raw < out[j].Raw
	})
	return out
}
