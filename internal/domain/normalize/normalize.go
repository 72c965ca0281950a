// Package normalize turns raw candidate strings into canonical entity names, keys and slugs.
package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/okian/orgwatch/internal/domain/model"
)

const (
	wrapQuotes       = "\"'`“”‘’"
	trailingPunct    = ".,;:!?)]"
	leadingPunct     = "([{\"'`"
	minAllCapsLength = 6 // ALL-CAPS names longer than this are title-cased
	minGenericRemain = 8
)

var (
	ampersandRe  = regexp.MustCompile(`\s*&\s*`)
	nonKeyCharRe = regexp.MustCompile(`[^\w\s-]`)
	titleCaseRe  = regexp.MustCompile(`^[A-Z][a-z]+(\s+[A-Z][a-z]+)+$`)
	allCapsRe    = regexp.MustCompile(`^[A-Z\s]+$`)
	capWordRe    = regexp.MustCompile(`[A-Z][a-z]`)
	slugSepRe    = regexp.MustCompile(`[\s_]+`)
	slugDropRe   = regexp.MustCompile(`[^a-z0-9-]`)
	hyphenRunRe  = regexp.MustCompile(`-+`)
	validSlugRe  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	wordStartRe  = regexp.MustCompile(`^\w`)
)

// Normalizer is immutable after New and safe for concurrent use.
type Normalizer struct {
	legalSuffixes []string
	genericWords  []string
	suffixRe      *regexp.Regexp
	genericRe     *regexp.Regexp
}

// New builds a Normalizer from the default lists, overridden by opts.
func New(opts ...Option) (*Normalizer, error) {
	n := &Normalizer{
		legalSuffixes: append([]string(nil), DefaultLegalSuffixes...),
		genericWords:  append([]string(nil), DefaultGenericWords...),
	}
	for _, opt := range opts {
		opt(n)
	}

	suffixes, err := alternation(n.legalSuffixes)
	if err != nil {
		return nil, err
	}
	words, err := alternation(n.genericWords)
	if err != nil {
		return nil, err
	}
	n.suffixRe = regexp.MustCompile(`(?i)\b(?:` + suffixes + `)\.?$`)
	n.genericRe = regexp.MustCompile(`(?i)\b(?:` + words + `)$`)
	return n, nil
}

func alternation(list []string) (string, error) {
	parts := make([]string, 0, len(list))
	for _, s := range list {
		s = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), ".")
		if s == "" {
			return "", fmt.Errorf("%w: empty entry", ErrInvalidRule)
		}
		if !wordStartRe.MatchString(s) {
			return "", fmt.Errorf("%w: %q must start with a letter or digit", ErrInvalidRule, s)
		}
		parts = append(parts, regexp.QuoteMeta(s))
	}
	return strings.Join(parts, "|"), nil
}

// Normalize maps a candidate to a fresh single-alias entity.
func (n *Normalizer) Normalize(c model.Candidate) model.Entity {
	key := n.CanonicalKey(c.Raw)
	return model.Entity{
		CanonicalName: DisplayName(c.Raw),
		CanonicalKey:  key,
		Slug:          Slugify(key),
		Aliases:       []string{c.Raw},
		Mentions:      append([]model.Evidence(nil), c.Evidence...),
	}
}

// NormalizeAll normalizes candidates preserving order.
func (n *Normalizer) NormalizeAll(cs []model.Candidate) []model.Entity {
	out := make([]model.Entity, len(cs))
	for i, c := range cs {
		out[i] = n.Normalize(c)
	}
	return out
}

// CanonicalKey computes the lowercase, underscore-joined comparison key.
func (n *Normalizer) CanonicalKey(raw string) string {
	s := ampersandRe.ReplaceAllString(clean(raw), " and ")
	s = n.stripSuffixes(s)
	s = n.stripGeneric(s)

	s = strings.ToLower(s)
	s = nonKeyCharRe.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), "_")
}

func (n *Normalizer) stripSuffixes(s string) string {
	for {
		loc := n.suffixRe.FindStringIndex(s)
		if loc == nil {
			return s
		}
		rest := strings.TrimRight(s[:loc[0]], " ,-")
		if rest == "" {
			return s
		}
		s = rest
	}
}

// stripGeneric drops one trailing generic word when what remains is still
// distinctive: at least two tokens, or a long capitalized single word.
func (n *Normalizer) stripGeneric(s string) string {
	loc := n.genericRe.FindStringIndex(s)
	if loc == nil {
		return s
	}
	rest := strings.TrimRight(s[:loc[0]], " ,-")
	if rest == "" {
		return s
	}
	if len(strings.Fields(rest)) >= 2 || (len(rest) >= minGenericRemain && capWordRe.MatchString(rest)) {
		return rest
	}
	return s
}

// DisplayName computes the human-facing canonical name.
func DisplayName(raw string) string {
	s := clean(raw)
	switch {
	case titleCaseRe.MatchString(s):
		return s
	case allCapsRe.MatchString(s) && len(s) > minAllCapsLength:
		return cases.Title(language.Und).String(s)
	default:
		return s
	}
}

// clean applies composition, whitespace and punctuation trimming shared by
// the display name and the key.
func clean(raw string) string {
	s := norm.NFC.String(raw)
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Trim(s, wrapQuotes)
	s = strings.TrimRight(s, trailingPunct)
	s = strings.TrimLeft(s, leadingPunct)
	return strings.TrimSpace(s)
}

// Slugify converts a key or name into a URL-safe identifier.
func Slugify(s string) string {
	s = strings.ToLower(s)
	s = slugSepRe.ReplaceAllString(s, "-")
	s = slugDropRe.ReplaceAllString(s, "")
	s = hyphenRunRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// IsValidSlug reports whether s is a well-formed slug.
func IsValidSlug(s string) bool {
	return validSlugRe.MatchString(s)
}
