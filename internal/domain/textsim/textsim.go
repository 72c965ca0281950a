// Package textsim holds the token-set similarity measures shared by the merger and the gate.
package textsim

import "strings"

// Tokens splits s on whitespace and underscores.
func Tokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
}

// Set turns tokens into a set.
func Set(tokens []string) map[string]struct{} {
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

// Jaccard returns |A∩B| / |A∪B| over the token sets of a and b.
// Two empty inputs are identical (1).
func Jaccard(a, b string) float64 {
	sa, sb := Set(Tokens(a)), Set(Tokens(b))
	if len(sa) == 0 && len(sb) == 0 {
		return 1
	}
	inter := intersection(sa, sb)
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}

// Subset reports whether every token of the smaller set appears in the larger one.
func Subset(a, b string) bool {
	sa, sb := Set(Tokens(a)), Set(Tokens(b))
	if len(sa) == 0 || len(sb) == 0 {
		return false
	}
	if len(sa) > len(sb) {
		sa, sb = sb, sa
	}
	return intersection(sa, sb) == len(sa)
}

// Similar reports whether two keys are near-duplicates: Jaccard at or above
// threshold, or one token set contained in the other.
func Similar(a, b string, threshold float64) bool {
	return Jaccard(a, b) >= threshold || Subset(a, b)
}

// Unique returns the tokens of a missing from b and of b missing from a.
func Unique(a, b string) (onlyA, onlyB int) {
	sa, sb := Set(Tokens(a)), Set(Tokens(b))
	inter := intersection(sa, sb)
	return len(sa) - inter, len(sb) - inter
}

func intersection(a, b map[string]struct{}) int {
	n := 0
	for t := range a {
		if _, ok := b[t]; ok {
			n++
		}
	}
	return n
}
