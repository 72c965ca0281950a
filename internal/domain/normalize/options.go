package normalize

// DefaultLegalSuffixes are stripped from the end of keys, repeatedly.
var DefaultLegalSuffixes = []string{ //nolint:gochecknoglobals // default list, copied by New
	"incorporated", "inc", "llc", "l.l.c", "ltd", "limited", "co", "company",
	"corp", "corporation", "plc", "gmbh", "sarl", "s.r.l", "s.a.s", "s.a", "lp", "llp",
}

// DefaultGenericWords may be dropped once from the end of a key.
var DefaultGenericWords = []string{ //nolint:gochecknoglobals // default list, copied by New
	"marketing", "events", "consulting", "solutions", "systems", "group",
	"international", "media", "communications", "management", "enterprises",
	"enterprise", "holdings", "partners", "partner", "services", "service",
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLegalSuffixes replaces the legal suffix list. Entries are matched
// case-insensitively with an optional trailing period.
func WithLegalSuffixes(suffixes []string) Option {
	return func(n *Normalizer) {
		if len(suffixes) > 0 {
			n.legalSuffixes = append([]string(nil), suffixes...)
		}
	}
}

// WithGenericWords replaces the generic descriptor list.
func WithGenericWords(words []string) Option {
	return func(n *Normalizer) {
		if len(words) > 0 {
			n.genericWords = append([]string(nil), words...)
		}
	}
}
