package extract

// Default lists used by New.
var (
	// DefaultOrgKeywords mark an organization when found next to a phrase or acronym.
	DefaultOrgKeywords = []string{ //nolint:gochecknoglobals // defaults
		"inc", "incorporated", "llc", "ltd", "co", "corp", "corporation", "company",
		"group", "marketing", "events", "solutions", "consulting", "international",
	}

	// DefaultStopwords reject a Title-Case phrase when they open it.
	DefaultStopwords = []string{ //nolint:gochecknoglobals // defaults
		"I", "We", "They", "This", "That", "These", "Those", "Here", "There",
		"What", "When", "Where", "Why", "How",
		"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
		"January", "February", "March", "April", "May", "June", "July", "August",
		"September", "October", "November", "December",
	}

	// DefaultDomainDenylist holds platform hosts that never name an employer.
	DefaultDomainDenylist = []string{ //nolint:gochecknoglobals // defaults
		"reddit.com", "redd.it", "imgur.com", "youtube.com", "youtu.be", "twitter.com", "x.com",
		"facebook.com", "fb.com", "instagram.com", "linkedin.com", "github.com", "stackoverflow.com",
		"amazon.com", "google.com", "microsoft.com", "apple.com", "netflix.com", "spotify.com",
		"discord.com", "discord.gg", "slack.com", "zoom.us", "dropbox.com", "box.com", "live.com",
		"bit.ly", "t.co", "tinyurl.com", "goo.gl", "ow.ly", "indeed.com", "glassdoor.com",
	}

	// DefaultReservedLabels are never used as the organization part of a host.
	DefaultReservedLabels = []string{"com", "org", "net", "io", "co", "us", "uk", "ca", "au"} //nolint:gochecknoglobals // defaults
)

// Option configures an Extractor.
type Option func(*Extractor)

// WithOrgKeywords replaces the organization keyword list.
func WithOrgKeywords(words []string) Option {
	return func(e *Extractor) {
		if len(words) > 0 {
			e.orgKeywords = append([]string(nil), words...)
		}
	}
}

// WithStopwords replaces the leading-word stoplist for Title-Case phrases.
func WithStopwords(words []string) Option {
	return func(e *Extractor) {
		if len(words) > 0 {
			e.stopwords = append([]string(nil), words...)
		}
	}
}

// WithDomainDenylist replaces the platform host denylist.
func WithDomainDenylist(hosts []string) Option {
	return func(e *Extractor) {
		if len(hosts) > 0 {
			e.denylist = append([]string(nil), hosts...)
		}
	}
}

// WithReservedLabels replaces the reserved host label list.
func WithReservedLabels(labels []string) Option {
	return func(e *Extractor) {
		if len(labels) > 0 {
			e.reserved = append([]string(nil), labels...)
		}
	}
}
