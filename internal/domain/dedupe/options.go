package dedupe

const defaultMaxSize = 50000

// Option applies a configuration option to the in-memory Deduper.
type Option func(*idSet)

// WithMaxSize sets the maximum number of IDs to keep in memory.
// If maxSize > 0: bounded mode, oldest ids are evicted first.
// If maxSize <= 0: unbounded mode.
func WithMaxSize(maxSize int) Option {
	return func(d *idSet) {
		d.maxSize = maxSize
	}
}

// MergerOption configures a Merger.
type MergerOption func(*Merger)

// WithSimilarityThreshold sets the minimum key similarity for a merge.
func WithSimilarityThreshold(t float64) MergerOption {
	return func(m *Merger) {
		if t > 0 && t <= 1 {
			m.threshold = t
		}
	}
}

// WithLocationKeywords replaces the location indicator list.
func WithLocationKeywords(words []string) MergerOption {
	return func(m *Merger) {
		if len(words) > 0 {
			m.locations = tokenSet(words)
		}
	}
}
