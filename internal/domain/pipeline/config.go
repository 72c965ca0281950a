package pipeline

import (
	"fmt"

	"github.com/okian/orgwatch/internal/domain/normalize"
	"github.com/okian/orgwatch/internal/domain/publish"
	"github.com/okian/orgwatch/internal/domain/scoring"
)

// Config is the externally overridable part of a pipeline: signal weights,
// gate thresholds and normalization lists.
type Config struct {
	// Signals replaces the built-in signal table when non-empty.
	Signals []scoring.SignalSpec `json:"signals,omitempty" yaml:"signals,omitempty"`
	// SignalWeights overrides weights by signal id.
	SignalWeights map[string]float64 `json:"signal_weights,omitempty" yaml:"signal_weights,omitempty"`
	Thresholds    publish.Thresholds `json:"thresholds" yaml:"thresholds"`
	LegalSuffixes []string           `json:"legal_suffixes,omitempty" yaml:"legal_suffixes,omitempty"`
	GenericWords  []string           `json:"generic_words,omitempty" yaml:"generic_words,omitempty"`
}

// DefaultConfig returns the standard configuration. Decode partial
// overrides on top of it.
func DefaultConfig() Config {
	return Config{Thresholds: publish.DefaultThresholds()}
}

// Clone returns a copy that shares no slices or maps with c, so overrides
// can be decoded into it safely.
func (c Config) Clone() Config {
	out := c
	if c.Signals != nil {
		out.Signals = make([]scoring.SignalSpec, len(c.Signals))
		for i, s := range c.Signals {
			s.Patterns = cloneStrings(s.Patterns)
			s.WeakPatterns = cloneStrings(s.WeakPatterns)
			out.Signals[i] = s
		}
	}
	if c.SignalWeights != nil {
		out.SignalWeights = make(map[string]float64, len(c.SignalWeights))
		for id, w := range c.SignalWeights {
			out.SignalWeights[id] = w
		}
	}
	out.LegalSuffixes = cloneStrings(c.LegalSuffixes)
	out.GenericWords = cloneStrings(c.GenericWords)
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append(make([]string, 0, len(s)), s...)
}

// Validate reports contract violations without building anything.
func (c Config) Validate() error {
	if err := c.Thresholds.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	for id, w := range c.SignalWeights {
		if w <= 0 {
			return fmt.Errorf("%w: weight of %s must be positive", ErrInvalidConfig, id)
		}
	}
	return nil
}

func (c Config) catalog() (*scoring.Catalog, error) {
	cat := scoring.DefaultCatalog()
	if len(c.Signals) > 0 {
		var err error
		if cat, err = scoring.NewCatalog(c.Signals); err != nil {
			return nil, err
		}
	}
	return cat.WithWeights(c.SignalWeights)
}

func (c Config) normalizer() (*normalize.Normalizer, error) {
	return normalize.New(
		normalize.WithLegalSuffixes(c.LegalSuffixes),
		normalize.WithGenericWords(c.GenericWords),
	)
}
