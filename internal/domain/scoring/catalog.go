package scoring

import (
	"fmt"
	"io"
	"regexp"

	"gopkg.in/yaml.v3"
)

// SignalSpec is the plain configuration record of one risk signal.
type SignalSpec struct {
	ID           string   `yaml:"id" json:"id"`
	Weight       float64  `yaml:"weight" json:"weight"`
	Patterns     []string `yaml:"patterns" json:"patterns"`
	WeakPatterns []string `yaml:"weak_patterns,omitempty" json:"weak_patterns,omitempty"`
}

// Signal is a compiled SignalSpec.
type Signal struct {
	ID     string
	Weight float64
	Strong []*regexp.Regexp
	Weak   []*regexp.Regexp
}

// Catalog is an immutable, ordered set of signals. Order decides which
// signal is tested first.
type Catalog struct {
	signals []Signal
	byID    map[string]int
	specs   []SignalSpec
}

// DefaultSpecs returns the built-in signal table.
func DefaultSpecs() []SignalSpec {
	return []SignalSpec{
		{
			ID:     "COMMISSION_ONLY_LANGUAGE",
			Weight: 1.1,
			Patterns: []string{
				`\bcommission\s+only\b`,
				`\b100%\s+commission\b`,
				`\bno\s+base\s+pay\b`,
				`\bno\s+base\s+salary\b`,
				`\bno\s+hourly\s+wage\b`,
			},
			WeakPatterns: []string{
				`\buncapped\s+commission\b`,
				`\bdraw\b`,
			},
		},
		{
			ID:     "UNPAID_TRAINING_OR_SHADOWING",
			Weight: 1.0,
			Patterns: []string{
				`\bunpaid\s+training\b`,
				`\bshadowing\s+for\s+free\b`,
				`\bno\s+pay\s+during\s+training\b`,
				`\bunpaid\s+orientation\b`,
				`\btraining\s+is\s+unpaid\b`,
			},
		},
		{
			ID:     "GROUP_INTERVIEW",
			Weight: 0.9,
			Patterns: []string{
				`\bgroup\s+interview\b`,
				`\bmass\s+interview\b`,
				`\beveryone\s+in\s+a\s+room\b`,
				`\bcattle\s+call\b`,
				`\broom\s+full\s+of\s+people\b`,
			},
		},
		{
			ID:     "SAME_DAY_OFFER",
			Weight: 0.8,
			Patterns: []string{
				`\bhired\s+on\s+the\s+spot\b`,
				`\boffered\s+same\s+day\b`,
				`\bimmediate\s+start\s+tomorrow\b`,
				`\bhired\s+immediately\b`,
				`\boffer\s+on\s+the\s+spot\b`,
			},
		},
		{
			ID:     "DOOR_TO_DOOR_OR_KIOSK",
			Weight: 0.8,
			Patterns: []string{
				`\bdoor\s+to\s+door\b`,
				`\bcostco\s+kiosk\b`,
				`\bsam['’]?s\s+club\s+table\b`,
				`\bb2c\s+booth\b`,
				`\bselling\s+at\s+(?:costco|sam['’]?s|walmart|target)\b`,
			},
		},
		{
			ID:     "REBRAND_DBA",
			Weight: 1.2,
			Patterns: []string{
				`\brebranded\b`,
				`\bformerly\s+known\s+as\b`,
				`\bd/b/a\b`,
				`\bchanged\s+name\b`,
				`\bdoing\s+business\s+as\b`,
			},
		},
		{
			ID:     "SEMINAR_CULT_LANGUAGE",
			Weight: 0.7,
			Patterns: []string{
				`\bowner\s+in\s+(?:6|12)\s+months\b`,
				`\bmanagement\s+training\s+program\b`,
				`\bleadership\s+conference\b`,
				`\bpromote\s+to\s+manager\s+fast\b`,
			},
		},
		{
			ID:     "NETWORK_KEYWORDS_OVERLAP",
			Weight: 0.6,
			Patterns: []string{
				`\bsmart\s+circle\b`,
				`\bcydcor\b`,
				`\bappco\b`,
				`\bcredico\b`,
				`\bdevilcorp\b`,
				`\bdevil\s+corp\b`,
			},
		},
	}
}

// DefaultCatalog compiles DefaultSpecs.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultSpecs())
	if err != nil {
		panic(err) // built-in table is static
	}
	return c
}

// NewCatalog compiles specs into a Catalog. Patterns are case-insensitive.
func NewCatalog(specs []SignalSpec) (*Catalog, error) {
	if len(specs) == 0 {
		return nil, ErrEmptyCatalog
	}
	c := &Catalog{
		signals: make([]Signal, 0, len(specs)),
		byID:    make(map[string]int, len(specs)),
		specs:   make([]SignalSpec, len(specs)),
	}
	for i, spec := range specs {
		if spec.ID == "" {
			return nil, fmt.Errorf("%w: signal %d has no id", ErrInvalidSignal, i)
		}
		if spec.Weight <= 0 {
			return nil, fmt.Errorf("%w: %s weight must be positive", ErrInvalidSignal, spec.ID)
		}
		if len(spec.Patterns) == 0 {
			return nil, fmt.Errorf("%w: %s has no patterns", ErrInvalidSignal, spec.ID)
		}
		if _, dup := c.byID[spec.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, spec.ID)
		}
		strong, err := compileAll(spec.ID, spec.Patterns)
		if err != nil {
			return nil, err
		}
		weak, err := compileAll(spec.ID, spec.WeakPatterns)
		if err != nil {
			return nil, err
		}
		c.byID[spec.ID] = len(c.signals)
		c.signals = append(c.signals, Signal{ID: spec.ID, Weight: spec.Weight, Strong: strong, Weak: weak})
		c.specs[i] = cloneSpec(spec)
	}
	return c, nil
}

func compileAll(id string, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %q: %v", ErrInvalidPattern, id, p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func cloneSpec(s SignalSpec) SignalSpec {
	s.Patterns = append([]string(nil), s.Patterns...)
	s.WeakPatterns = append([]string(nil), s.WeakPatterns...)
	return s
}

// catalogFile is the YAML layout of a signal catalog file.
type catalogFile struct {
	Signals []SignalSpec `yaml:"signals"`
}

// LoadCatalog reads a YAML signal catalog:
//
//	signals:
//	  - id: GROUP_INTERVIEW
//	    weight: 0.9
//	    patterns: ['\bgroup\s+interview\b']
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var f catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode signal catalog: %w", err)
	}
	return NewCatalog(f.Signals)
}

// Encode writes the catalog in the layout LoadCatalog reads.
func (c *Catalog) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(catalogFile{Signals: c.Specs()}); err != nil {
		return fmt.Errorf("encode signal catalog: %w", err)
	}
	return enc.Close()
}

// WithWeights returns a copy of the catalog with overridden weights.
func (c *Catalog) WithWeights(weights map[string]float64) (*Catalog, error) {
	if len(weights) == 0 {
		return c, nil
	}
	specs := c.Specs()
	for id, w := range weights {
		i, ok := c.byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSignal, id)
		}
		specs[i].Weight = w
	}
	return NewCatalog(specs)
}

// Specs returns a copy of the records the catalog was built from.
func (c *Catalog) Specs() []SignalSpec {
	out := make([]SignalSpec, len(c.specs))
	for i, s := range c.specs {
		out[i] = cloneSpec(s)
	}
	return out
}

// Signals returns the compiled signals in declared order.
func (c *Catalog) Signals() []Signal {
	return append([]Signal(nil), c.signals...)
}

// Weight returns the weight of a signal id.
func (c *Catalog) Weight(id string) (float64, bool) {
	i, ok := c.byID[id]
	if !ok {
		return 0, false
	}
	return c.signals[i].Weight, true
}

// Len returns the number of signals.
func (c *Catalog) Len() int { return len(c.signals) }
