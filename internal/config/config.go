// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - All functions accept context.Context as the first parameter.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"context"
	"os"
	"runtime"

	"github.com/rotisserie/eris"

	"github.com/okian/orgwatch/internal/domain/pipeline"
	"github.com/okian/orgwatch/internal/domain/publish"
	"github.com/okian/orgwatch/internal/domain/scoring"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory run queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of pipeline workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many run IDs are remembered for idempotency.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxEntitiesLimit caps GET /entities?limit.
	MaxEntitiesLimit int `koanf:"max_entities_limit"`

	// MaxItemsPerRequest caps the items of a single process or run request.
	MaxItemsPerRequest int `koanf:"max_items_per_request"`

	// RateLimitRPS and RateLimitBurst shape the pipeline endpoints.
	// A zero rate disables limiting.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// RunStoreDSN is a SQLite path. Empty keeps runs in memory.
	RunStoreDSN string `koanf:"run_store_dsn"`

	// SignalsFile optionally replaces the built-in signal catalog.
	SignalsFile string `koanf:"signals_file"`

	// SignalWeights overrides catalog weights by signal id.
	SignalWeights map[string]float64 `koanf:"signal_weights"`

	LegalSuffixes []string `koanf:"legal_suffixes"`
	GenericWords  []string `koanf:"generic_words"`

	// Publication gate thresholds.
	MinUniqueMentions int `koanf:"min_unique_mentions"`
	MinThreads        int `koanf:"min_threads"`
	MinAuthors        int `koanf:"min_authors"`
	MinSpanDays       int `koanf:"min_span_days"`
	MinSubreddits     int `koanf:"min_subreddits"`
	MinScore          int `koanf:"min_score"`
	MinSignals        int `koanf:"min_signals"`
	HighScore         int `koanf:"high_score"`
	MedScore          int `koanf:"med_score"`
	// CollisionSimilarity is the Jaccard level at which the gate notes a
	// possible collision. It does not affect merging.
	CollisionSimilarity float64 `koanf:"collision_similarity"`

	// RedditUserAgent identifies the fetcher to reddit.
	RedditUserAgent string `koanf:"reddit_user_agent"`

	// RedditAttempts bounds fetch retries.
	RedditAttempts int `koanf:"reddit_attempts"`
}

// New creates a Config holding the defaults. The thresholds mirror
// publish.DefaultThresholds.
func New(_ context.Context) *Config {
	t := publish.DefaultThresholds()
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		QueueSize:           1024,
		WorkerCount:         runtime.NumCPU(),
		DedupeSize:          50_000,
		MaxEntitiesLimit:    500,
		MaxItemsPerRequest:  10_000,
		RateLimitRPS:        50,
		RateLimitBurst:      100,
		MinUniqueMentions:   t.MinUniqueMentions,
		MinThreads:          t.MinThreads,
		MinAuthors:          t.MinAuthors,
		MinSpanDays:         t.MinSpanDays,
		MinSubreddits:       t.MinSubreddits,
		MinScore:            t.MinScore,
		MinSignals:          t.MinSignals,
		HighScore:           t.HighScore,
		MedScore:            t.MedScore,
		CollisionSimilarity: t.CollisionSimilarity,
		RedditUserAgent:     "orgwatch/1.0",
		RedditAttempts:      3,
	}
}

// Thresholds returns the publication gate thresholds.
func (c *Config) Thresholds() publish.Thresholds {
	return publish.Thresholds{
		MinUniqueMentions:   c.MinUniqueMentions,
		MinThreads:          c.MinThreads,
		MinAuthors:          c.MinAuthors,
		MinSpanDays:         c.MinSpanDays,
		MinSubreddits:       c.MinSubreddits,
		MinScore:            c.MinScore,
		MinSignals:          c.MinSignals,
		HighScore:           c.HighScore,
		MedScore:            c.MedScore,
		CollisionSimilarity: c.CollisionSimilarity,
	}
}

// Validate checks the service-level fields and the pipeline contract.
func (c *Config) Validate(_ context.Context) error {
	switch {
	case c.Addr == "":
		return eris.Wrap(ErrInvalidConfig, "addr must not be empty")
	case c.LogFormat != "text" && c.LogFormat != "json":
		return eris.Wrapf(ErrInvalidConfig, "log_format must be text or json, got %q", c.LogFormat)
	case c.QueueSize <= 0:
		return eris.Wrapf(ErrInvalidConfig, "queue_size must be positive, got %d", c.QueueSize)
	case c.WorkerCount <= 0:
		return eris.Wrapf(ErrInvalidConfig, "worker_count must be positive, got %d", c.WorkerCount)
	case c.DedupeSize < 0:
		return eris.Wrapf(ErrInvalidConfig, "dedupe_size must not be negative, got %d", c.DedupeSize)
	case c.MaxEntitiesLimit <= 0:
		return eris.Wrapf(ErrInvalidConfig, "max_entities_limit must be positive, got %d", c.MaxEntitiesLimit)
	case c.MaxItemsPerRequest <= 0:
		return eris.Wrapf(ErrInvalidConfig, "max_items_per_request must be positive, got %d", c.MaxItemsPerRequest)
	case c.RateLimitRPS < 0:
		return eris.Wrapf(ErrInvalidConfig, "rate_limit_rps must not be negative, got %g", c.RateLimitRPS)
	case c.RateLimitRPS > 0 && c.RateLimitBurst <= 0:
		return eris.Wrapf(ErrInvalidConfig, "rate_limit_burst must be positive, got %d", c.RateLimitBurst)
	case c.RedditAttempts <= 0:
		return eris.Wrapf(ErrInvalidConfig, "reddit_attempts must be positive, got %d", c.RedditAttempts)
	}
	pc := pipeline.Config{Thresholds: c.Thresholds(), SignalWeights: c.SignalWeights}
	if err := pc.Validate(); err != nil {
		return eris.Wrapf(ErrInvalidConfig, "%v", err)
	}
	return nil
}

// PipelineConfig converts the configuration into a pipeline.Config,
// reading SignalsFile when set.
func (c *Config) PipelineConfig(_ context.Context) (pipeline.Config, error) {
	pc := pipeline.Config{
		Thresholds:    c.Thresholds(),
		LegalSuffixes: append([]string(nil), c.LegalSuffixes...),
		GenericWords:  append([]string(nil), c.GenericWords...),
	}
	if len(c.SignalWeights) > 0 {
		pc.SignalWeights = make(map[string]float64, len(c.SignalWeights))
		for id, w := range c.SignalWeights {
			pc.SignalWeights[id] = w
		}
	}
	if c.SignalsFile != "" {
		f, err := os.Open(c.SignalsFile)
		if err != nil {
			return pipeline.Config{}, eris.Wrapf(ErrLoadConfig, "open signals file %s: %v", c.SignalsFile, err)
		}
		defer f.Close()
		cat, err := scoring.LoadCatalog(f)
		if err != nil {
			return pipeline.Config{}, eris.Wrapf(ErrInvalidConfig, "signals file %s: %v", c.SignalsFile, err)
		}
		pc.Signals = cat.Specs()
	}
	if err := pc.Validate(); err != nil {
		return pipeline.Config{}, eris.Wrapf(ErrInvalidConfig, "%v", err)
	}
	return pc, nil
}
