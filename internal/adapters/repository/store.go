// Package repository stores published organization profiles ranked by
// risk score.
package repository

import (
	"context"
	"time"

	"github.com/okian/orgwatch/internal/domain/model"
	"github.com/okian/orgwatch/internal/domain/publish"
	"github.com/okian/orgwatch/internal/domain/scoring"
)

// Profile is one published entity with the run outcome that published it.
type Profile struct {
	Rank      int              `json:"rank"`
	Slug      string           `json:"slug"`
	Name      string           `json:"name"`
	Score     int              `json:"score"`
	State     publish.State    `json:"state"`
	Entity    model.Entity     `json:"entity"`
	Result    scoring.Result   `json:"score_detail"`
	Decision  publish.Decision `json:"publish_decision"`
	RunID     string           `json:"run_id,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Store provides read/write access to published profiles.
type Store interface {
	// Upsert inserts or replaces the profile with p.Slug.
	// Returns true if the slug was not stored before.
	Upsert(ctx context.Context, p Profile) (bool, error)

	// Remove drops a profile. Removing an unknown slug is a no-op.
	Remove(ctx context.Context, slug string) (bool, error)

	// Get returns the profile and its current rank.
	// Returns ErrNotFound if the slug is unknown.
	Get(ctx context.Context, slug string) (Profile, error)

	// TopN returns the top-N profiles ordered by score desc, slug asc.
	TopN(ctx context.Context, n int) ([]Profile, error)

	// Entities returns every stored entity in rank order.
	Entities(ctx context.Context) []model.Entity

	// Count returns the number of stored profiles.
	Count(ctx context.Context) int
}
