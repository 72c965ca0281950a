package testitems

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/orgwatch/internal/domain/types"
	"github.com/okian/orgwatch/pkg/logger"
)

// profile is the part of GET /entities/{slug} the tool checks.
type profile struct {
	Slug       string `json:"slug"`
	Score      int    `json:"score"`
	State      string `json:"state"`
	Label      string `json:"label"`
	Disclaimer string `json:"disclaimer"`
}

// verifyRanking checks that ranks are contiguous from 1 and that entries
// are ordered by score desc, then slug asc.
func verifyRanking(entries []types.Entry) error {
	for i, e := range entries {
		if e.Rank != i+1 {
			return fmt.Errorf("entry %s has rank %d at position %d", e.Slug, e.Rank, i+1)
		}
		if e.Label == "" {
			return fmt.Errorf("entry %s has no label", e.Slug)
		}
		if i == 0 {
			continue
		}
		prev := entries[i-1]
		if prev.Score < e.Score || (prev.Score == e.Score && prev.Slug >= e.Slug) {
			return fmt.Errorf("entries %s and %s are out of order", prev.Slug, e.Slug)
		}
	}
	return nil
}

// verifyExpected checks that every hot organization is listed and no cold
// one is.
func verifyExpected(orgs []Org, entries []types.Entry) error {
	listed := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		listed[e.Slug] = struct{}{}
	}
	var errs []error
	for _, o := range orgs {
		_, ok := listed[o.Slug]
		switch {
		case o.Hot && !ok:
			errs = append(errs, fmt.Errorf("expected %s to be published", o.Slug))
		case !o.Hot && ok:
			errs = append(errs, fmt.Errorf("expected %s to stay on the watchlist", o.Slug))
		}
	}
	return errors.Join(errs...)
}

// verifyProfiles reads each listed profile and compares it to its entry.
func verifyProfiles(ctx context.Context, client *HTTPClient, entries []types.Entry, stats *Stats) error {
	for _, e := range entries {
		var p profile
		status, err := client.Get(ctx, "/entities/"+e.Slug, &p)
		if err != nil {
			return fmt.Errorf("profile %s: %w", e.Slug, err)
		}
		if status != http.StatusOK {
			return fmt.Errorf("profile %s: status %d", e.Slug, status)
		}
		if p.Score != e.Score || p.State != e.State {
			return fmt.Errorf("profile %s: score %d state %s, listed as %d %s", e.Slug, p.Score, p.State, e.Score, e.State)
		}
		if p.Disclaimer == "" {
			return fmt.Errorf("profile %s has no disclaimer", e.Slug)
		}
		stats.ProfilesVerified++
	}
	return nil
}

// listEntities fetches the ranked listing.
func listEntities(ctx context.Context, client *HTTPClient, stats *Stats) ([]types.Entry, error) {
	var entries []types.Entry
	status, err := client.Get(ctx, "/entities?limit="+strconv.Itoa(maxEntitiesLimit), &entries)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("listing failed with status %d", status)
	}
	stats.EntitiesListed = len(entries)
	logger.Get().Info(ctx, "retrieved entities", logger.Int("count", len(entries)))
	return entries, nil
}
