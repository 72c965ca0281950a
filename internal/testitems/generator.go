package testitems

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/orgwatch/internal/domain/model"
	"github.com/okian/orgwatch/pkg/logger"
)

const (
	baseEpoch = int64(1700000000)
	daySecs   = int64(86400)
)

var (
	firstWords = []string{
		"Brightline", "Summit", "Keystone", "Northgate", "Bluewater", "Ironwood", "Silverpeak", "Redstone",
		"Clearpath", "Goldcrest", "Highmark", "Oakridge", "Stonebridge", "Westfield", "Crestview", "Lakeshore",
		"Pinecrest", "Riverbend", "Sunridge", "Fairhaven",
	}
	secondWords = []string{
		"Direct", "Vantage", "Pioneer", "Frontier", "Harbor", "Beacon", "Anchor", "Meridian", "Horizon", "Compass",
		"Lantern", "Summitry", "Cascade", "Granite", "Falcon", "Juniper", "Sterling", "Trident", "Zenith", "Atlas",
	}
)

// MaxOrgs is the number of distinct organization names the generator knows.
var MaxOrgs = len(firstWords) * len(secondWords)

// orgName returns the i-th of MaxOrgs distinct names.
func orgName(i int) string {
	a := i % len(firstWords)
	b := (i/len(firstWords) + i) % len(secondWords)
	return firstWords[a] + " " + secondWords[b] + " Marketing"
}

func slugOf(name string) string {
	// "Marketing" is a generic word and never part of the key.
	words := strings.Fields(strings.TrimSuffix(name, " Marketing"))
	return strings.ToLower(strings.Join(words, "-"))
}

// generateOrgs builds the synthetic corpus. Hot organizations get two
// distinct signals and publish; the rest stay on the watchlist.
func generateOrgs(ctx context.Context, config *Config, stats *Stats) ([]Org, error) {
	if config.Orgs < 1 || config.Orgs > MaxOrgs {
		return nil, fmt.Errorf("orgs must be in 1..%d, got %d", MaxOrgs, config.Orgs)
	}
	logger.Get().Info(ctx, "generating report corpus", logger.Int("orgs", config.Orgs))

	rng := rand.New(rand.NewPCG(config.Seed, config.Seed^0x9e3779b97f4a7c15))
	perm := rng.Perm(MaxOrgs)[:config.Orgs]

	hot := int(float64(config.Orgs)*config.HotRatio + 0.5)
	orgs := make([]Org, config.Orgs)
	for i, n := range perm {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := orgName(n)
		orgs[i] = Org{
			Name:  name,
			Slug:  slugOf(name),
			Hot:   i < hot,
			Items: reportsFor(name, i < hot),
		}
		stats.ItemsGenerated += len(orgs[i].Items)
	}
	// shuffle so hot organizations spread across runs
	rng.Shuffle(len(orgs), func(i, j int) { orgs[i], orgs[j] = orgs[j], orgs[i] })

	stats.OrgsGenerated = len(orgs)
	logger.Get().Info(ctx, "generated corpus",
		logger.Int("orgs", len(orgs)),
		logger.Int("hot", hot),
		logger.Int("items", stats.ItemsGenerated))
	return orgs, nil
}

// reportsFor writes six reports over two threads, three authors, two
// subreddits and forty days.
func reportsFor(name string, hot bool) []model.RawItem {
	t1 := "/r/antiwork/comments/" + uuid.NewString()[:8]
	t2 := "/r/sales/comments/" + uuid.NewString()[:8]
	authors := []string{uuid.NewString()[:12], uuid.NewString()[:12], uuid.NewString()[:12]}

	second := "same here, " + name + " did a group interview with everyone."
	if !hot {
		second = "same here, " + name + " never called me back."
	}
	item := func(permalink, author string, days int64, body string) model.RawItem {
		sub := strings.Split(permalink, "/")[2]
		return model.RawItem{
			Body:       body,
			Permalink:  permalink,
			CreatedUTC: baseEpoch + days*daySecs,
			Author:     author,
			Subreddit:  sub,
		}
	}
	return []model.RawItem{
		item(t1, authors[0], 0, "i interviewed at "+name+" and it was commission only."),
		item(t1, authors[1], 10, second),
		item(t2, authors[2], 20, name+" called me back twice."),
		item(t2, authors[0], 30, "not sure about "+name+" honestly."),
		item(t1, authors[2], 35, "my cousin tried "+name+" last year."),
		item(t2, authors[1], 40, name+" again, what a mess."),
	}
}

// batchOrgs groups whole organizations into runs so that every entity sees
// all of its reports in one pipeline pass.
func batchOrgs(orgs []Org, perRun int) []Batch {
	if perRun < 1 {
		perRun = 1
	}
	var batches []Batch
	for start := 0; start < len(orgs); start += perRun {
		end := min(start+perRun, len(orgs))
		var items []model.RawItem
		for _, o := range orgs[start:end] {
			items = append(items, o.Items...)
		}
		batches = append(batches, Batch{RunID: uuid.NewString(), Items: items})
	}
	return batches
}
