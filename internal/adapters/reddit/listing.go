// Package reddit turns Reddit listing JSON into raw pipeline items.
package reddit

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/rotisserie/eris"

	"github.com/okian/orgwatch/internal/domain/model"
)

// Thing is the envelope Reddit wraps every object in.
type Thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type thingData struct {
	Title      string          `json:"title"`
	Selftext   string          `json:"selftext"`
	Body       string          `json:"body"`
	URL        string          `json:"url"`
	Permalink  string          `json:"permalink"`
	CreatedUTC float64         `json:"created_utc"`
	Author     string          `json:"author"`
	Subreddit  string          `json:"subreddit"`
	Children   []Thing         `json:"children"`
	Replies    json.RawMessage `json:"replies"`
}

const (
	kindListing = "Listing"
	kindMore    = "more"
)

// ParseListing accepts a listing, an array of listings (a thread page), or a
// bare array of things, and returns every post and comment in document
// order. Comment replies are flattened depth-first.
func ParseListing(data []byte) ([]model.RawItem, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, eris.New("reddit: empty listing")
	}

	var things []Thing
	if data[0] == '[' {
		if err := json.Unmarshal(data, &things); err != nil {
			return nil, eris.Wrap(err, "reddit: decode listing array")
		}
	} else {
		var t Thing
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, eris.Wrap(err, "reddit: decode listing")
		}
		things = []Thing{t}
	}

	items := make([]model.RawItem, 0, len(things))
	for _, t := range things {
		var err error
		if items, err = walk(t, items); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func walk(t Thing, items []model.RawItem) ([]model.RawItem, error) {
	if t.Kind == kindMore || len(t.Data) == 0 {
		return items, nil
	}
	var d thingData
	if err := json.Unmarshal(t.Data, &d); err != nil {
		return nil, eris.Wrapf(err, "reddit: decode %s", t.Kind)
	}

	if t.Kind == kindListing {
		var err error
		for _, c := range d.Children {
			if items, err = walk(c, items); err != nil {
				return nil, err
			}
		}
		return items, nil
	}

	items = append(items, model.RawItem{
		Title:      d.Title,
		Selftext:   d.Selftext,
		Body:       d.Body,
		URL:        d.URL,
		Permalink:  d.Permalink,
		CreatedUTC: int64(math.Floor(d.CreatedUTC)),
		Author:     d.Author,
		Subreddit:  d.Subreddit,
	})

	// replies is "" when a comment has none
	if r := bytes.TrimSpace(d.Replies); len(r) > 0 && r[0] == '{' {
		var replies Thing
		if err := json.Unmarshal(r, &replies); err != nil {
			return nil, eris.Wrap(err, "reddit: decode replies")
		}
		return walk(replies, items)
	}
	return items, nil
}
