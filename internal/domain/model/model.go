// Package model contains the records passed between pipeline stages.
package model

import "strings"

// Field names the part of a raw item a match was found in.
type Field string

const (
	FieldTitle Field = "title"
	FieldBody  Field = "body"
	FieldURL   Field = "url"
)

// TypeHint records which extraction strategy produced a candidate.
type TypeHint string

const (
	TypeOrgName TypeHint = "org_name"
	TypeDomain  TypeHint = "domain"
	TypeAlias   TypeHint = "alias"
)

const redditOrigin = "https://reddit.com"

// RawItem is one social-media record: a post or a comment.
type RawItem struct {
	Title      string `json:"title,omitempty"`
	Selftext   string `json:"selftext,omitempty"`
	Body       string `json:"body,omitempty"`
	URL        string `json:"url,omitempty"`
	Permalink  string `json:"permalink"`
	CreatedUTC int64  `json:"created_utc"`
	Author     string `json:"author"`
	Subreddit  string `json:"subreddit"`
}

// HasProvenance reports whether the item carries every provenance field.
func (r RawItem) HasProvenance() bool {
	return r.Permalink != "" && r.CreatedUTC != 0 && r.Author != "" && r.Subreddit != ""
}

// Source builds the provenance record for a match found in field f.
func (r RawItem) Source(f Field) SourceRef {
	permalink := r.Permalink
	if strings.HasPrefix(permalink, "/") {
		permalink = redditOrigin + permalink
	}
	return SourceRef{
		Permalink:  permalink,
		CreatedUTC: r.CreatedUTC,
		Author:     r.Author,
		Subreddit:  r.Subreddit,
		Field:      f,
	}
}

// TextField is a named piece of free text of a RawItem.
type TextField struct {
	Field Field
	Text  string
}

// TextFields lists the non-empty text fields in scan order.
func (r RawItem) TextFields() []TextField {
	out := make([]TextField, 0, 4)
	for _, tf := range []TextField{
		{FieldTitle, r.Title},
		{FieldBody, r.Selftext},
		{FieldBody, r.Body},
		{FieldURL, r.URL},
	} {
		if tf.Text != "" {
			out = append(out, tf)
		}
	}
	return out
}

// SourceRef is the provenance of a single match.
type SourceRef struct {
	Permalink  string `json:"permalink"`
	CreatedUTC int64  `json:"created_utc"`
	Author     string `json:"author"`
	Subreddit  string `json:"subreddit"`
	Field      Field  `json:"field"`
}

// Evidence is one textual occurrence supporting a candidate.
type Evidence struct {
	Excerpt string    `json:"excerpt"`
	Match   string    `json:"match"`
	Source  SourceRef `json:"source"`
}

// Candidate is a possible organization mention before normalization.
type Candidate struct {
	Raw        string     `json:"raw"`
	TypeHint   TypeHint   `json:"type_hint"`
	Confidence float64    `json:"confidence"`
	Evidence   []Evidence `json:"evidence"`
}

// Entity is a normalized organization. Mentions is the concatenation of all
// evidence of every candidate merged into it.
type Entity struct {
	CanonicalName string     `json:"canonical_name"`
	CanonicalKey  string     `json:"canonical_key"`
	Slug          string     `json:"slug"`
	Aliases       []string   `json:"aliases"`
	Mentions      []Evidence `json:"mentions"`
}

// Clone returns a deep copy so callers may mutate slices freely.
func (e Entity) Clone() Entity {
	out := e
	out.Aliases = append([]string(nil), e.Aliases...)
	out.Mentions = append([]Evidence(nil), e.Mentions...)
	return out
}
