// Package types contains wire types shared by the HTTP adapter and its clients.
package types

// Entry is one row of the ranked profile listing.
type Entry struct {
	Rank  int    `json:"rank"`
	Slug  string `json:"slug"`
	Name  string `json:"name"`
	Score int    `json:"score"`
	State string `json:"state"`
	Label string `json:"label"`
}
