package serp

import "context"

// Result is one ranked entry returned by a search provider. Only URL is
// required; the remaining fields are informational.
type Result struct {
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
	Snippet  string `json:"snippet,omitempty"`
	Position int    `json:"position,omitempty"`
}

// SERPProvider abstracts a search engine provider that returns ranked results
// for a query. The limit parameter caps the number of results returned; the
// provider may return fewer. Order is ranking order.
type SERPProvider interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}
