// Package search finds visible projects and posts. Meilisearch is used when
// it is configured and healthy; Postgres full text search covers the rest.
package search

import "context"

type ResultType string

const (
	ResultProject ResultType = "project"
	ResultPost    ResultType = "post"
)

// ParseResultType maps the ?type filter to a ResultType. Anything else
// searches every type.
func ParseResultType(value string) ResultType {
	if kind := ResultType(value); kind == ResultProject || kind == ResultPost {
		return kind
	}
	return ""
}

type Result struct {
	Type    ResultType `json:"type"`
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Slug    string     `json:"slug"`
	Snippet string     `json:"snippet"`
}

type Query struct {
	Text       string
	FilterType ResultType
	Limit      int
	Offset     int
}

type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer is a Searcher that documents can be pushed to.
type Indexer interface {
	Searcher
	Index(records ...Record) error
	Delete(kind ResultType, id string) error
}

// Record is the indexed form of a visible project or post.
type Record struct {
	ID      string     `json:"id"`
	Type    ResultType `json:"type"`
	Title   string     `json:"title"`
	Slug    string     `json:"slug"`
	Summary string     `json:"summary"`
	Body    string     `json:"body"`
	Tags    []string   `json:"tags"`
}
