package app

import (
	"context"
	"strings"

	"portfolio/api/internal/search"
)

const maxSearchLimit = 50

func (s *Service) Search(ctx context.Context, text string, kind search.ResultType, limit, offset int) Result[search.Response] {
	text = strings.TrimSpace(text)
	if text == "" {
		return ok(search.Response{Results: []search.Result{}})
	}
	if s.search == nil {
		return ok(search.Response{Results: []search.Result{}, Query: text})
	}
	switch {
	case limit <= 0:
		limit = 20
	case limit > maxSearchLimit:
		limit = maxSearchLimit
	}
	if offset < 0 {
		offset = 0
	}
	return ok(s.search.Search(ctx, search.Query{Text: text, FilterType: kind, Limit: limit, Offset: offset}))
}

type reindexSummary struct {
	Indexed int `json:"indexed"`
}

// Reindex pushes every visible project and post into the search index.
func (s *Service) Reindex(ctx context.Context) Result[reindexSummary] {
	if s.search == nil {
		return fail[reindexSummary](unavailable("SEARCH_UNAVAILABLE", "Search is not configured"))
	}
	indexed, err := s.search.Reindex(ctx)
	if err != nil {
		return fail[reindexSummary](err)
	}
	return ok(reindexSummary{Indexed: indexed})
}
