package search

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	healthy bool
	results []Result
	err     error
	calls   int
}

func (f *fakeSearcher) Search(context.Context, Query) ([]Result, int, error) {
	f.calls++
	return f.results, len(f.results), f.err
}

func (f *fakeSearcher) Healthy() bool { return f.healthy }

type fakeIndex struct {
	fakeSearcher
	mu      sync.Mutex
	indexed []Record
	deleted []string
	done    chan struct{}
}

func (f *fakeIndex) Index(records ...Record) error {
	f.mu.Lock()
	f.indexed = append(f.indexed, records...)
	f.mu.Unlock()
	if f.done != nil {
		f.done <- struct{}{}
	}
	return nil
}

func (f *fakeIndex) Delete(kind ResultType, id string) error {
	f.mu.Lock()
	f.deleted = append(f.deleted, string(kind)+":"+id)
	f.mu.Unlock()
	if f.done != nil {
		f.done <- struct{}{}
	}
	return nil
}

type fakeLoader struct{ records []Record }

func (f fakeLoader) LoadAllRecords(context.Context) ([]Record, error) { return f.records, nil }

func waitFor(t *testing.T, done chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for background index call")
	}
}

func TestSearchPrefersHealthyIndex(t *testing.T) {
	index := &fakeIndex{fakeSearcher: fakeSearcher{healthy: true, results: []Result{{Type: ResultPost, ID: "pst_1"}}}}
	fallback := &fakeSearcher{healthy: true}
	svc := NewService(index, fallback, nil, nil)

	resp := svc.Search(context.Background(), Query{Text: "go"})
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "pst_1", resp.Results[0].ID)
	assert.Equal(t, 0, fallback.calls)
}

func TestSearchFallsBackWhenIndexFailsOrIsDown(t *testing.T) {
	fallback := &fakeSearcher{healthy: true, results: []Result{{Type: ResultProject, ID: "prj_1"}}}

	failing := &fakeIndex{fakeSearcher: fakeSearcher{healthy: true, err: errors.New("boom")}}
	resp := NewService(failing, fallback, nil, nil).Search(context.Background(), Query{Text: "go"})
	assert.Equal(t, 1, resp.Total)

	down := &fakeIndex{fakeSearcher: fakeSearcher{healthy: false}}
	resp = NewService(down, fallback, nil, nil).Search(context.Background(), Query{Text: "go"})
	assert.Equal(t, "prj_1", resp.Results[0].ID)
	assert.Equal(t, 0, down.calls)
}

func TestSearchNeverReturnsNilResults(t *testing.T) {
	svc := NewService(nil, &fakeSearcher{healthy: true, err: errors.New("db down")}, nil, nil)
	resp := svc.Search(context.Background(), Query{Text: "anything"})
	assert.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)
	assert.Equal(t, "anything", resp.Query)
}

func TestIndexAndRemoveRunInBackground(t *testing.T) {
	index := &fakeIndex{fakeSearcher: fakeSearcher{healthy: true}, done: make(chan struct{}, 2)}
	svc := NewService(index, nil, nil, nil)

	svc.Index(Record{ID: "prj_1", Type: ResultProject})
	waitFor(t, index.done)
	svc.Remove(ResultPost, "pst_1")
	waitFor(t, index.done)

	index.mu.Lock()
	defer index.mu.Unlock()
	assert.Equal(t, "prj_1", index.indexed[0].ID)
	assert.Equal(t, []string{"post:pst_1"}, index.deleted)
}

func TestReindexPushesLoadedRecords(t *testing.T) {
	index := &fakeIndex{fakeSearcher: fakeSearcher{healthy: true}}
	loader := fakeLoader{records: []Record{{ID: "a", Type: ResultProject}, {ID: "b", Type: ResultPost}}}
	count, err := NewService(index, nil, loader, nil).Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Len(t, index.indexed, 2)

	_, err = NewService(nil, nil, loader, nil).Reindex(context.Background())
	assert.ErrorIs(t, err, ErrIndexUnavailable)

	down := &fakeIndex{fakeSearcher: fakeSearcher{healthy: false}}
	_, err = NewService(down, nil, loader, nil).Reindex(context.Background())
	assert.ErrorIs(t, err, ErrIndexUnavailable)
	assert.Empty(t, down.indexed)
}

func TestFTSQueryRespectsTypeFilter(t *testing.T) {
	posts := ftsQuery(ResultPost)
	assert.NotContains(t, posts, "FROM projects")
	assert.Contains(t, posts, "FROM posts")
	assert.Contains(t, posts, "coalesce(excerpt, '')")
	assert.Contains(t, posts, "LIMIT $2 OFFSET $3")

	all := ftsQuery("")
	assert.Contains(t, all, "UNION ALL")
	assert.Equal(t, 2, strings.Count(all, "WHERE visible AND"))
}

func TestSearchRequestFiltersByType(t *testing.T) {
	req := searchRequest(Query{Text: "go", FilterType: ResultPost, Offset: -4})
	assert.Equal(t, `type = "post"`, req.Filter)
	assert.EqualValues(t, 20, req.Limit)
	assert.EqualValues(t, 0, req.Offset)

	req = searchRequest(Query{Text: "go", Limit: 5, Offset: 10})
	assert.Nil(t, req.Filter)
	assert.EqualValues(t, 5, req.Limit)
	assert.EqualValues(t, 10, req.Offset)
}

func TestHitToResultPrefersFormattedFields(t *testing.T) {
	hit := meili.Hit{
		"id":         json.RawMessage(`"prj_1"`),
		"type":       json.RawMessage(`"project"`),
		"slug":       json.RawMessage(`"my-app"`),
		"title":      json.RawMessage(`"My App"`),
		"summary":    json.RawMessage(`"A Go service"`),
		"_formatted": json.RawMessage(`{"title":"My <mark>App</mark>","summary":""}`),
	}
	result, err := hitToResult(hit)
	require.NoError(t, err)
	assert.Equal(t, Result{Type: ResultProject, ID: "prj_1", Slug: "my-app", Title: "My <mark>App</mark>", Snippet: "A Go service"}, result)
}

func TestParseResultType(t *testing.T) {
	assert.Equal(t, ResultProject, ParseResultType("project"))
	assert.Equal(t, ResultPost, ParseResultType("post"))
	assert.Equal(t, ResultType(""), ParseResultType("decision"))
}
