package search

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"
)

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	index    Indexer
	fallback Searcher
	loader   RecordLoader
	log      *zap.Logger
}

// RecordLoader supplies every searchable record for a full reindex.
type RecordLoader interface {
	LoadAllRecords(ctx context.Context) ([]Record, error)
}

// NewService creates a search service. index may be nil when Meilisearch is
// not configured.
func NewService(index Indexer, fallback Searcher, loader RecordLoader, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{index: index, fallback: fallback, loader: loader, log: log.Named("search")}
}

func (s *Service) indexReady() bool {
	return s.index != nil && s.index.Healthy()
}

// Search tries the index if healthy, otherwise falls back to PG FTS. Backend
// failures degrade to an empty response.
func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.indexReady() {
		results, total, err := s.index.Search(ctx, q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		s.log.Warn("meilisearch error, falling back to pgfts", zap.Error(err))
	}

	if s.fallback == nil {
		return Response{Results: []Result{}, Query: q.Text}
	}
	results, total, err := s.fallback.Search(ctx, q)
	if err != nil {
		s.log.Warn("pgfts error", zap.Error(err))
		return Response{Results: []Result{}, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// Index pushes a record in the background.
func (s *Service) Index(record Record) {
	if !s.indexReady() {
		return
	}
	go func() {
		if err := s.index.Index(record); err != nil {
			s.log.Warn("index record", zap.String("type", string(record.Type)), zap.String("id", record.ID), zap.Error(err))
		}
	}()
}

// Remove deletes a record from the index in the background.
func (s *Service) Remove(kind ResultType, id string) {
	if !s.indexReady() {
		return
	}
	go func() {
		if err := s.index.Delete(kind, id); err != nil {
			s.log.Warn("delete record", zap.String("type", string(kind)), zap.String("id", id), zap.Error(err))
		}
	}()
}

// ErrIndexUnavailable is returned by Reindex when there is no healthy index
// to push to.
var ErrIndexUnavailable = errors.New("search index unavailable")

// Reindex loads every record from Postgres and pushes it synchronously. It
// returns the number of records indexed.
func (s *Service) Reindex(ctx context.Context) (int, error) {
	if !s.indexReady() || s.loader == nil {
		return 0, ErrIndexUnavailable
	}
	records, err := s.loader.LoadAllRecords(ctx)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	if err := s.index.Index(records...); err != nil {
		return 0, err
	}
	return len(records), nil
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}

func decodeTags(raw string) []string {
	tags := make([]string, 0)
	_ = json.Unmarshal([]byte(raw), &tags)
	return tags
}
