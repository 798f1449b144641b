package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"
)

// indexUID holds projects and posts together; the type attribute tells them
// apart. Record ids carry a type prefix, so they never collide.
const indexUID = "portfolio_content"

const probeInterval = 15 * time.Second

// Meili is an Indexer backed by a single Meilisearch index.
type Meili struct {
	client meili.ServiceManager
	index  meili.IndexManager
	log    *zap.Logger

	up       atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
}

// NewMeili connects to Meilisearch and starts probing it. The server may be
// down at startup; settings are applied whenever it becomes reachable.
func NewMeili(url, apiKey string, log *zap.Logger) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))
	m := &Meili{
		client: client,
		index:  client.Index(indexUID),
		log:    log.Named("meili"),
		stop:   make(chan struct{}),
	}
	if !m.probe() {
		m.log.Warn("meilisearch unreachable, using postgres search", zap.String("url", url))
	}
	go m.watch()
	return m
}

// probe updates the health flag and applies index settings on every
// transition to healthy.
func (m *Meili) probe() bool {
	healthy := m.client.IsHealthy()
	if healthy && !m.up.Load() {
		m.applySettings()
		m.log.Info("meilisearch available")
	}
	m.up.Store(healthy)
	return healthy
}

func (m *Meili) applySettings() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{Uid: indexUID, PrimaryKey: "id"}); err != nil {
		m.log.Debug("create index", zap.Error(err))
	}
	searchable := []string{"title", "tags", "summary", "body"}
	filterable := []interface{}{"type"}
	if _, err := m.index.UpdateSearchableAttributes(&searchable); err != nil {
		m.log.Warn("set searchable attributes", zap.Error(err))
	}
	if _, err := m.index.UpdateFilterableAttributes(&filterable); err != nil {
		m.log.Warn("set filterable attributes", zap.Error(err))
	}
}

func (m *Meili) watch() {
	ticker := time.NewTicker(probeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.probe()
		}
	}
}

func (m *Meili) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Meili) Healthy() bool {
	return m.up.Load()
}

func (m *Meili) Search(_ context.Context, q Query) ([]Result, int, error) {
	if !m.up.Load() {
		return nil, 0, fmt.Errorf("meilisearch is down")
	}
	resp, err := m.index.Search(q.Text, searchRequest(q))
	if err != nil {
		m.up.Store(false)
		return nil, 0, fmt.Errorf("meilisearch search: %w", err)
	}
	results := make([]Result, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		result, err := hitToResult(hit)
		if err != nil {
			m.log.Debug("skip undecodable hit", zap.Error(err))
			continue
		}
		results = append(results, result)
	}
	return results, int(resp.EstimatedTotalHits), nil
}

func searchRequest(q Query) *meili.SearchRequest {
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	req := &meili.SearchRequest{
		Limit:                 int64(limit),
		Offset:                int64(max(q.Offset, 0)),
		AttributesToHighlight: []string{"title", "summary"},
		AttributesToCrop:      []string{"summary"},
		CropLength:            30,
		HighlightPreTag:       "<mark>",
		HighlightPostTag:      "</mark>",
	}
	if q.FilterType != "" {
		req.Filter = fmt.Sprintf("type = %q", string(q.FilterType))
	}
	return req
}

func (m *Meili) Index(records ...Record) error {
	for _, record := range records {
		if ParseResultType(string(record.Type)) == "" {
			return fmt.Errorf("index %s: unknown type %q", record.ID, record.Type)
		}
	}
	if _, err := m.index.AddDocuments(records, nil); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}
	return nil
}

// Delete removes id. kind is not needed because ids are unique across types.
func (m *Meili) Delete(_ ResultType, id string) error {
	if _, err := m.index.DeleteDocument(id, nil); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

type hitDocument struct {
	ID        string     `json:"id"`
	Type      ResultType `json:"type"`
	Title     string     `json:"title"`
	Slug      string     `json:"slug"`
	Summary   string     `json:"summary"`
	Formatted struct {
		Title   string `json:"title"`
		Summary string `json:"summary"`
	} `json:"_formatted"`
}

// hitToResult prefers the highlighted fields and falls back to the stored ones.
func hitToResult(hit meili.Hit) (Result, error) {
	raw, err := json.Marshal(hit)
	if err != nil {
		return Result{}, err
	}
	var doc hitDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Result{}, err
	}
	return Result{
		Type:    doc.Type,
		ID:      doc.ID,
		Slug:    doc.Slug,
		Title:   orElse(doc.Formatted.Title, doc.Title),
		Snippet: orElse(doc.Formatted.Summary, doc.Summary),
	}, nil
}

func orElse(preferred, fallback string) string {
	if strings.TrimSpace(preferred) != "" {
		return strings.TrimSpace(preferred)
	}
	return fallback
}
