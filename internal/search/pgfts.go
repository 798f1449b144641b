package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS searches the generated tsvector columns of projects and posts. It is
// used whenever Meilisearch is not configured or not reachable.
type PgFTS struct {
	db *sql.DB
}

func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

func (p *PgFTS) Healthy() bool {
	return true
}

// ftsSource is one searchable table.
type ftsSource struct {
	kind    ResultType
	table   string
	snippet string
}

var ftsSources = []ftsSource{
	{kind: ResultProject, table: "projects", snippet: "summary"},
	{kind: ResultPost, table: "posts", snippet: "excerpt"},
}

// Search matches visible rows with websearch_to_tsquery, so quoted phrases and
// "or" work as users expect. Results are ranked by ts_rank.
func (p *PgFTS) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	rows, err := p.db.QueryContext(ctx, ftsQuery(q.FilterType), q.Text, limit, max(q.Offset, 0))
	if err != nil {
		return nil, 0, fmt.Errorf("full text search: %w", err)
	}
	defer rows.Close()

	var (
		results []Result
		total   int
	)
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Type, &r.ID, &r.Title, &r.Slug, &r.Snippet, &total); err != nil {
			return nil, 0, fmt.Errorf("scan search hit: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("full text search: %w", err)
	}
	return results, total, nil
}

// ftsQuery builds the search statement. $1 is the query text, $2 the limit
// and $3 the offset. The total is carried on every row by a window count.
func ftsQuery(kind ResultType) string {
	var parts []string
	for _, src := range ftsSources {
		if kind != "" && kind != src.kind {
			continue
		}
		parts = append(parts, fmt.Sprintf(`SELECT '%s'::text AS type, id, title, slug,
			ts_headline('english', coalesce(%s, ''), q, 'MaxFragments=1,MaxWords=30') AS snippet,
			ts_rank(fts, q) AS rank
		FROM %s, websearch_to_tsquery('english', $1) q
		WHERE visible AND fts @@ q`, src.kind, src.snippet, src.table))
	}
	return `SELECT type, id, title, slug, snippet, count(*) OVER () AS total
	FROM (` + strings.Join(parts, "\n\t\tUNION ALL\n\t\t") + `) hits
	ORDER BY rank DESC, title
	LIMIT $2 OFFSET $3`
}

// LoadAllRecords returns every visible project and post for a full reindex.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]Record, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT 'project', id, title, slug, summary, content, tech_stack::text FROM projects WHERE visible
		UNION ALL
		SELECT 'post', id, title, slug, excerpt, content, tags::text FROM posts WHERE visible`)
	if err != nil {
		return nil, fmt.Errorf("load search records: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var (
			r    Record
			tags string
		)
		if err := rows.Scan(&r.Type, &r.ID, &r.Title, &r.Slug, &r.Summary, &r.Body, &tags); err != nil {
			return nil, fmt.Errorf("scan search record: %w", err)
		}
		r.Tags = decodeTags(tags)
		records = append(records, r)
	}
	return records, rows.Err()
}
