package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

const baseColumns = "id, visible, sort_order, created_at, updated_at"

// Row is satisfied by pointers to the managed content models. fields lists
// the schema columns in declaration order as scan destinations.
type Row[T any] interface {
	*T
	Meta() *Base
	fields() []any
}

// Schema describes the table behind a Repo. Columns excludes the shared base
// columns and must line up with the model's fields.
type Schema struct {
	Table         string
	Columns       []string
	SearchColumns []string
	Featured      bool
	Slug          bool
	OrderBy       string
}

func (s Schema) hasColumn(name string) bool {
	for _, column := range s.Columns {
		if column == name {
			return true
		}
	}
	return false
}

func (s Schema) orderBy() string {
	if s.OrderBy != "" {
		return s.OrderBy
	}
	return "sort_order ASC, created_at DESC"
}

// ListFilter narrows a list query. Nil fields are not applied.
type ListFilter struct {
	Visible  *bool
	Featured *bool
	Search   *string
	Limit    *int
	Offset   *int
	// Where holds column equality conditions.
	Where map[string]any
	// Contains holds JSONB array columns that must contain the given string.
	Contains map[string]string
	// Locale selects translated fields; it is applied after the query.
	Locale string
}

// Repo is the table-driven repository shared by every ordered, toggleable
// content type.
type Repo[T any, P Row[T]] struct {
	db     *sql.DB
	schema Schema
}

func NewRepo[T any, P Row[T]](db *sql.DB, schema Schema) *Repo[T, P] {
	return &Repo[T, P]{db: db, schema: schema}
}

func (r *Repo[T, P]) Schema() Schema {
	return r.schema
}

func (r *Repo[T, P]) List(ctx context.Context, filter ListFilter) ([]T, error) {
	query, args, err := buildListQuery(r.schema, filter)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.schema.Table, err)
	}
	defer rows.Close()

	items := make([]T, 0)
	for rows.Next() {
		item, err := scanRow[T, P](rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", r.schema.Table, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", r.schema.Table, err)
	}
	return items, nil
}

func (r *Repo[T, P]) Get(ctx context.Context, id string) (T, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id=$1`, r.selectList(), r.schema.Table)
	item, err := scanRow[T, P](r.db.QueryRowContext(ctx, query, id).Scan)
	return item, translate("get "+r.schema.Table, err)
}

func (r *Repo[T, P]) GetBySlug(ctx context.Context, slug string) (T, error) {
	if !r.schema.Slug {
		var zero T
		return zero, fmt.Errorf("%s has no slug column", r.schema.Table)
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE slug=$1`, r.selectList(), r.schema.Table)
	item, err := scanRow[T, P](r.db.QueryRowContext(ctx, query, slug).Scan)
	return item, translate("get "+r.schema.Table+" by slug", err)
}

// Insert stores item with the id already assigned and returns the row as the
// database sees it.
func (r *Repo[T, P]) Insert(ctx context.Context, item T) (T, error) {
	p := P(&item)
	meta := p.Meta()
	columns := append([]string{"id", "visible", "sort_order"}, r.schema.Columns...)
	args := append([]any{meta.ID, meta.Visible, meta.Order}, values(p.fields())...)
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING %s`,
		r.schema.Table, strings.Join(columns, ", "), strings.Join(placeholders, ", "), r.selectList())
	saved, err := scanRow[T, P](r.db.QueryRowContext(ctx, query, args...).Scan)
	return saved, translate("insert "+r.schema.Table, err)
}

// Update overwrites every column of the row identified by item's id.
func (r *Repo[T, P]) Update(ctx context.Context, item T) (T, error) {
	p := P(&item)
	meta := p.Meta()
	sets := []string{"visible=$2", "sort_order=$3"}
	args := append([]any{meta.ID, meta.Visible, meta.Order}, values(p.fields())...)
	for i, column := range r.schema.Columns {
		sets = append(sets, fmt.Sprintf("%s=$%d", column, i+4))
	}
	query := fmt.Sprintf(`UPDATE %s SET %s, updated_at=NOW() WHERE id=$1 RETURNING %s`,
		r.schema.Table, strings.Join(sets, ", "), r.selectList())
	saved, err := scanRow[T, P](r.db.QueryRowContext(ctx, query, args...).Scan)
	return saved, translate("update "+r.schema.Table, err)
}

// Patch updates only the named columns. Unknown columns are rejected.
func (r *Repo[T, P]) Patch(ctx context.Context, id string, changes map[string]any) (T, error) {
	var zero T
	if len(changes) == 0 {
		return r.Get(ctx, id)
	}
	keys := make([]string, 0, len(changes))
	for key := range changes {
		if !r.schema.hasColumn(key) && key != "visible" && key != "sort_order" {
			return zero, fmt.Errorf("patch %s: unknown column %q", r.schema.Table, key)
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	sets := make([]string, 0, len(keys))
	args := []any{id}
	for _, key := range keys {
		args = append(args, changes[key])
		sets = append(sets, fmt.Sprintf("%s=$%d", key, len(args)))
	}
	query := fmt.Sprintf(`UPDATE %s SET %s, updated_at=NOW() WHERE id=$1 RETURNING %s`,
		r.schema.Table, strings.Join(sets, ", "), r.selectList())
	saved, err := scanRow[T, P](r.db.QueryRowContext(ctx, query, args...).Scan)
	return saved, translate("patch "+r.schema.Table, err)
}

func (r *Repo[T, P]) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id=$1`, r.schema.Table), id)
	if err != nil {
		return translate("delete "+r.schema.Table, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", r.schema.Table, err)
	}
	if affected == 0 {
		return fmt.Errorf("delete %s: %w", r.schema.Table, ErrNotFound)
	}
	return nil
}

func (r *Repo[T, P]) ToggleVisible(ctx context.Context, id string) (T, error) {
	query := fmt.Sprintf(`UPDATE %s SET visible = NOT visible, updated_at=NOW() WHERE id=$1 RETURNING %s`,
		r.schema.Table, r.selectList())
	item, err := scanRow[T, P](r.db.QueryRowContext(ctx, query, id).Scan)
	return item, translate("toggle "+r.schema.Table+" visibility", err)
}

func (r *Repo[T, P]) ToggleFeatured(ctx context.Context, id string) (T, error) {
	if !r.schema.Featured {
		var zero T
		return zero, fmt.Errorf("%s has no featured column", r.schema.Table)
	}
	query := fmt.Sprintf(`UPDATE %s SET featured = NOT featured, updated_at=NOW() WHERE id=$1 RETURNING %s`,
		r.schema.Table, r.selectList())
	item, err := scanRow[T, P](r.db.QueryRowContext(ctx, query, id).Scan)
	return item, translate("toggle "+r.schema.Table+" featured", err)
}

// Reorder assigns sort_order for every listed id in a single statement and
// returns the number of rows touched.
func (r *Repo[T, P]) Reorder(ctx context.Context, items []OrderItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	type entry struct {
		ID  string `json:"id"`
		Ord int    `json:"ord"`
	}
	entries := make([]entry, len(items))
	for i, item := range items {
		entries[i] = entry{ID: item.ID, Ord: item.Order}
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return 0, fmt.Errorf("encode order: %w", err)
	}
	query := fmt.Sprintf(`
		UPDATE %s AS t SET sort_order = v.ord, updated_at = NOW()
		FROM jsonb_to_recordset($1::jsonb) AS v(id text, ord int)
		WHERE t.id = v.id
	`, r.schema.Table)
	result, err := r.db.ExecContext(ctx, query, string(payload))
	if err != nil {
		return 0, fmt.Errorf("reorder %s: %w", r.schema.Table, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reorder %s: %w", r.schema.Table, err)
	}
	return int(affected), nil
}

func (r *Repo[T, P]) Count(ctx context.Context) (Counts, error) {
	var counts Counts
	query := fmt.Sprintf(`SELECT COUNT(*), COUNT(*) FILTER (WHERE visible) FROM %s`, r.schema.Table)
	if err := r.db.QueryRowContext(ctx, query).Scan(&counts.Total, &counts.Visible); err != nil {
		return Counts{}, fmt.Errorf("count %s: %w", r.schema.Table, err)
	}
	return counts, nil
}

func (r *Repo[T, P]) selectList() string {
	return selectList(r.schema)
}

func selectList(schema Schema) string {
	if len(schema.Columns) == 0 {
		return baseColumns
	}
	return baseColumns + ", " + strings.Join(schema.Columns, ", ")
}

// buildListQuery renders the SELECT for filter against schema. Where and
// Contains keys are emitted in sorted order so the output is deterministic.
func buildListQuery(schema Schema, filter ListFilter) (string, []any, error) {
	var conditions []string
	var args []any
	next := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Visible != nil {
		conditions = append(conditions, "visible = "+next(*filter.Visible))
	}
	if filter.Featured != nil {
		if !schema.Featured {
			return "", nil, fmt.Errorf("list %s: featured filter not supported", schema.Table)
		}
		conditions = append(conditions, "featured = "+next(*filter.Featured))
	}
	for _, column := range sortedKeys(filter.Where) {
		if !schema.hasColumn(column) {
			return "", nil, fmt.Errorf("list %s: unknown filter column %q", schema.Table, column)
		}
		conditions = append(conditions, column+" = "+next(filter.Where[column]))
	}
	for _, column := range sortedKeys(filter.Contains) {
		if !schema.hasColumn(column) {
			return "", nil, fmt.Errorf("list %s: unknown filter column %q", schema.Table, column)
		}
		conditions = append(conditions, column+" @> jsonb_build_array("+next(filter.Contains[column])+"::text)")
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" && len(schema.SearchColumns) > 0 {
		placeholder := next("%" + escapeLike(strings.TrimSpace(*filter.Search)) + "%")
		matches := make([]string, len(schema.SearchColumns))
		for i, column := range schema.SearchColumns {
			matches[i] = column + " ILIKE " + placeholder
		}
		conditions = append(conditions, "("+strings.Join(matches, " OR ")+")")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", selectList(schema), schema.Table)
	if len(conditions) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conditions, " AND "))
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(schema.orderBy())
	if filter.Limit != nil && *filter.Limit >= 0 {
		b.WriteString(" LIMIT " + next(*filter.Limit))
	}
	if filter.Offset != nil && *filter.Offset > 0 {
		b.WriteString(" OFFSET " + next(*filter.Offset))
	}
	return b.String(), args, nil
}

func scanRow[T any, P Row[T]](scan func(dest ...any) error) (T, error) {
	var item T
	p := P(&item)
	meta := p.Meta()
	dest := append([]any{&meta.ID, &meta.Visible, &meta.Order, &meta.CreatedAt, &meta.UpdatedAt}, p.fields()...)
	if err := scan(dest...); err != nil {
		var zero T
		return zero, err
	}
	return item, nil
}

// values dereferences scan destinations into statement arguments. Nil
// pointers become SQL NULL.
func values(ptrs []any) []any {
	out := make([]any, len(ptrs))
	for i, ptr := range ptrs {
		value := reflect.ValueOf(ptr).Elem()
		if value.Kind() == reflect.Pointer && value.IsNil() {
			out[i] = nil
			continue
		}
		out[i] = value.Interface()
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}
