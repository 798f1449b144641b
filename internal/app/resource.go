package app

import (
	"context"
	"encoding/json"
	"fmt"

	"portfolio/api/internal/store"
	"portfolio/api/internal/util"
)

// Result is the envelope every content service method returns.
type Result[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
	err     error
}

func ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

func fail[T any](err error) Result[T] {
	_, _, message, _ := mapError(err)
	return Result[T]{Error: message, err: err}
}

// Err returns the underlying error of a failed result.
func (r Result[T]) Err() error {
	return r.err
}

type deletedRef struct {
	ID string `json:"id"`
}

type reorderSummary struct {
	Updated int `json:"updated"`
}

// changeKind tells hooks what happened to a saved row.
type changeKind string

const (
	changeCreate  changeKind = "create"
	changeUpdate  changeKind = "update"
	changeToggle  changeKind = "toggle"
	changeFeature changeKind = "feature"
	changeRestore changeKind = "restore"
)

type resourceHooks[T any] struct {
	// prepare normalises item before validation. existing is nil on create.
	prepare func(ctx context.Context, item *T, existing *T) error
	// saved runs after a successful write.
	saved func(ctx context.Context, item T, change changeKind)
	// removed runs after a successful delete.
	removed func(ctx context.Context, id string)
	// toggled may follow up a visibility flip with another write.
	toggled func(ctx context.Context, item T) (T, error)
	// remove replaces the repository delete.
	remove func(ctx context.Context, id string) error
}

// Resource is the generic service behind an ordered, toggleable content type.
type Resource[T any, P store.Row[T]] struct {
	kind     string
	idPrefix string
	repo     repository[T]
	i18n     *localizer
	hooks    resourceHooks[T]
}

func newResource[T any, P store.Row[T]](kind, idPrefix string, repo repository[T], i18n *localizer, hooks resourceHooks[T]) *Resource[T, P] {
	return &Resource[T, P]{kind: kind, idPrefix: idPrefix, repo: repo, i18n: i18n, hooks: hooks}
}

func (r *Resource[T, P]) List(ctx context.Context, filter store.ListFilter) Result[[]T] {
	items, err := r.repo.List(ctx, filter)
	if err != nil {
		return fail[[]T](err)
	}
	items, err = r.localize(ctx, filter.Locale, items)
	if err != nil {
		return fail[[]T](err)
	}
	return ok(items)
}

func (r *Resource[T, P]) Get(ctx context.Context, id string) Result[T] {
	item, err := r.repo.Get(ctx, id)
	if err != nil {
		return fail[T](err)
	}
	return ok(item)
}

// GetPublic resolves a visible row by slug (or id for slugless types) and
// applies locale overlays. Hidden rows are reported as not found.
func (r *Resource[T, P]) GetPublic(ctx context.Context, key, locale string, bySlug bool) Result[T] {
	var item T
	var err error
	if bySlug {
		item, err = r.repo.GetBySlug(ctx, key)
	} else {
		item, err = r.repo.Get(ctx, key)
	}
	if err != nil {
		return fail[T](err)
	}
	if !P(&item).Meta().Visible {
		return fail[T](notFound("Not found"))
	}
	localized, err := r.localize(ctx, locale, []T{item})
	if err != nil {
		return fail[T](err)
	}
	return ok(localized[0])
}

func (r *Resource[T, P]) Create(ctx context.Context, item T) Result[T] {
	meta := P(&item).Meta()
	meta.ID = util.NewID(r.idPrefix)
	if r.hooks.prepare != nil {
		if err := r.hooks.prepare(ctx, &item, nil); err != nil {
			return fail[T](err)
		}
	}
	if err := validateStruct(item); err != nil {
		return fail[T](err)
	}
	saved, err := r.repo.Insert(ctx, item)
	if err != nil {
		return fail[T](err)
	}
	r.afterSave(ctx, saved, changeCreate)
	return ok(saved)
}

// Update loads the row, lets apply overwrite the submitted fields and writes
// the result back. Fields absent from the request keep their stored values.
func (r *Resource[T, P]) Update(ctx context.Context, id string, apply func(*T) error) Result[T] {
	return r.update(ctx, id, changeUpdate, apply)
}

func (r *Resource[T, P]) update(ctx context.Context, id string, change changeKind, apply func(*T) error) Result[T] {
	existing, err := r.repo.Get(ctx, id)
	if err != nil {
		return fail[T](err)
	}
	item, err := cloneRow(existing)
	if err != nil {
		return fail[T](err)
	}
	if err := apply(&item); err != nil {
		return fail[T](badRequest(err.Error(), nil))
	}
	meta, stored := P(&item).Meta(), P(&existing).Meta()
	meta.ID = stored.ID
	meta.CreatedAt = stored.CreatedAt
	if r.hooks.prepare != nil {
		if err := r.hooks.prepare(ctx, &item, &existing); err != nil {
			return fail[T](err)
		}
	}
	if err := validateStruct(item); err != nil {
		return fail[T](err)
	}
	saved, err := r.repo.Update(ctx, item)
	if err != nil {
		return fail[T](err)
	}
	r.afterSave(ctx, saved, change)
	return ok(saved)
}

// Patch writes raw column values, skipping prepare and validation. Callers
// pass only values they have already checked.
func (r *Resource[T, P]) Patch(ctx context.Context, id string, changes map[string]any) Result[T] {
	saved, err := r.repo.Patch(ctx, id, changes)
	if err != nil {
		return fail[T](err)
	}
	r.afterSave(ctx, saved, changeUpdate)
	return ok(saved)
}

func (r *Resource[T, P]) Delete(ctx context.Context, id string) Result[deletedRef] {
	remove := r.repo.Delete
	if r.hooks.remove != nil {
		remove = r.hooks.remove
	}
	if err := remove(ctx, id); err != nil {
		return fail[deletedRef](err)
	}
	if r.hooks.removed != nil {
		r.hooks.removed(ctx, id)
	}
	return ok(deletedRef{ID: id})
}

func (r *Resource[T, P]) ToggleVisibility(ctx context.Context, id string) Result[T] {
	item, err := r.repo.ToggleVisible(ctx, id)
	if err != nil {
		return fail[T](err)
	}
	if r.hooks.toggled != nil {
		if item, err = r.hooks.toggled(ctx, item); err != nil {
			return fail[T](err)
		}
	}
	r.afterSave(ctx, item, changeToggle)
	return ok(item)
}

func (r *Resource[T, P]) ToggleFeatured(ctx context.Context, id string) Result[T] {
	item, err := r.repo.ToggleFeatured(ctx, id)
	if err != nil {
		return fail[T](err)
	}
	r.afterSave(ctx, item, changeFeature)
	return ok(item)
}

func (r *Resource[T, P]) Reorder(ctx context.Context, items []store.OrderItem) Result[reorderSummary] {
	for i, item := range items {
		if item.ID == "" {
			return fail[reorderSummary](badRequest(fmt.Sprintf("items[%d].id is required", i), nil))
		}
	}
	updated, err := r.repo.Reorder(ctx, items)
	if err != nil {
		return fail[reorderSummary](err)
	}
	return ok(reorderSummary{Updated: updated})
}

func (r *Resource[T, P]) Count(ctx context.Context) (store.Counts, error) {
	return r.repo.Count(ctx)
}

func (r *Resource[T, P]) afterSave(ctx context.Context, item T, change changeKind) {
	if r.hooks.saved != nil {
		r.hooks.saved(ctx, item, change)
	}
}

func (r *Resource[T, P]) localize(ctx context.Context, locale string, items []T) ([]T, error) {
	if r.i18n == nil || !r.i18n.active(locale) || len(items) == 0 {
		return items, nil
	}
	ids := make([]string, len(items))
	for i := range items {
		ids[i] = P(&items[i]).Meta().ID
	}
	values, err := r.i18n.source.TranslationsFor(ctx, r.kind, locale, ids)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if fields, found := values[ids[i]]; found {
			overlayFields(&items[i], fields)
		}
	}
	return items, nil
}

// cloneRow deep copies a row so decoding into the copy cannot alias the
// original's slices.
func cloneRow[T any](item T) (T, error) {
	var out T
	raw, err := json.Marshal(item)
	if err != nil {
		return out, fmt.Errorf("clone row: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("clone row: %w", err)
	}
	return out, nil
}
