package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"portfolio/api/internal/seed"
	"portfolio/api/internal/store"
)

// ApplySeed loads starter content. Rows with a slug are skipped when the slug
// already exists; slugless sections are only filled while their table is
// empty. The profile is written only when none has been saved yet. Every row
// goes through the same preparation and validation as an admin create.
func (s *Service) ApplySeed(ctx context.Context, doc seed.Document) (seed.Summary, error) {
	summary := seed.NewSummary()

	if doc.Profile != nil {
		current, err := s.store.GetProfile(ctx)
		if err != nil {
			return summary, fmt.Errorf("seed profile: %w", err)
		}
		if current.Name == "" {
			if result := s.SaveProfile(ctx, *doc.Profile); !result.Success {
				return summary, fmt.Errorf("seed profile: %w", result.Err())
			}
			summary.Created["profile"]++
		} else {
			summary.Skipped["profile"]++
		}
	}

	if err := seedBySlug(ctx, s.categories, doc.Categories, func(c *store.Category) string { return slugFor(c.Slug, c.Name) }, summary); err != nil {
		return summary, err
	}
	categoryIDs, err := s.categoryIDsBySlug(ctx)
	if err != nil {
		return summary, err
	}

	projects := make([]store.Project, 0, len(doc.Projects))
	for _, p := range doc.Projects {
		if err := linkCategory(categoryIDs, p.Category, &p.CategoryID); err != nil {
			return summary, fmt.Errorf("seed project %q: %w", p.Title, err)
		}
		projects = append(projects, p.Project)
	}
	if err := seedBySlug(ctx, s.projects, projects, func(p *store.Project) string { return slugFor(p.Slug, p.Title) }, summary); err != nil {
		return summary, err
	}

	posts := make([]store.Post, 0, len(doc.Posts))
	for _, p := range doc.Posts {
		if err := linkCategory(categoryIDs, p.Category, &p.CategoryID); err != nil {
			return summary, fmt.Errorf("seed post %q: %w", p.Title, err)
		}
		posts = append(posts, p.Post)
	}
	if err := seedBySlug(ctx, s.posts, posts, func(p *store.Post) string { return slugFor(p.Slug, p.Title) }, summary); err != nil {
		return summary, err
	}

	if err := seedIfEmpty(ctx, s.testimonials, doc.Testimonials, summary); err != nil {
		return summary, err
	}
	if err := seedIfEmpty(ctx, s.experiences, doc.Experiences, summary); err != nil {
		return summary, err
	}
	if err := seedIfEmpty(ctx, s.education, doc.Education, summary); err != nil {
		return summary, err
	}
	if err := seedIfEmpty(ctx, s.skills, doc.Skills, summary); err != nil {
		return summary, err
	}
	if err := seedIfEmpty(ctx, s.ideaNodes, doc.IdeaNodes, summary); err != nil {
		return summary, err
	}

	s.log.Info("seed applied", zap.Any("created", summary.Created), zap.Any("skipped", summary.Skipped))
	return summary, nil
}

func slugFor(slug, fallback string) string {
	resolved, err := resolveSlug(slug, fallback)
	if err != nil {
		return ""
	}
	return resolved
}

func (s *Service) categoryIDsBySlug(ctx context.Context) (map[string]string, error) {
	categories, err := s.categories.repo.List(ctx, store.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("seed categories: %w", err)
	}
	ids := make(map[string]string, len(categories))
	for _, c := range categories {
		ids[c.Slug] = c.ID
	}
	return ids, nil
}

func linkCategory(ids map[string]string, slug string, target **string) error {
	if slug == "" {
		return nil
	}
	id, found := ids[slug]
	if !found {
		return fmt.Errorf("unknown category %q", slug)
	}
	*target = &id
	return nil
}

func seedBySlug[T any, P store.Row[T]](ctx context.Context, res *Resource[T, P], items []T, slugOf func(*T) string, summary seed.Summary) error {
	for _, item := range items {
		slug := slugOf(&item)
		if slug != "" {
			_, err := res.repo.GetBySlug(ctx, slug)
			if err == nil {
				summary.Skipped[res.kind]++
				continue
			}
			if !errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("seed %s %q: %w", res.kind, slug, err)
			}
		}
		if result := res.Create(ctx, item); !result.Success {
			return fmt.Errorf("seed %s %q: %w", res.kind, slug, result.Err())
		}
		summary.Created[res.kind]++
	}
	return nil
}

func seedIfEmpty[T any, P store.Row[T]](ctx context.Context, res *Resource[T, P], items []T, summary seed.Summary) error {
	if len(items) == 0 {
		return nil
	}
	counts, err := res.Count(ctx)
	if err != nil {
		return fmt.Errorf("seed %s: %w", res.kind, err)
	}
	if counts.Total > 0 {
		summary.Skipped[res.kind] += len(items)
		return nil
	}
	for i, item := range items {
		if result := res.Create(ctx, item); !result.Success {
			return fmt.Errorf("seed %s #%d: %w", res.kind, i+1, result.Err())
		}
		summary.Created[res.kind]++
	}
	return nil
}
