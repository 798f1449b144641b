package app

import (
	"context"

	"golang.org/x/sync/errgroup"

	"portfolio/api/internal/store"
)

type Stats struct {
	Categories     store.Counts      `json:"categories"`
	Projects       store.Counts      `json:"projects"`
	Posts          store.Counts      `json:"posts"`
	Testimonials   store.Counts      `json:"testimonials"`
	Experiences    store.Counts      `json:"experiences"`
	Education      store.Counts      `json:"education"`
	Skills         store.Counts      `json:"skills"`
	UnreadMessages int               `json:"unreadMessages"`
	Ideas          store.IdeaSummary `json:"ideas"`
}

// Stats gathers the dashboard counters concurrently. The first failure
// cancels the rest.
func (s *Service) Stats(ctx context.Context) Result[Stats] {
	var stats Stats
	g, gctx := errgroup.WithContext(ctx)

	counters := []struct {
		count func(context.Context) (store.Counts, error)
		into  *store.Counts
	}{
		{s.categories.Count, &stats.Categories},
		{s.projects.Count, &stats.Projects},
		{s.posts.Count, &stats.Posts},
		{s.testimonials.Count, &stats.Testimonials},
		{s.experiences.Count, &stats.Experiences},
		{s.education.Count, &stats.Education},
		{s.skills.Count, &stats.Skills},
	}
	for _, counter := range counters {
		counter := counter
		g.Go(func() error {
			counts, err := counter.count(gctx)
			*counter.into = counts
			return err
		})
	}
	g.Go(func() error {
		unread, err := s.store.CountUnreadMessages(gctx)
		stats.UnreadMessages = unread
		return err
	})
	g.Go(func() error {
		ideas, err := s.store.IdeaSummary(gctx)
		stats.Ideas = ideas
		return err
	})

	if err := g.Wait(); err != nil {
		return fail[Stats](err)
	}
	return ok(stats)
}
