package app

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"portfolio/api/internal/email"
	"portfolio/api/internal/history"
	"portfolio/api/internal/search"
	"portfolio/api/internal/store"
	"portfolio/api/internal/util"
)

const wordsPerMinute = 200

func resolveSlug(slug, fallback string) (string, error) {
	resolved := util.Slugify(slug)
	if resolved == "" {
		resolved = util.Slugify(fallback)
	}
	if resolved == "" {
		return "", badRequest("slug could not be derived; provide a slug with letters or digits", map[string]string{"slug": "slug is required"})
	}
	return resolved, nil
}

func normalizeCategoryID(id *string) *string {
	if id == nil || strings.TrimSpace(*id) == "" {
		return nil
	}
	trimmed := strings.TrimSpace(*id)
	return &trimmed
}

func readingMinutes(html string) int {
	words := util.WordCount(html)
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}

func prepareCategory(_ context.Context, c *store.Category, _ *store.Category) error {
	c.Name = sanitizePlain(c.Name)
	c.Description = sanitizePlain(c.Description)
	c.Color = strings.TrimSpace(c.Color)
	slug, err := resolveSlug(c.Slug, c.Name)
	if err != nil {
		return err
	}
	c.Slug = slug
	return nil
}

func prepareProject(_ context.Context, p *store.Project, _ *store.Project) error {
	p.Title = sanitizePlain(p.Title)
	p.Summary = sanitizePlain(p.Summary)
	p.Content = sanitizeRich(p.Content)
	p.ImageURL = strings.TrimSpace(p.ImageURL)
	p.GithubURL = strings.TrimSpace(p.GithubURL)
	p.LiveURL = strings.TrimSpace(p.LiveURL)
	p.Gallery = p.Gallery.Compact()
	p.TechStack = p.TechStack.Compact()
	p.CategoryID = normalizeCategoryID(p.CategoryID)
	slug, err := resolveSlug(p.Slug, p.Title)
	if err != nil {
		return err
	}
	p.Slug = slug
	return nil
}

// preparePost owns publishedAt: it is taken from the request only on create
// and is otherwise set once, on first publish.
func (s *Service) preparePost(_ context.Context, p *store.Post, existing *store.Post) error {
	p.Title = sanitizePlain(p.Title)
	p.Excerpt = sanitizePlain(p.Excerpt)
	p.Content = sanitizeRich(p.Content)
	p.CoverImage = strings.TrimSpace(p.CoverImage)
	p.Tags = p.Tags.Compact()
	p.CategoryID = normalizeCategoryID(p.CategoryID)
	p.ReadingMinutes = readingMinutes(p.Content)
	if existing != nil {
		p.PublishedAt = existing.PublishedAt
	}
	if p.Visible && p.PublishedAt == nil {
		now := s.now().UTC()
		p.PublishedAt = &now
	}
	slug, err := resolveSlug(p.Slug, p.Title)
	if err != nil {
		return err
	}
	p.Slug = slug
	return nil
}

func prepareTestimonial(_ context.Context, t *store.Testimonial, _ *store.Testimonial) error {
	t.Name = sanitizePlain(t.Name)
	t.Role = sanitizePlain(t.Role)
	t.Company = sanitizePlain(t.Company)
	t.Content = sanitizePlain(t.Content)
	t.AvatarURL = strings.TrimSpace(t.AvatarURL)
	return nil
}

func prepareExperience(_ context.Context, e *store.Experience, _ *store.Experience) error {
	e.Company = sanitizePlain(e.Company)
	e.Position = sanitizePlain(e.Position)
	e.Location = sanitizePlain(e.Location)
	e.Description = sanitizeRich(e.Description)
	e.StartDate = strings.TrimSpace(e.StartDate)
	e.EndDate = strings.TrimSpace(e.EndDate)
	if e.Current {
		e.EndDate = ""
	}
	e.TechStack = e.TechStack.Compact()
	return nil
}

func prepareEducation(_ context.Context, e *store.Education, _ *store.Education) error {
	e.Institution = sanitizePlain(e.Institution)
	e.Degree = sanitizePlain(e.Degree)
	e.Field = sanitizePlain(e.Field)
	e.Description = sanitizeRich(e.Description)
	e.StartDate = strings.TrimSpace(e.StartDate)
	e.EndDate = strings.TrimSpace(e.EndDate)
	return nil
}

func prepareSkill(_ context.Context, sk *store.Skill, _ *store.Skill) error {
	sk.Name = sanitizePlain(sk.Name)
	sk.Category = sanitizePlain(sk.Category)
	sk.Icon = strings.TrimSpace(sk.Icon)
	return nil
}

// Search index upkeep

func projectRecord(p store.Project) search.Record {
	return search.Record{
		ID:      p.ID,
		Type:    search.ResultProject,
		Title:   p.Title,
		Slug:    p.Slug,
		Summary: p.Summary,
		Body:    p.Content,
		Tags:    p.TechStack,
	}
}

func postRecord(p store.Post) search.Record {
	return search.Record{
		ID:      p.ID,
		Type:    search.ResultPost,
		Title:   p.Title,
		Slug:    p.Slug,
		Summary: p.Excerpt,
		Body:    p.Content,
		Tags:    p.Tags,
	}
}

// syncIndex keeps only visible rows in the public index.
func (s *Service) syncIndex(visible bool, record search.Record) {
	if s.search == nil {
		return
	}
	if visible {
		s.search.Index(record)
		return
	}
	s.search.Remove(record.Type, record.ID)
}

func (s *Service) projectSaved(_ context.Context, p store.Project, _ changeKind) {
	s.syncIndex(p.Visible, projectRecord(p))
}

func (s *Service) projectRemoved(_ context.Context, id string) {
	if s.search != nil {
		s.search.Remove(search.ResultProject, id)
	}
}

// Blog posts

func (s *Service) postSaved(ctx context.Context, p store.Post, change changeKind) {
	s.syncIndex(p.Visible, postRecord(p))
	if s.history == nil || change == changeFeature {
		return
	}
	author := "admin"
	if actor, found := actorFrom(ctx); found {
		author = actor.Name
		if actor.Email != "" {
			author = fmt.Sprintf("%s <%s>", actor.Name, actor.Email)
		}
	}
	if _, err := s.history.Commit(p.ID, postSnapshot(p), author, revisionMessage(p, change)); err != nil {
		s.log.Warn("record post revision failed", zap.String("post_id", p.ID), zap.Error(err))
	}
}

func (s *Service) postRemoved(_ context.Context, id string) {
	if s.search != nil {
		s.search.Remove(search.ResultPost, id)
	}
	if s.history != nil {
		if err := s.history.Remove(id); err != nil {
			s.log.Warn("remove post history failed", zap.String("post_id", id), zap.Error(err))
		}
	}
}

// postToggled stamps publishedAt the first time a post becomes visible.
func (s *Service) postToggled(ctx context.Context, p store.Post) (store.Post, error) {
	if !p.Visible || p.PublishedAt != nil {
		return p, nil
	}
	return s.posts.repo.Patch(ctx, p.ID, map[string]any{"published_at": s.now().UTC()})
}

func postSnapshot(p store.Post) history.Snapshot {
	return history.Snapshot{
		Title:      p.Title,
		Slug:       p.Slug,
		Excerpt:    p.Excerpt,
		Content:    p.Content,
		CoverImage: p.CoverImage,
		Tags:       []string(p.Tags),
		Visible:    p.Visible,
	}
}

func revisionMessage(p store.Post, change changeKind) string {
	switch change {
	case changeCreate:
		return "Create " + p.Title
	case changeToggle:
		if p.Visible {
			return "Publish " + p.Title
		}
		return "Unpublish " + p.Title
	case changeRestore:
		return "Restore " + p.Title
	default:
		return "Update " + p.Title
	}
}

type PostRevision struct {
	Revision history.Revision `json:"revision"`
	Post     history.Snapshot `json:"post"`
	Changes  []string         `json:"changes"`
}

func (s *Service) PostHistory(ctx context.Context, postID string, limit int) Result[[]history.Revision] {
	if _, err := s.posts.repo.Get(ctx, postID); err != nil {
		return fail[[]history.Revision](err)
	}
	if s.history == nil {
		return ok([]history.Revision{})
	}
	revisions, err := s.history.History(postID, limit)
	if err != nil {
		return fail[[]history.Revision](err)
	}
	return ok(revisions)
}

// PostRevision returns a stored snapshot and the fields that differ from the
// post as it is now.
func (s *Service) PostRevision(ctx context.Context, postID, hash string) Result[PostRevision] {
	current, err := s.posts.repo.Get(ctx, postID)
	if err != nil {
		return fail[PostRevision](err)
	}
	if s.history == nil {
		return fail[PostRevision](history.ErrNoHistory)
	}
	snapshot, revision, err := s.history.Get(postID, hash)
	if err != nil {
		return fail[PostRevision](err)
	}
	return ok(PostRevision{
		Revision: revision,
		Post:     snapshot,
		Changes:  history.Changes(snapshot, postSnapshot(current)),
	})
}

// RestorePostRevision writes a stored snapshot back onto the post.
func (s *Service) RestorePostRevision(ctx context.Context, postID, hash string) Result[store.Post] {
	if s.history == nil {
		return fail[store.Post](history.ErrNoHistory)
	}
	snapshot, _, err := s.history.Get(postID, hash)
	if err != nil {
		return fail[store.Post](err)
	}
	return s.posts.update(ctx, postID, changeRestore, func(p *store.Post) error {
		p.Title = snapshot.Title
		p.Slug = snapshot.Slug
		p.Excerpt = snapshot.Excerpt
		p.Content = snapshot.Content
		p.CoverImage = snapshot.CoverImage
		p.Tags = store.StringList(snapshot.Tags)
		return nil
	})
}

func (s *Service) PostTags(ctx context.Context) Result[[]store.TagCount] {
	tags, err := s.store.ListPostTags(ctx)
	if err != nil {
		return fail[[]store.TagCount](err)
	}
	return ok(tags)
}

// Testimonials

type TestimonialSubmission struct {
	Name      string `json:"name"`
	Role      string `json:"role"`
	Company   string `json:"company"`
	Content   string `json:"content"`
	AvatarURL string `json:"avatarUrl"`
	Rating    int    `json:"rating"`
}

// SubmitTestimonial stores a public submission hidden until reviewed and
// notifies the owner.
func (s *Service) SubmitTestimonial(ctx context.Context, in TestimonialSubmission) Result[store.Testimonial] {
	if in.Rating == 0 {
		in.Rating = 5
	}
	result := s.testimonials.Create(ctx, store.Testimonial{
		Name:      in.Name,
		Role:      in.Role,
		Company:   in.Company,
		Content:   in.Content,
		AvatarURL: in.AvatarURL,
		Rating:    in.Rating,
	})
	if !result.Success {
		return result
	}
	t := result.Data
	if s.email != nil && s.email.CanNotify() {
		s.background("notify testimonial", func(context.Context) error {
			return s.email.NotifyTestimonial(email.TestimonialData{
				Name:    t.Name,
				Role:    t.Role,
				Company: t.Company,
				Rating:  t.Rating,
				Content: t.Content,
			})
		})
	}
	return result
}
