package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"portfolio/api/internal/ai"
	"portfolio/api/internal/authpw"
	"portfolio/api/internal/config"
	"portfolio/api/internal/email"
	"portfolio/api/internal/export"
	"portfolio/api/internal/history"
	"portfolio/api/internal/search"
	"portfolio/api/internal/store"
	"portfolio/api/internal/uploads"
)

// repository is the table access every managed content type shares.
// *store.Repo satisfies it.
type repository[T any] interface {
	List(ctx context.Context, filter store.ListFilter) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	GetBySlug(ctx context.Context, slug string) (T, error)
	Insert(ctx context.Context, item T) (T, error)
	Update(ctx context.Context, item T) (T, error)
	Patch(ctx context.Context, id string, changes map[string]any) (T, error)
	Delete(ctx context.Context, id string) error
	ToggleVisible(ctx context.Context, id string) (T, error)
	ToggleFeatured(ctx context.Context, id string) (T, error)
	Reorder(ctx context.Context, items []store.OrderItem) (int, error)
	Count(ctx context.Context) (store.Counts, error)
}

type contentStore interface {
	Ping(ctx context.Context) error
	GetUserByID(ctx context.Context, id string) (store.User, error)
	GetProfile(ctx context.Context) (store.Profile, error)
	SaveProfile(ctx context.Context, profile store.Profile) (store.Profile, error)
	ListTranslations(ctx context.Context, filter store.TranslationFilter) ([]store.Translation, error)
	UpsertTranslation(ctx context.Context, item store.Translation) (store.Translation, error)
	DeleteTranslation(ctx context.Context, id string) error
	TranslationsFor(ctx context.Context, entityType, locale string, ids []string) (map[string]map[string]string, error)
	DeleteIdeaNode(ctx context.Context, id string) error
	IdeaSummary(ctx context.Context) (store.IdeaSummary, error)
	ListPostTags(ctx context.Context) ([]store.TagCount, error)
	ListChats(ctx context.Context, userID string) ([]store.Chat, error)
	GetChat(ctx context.Context, userID, chatID string) (store.Chat, error)
	SaveChat(ctx context.Context, chat store.Chat) (store.Chat, error)
	DeleteChat(ctx context.Context, userID, chatID string) error
	InsertContactMessage(ctx context.Context, message store.ContactMessage) (store.ContactMessage, error)
	ListContactMessages(ctx context.Context, unreadOnly bool, limit, offset int) ([]store.ContactMessage, error)
	MarkContactMessageRead(ctx context.Context, id string) (store.ContactMessage, error)
	DeleteContactMessage(ctx context.Context, id string) error
	CountUnreadMessages(ctx context.Context) (int, error)
}

// sessionStore keeps refresh sessions and revoked access token ids. Both
// *store.PostgresStore and *session.RedisStore satisfy it.
type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
	RevokeUserSessions(ctx context.Context, userID string) error
	RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error
	IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// Repositories groups the table repositories the service manages.
type Repositories struct {
	Categories   repository[store.Category]
	Projects     repository[store.Project]
	Posts        repository[store.Post]
	Testimonials repository[store.Testimonial]
	Experiences  repository[store.Experience]
	Education    repository[store.Education]
	Skills       repository[store.Skill]
	IdeaNodes    repository[store.IdeaNode]
}

func RepositoriesFrom(pg *store.PostgresStore) Repositories {
	return Repositories{
		Categories:   pg.Categories,
		Projects:     pg.Projects,
		Posts:        pg.Posts,
		Testimonials: pg.Testimonials,
		Experiences:  pg.Experiences,
		Education:    pg.Education,
		Skills:       pg.Skills,
		IdeaNodes:    pg.IdeaNodes,
	}
}

// Deps wires the service. Optional collaborators may be nil: search,
// history, uploads and email then degrade to no-ops or 503 responses.
type Deps struct {
	Config    config.Config
	Store     contentStore
	Sessions  sessionStore
	Repos     Repositories
	Passwords *authpw.Service
	Search    *search.Service
	History   *history.Service
	Export    *export.Service
	AI        *ai.Service
	Uploads   *uploads.Service
	Email     *email.Service
	Log       *zap.Logger
}

type Service struct {
	cfg       config.Config
	store     contentStore
	sessions  sessionStore
	passwords *authpw.Service
	search    *search.Service
	history   *history.Service
	exporter  *export.Service
	ai        *ai.Service
	uploads   *uploads.Service
	email     *email.Service
	log       *zap.Logger
	i18n      *localizer
	now       func() time.Time

	categories   *Resource[store.Category, *store.Category]
	projects     *Resource[store.Project, *store.Project]
	posts        *Resource[store.Post, *store.Post]
	testimonials *Resource[store.Testimonial, *store.Testimonial]
	experiences  *Resource[store.Experience, *store.Experience]
	education    *Resource[store.Education, *store.Education]
	skills       *Resource[store.Skill, *store.Skill]
	ideaNodes    *Resource[store.IdeaNode, *store.IdeaNode]
}

func New(deps Deps) *Service {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	sessions := deps.Sessions
	if sessions == nil {
		if fallback, ok := deps.Store.(sessionStore); ok {
			sessions = fallback
		}
	}
	exporter := deps.Export
	if exporter == nil {
		exporter = export.NewService()
	}
	assistant := deps.AI
	if assistant == nil {
		assistant = ai.NewService(nil, nil)
	}

	s := &Service{
		cfg:       deps.Config,
		store:     deps.Store,
		sessions:  sessions,
		passwords: deps.Passwords,
		search:    deps.Search,
		history:   deps.History,
		exporter:  exporter,
		ai:        assistant,
		uploads:   deps.Uploads,
		email:     deps.Email,
		log:       log,
		now:       time.Now,
	}
	s.i18n = &localizer{
		source:        deps.Store,
		defaultLocale: deps.Config.DefaultLocale,
	}

	s.categories = newResource[store.Category]("category", "cat", deps.Repos.Categories, s.i18n, resourceHooks[store.Category]{
		prepare: prepareCategory,
	})
	s.projects = newResource[store.Project]("project", "prj", deps.Repos.Projects, s.i18n, resourceHooks[store.Project]{
		prepare: prepareProject,
		saved:   s.projectSaved,
		removed: s.projectRemoved,
	})
	s.posts = newResource[store.Post]("post", "post", deps.Repos.Posts, s.i18n, resourceHooks[store.Post]{
		prepare: s.preparePost,
		saved:   s.postSaved,
		removed: s.postRemoved,
		toggled: s.postToggled,
	})
	s.testimonials = newResource[store.Testimonial]("testimonial", "tst", deps.Repos.Testimonials, s.i18n, resourceHooks[store.Testimonial]{
		prepare: prepareTestimonial,
	})
	s.experiences = newResource[store.Experience]("experience", "exp", deps.Repos.Experiences, s.i18n, resourceHooks[store.Experience]{
		prepare: prepareExperience,
	})
	s.education = newResource[store.Education]("education", "edu", deps.Repos.Education, s.i18n, resourceHooks[store.Education]{
		prepare: prepareEducation,
	})
	s.skills = newResource[store.Skill]("skill", "skl", deps.Repos.Skills, s.i18n, resourceHooks[store.Skill]{
		prepare: prepareSkill,
	})
	s.ideaNodes = newResource[store.IdeaNode]("idea-node", "idea", deps.Repos.IdeaNodes, nil, resourceHooks[store.IdeaNode]{
		prepare: prepareIdeaNode,
		remove:  deps.Store.DeleteIdeaNode,
	})
	return s
}

func (s *Service) Config() config.Config {
	return s.cfg
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// background runs fn detached from the request. Failures are logged at warn.
func (s *Service) background(name string, fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			s.log.Warn("background task failed", zap.String("task", name), zap.Error(err))
		}
	}()
}

type actorKey struct{}

// withActor records the authenticated session on ctx for hooks that need to
// attribute a change.
func withActor(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, actorKey{}, session)
}

func actorFrom(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(actorKey{}).(Session)
	return session, ok
}
