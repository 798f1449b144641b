package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"portfolio/api/internal/authpw"
	"portfolio/api/internal/config"
	"portfolio/api/internal/store"
)

// memRepo is an in-memory repository[T] keyed by Base.ID.
type memRepo[T any, P store.Row[T]] struct {
	mu   sync.Mutex
	rows []T
}

func newMemRepo[T any, P store.Row[T]]() *memRepo[T, P] {
	return &memRepo[T, P]{}
}

func (m *memRepo[T, P]) index(id string) int {
	for i := range m.rows {
		if P(&m.rows[i]).Meta().ID == id {
			return i
		}
	}
	return -1
}

func (m *memRepo[T, P]) List(_ context.Context, filter store.ListFilter) ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]T, 0, len(m.rows))
	for _, row := range m.rows {
		if filter.Visible != nil && P(&row).Meta().Visible != *filter.Visible {
			continue
		}
		if filter.Featured != nil && boolField(row, "Featured") != *filter.Featured {
			continue
		}
		out = append(out, row)
	}
	if filter.Offset != nil && *filter.Offset > 0 {
		if *filter.Offset >= len(out) {
			return []T{}, nil
		}
		out = out[*filter.Offset:]
	}
	if filter.Limit != nil && *filter.Limit >= 0 && *filter.Limit < len(out) {
		out = out[:*filter.Limit]
	}
	return out, nil
}

func (m *memRepo[T, P]) Get(_ context.Context, id string) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.index(id); i >= 0 {
		return m.rows[i], nil
	}
	var zero T
	return zero, fmt.Errorf("get: %w", store.ErrNotFound)
}

func (m *memRepo[T, P]) GetBySlug(_ context.Context, slug string) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if stringField(row, "Slug") == slug {
			return row, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("get by slug: %w", store.ErrNotFound)
}

func (m *memRepo[T, P]) Insert(_ context.Context, item T) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slug := stringField(item, "Slug"); slug != "" {
		for _, row := range m.rows {
			if stringField(row, "Slug") == slug {
				var zero T
				return zero, fmt.Errorf("insert: %w: slug", store.ErrConflict)
			}
		}
	}
	meta := P(&item).Meta()
	meta.CreatedAt = time.Now().UTC()
	meta.UpdatedAt = meta.CreatedAt
	m.rows = append(m.rows, item)
	return item, nil
}

func (m *memRepo[T, P]) Update(_ context.Context, item T) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(P(&item).Meta().ID)
	if i < 0 {
		var zero T
		return zero, fmt.Errorf("update: %w", store.ErrNotFound)
	}
	P(&item).Meta().UpdatedAt = time.Now().UTC()
	m.rows[i] = item
	return item, nil
}

// Patch maps snake_case columns onto the JSON field names of T.
func (m *memRepo[T, P]) Patch(_ context.Context, id string, changes map[string]any) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var zero T
	i := m.index(id)
	if i < 0 {
		return zero, fmt.Errorf("patch: %w", store.ErrNotFound)
	}
	raw, err := json.Marshal(m.rows[i])
	if err != nil {
		return zero, err
	}
	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return zero, err
	}
	for column, value := range changes {
		fields[camelCase(column)] = value
	}
	if raw, err = json.Marshal(fields); err != nil {
		return zero, err
	}
	var updated T
	if err := json.Unmarshal(raw, &updated); err != nil {
		return zero, err
	}
	m.rows[i] = updated
	return updated, nil
}

func (m *memRepo[T, P]) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(id)
	if i < 0 {
		return fmt.Errorf("delete: %w", store.ErrNotFound)
	}
	m.rows = append(m.rows[:i], m.rows[i+1:]...)
	return nil
}

func (m *memRepo[T, P]) ToggleVisible(_ context.Context, id string) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(id)
	if i < 0 {
		var zero T
		return zero, fmt.Errorf("toggle: %w", store.ErrNotFound)
	}
	meta := P(&m.rows[i]).Meta()
	meta.Visible = !meta.Visible
	return m.rows[i], nil
}

func (m *memRepo[T, P]) ToggleFeatured(_ context.Context, id string) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var zero T
	i := m.index(id)
	if i < 0 {
		return zero, fmt.Errorf("toggle: %w", store.ErrNotFound)
	}
	field := reflect.ValueOf(&m.rows[i]).Elem().FieldByName("Featured")
	if !field.IsValid() {
		return zero, fmt.Errorf("no featured column")
	}
	field.SetBool(!field.Bool())
	return m.rows[i], nil
}

func (m *memRepo[T, P]) Reorder(_ context.Context, items []store.OrderItem) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	updated := 0
	for _, item := range items {
		if i := m.index(item.ID); i >= 0 {
			P(&m.rows[i]).Meta().Order = item.Order
			updated++
		}
	}
	return updated, nil
}

func (m *memRepo[T, P]) Count(context.Context) (store.Counts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := store.Counts{Total: len(m.rows)}
	for i := range m.rows {
		if P(&m.rows[i]).Meta().Visible {
			counts.Visible++
		}
	}
	return counts, nil
}

func (m *memRepo[T, P]) add(t *testing.T, item T) T {
	t.Helper()
	meta := P(&item).Meta()
	if meta.ID == "" {
		meta.ID = fmt.Sprintf("row_%d", len(m.rows)+1)
	}
	saved, err := m.Insert(context.Background(), item)
	if err != nil {
		t.Fatalf("seed row: %v", err)
	}
	return saved
}

func boolField(item any, name string) bool {
	field := reflect.ValueOf(item).FieldByName(name)
	return field.IsValid() && field.Kind() == reflect.Bool && field.Bool()
}

func stringField(item any, name string) string {
	field := reflect.ValueOf(item).FieldByName(name)
	if !field.IsValid() || field.Kind() != reflect.String {
		return ""
	}
	return field.String()
}

func camelCase(column string) string {
	parts := strings.Split(column, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}

// fakeStore covers the non-generic store surface: users, sessions, profile,
// translations, chats and contact messages.
type fakeStore struct {
	mu           sync.Mutex
	users        map[string]store.User
	refresh      map[string]string
	revoked      map[string]bool
	profile      store.Profile
	translations []store.Translation
	chats        map[string]store.Chat
	messages     []store.ContactMessage

	pingFn           func(context.Context) error
	deleteIdeaNodeFn func(context.Context, string) error
	ideaSummaryFn    func(context.Context) (store.IdeaSummary, error)
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   map[string]store.User{},
		refresh: map[string]string{},
		revoked: map[string]bool{},
		profile: store.Profile{Socials: map[string]string{}},
		chats:   map[string]store.Chat{},
	}
}

func (f *fakeStore) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

func (f *fakeStore) CountUsers(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users), nil
}

func (f *fakeStore) CreateUser(_ context.Context, user store.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = user
	return nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return store.User{}, store.ErrNotFound
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user, found := f.users[id]; found {
		return user, nil
	}
	return store.User{}, store.ErrNotFound
}

func (f *fakeStore) UpdateUserPassword(_ context.Context, userID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := f.users[userID]
	user.PasswordHash = hash
	f.users[userID] = user
	return nil
}

func (f *fakeStore) TouchUserLogin(context.Context, string) error { return nil }

func (f *fakeStore) SaveRefreshSession(_ context.Context, tokenHash, userID string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refresh[tokenHash] = userID
	return nil
}

func (f *fakeStore) LookupRefreshSession(_ context.Context, tokenHash string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	userID, found := f.refresh[tokenHash]
	if !found {
		return store.User{}, store.ErrNotFound
	}
	return store.User{ID: userID}, nil
}

func (f *fakeStore) RevokeRefreshSession(_ context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.refresh, tokenHash)
	return nil
}

func (f *fakeStore) RevokeUserSessions(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for hash, owner := range f.refresh {
		if owner == userID {
			delete(f.refresh, hash)
		}
	}
	return nil
}

func (f *fakeStore) RevokeAccessToken(_ context.Context, jti string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[jti] = true
	return nil
}

func (f *fakeStore) IsAccessTokenRevoked(_ context.Context, jti string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.revoked[jti], nil
}

func (f *fakeStore) GetProfile(context.Context) (store.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profile, nil
}

func (f *fakeStore) SaveProfile(_ context.Context, profile store.Profile) (store.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile.UpdatedAt = time.Now().UTC()
	f.profile = profile
	return profile, nil
}

func (f *fakeStore) ListTranslations(_ context.Context, filter store.TranslationFilter) ([]store.Translation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]store.Translation, 0)
	for _, item := range f.translations {
		if (filter.EntityType == "" || item.EntityType == filter.EntityType) &&
			(filter.EntityID == "" || item.EntityID == filter.EntityID) &&
			(filter.Locale == "" || item.Locale == filter.Locale) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertTranslation(_ context.Context, item store.Translation) (store.Translation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, existing := range f.translations {
		if existing.EntityType == item.EntityType && existing.EntityID == item.EntityID &&
			existing.Locale == item.Locale && existing.Field == item.Field {
			item.ID = existing.ID
			f.translations[i] = item
			return item, nil
		}
	}
	f.translations = append(f.translations, item)
	return item, nil
}

func (f *fakeStore) DeleteTranslation(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, item := range f.translations {
		if item.ID == id {
			f.translations = append(f.translations[:i], f.translations[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) TranslationsFor(_ context.Context, entityType, locale string, ids []string) (map[string]map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := map[string]bool{}
	for _, id := range ids {
		wanted[id] = true
	}
	out := map[string]map[string]string{}
	for _, item := range f.translations {
		if item.EntityType != entityType || item.Locale != locale || !wanted[item.EntityID] {
			continue
		}
		if out[item.EntityID] == nil {
			out[item.EntityID] = map[string]string{}
		}
		out[item.EntityID][item.Field] = item.Value
	}
	return out, nil
}

func (f *fakeStore) DeleteIdeaNode(ctx context.Context, id string) error {
	if f.deleteIdeaNodeFn != nil {
		return f.deleteIdeaNodeFn(ctx, id)
	}
	return store.ErrNotFound
}

func (f *fakeStore) IdeaSummary(ctx context.Context) (store.IdeaSummary, error) {
	if f.ideaSummaryFn != nil {
		return f.ideaSummaryFn(ctx)
	}
	return store.IdeaSummary{}, nil
}

func (f *fakeStore) ListPostTags(context.Context) ([]store.TagCount, error) {
	return []store.TagCount{}, nil
}

func (f *fakeStore) ListChats(_ context.Context, userID string) ([]store.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]store.Chat, 0)
	for _, chat := range f.chats {
		if chat.UserID == userID {
			out = append(out, chat)
		}
	}
	return out, nil
}

func (f *fakeStore) GetChat(_ context.Context, userID, chatID string) (store.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	chat, found := f.chats[chatID]
	if !found || chat.UserID != userID {
		return store.Chat{}, store.ErrNotFound
	}
	return chat, nil
}

func (f *fakeStore) SaveChat(_ context.Context, chat store.Chat) (store.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	if existing, found := f.chats[chat.ID]; found {
		chat.CreatedAt = existing.CreatedAt
	} else {
		chat.CreatedAt = now
	}
	chat.UpdatedAt = now
	f.chats[chat.ID] = chat
	return chat, nil
}

func (f *fakeStore) DeleteChat(_ context.Context, userID, chatID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	chat, found := f.chats[chatID]
	if !found || chat.UserID != userID {
		return store.ErrNotFound
	}
	delete(f.chats, chatID)
	return nil
}

func (f *fakeStore) InsertContactMessage(_ context.Context, message store.ContactMessage) (store.ContactMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	message.CreatedAt = time.Now().UTC()
	f.messages = append(f.messages, message)
	return message, nil
}

func (f *fakeStore) ListContactMessages(_ context.Context, unreadOnly bool, limit, offset int) ([]store.ContactMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]store.ContactMessage, 0)
	for i := len(f.messages) - 1; i >= 0; i-- {
		if unreadOnly && f.messages[i].ReadAt != nil {
			continue
		}
		out = append(out, f.messages[i])
	}
	offset = min(max(offset, 0), len(out))
	out = out[offset:]
	if limit >= 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) MarkContactMessageRead(_ context.Context, id string) (store.ContactMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, message := range f.messages {
		if message.ID == id {
			if message.ReadAt == nil {
				now := time.Now().UTC()
				f.messages[i].ReadAt = &now
			}
			return f.messages[i], nil
		}
	}
	return store.ContactMessage{}, store.ErrNotFound
}

func (f *fakeStore) DeleteContactMessage(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, message := range f.messages {
		if message.ID == id {
			f.messages = append(f.messages[:i], f.messages[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) CountUnreadMessages(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	unread := 0
	for _, message := range f.messages {
		if message.ReadAt == nil {
			unread++
		}
	}
	return unread, nil
}

// testEnv wires a Service over in-memory repositories.
type testEnv struct {
	svc          *Service
	store        *fakeStore
	categories   *memRepo[store.Category, *store.Category]
	projects     *memRepo[store.Project, *store.Project]
	posts        *memRepo[store.Post, *store.Post]
	testimonials *memRepo[store.Testimonial, *store.Testimonial]
	ideas        *memRepo[store.IdeaNode, *store.IdeaNode]
	handler      http.Handler
}

const (
	testEmail    = "ada@example.com"
	testPassword = "correct-horse"
)

func testConfig() config.Config {
	return config.Config{
		JWTSecret:        "test-secret",
		AccessTTL:        time.Hour,
		RefreshTTL:       24 * time.Hour,
		CORSOrigins:      []string{"*"},
		DefaultLocale:    "en",
		SupportedLocales: []string{"en", "de"},
	}
}

func newTestEnv(t *testing.T, configure ...func(*Deps)) *testEnv {
	t.Helper()
	fs := newFakeStore()
	env := &testEnv{
		store:        fs,
		categories:   newMemRepo[store.Category](),
		projects:     newMemRepo[store.Project](),
		posts:        newMemRepo[store.Post](),
		testimonials: newMemRepo[store.Testimonial](),
		ideas:        newMemRepo[store.IdeaNode](),
	}
	fs.deleteIdeaNodeFn = func(ctx context.Context, id string) error {
		if err := env.ideas.Delete(ctx, id); err != nil {
			return err
		}
		env.ideas.mu.Lock()
		defer env.ideas.mu.Unlock()
		for i := range env.ideas.rows {
			env.ideas.rows[i].Connections = env.ideas.rows[i].Connections.Without(id)
		}
		return nil
	}

	fs.ideaSummaryFn = func(context.Context) (store.IdeaSummary, error) {
		env.ideas.mu.Lock()
		defer env.ideas.mu.Unlock()
		var summary store.IdeaSummary
		for _, node := range env.ideas.rows {
			summary.Nodes++
			summary.Connections += len(node.Connections)
			summary.EstimatedValue = summary.EstimatedValue.Add(node.EstimatedValue)
			if node.Visible {
				summary.VisibleNodes++
				summary.VisibleValue = summary.VisibleValue.Add(node.EstimatedValue)
			}
		}
		return summary, nil
	}

	passwords := authpw.NewService(fs).WithCost(bcrypt.MinCost)
	if _, err := passwords.CreateUser(context.Background(), authpw.CreateUserRequest{
		Email: testEmail, Password: testPassword, Name: "Ada",
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	deps := Deps{
		Config: testConfig(),
		Store:  fs,
		Repos: Repositories{
			Categories:   env.categories,
			Projects:     env.projects,
			Posts:        env.posts,
			Testimonials: env.testimonials,
			Experiences:  newMemRepo[store.Experience](),
			Education:    newMemRepo[store.Education](),
			Skills:       newMemRepo[store.Skill](),
			IdeaNodes:    env.ideas,
		},
		Passwords: passwords,
	}
	for _, fn := range configure {
		fn(&deps)
	}
	env.svc = New(deps)
	env.handler = NewHTTPServer(env.svc).Handler()
	return env
}

// token signs in the seeded admin and returns an access token.
func (e *testEnv) token(t *testing.T) string {
	t.Helper()
	session, err := e.svc.Login(context.Background(), testEmail, testPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return session.Token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch value := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(value))
	default:
		raw, err := json.Marshal(value)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details map[string]string `json:"details"`
}

func decodeEnvelope[T any](t *testing.T, rr *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var out envelope[T]
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("parse response: %v body=%s", err, rr.Body.String())
	}
	return out
}
