package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type PostgresStore struct {
	db *sql.DB

	Categories   *Repo[Category, *Category]
	Projects     *Repo[Project, *Project]
	Posts        *Repo[Post, *Post]
	Testimonials *Repo[Testimonial, *Testimonial]
	Experiences  *Repo[Experience, *Experience]
	Education    *Repo[Education, *Education]
	Skills       *Repo[Skill, *Skill]
	IdeaNodes    *Repo[IdeaNode, *IdeaNode]
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:           db,
		Categories:   NewRepo[Category](db, CategorySchema),
		Projects:     NewRepo[Project](db, ProjectSchema),
		Posts:        NewRepo[Post](db, PostSchema),
		Testimonials: NewRepo[Testimonial](db, TestimonialSchema),
		Experiences:  NewRepo[Experience](db, ExperienceSchema),
		Education:    NewRepo[Education](db, EducationSchema),
		Skills:       NewRepo[Skill](db, SkillSchema),
		IdeaNodes:    NewRepo[IdeaNode](db, IdeaNodeSchema),
	}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Users

func (s *PostgresStore) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash)
		VALUES ($1, LOWER($2), $3, $4)
	`, user.ID, user.Email, user.Name, user.PasswordHash)
	return translate("create user", err)
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.getUser(ctx, `WHERE email = LOWER($1)`, email)
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (User, error) {
	return s.getUser(ctx, `WHERE id = $1`, id)
}

func (s *PostgresStore) getUser(ctx context.Context, where string, arg string) (User, error) {
	var user User
	var lastLogin sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, password_hash, last_login_at, created_at, updated_at
		FROM users `+where, arg).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&lastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return User{}, translate("get user", err)
	}
	if lastLogin.Valid {
		user.LastLoginAt = &lastLogin.Time
	}
	return user, nil
}

func (s *PostgresStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id=$1`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return fmt.Errorf("update password: %w", ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) TouchUserLogin(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE users SET last_login_at=NOW() WHERE id=$1`, userID); err != nil {
		return fmt.Errorf("touch login: %w", err)
	}
	return nil
}

// Sessions

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

// RevokeUserSessions ends every live refresh session of userID.
func (s *PostgresStore) RevokeUserSessions(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE user_id=$1 AND revoked_at IS NULL`, userID)
	if err != nil {
		return fmt.Errorf("revoke user sessions: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	var userID string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id
		FROM refresh_sessions
		WHERE token_hash = $1
			AND revoked_at IS NULL
			AND expires_at > NOW()
	`, tokenHash).Scan(&userID)
	if err != nil {
		return User{}, translate("lookup refresh session", err)
	}
	return s.GetUserByID(ctx, userID)
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1 AND expires_at > NOW())`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

// Profile

func (s *PostgresStore) GetProfile(ctx context.Context) (Profile, error) {
	var profile Profile
	var socials []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT name, headline, bio, avatar_url, email, location, resume_url, socials, updated_at
		FROM profile
		WHERE id='main'
	`).Scan(
		&profile.Name,
		&profile.Headline,
		&profile.Bio,
		&profile.AvatarURL,
		&profile.Email,
		&profile.Location,
		&profile.ResumeURL,
		&socials,
		&profile.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{Socials: map[string]string{}}, nil
	}
	if err != nil {
		return Profile{}, fmt.Errorf("get profile: %w", err)
	}
	profile.Socials = map[string]string{}
	if err := scanJSON(socials, &profile.Socials); err != nil {
		return Profile{}, fmt.Errorf("decode socials: %w", err)
	}
	return profile, nil
}

func (s *PostgresStore) SaveProfile(ctx context.Context, profile Profile) (Profile, error) {
	if profile.Socials == nil {
		profile.Socials = map[string]string{}
	}
	socials, err := json.Marshal(profile.Socials)
	if err != nil {
		return Profile{}, fmt.Errorf("encode socials: %w", err)
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO profile (id, name, headline, bio, avatar_url, email, location, resume_url, socials, updated_at)
		VALUES ('main', $1, $2, $3, $4, $5, $6, $7, $8::jsonb, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name=EXCLUDED.name, headline=EXCLUDED.headline, bio=EXCLUDED.bio, avatar_url=EXCLUDED.avatar_url,
			email=EXCLUDED.email, location=EXCLUDED.location, resume_url=EXCLUDED.resume_url,
			socials=EXCLUDED.socials, updated_at=NOW()
		RETURNING updated_at
	`, profile.Name, profile.Headline, profile.Bio, profile.AvatarURL, profile.Email, profile.Location,
		profile.ResumeURL, string(socials)).Scan(&profile.UpdatedAt)
	if err != nil {
		return Profile{}, fmt.Errorf("save profile: %w", err)
	}
	return profile, nil
}

// Translations

type TranslationFilter struct {
	EntityType string
	EntityID   string
	Locale     string
}

func (s *PostgresStore) ListTranslations(ctx context.Context, filter TranslationFilter) ([]Translation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_type, entity_id, locale, field, value, created_at, updated_at
		FROM translations
		WHERE ($1 = '' OR entity_type = $1)
			AND ($2 = '' OR entity_id = $2)
			AND ($3 = '' OR locale = $3)
		ORDER BY entity_type, entity_id, locale, field
	`, filter.EntityType, filter.EntityID, filter.Locale)
	if err != nil {
		return nil, fmt.Errorf("list translations: %w", err)
	}
	defer rows.Close()

	items := make([]Translation, 0)
	for rows.Next() {
		var item Translation
		if err := rows.Scan(&item.ID, &item.EntityType, &item.EntityID, &item.Locale, &item.Field, &item.Value,
			&item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan translation: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate translations: %w", err)
	}
	return items, nil
}

// UpsertTranslation inserts or replaces the value for the
// (entity type, entity id, locale, field) key. item.ID is used only on insert.
func (s *PostgresStore) UpsertTranslation(ctx context.Context, item Translation) (Translation, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO translations (id, entity_type, entity_id, locale, field, value)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (entity_type, entity_id, locale, field) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()
		RETURNING id, created_at, updated_at
	`, item.ID, item.EntityType, item.EntityID, item.Locale, item.Field, item.Value).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Translation{}, fmt.Errorf("upsert translation: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) DeleteTranslation(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM translations WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete translation: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return fmt.Errorf("delete translation: %w", ErrNotFound)
	}
	return nil
}

// TranslationsFor returns field values keyed by entity id then field name.
func (s *PostgresStore) TranslationsFor(ctx context.Context, entityType, locale string, ids []string) (map[string]map[string]string, error) {
	out := make(map[string]map[string]string)
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT entity_id, field, value
		FROM translations
		WHERE entity_type = $1
			AND locale = $2
			AND entity_id IN (SELECT jsonb_array_elements_text($3::jsonb))
	`, entityType, locale, StringList(ids))
	if err != nil {
		return nil, fmt.Errorf("load translations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entityID, field, value string
		if err := rows.Scan(&entityID, &field, &value); err != nil {
			return nil, fmt.Errorf("scan translation: %w", err)
		}
		if out[entityID] == nil {
			out[entityID] = make(map[string]string)
		}
		out[entityID][field] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate translations: %w", err)
	}
	return out, nil
}

// Idea canvas

// DeleteIdeaNode removes the node and strips its id from every sibling's
// connections in one transaction.
func (s *PostgresStore) DeleteIdeaNode(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete idea node: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `DELETE FROM idea_nodes WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete idea node: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return fmt.Errorf("delete idea node: %w", ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE idea_nodes
		SET connections = connections - $1::text, updated_at=NOW()
		WHERE connections @> jsonb_build_array($1::text)
	`, id); err != nil {
		return fmt.Errorf("detach idea node: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete idea node: %w", err)
	}
	return nil
}

type IdeaSummary struct {
	Nodes          int             `json:"nodes"`
	VisibleNodes   int             `json:"visibleNodes"`
	Connections    int             `json:"connections"`
	EstimatedValue decimal.Decimal `json:"estimatedValue"`
	VisibleValue   decimal.Decimal `json:"visibleValue"`
}

func (s *PostgresStore) IdeaSummary(ctx context.Context) (IdeaSummary, error) {
	var summary IdeaSummary
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE visible),
			COALESCE(SUM(jsonb_array_length(connections)), 0),
			COALESCE(SUM(estimated_value), 0),
			COALESCE(SUM(estimated_value) FILTER (WHERE visible), 0)
		FROM idea_nodes
	`).Scan(&summary.Nodes, &summary.VisibleNodes, &summary.Connections, &summary.EstimatedValue, &summary.VisibleValue)
	if err != nil {
		return IdeaSummary{}, fmt.Errorf("idea summary: %w", err)
	}
	return summary, nil
}

// Blog tags

type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

func (s *PostgresStore) ListPostTags(ctx context.Context) ([]TagCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tag, COUNT(*) AS uses
		FROM posts, jsonb_array_elements_text(posts.tags) AS tag
		WHERE posts.visible
		GROUP BY tag
		ORDER BY uses DESC, tag ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	items := make([]TagCount, 0)
	for rows.Next() {
		var item TagCount
		if err := rows.Scan(&item.Tag, &item.Count); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}
	return items, nil
}

// AI chats

func (s *PostgresStore) ListChats(ctx context.Context, userID string) ([]Chat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, model, messages, created_at, updated_at
		FROM ai_chats
		WHERE user_id=$1
		ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	items := make([]Chat, 0)
	for rows.Next() {
		item, err := scanChat(rows.Scan)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chats: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetChat(ctx context.Context, userID, chatID string) (Chat, error) {
	chat, err := scanChat(s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, model, messages, created_at, updated_at
		FROM ai_chats
		WHERE id=$1 AND user_id=$2
	`, chatID, userID).Scan)
	if err != nil {
		return Chat{}, translate("get chat", err)
	}
	return chat, nil
}

// SaveChat upserts the whole transcript.
func (s *PostgresStore) SaveChat(ctx context.Context, chat Chat) (Chat, error) {
	if chat.Messages == nil {
		chat.Messages = []ChatMessage{}
	}
	messages, err := json.Marshal(chat.Messages)
	if err != nil {
		return Chat{}, fmt.Errorf("encode chat messages: %w", err)
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO ai_chats (id, user_id, title, model, messages)
		VALUES ($1, $2, $3, $4, $5::jsonb)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, model=EXCLUDED.model,
			messages=EXCLUDED.messages, updated_at=NOW()
		RETURNING created_at, updated_at
	`, chat.ID, chat.UserID, chat.Title, chat.Model, string(messages)).Scan(&chat.CreatedAt, &chat.UpdatedAt)
	if err != nil {
		return Chat{}, translate("save chat", err)
	}
	return chat, nil
}

func (s *PostgresStore) DeleteChat(ctx context.Context, userID, chatID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM ai_chats WHERE id=$1 AND user_id=$2`, chatID, userID)
	if err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return fmt.Errorf("delete chat: %w", ErrNotFound)
	}
	return nil
}

func scanChat(scan func(dest ...any) error) (Chat, error) {
	var chat Chat
	var messages []byte
	if err := scan(&chat.ID, &chat.UserID, &chat.Title, &chat.Model, &messages, &chat.CreatedAt, &chat.UpdatedAt); err != nil {
		return Chat{}, err
	}
	chat.Messages = []ChatMessage{}
	if err := scanJSON(messages, &chat.Messages); err != nil {
		return Chat{}, fmt.Errorf("decode chat messages: %w", err)
	}
	return chat, nil
}

// Contact messages

func (s *PostgresStore) InsertContactMessage(ctx context.Context, message ContactMessage) (ContactMessage, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO contact_messages (id, name, email, subject, message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, message.ID, message.Name, message.Email, message.Subject, message.Message).Scan(&message.CreatedAt)
	if err != nil {
		return ContactMessage{}, fmt.Errorf("insert contact message: %w", err)
	}
	return message, nil
}

// ListContactMessages returns at most limit messages; a negative limit
// means no limit.
func (s *PostgresStore) ListContactMessages(ctx context.Context, unreadOnly bool, limit, offset int) ([]ContactMessage, error) {
	var pageLimit *int
	if limit >= 0 {
		pageLimit = &limit
	}
	offset = max(offset, 0)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, subject, message, read_at, created_at
		FROM contact_messages
		WHERE NOT $1 OR read_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, unreadOnly, pageLimit, offset)
	if err != nil {
		return nil, fmt.Errorf("list contact messages: %w", err)
	}
	defer rows.Close()

	items := make([]ContactMessage, 0)
	for rows.Next() {
		var item ContactMessage
		var readAt sql.NullTime
		if err := rows.Scan(&item.ID, &item.Name, &item.Email, &item.Subject, &item.Message, &readAt, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan contact message: %w", err)
		}
		if readAt.Valid {
			item.ReadAt = &readAt.Time
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contact messages: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) MarkContactMessageRead(ctx context.Context, id string) (ContactMessage, error) {
	var item ContactMessage
	var readAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		UPDATE contact_messages SET read_at = COALESCE(read_at, NOW())
		WHERE id=$1
		RETURNING id, name, email, subject, message, read_at, created_at
	`, id).Scan(&item.ID, &item.Name, &item.Email, &item.Subject, &item.Message, &readAt, &item.CreatedAt)
	if err != nil {
		return ContactMessage{}, translate("mark message read", err)
	}
	if readAt.Valid {
		item.ReadAt = &readAt.Time
	}
	return item, nil
}

func (s *PostgresStore) DeleteContactMessage(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM contact_messages WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete contact message: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return fmt.Errorf("delete contact message: %w", ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) CountUnreadMessages(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contact_messages WHERE read_at IS NULL`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread messages: %w", err)
	}
	return count, nil
}
