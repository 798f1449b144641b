package app

import (
	"context"
	"strings"
	"unicode/utf8"

	"portfolio/api/internal/ai"
	"portfolio/api/internal/store"
	"portfolio/api/internal/util"
)

const (
	maxChatTitle   = 60
	maxChatMessage = 8000
)

type Generated struct {
	Content string `json:"content"`
	Model   string `json:"model"`
}

func (s *Service) Generate(ctx context.Context, req ai.Request) Result[Generated] {
	if req.Locale != "" && !s.cfg.LocaleSupported(req.Locale) {
		return fail[Generated](badRequest("unsupported locale "+req.Locale, nil))
	}
	content, err := s.ai.Generate(ctx, req)
	if err != nil {
		return fail[Generated](err)
	}
	return ok(Generated{Content: content, Model: s.ai.Model()})
}

func (s *Service) Translate(ctx context.Context, text, targetLocale string) Result[Generated] {
	if strings.TrimSpace(targetLocale) == "" {
		return fail[Generated](badRequest("targetLocale is required", nil))
	}
	content, err := s.ai.Translate(ctx, text, targetLocale)
	if err != nil {
		return fail[Generated](err)
	}
	return ok(Generated{Content: content, Model: s.ai.Model()})
}

// Chats are scoped to the signed-in admin.

func (s *Service) ListChats(ctx context.Context, userID string) Result[[]store.Chat] {
	chats, err := s.store.ListChats(ctx, userID)
	if err != nil {
		return fail[[]store.Chat](err)
	}
	return ok(chats)
}

func (s *Service) CreateChat(ctx context.Context, userID, title string) Result[store.Chat] {
	title = sanitizePlain(title)
	if title == "" {
		title = "New chat"
	}
	chat, err := s.store.SaveChat(ctx, store.Chat{
		ID:       util.NewID("chat"),
		UserID:   userID,
		Title:    truncateRunes(title, maxChatTitle),
		Model:    s.ai.Model(),
		Messages: []store.ChatMessage{},
	})
	if err != nil {
		return fail[store.Chat](err)
	}
	return ok(chat)
}

func (s *Service) GetChat(ctx context.Context, userID, chatID string) Result[store.Chat] {
	chat, err := s.store.GetChat(ctx, userID, chatID)
	if err != nil {
		return fail[store.Chat](err)
	}
	return ok(chat)
}

func (s *Service) DeleteChat(ctx context.Context, userID, chatID string) Result[deletedRef] {
	if err := s.store.DeleteChat(ctx, userID, chatID); err != nil {
		return fail[deletedRef](err)
	}
	return ok(deletedRef{ID: chatID})
}

// SendChatMessage appends the user's message, asks the model for a reply
// over the whole transcript and stores both. Nothing is stored when the
// model call fails.
func (s *Service) SendChatMessage(ctx context.Context, userID, chatID, content string) Result[store.Chat] {
	content = strings.TrimSpace(content)
	if content == "" {
		return fail[store.Chat](badRequest("content is required", map[string]string{"content": "content is required"}))
	}
	if utf8.RuneCountInString(content) > maxChatMessage {
		return fail[store.Chat](badRequest("content is too long", map[string]string{"content": "content must be at most 8000 characters"}))
	}
	if !s.ai.Available() {
		return fail[store.Chat](ai.ErrUnavailable)
	}
	chat, err := s.store.GetChat(ctx, userID, chatID)
	if err != nil {
		return fail[store.Chat](err)
	}

	chat.Messages = append(chat.Messages, store.ChatMessage{Role: string(ai.RoleUser), Content: content, CreatedAt: s.now().UTC()})
	reply, err := s.ai.Reply(ctx, chat.Messages)
	if err != nil {
		return fail[store.Chat](err)
	}
	chat.Messages = append(chat.Messages, store.ChatMessage{Role: string(ai.RoleAssistant), Content: reply, CreatedAt: s.now().UTC()})
	if len(chat.Messages) == 2 && chat.Title == "New chat" {
		chat.Title = truncateRunes(content, maxChatTitle)
	}
	chat.Model = s.ai.Model()

	saved, err := s.store.SaveChat(ctx, chat)
	if err != nil {
		return fail[store.Chat](err)
	}
	return ok(saved)
}

func truncateRunes(value string, limit int) string {
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	runes := []rune(value)
	return strings.TrimSpace(string(runes[:limit]))
}
