package ai

import (
	"context"
	"strings"

	"portfolio/api/internal/store"
)

// Observer is told the outcome of every generation attempt.
type Observer func(kind, outcome string)

type Service struct {
	gen     Generator
	observe Observer
}

// NewService wraps gen. A nil generator yields a service whose calls all
// return ErrUnavailable.
func NewService(gen Generator, observe Observer) *Service {
	if observe == nil {
		observe = func(string, string) {}
	}
	return &Service{gen: gen, observe: observe}
}

func (s *Service) Available() bool { return s != nil && s.gen != nil }

func (s *Service) Model() string {
	if !s.Available() {
		return ""
	}
	return s.gen.Model()
}

func (s *Service) Generate(ctx context.Context, req Request) (string, error) {
	if !s.Available() {
		return "", ErrUnavailable
	}
	kind, err := ParseKind(string(req.Kind))
	if err != nil {
		return "", err
	}
	req.Kind = kind
	prompt := BuildPrompt(req)
	if strings.TrimSpace(req.Topic) == "" && strings.TrimSpace(req.Context) == "" {
		return "", ErrEmptyInput
	}
	return s.run(ctx, string(req.Kind), SystemPrompt(req.Kind), []Message{{Role: RoleUser, Content: prompt}})
}

func (s *Service) Translate(ctx context.Context, text, targetLocale string) (string, error) {
	return s.Generate(ctx, Request{Kind: KindTranslate, Context: text, Locale: targetLocale})
}

// Reply answers the last user message of a chat transcript.
func (s *Service) Reply(ctx context.Context, transcript []store.ChatMessage) (string, error) {
	if !s.Available() {
		return "", ErrUnavailable
	}
	messages := make([]Message, 0, len(transcript))
	for _, msg := range transcript {
		role := RoleUser
		if msg.Role == string(RoleAssistant) {
			role = RoleAssistant
		}
		messages = append(messages, Message{Role: role, Content: msg.Content})
	}
	if len(messages) == 0 || messages[len(messages)-1].Role != RoleUser {
		return "", ErrEmptyInput
	}
	return s.run(ctx, "chat", ChatSystemPrompt, messages)
}

func (s *Service) run(ctx context.Context, kind, system string, messages []Message) (string, error) {
	out, err := s.gen.Generate(ctx, system, messages)
	if err != nil {
		s.observe(kind, "error")
		return "", err
	}
	s.observe(kind, "ok")
	return out, nil
}
