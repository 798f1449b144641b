package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio/api/internal/store"
)

type fakeGenerator struct {
	generateFn func(ctx context.Context, system string, messages []Message) (string, error)
	system     string
	messages   []Message
}

func (f *fakeGenerator) Generate(ctx context.Context, system string, messages []Message) (string, error) {
	f.system = system
	f.messages = messages
	if f.generateFn != nil {
		return f.generateFn(ctx, system, messages)
	}
	return "generated", nil
}

func (f *fakeGenerator) Model() string { return "fake-model" }

type recordedOutcome struct{ kind, outcome string }

func TestParseKind(t *testing.T) {
	kind, err := ParseKind(" Blog-Post ")
	require.NoError(t, err)
	assert.Equal(t, KindBlogPost, kind)

	_, err = ParseKind("poem")
	assert.ErrorIs(t, err, ErrInvalidKind)
}

func TestGenerateBuildsPromptAndObserves(t *testing.T) {
	gen := &fakeGenerator{}
	var outcomes []recordedOutcome
	svc := NewService(gen, func(kind, outcome string) { outcomes = append(outcomes, recordedOutcome{kind, outcome}) })

	out, err := svc.Generate(context.Background(), Request{Kind: KindExcerpt, Topic: "Go generics", Tone: "casual", Context: "Body text"})
	require.NoError(t, err)
	assert.Equal(t, "generated", out)

	assert.Contains(t, gen.system, "excerpt")
	require.Len(t, gen.messages, 1)
	assert.Equal(t, RoleUser, gen.messages[0].Role)
	assert.Contains(t, gen.messages[0].Content, "Topic: Go generics")
	assert.Contains(t, gen.messages[0].Content, "Tone: casual")
	assert.Contains(t, gen.messages[0].Content, "Body text")
	assert.Equal(t, []recordedOutcome{{"excerpt", "ok"}}, outcomes)
}

func TestGenerateErrors(t *testing.T) {
	_, err := NewService(nil, nil).Generate(context.Background(), Request{Kind: KindSEO, Topic: "x"})
	assert.ErrorIs(t, err, ErrUnavailable)

	svc := NewService(&fakeGenerator{}, nil)
	_, err = svc.Generate(context.Background(), Request{Kind: "poem", Topic: "x"})
	assert.ErrorIs(t, err, ErrInvalidKind)

	_, err = svc.Generate(context.Background(), Request{Kind: KindSEO})
	assert.ErrorIs(t, err, ErrEmptyInput)

	var outcomes []string
	failing := NewService(&fakeGenerator{generateFn: func(context.Context, string, []Message) (string, error) {
		return "", errors.New("quota exceeded")
	}}, func(_, outcome string) { outcomes = append(outcomes, outcome) })
	_, err = failing.Generate(context.Background(), Request{Kind: KindSEO, Topic: "x"})
	assert.EqualError(t, err, "quota exceeded")
	assert.Equal(t, []string{"error"}, outcomes)
}

func TestTranslateUsesTargetLanguage(t *testing.T) {
	gen := &fakeGenerator{}
	_, err := NewService(gen, nil).Translate(context.Background(), "Hello", "pt-BR")
	require.NoError(t, err)
	assert.Contains(t, gen.messages[0].Content, "Target language: pt-BR")
	assert.Contains(t, gen.system, "Translate")
}

func TestReplyMapsTranscriptRoles(t *testing.T) {
	gen := &fakeGenerator{}
	svc := NewService(gen, nil)
	transcript := []store.ChatMessage{
		{Role: "user", Content: "Draft an intro"},
		{Role: "assistant", Content: "Here it is"},
		{Role: "user", Content: "Shorter please"},
	}
	_, err := svc.Reply(context.Background(), transcript)
	require.NoError(t, err)
	require.Len(t, gen.messages, 3)
	assert.Equal(t, RoleAssistant, gen.messages[1].Role)
	assert.Equal(t, ChatSystemPrompt, gen.system)

	_, err = svc.Reply(context.Background(), transcript[:2])
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestTruncateKeepsRunesIntact(t *testing.T) {
	s := strings.Repeat("é", 10)
	out := truncate(s, 5)
	assert.Equal(t, "éé", out)
	assert.Equal(t, "abc", truncate("abc", 10))
}

func TestGenerateNormalisesKind(t *testing.T) {
	gen := &fakeGenerator{}
	var outcomes []recordedOutcome
	svc := NewService(gen, func(kind, outcome string) { outcomes = append(outcomes, recordedOutcome{kind, outcome}) })

	_, err := svc.Generate(context.Background(), Request{Kind: "Translate", Context: "hola", Locale: "en"})
	require.NoError(t, err)

	assert.Equal(t, SystemPrompt(KindTranslate), gen.system)
	require.Len(t, gen.messages, 1)
	assert.Contains(t, gen.messages[0].Content, "Target language: en")
	assert.Equal(t, []recordedOutcome{{"translate", "ok"}}, outcomes)
}
