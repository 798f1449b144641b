// Package ai generates and rewrites portfolio content through a language model.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnavailable = errors.New("ai provider not configured")
	ErrInvalidKind = errors.New("invalid generation kind")
	ErrEmptyInput  = errors.New("nothing to generate from")
	ErrEmptyOutput = errors.New("model returned no content")
)

type Kind string

const (
	KindBlogPost           Kind = "blog-post"
	KindProjectDescription Kind = "project-description"
	KindExcerpt            Kind = "excerpt"
	KindSEO                Kind = "seo"
	KindImprove            Kind = "improve"
	KindTranslate          Kind = "translate"
)

var allKinds = []Kind{KindBlogPost, KindProjectDescription, KindExcerpt, KindSEO, KindImprove, KindTranslate}

func ParseKind(value string) (Kind, error) {
	candidate := Kind(strings.ToLower(strings.TrimSpace(value)))
	for _, kind := range allKinds {
		if kind == candidate {
			return kind, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, value)
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// Generator is a text model. System carries standing instructions; messages
// hold the conversation in order, ending with the user's turn.
type Generator interface {
	Generate(ctx context.Context, system string, messages []Message) (string, error)
	Model() string
}

type Request struct {
	Kind    Kind   `json:"kind"`
	Topic   string `json:"topic"`
	Context string `json:"context"`
	Tone    string `json:"tone"`
	Locale  string `json:"locale"`
}
