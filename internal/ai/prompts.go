package ai

import (
	"fmt"
	"strings"
)

// MaxContextLength caps how much source text goes into a single prompt.
const MaxContextLength = 12000

const baseSystemPrompt = `You write for the personal portfolio of a software developer.
Write in a clear, confident, first person voice. Never invent employers, clients, dates or metrics
that are not present in the input. Return only the requested content with no preamble.`

const ChatSystemPrompt = `You are a writing assistant inside the admin panel of a developer portfolio.
Help draft and refine blog posts, project write-ups and profile copy. Answer concisely and use
Markdown when it helps readability.`

var kindInstructions = map[Kind]string{
	KindBlogPost: `Write a complete blog post in Markdown. Start with a single H1 title, use H2 sections,
include code blocks only when they help, and end with a short conclusion.`,
	KindProjectDescription: `Write a project description for a portfolio case study in Markdown:
one summary paragraph, then "Problem", "Approach" and "Outcome" sections.`,
	KindExcerpt: `Write a one or two sentence excerpt of at most 300 characters. Plain text, no Markdown.`,
	KindSEO: `Return a JSON object with the keys "title" (at most 60 characters), "description"
(at most 155 characters) and "keywords" (an array of at most 8 strings). Return JSON only.`,
	KindImprove: `Improve the clarity, grammar and flow of the given text while keeping its meaning,
structure and formatting. Return only the revised text.`,
	KindTranslate: `Translate the given text faithfully. Preserve Markdown, HTML tags, code blocks and
URLs exactly. Return only the translation.`,
}

// SystemPrompt returns the standing instructions for a generation kind.
func SystemPrompt(kind Kind) string {
	return baseSystemPrompt + "\n\n" + kindInstructions[kind]
}

// BuildPrompt renders the user turn for a generation request.
func BuildPrompt(req Request) string {
	var sb strings.Builder
	if topic := strings.TrimSpace(req.Topic); topic != "" {
		fmt.Fprintf(&sb, "Topic: %s\n", topic)
	}
	if tone := strings.TrimSpace(req.Tone); tone != "" {
		fmt.Fprintf(&sb, "Tone: %s\n", tone)
	}
	if locale := strings.TrimSpace(req.Locale); locale != "" {
		if req.Kind == KindTranslate {
			fmt.Fprintf(&sb, "Target language: %s\n", locale)
		} else {
			fmt.Fprintf(&sb, "Write in language: %s\n", locale)
		}
	}
	if text := truncate(strings.TrimSpace(req.Context), MaxContextLength); text != "" {
		sb.WriteString("\nSource text:\n")
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

// truncate cuts s to at most limit bytes without splitting a rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
