package util

import (
	"strings"
	"testing"
)

func TestNewIDPrefix(t *testing.T) {
	id := NewID("prj")
	if !strings.HasPrefix(id, "prj_") || len(id) != len("prj_")+36 {
		t.Fatalf("unexpected id %q", id)
	}
	if NewID("") == NewID("") {
		t.Fatal("expected unique ids")
	}
}

func TestNewTokenIsOpaque(t *testing.T) {
	token := NewToken()
	if len(token) != 64 || strings.Contains(token, "-") {
		t.Fatalf("unexpected token %q", token)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Tools":                   "tools",
		"  Hello, World!  ":       "hello-world",
		"Crème Brûlée Recipes":    "creme-brulee-recipes",
		"Go 1.24 -- what's new?":  "go-1-24-what-s-new",
		"***":                     "",
	}
	for input, want := range cases {
		if got := Slugify(input); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestWordCount(t *testing.T) {
	if got := WordCount("<p>Hello <strong>brave</strong> new</p><p>world</p>"); got != 4 {
		t.Fatalf("WordCount() = %d, want 4", got)
	}
}
