package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"portfolio/api/internal/ai"
	"portfolio/api/internal/auth"
	"portfolio/api/internal/authpw"
	"portfolio/api/internal/store"
	"portfolio/api/internal/uploads"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"domain", conflict("slug taken"), http.StatusConflict, "CONFLICT"},
		{"wrapped not found", fmt.Errorf("get project: %w", store.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"store conflict", store.ErrConflict, http.StatusConflict, "CONFLICT"},
		{"dangling reference", fmt.Errorf("insert project: %w", store.ErrBadReference), http.StatusBadRequest, "BAD_REQUEST"},
		{"expired token", auth.ErrExpiredToken, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"bad credentials", authpw.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"upload too large", uploads.ErrTooLarge, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"},
		{"ai missing", ai.ErrUnavailable, http.StatusServiceUnavailable, "AI_UNAVAILABLE"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "SERVER_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, code, _, _ := mapError(tc.err)
			if status != tc.status || code != tc.code {
				t.Fatalf("mapError(%v) = %d %s, want %d %s", tc.err, status, code, tc.status, tc.code)
			}
		})
	}
}

func TestValidationErrorsUseJSONNames(t *testing.T) {
	err := validateStruct(store.Testimonial{Content: "fine", Rating: 9})
	status, code, _, details := mapError(err)
	if status != http.StatusBadRequest || code != "VALIDATION_ERROR" {
		t.Fatalf("unexpected mapping %d %s", status, code)
	}
	fields, _ := details.(map[string]string)
	if fields["name"] != "name is required" || fields["rating"] != "rating must be at most 5" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestResultCarriesCause(t *testing.T) {
	result := fail[store.Post](store.ErrNotFound)
	if result.Success || result.Error != "Not found" {
		t.Fatalf("unexpected result %+v", result)
	}
	if !errors.Is(result.Err(), store.ErrNotFound) {
		t.Fatalf("expected cause to be kept")
	}
}

func TestTranslatableFields(t *testing.T) {
	cases := map[string][]string{
		"category":    {"description", "name"},
		"project":     {"content", "summary", "title"},
		"post":        {"content", "excerpt", "title"},
		"testimonial": {"company", "content", "name", "role"},
	}
	for kind, want := range cases {
		if got := translatableFields(translatableModels[kind]); !reflect.DeepEqual(got, want) {
			t.Fatalf("%s: got %v want %v", kind, got, want)
		}
	}
}

func TestOverlayFieldsSkipsBlankAndUnknown(t *testing.T) {
	project := store.Project{Title: "Kiln", Summary: "Build tool", Slug: "kiln"}
	overlayFields(&project, map[string]string{"title": "Brennofen", "summary": "  ", "nope": "x"})
	if project.Title != "Brennofen" || project.Summary != "Build tool" {
		t.Fatalf("unexpected overlay %+v", project)
	}
}

func TestReadingMinutes(t *testing.T) {
	cases := []struct {
		words int
		want  int
	}{{0, 1}, {1, 1}, {200, 1}, {201, 2}, {1000, 5}}
	for _, tc := range cases {
		body := ""
		for i := 0; i < tc.words; i++ {
			body += "word "
		}
		if got := readingMinutes("<p>" + body + "</p>"); got != tc.want {
			t.Fatalf("%d words: got %d want %d", tc.words, got, tc.want)
		}
	}
}

func TestResolveSlug(t *testing.T) {
	if slug, err := resolveSlug("", "Hello, World!"); err != nil || slug != "hello-world" {
		t.Fatalf("expected fallback slug, got %q %v", slug, err)
	}
	if slug, err := resolveSlug("Custom Slug", "ignored"); err != nil || slug != "custom-slug" {
		t.Fatalf("expected normalized slug, got %q %v", slug, err)
	}
	if _, err := resolveSlug("", "!!!"); err == nil {
		t.Fatalf("expected error when no slug can be derived")
	}
}

func TestCloneRowDoesNotAlias(t *testing.T) {
	original := store.Project{Title: "Kiln", TechStack: store.StringList{"go"}}
	clone, err := cloneRow(original)
	if err != nil {
		t.Fatalf("clone: %v", err)
	}
	clone.TechStack[0] = "rust"
	if original.TechStack[0] != "go" {
		t.Fatalf("clone shares backing storage with original")
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("héllo wörld", 5); got != "héllo" {
		t.Fatalf("got %q", got)
	}
	if got := truncateRunes("short", 60); got != "short" {
		t.Fatalf("got %q", got)
	}
}

func TestPrepareIdeaNodeChecksEstimatedValue(t *testing.T) {
	cases := map[string]bool{
		"10.5":            true,
		"10.50":           true,
		"999999999999.99": true,
		"10.005":          false,
		"1000000000000":   false,
		"-1":              false,
	}
	for raw, valid := range cases {
		node := store.IdeaNode{Title: "Idea", EstimatedValue: decimal.RequireFromString(raw)}
		err := prepareIdeaNode(context.Background(), &node, nil)
		if valid && err != nil {
			t.Fatalf("expected %s to be accepted, got %v", raw, err)
		}
		if !valid {
			status, _, _, _ := mapError(err)
			if status != http.StatusBadRequest {
				t.Fatalf("expected %s to be rejected with 400, got %d (%v)", raw, status, err)
			}
		}
	}
}
