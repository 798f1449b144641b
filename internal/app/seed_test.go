package app

import (
	"context"
	"testing"

	"portfolio/api/internal/seed"
	"portfolio/api/internal/store"
)

const seedYAML = `
profile:
  name: Ada Lovelace
categories:
  - name: Tools
projects:
  - title: Kiln
    category: tools
skills:
  - name: Go
    level: 90
`

func TestApplySeedIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	doc, err := seed.Parse([]byte(seedYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	first, err := env.svc.ApplySeed(context.Background(), doc)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if first.Total() != 4 {
		t.Fatalf("expected 4 created rows, got %+v", first.Created)
	}
	project := env.projects.rows[0]
	if project.CategoryID == nil || *project.CategoryID != env.categories.rows[0].ID {
		t.Fatalf("expected project to link the seeded category, got %v", project.CategoryID)
	}
	if !project.Visible || project.Slug != "kiln" {
		t.Fatalf("expected visible project with derived slug, got %+v", project)
	}

	second, err := env.svc.ApplySeed(context.Background(), doc)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if second.Total() != 0 || second.Skipped["project"] != 1 || second.Skipped["skill"] != 1 || second.Skipped["profile"] != 1 {
		t.Fatalf("expected everything skipped, got created=%v skipped=%v", second.Created, second.Skipped)
	}
	if len(env.projects.rows) != 1 {
		t.Fatalf("expected no duplicate rows, got %d", len(env.projects.rows))
	}
}

func TestApplySeedRejectsUnknownCategory(t *testing.T) {
	env := newTestEnv(t)
	doc := seed.Document{Projects: []seed.Project{{Project: store.Project{Title: "Kiln"}, Category: "missing"}}}
	if _, err := env.svc.ApplySeed(context.Background(), doc); err == nil {
		t.Fatalf("expected unknown category to fail")
	}
	if len(env.projects.rows) != 0 {
		t.Fatalf("expected nothing stored")
	}
}

func TestApplySeedStopsOnInvalidRow(t *testing.T) {
	env := newTestEnv(t)
	doc := seed.Document{Skills: []store.Skill{{Name: "Go", Level: 150}}}
	if _, err := env.svc.ApplySeed(context.Background(), doc); err == nil {
		t.Fatalf("expected validation failure")
	}
}
