package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func openTestStore(t *testing.T) *PostgresStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	dsn := os.Getenv("PORTFOLIO_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("PORTFOLIO_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := ApplyMigrations(ctx, db, filepath.Join("..", "..", "db", "migrations")); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return NewPostgresStore(db)
}

func TestCategoryLifecycleIntegration(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	slug := "tools-" + uuid.NewString()[:8]

	created, err := s.Categories.Insert(ctx, Category{Base: Base{ID: "cat_" + uuid.NewString(), Visible: true}, Name: "Tools", Slug: slug})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	t.Cleanup(func() { _ = s.Categories.Delete(ctx, created.ID) })
	if created.CreatedAt.IsZero() || created.Slug != slug {
		t.Fatalf("unexpected created row: %+v", created)
	}

	if _, err := s.Categories.Insert(ctx, Category{Base: Base{ID: "cat_" + uuid.NewString()}, Name: "Dup", Slug: slug}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected slug conflict, got %v", err)
	}

	once, err := s.Categories.ToggleVisible(ctx, created.ID)
	if err != nil || once.Visible {
		t.Fatalf("first toggle: %+v %v", once, err)
	}
	twice, err := s.Categories.ToggleVisible(ctx, created.ID)
	if err != nil || !twice.Visible {
		t.Fatalf("second toggle: %+v %v", twice, err)
	}

	if n, err := s.Categories.Reorder(ctx, []OrderItem{{ID: created.ID, Order: 7}, {ID: "missing", Order: 1}}); err != nil || n != 1 {
		t.Fatalf("reorder: %d %v", n, err)
	}
	got, err := s.Categories.GetBySlug(ctx, slug)
	if err != nil || got.Order != 7 {
		t.Fatalf("get by slug: %+v %v", got, err)
	}

	if err := s.Categories.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Categories.Get(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteIdeaNodeDetachesSiblingsIntegration(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a, err := s.IdeaNodes.Insert(ctx, IdeaNode{Base: Base{ID: "idea_" + uuid.NewString(), Visible: true}, Title: "A", EstimatedValue: decimal.NewFromInt(100)})
	if err != nil {
		t.Fatalf("insert a: %v", err)
	}
	b, err := s.IdeaNodes.Insert(ctx, IdeaNode{Base: Base{ID: "idea_" + uuid.NewString(), Visible: true}, Title: "B", Connections: StringList{a.ID, "elsewhere"}})
	if err != nil {
		t.Fatalf("insert b: %v", err)
	}
	t.Cleanup(func() { _ = s.IdeaNodes.Delete(ctx, b.ID) })

	if err := s.DeleteIdeaNode(ctx, a.ID); err != nil {
		t.Fatalf("delete a: %v", err)
	}
	reloaded, err := s.IdeaNodes.Get(ctx, b.ID)
	if err != nil {
		t.Fatalf("reload b: %v", err)
	}
	if reloaded.Connections.Contains(a.ID) || !reloaded.Connections.Contains("elsewhere") {
		t.Fatalf("unexpected connections %v", reloaded.Connections)
	}
	if err := s.DeleteIdeaNode(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestListContactMessagesPagingIntegration(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	id := "msg_" + uuid.NewString()
	if _, err := s.InsertContactMessage(ctx, ContactMessage{ID: id, Name: "Jo", Email: "jo@example.com", Message: "hi"}); err != nil {
		t.Fatalf("insert message: %v", err)
	}
	t.Cleanup(func() { _ = s.DeleteContactMessage(ctx, id) })

	none, err := s.ListContactMessages(ctx, false, 0, 0)
	if err != nil || len(none) != 0 {
		t.Fatalf("limit 0: %d rows, %v", len(none), err)
	}
	some, err := s.ListContactMessages(ctx, false, 1, -1)
	if err != nil || len(some) != 1 {
		t.Fatalf("negative offset: %d rows, %v", len(some), err)
	}
}
