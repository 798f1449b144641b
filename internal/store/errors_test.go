package store

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestTranslateConstraintErrors(t *testing.T) {
	cases := []struct {
		err  error
		want error
	}{
		{sql.ErrNoRows, ErrNotFound},
		{&pgconn.PgError{Code: "23505", ConstraintName: "projects_slug_key"}, ErrConflict},
		{&pgconn.PgError{Code: "23503", ConstraintName: "projects_category_id_fkey"}, ErrBadReference},
	}
	for _, tc := range cases {
		if got := translate("insert project", tc.err); !errors.Is(got, tc.want) {
			t.Fatalf("translate(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}

	other := &pgconn.PgError{Code: "42P01"}
	got := translate("list", other)
	if errors.Is(got, ErrConflict) || !errors.As(got, &other) {
		t.Fatalf("unexpected translation %v", got)
	}
	if translate("noop", nil) != nil {
		t.Fatal("nil must stay nil")
	}
}
