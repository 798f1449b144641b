package store

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestStringListScan(t *testing.T) {
	var list StringList
	if err := list.Scan([]byte(`["a","b"]`)); err != nil {
		t.Fatalf("scan bytes: %v", err)
	}
	if !reflect.DeepEqual(list, StringList{"a", "b"}) {
		t.Fatalf("unexpected list %v", list)
	}
	if err := list.Scan(`["c"]`); err != nil {
		t.Fatalf("scan string: %v", err)
	}
	if !reflect.DeepEqual(list, StringList{"c"}) {
		t.Fatalf("unexpected list %v", list)
	}
	if err := list.Scan(nil); err != nil || list == nil || len(list) != 0 {
		t.Fatalf("nil should scan to empty list, got %v %v", list, err)
	}
	if err := list.Scan(42); err == nil {
		t.Fatal("expected error for unsupported source")
	}
}

func TestStringListValueNeverNull(t *testing.T) {
	var list StringList
	value, err := list.Value()
	if err != nil || value != "[]" {
		t.Fatalf("expected [] got %v %v", value, err)
	}
}

func TestStringListCompactAndWithout(t *testing.T) {
	list := StringList{" a ", "b", "", "a", "c", "b"}
	if got := list.Compact(); !reflect.DeepEqual(got, StringList{"a", "b", "c"}) {
		t.Fatalf("unexpected compact %v", got)
	}
	if got := (StringList{"a", "b", "a"}).Without("a"); !reflect.DeepEqual(got, StringList{"b"}) {
		t.Fatalf("unexpected without %v", got)
	}
	if !(StringList{"x"}).Contains("x") || (StringList{"x"}).Contains("y") {
		t.Fatal("contains mismatch")
	}
}

func TestTranslateErrors(t *testing.T) {
	if err := translate("op", nil); err != nil {
		t.Fatalf("nil should stay nil, got %v", err)
	}
	unique := &pgconn.PgError{Code: "23505", ConstraintName: "categories_slug_key"}
	if err := translate("insert categories", unique); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	other := fmt.Errorf("boom")
	if err := translate("op", other); !errors.Is(err, other) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
