package db

import (
	"strings"
	"testing"
)

func TestUpReturnsOrderedMigrations(t *testing.T) {
	migs, err := Up()
	if err != nil {
		t.Fatalf("Up() error: %v", err)
	}
	if len(migs) == 0 {
		t.Fatalf("no migrations embedded")
	}
	for i := 1; i < len(migs); i++ {
		if migs[i-1].Name >= migs[i].Name {
			t.Fatalf("migrations out of order: %s before %s", migs[i-1].Name, migs[i].Name)
		}
	}
	if !strings.Contains(migs[0].SQL, "kv_store") {
		t.Fatalf("first migration does not create kv_store: %q", migs[0].SQL)
	}
	for _, m := range migs {
		if !strings.HasSuffix(m.Name, ".up.sql") {
			t.Fatalf("unexpected migration file %s", m.Name)
		}
	}
}
