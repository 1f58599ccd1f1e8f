package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"testing"
)

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// exerciseStorage checks the behaviour every backend must share.
func exerciseStorage(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
	}

	if err := s.Set(ctx, "movieFavorites", []byte(`[{"id":1}]`)); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	got, err := s.Get(ctx, "movieFavorites")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !bytes.Equal(got, []byte(`[{"id":1}]`)) {
		t.Fatalf("Get() = %s, want first value", got)
	}

	if err := s.Set(ctx, "movieFavorites", []byte(`[]`)); err != nil {
		t.Fatalf("overwrite error: %v", err)
	}
	got, err = s.Get(ctx, "movieFavorites")
	if err != nil || string(got) != "[]" {
		t.Fatalf("Get() after overwrite = %s, %v", got, err)
	}

	if err := s.Remove(ctx, "movieFavorites"); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if _, err := s.Get(ctx, "movieFavorites"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() after Remove error = %v, want ErrNotFound", err)
	}
	if err := s.Remove(ctx, "movieFavorites"); err != nil {
		t.Fatalf("second Remove() should be a no-op, got %v", err)
	}

	if err := s.Set(ctx, "../escape", []byte("x")); err == nil {
		t.Fatalf("Set() accepted an invalid key")
	}
}

func TestMemoryStorage(t *testing.T) {
	exerciseStorage(t, NewMemory())
}

func TestMemoryStorageCopiesValues(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	value := []byte("abc")
	if err := m.Set(ctx, "k", value); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	value[0] = 'z'
	got, _ := m.Get(ctx, "k")
	if string(got) != "abc" {
		t.Fatalf("stored value aliased caller slice: %s", got)
	}
}

func TestCheckKey(t *testing.T) {
	cases := []struct {
		key string
		ok  bool
	}{
		{"movieFavorites", true},
		{"a.b-c_d", true},
		{"", false},
		{".", false},
		{"..", false},
		{"a/b", false},
		{"with space", false},
	}
	for _, c := range cases {
		if err := checkKey(c.key); (err == nil) != c.ok {
			t.Fatalf("checkKey(%q) error = %v, want ok=%v", c.key, err, c.ok)
		}
	}
}
