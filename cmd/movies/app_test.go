package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newProxy(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/movies/popular":
			_, _ = w.Write([]byte(`{"page":1,"results":[{"id":603,"title":"The Matrix","release_date":"1999-03-30","vote_average":8.2,"poster_path":null}],"total_pages":500,"total_results":10000}`))
		case "/movies/603":
			_, _ = w.Write([]byte(`{"id":603,"title":"The Matrix","runtime":136}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"success":false,"error":"Failed to fetch movie details","message":"The resource you requested could not be found."}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func runCLI(t *testing.T, proxyURL, dataDir string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"-api", proxyURL, "-data", dataDir}, args...)
	code := run(context.Background(), full, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestPopularListing(t *testing.T) {
	proxy := newProxy(t)
	code, out, errOut := runCLI(t, proxy.URL, t.TempDir(), "popular")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, "The Matrix") || !strings.Contains(out, "1999") || !strings.Contains(out, "page 1 of 500") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "placeholder") {
		t.Fatalf("missing poster placeholder:\n%s", out)
	}
}

func TestFavoritesPersistAcrossRuns(t *testing.T) {
	proxy := newProxy(t)
	dir := t.TempDir()

	if code, _, errOut := runCLI(t, proxy.URL, dir, "fav", "toggle", "603"); code != 0 {
		t.Fatalf("toggle exit %d: %s", code, errOut)
	}
	code, out, _ := runCLI(t, proxy.URL, dir, "fav", "list")
	if code != 0 || !strings.Contains(out, "The Matrix") {
		t.Fatalf("list after toggle:\n%s", out)
	}

	if code, out, _ := runCLI(t, proxy.URL, dir, "fav", "toggle", "603"); code != 0 || !strings.Contains(out, "removed 603") {
		t.Fatalf("second toggle exit %d:\n%s", code, out)
	}
	if _, out, _ := runCLI(t, proxy.URL, dir, "fav", "list"); !strings.Contains(out, "no movies") {
		t.Fatalf("list after untoggle:\n%s", out)
	}
}

func TestProxyErrorMessage(t *testing.T) {
	proxy := newProxy(t)
	code, _, errOut := runCLI(t, proxy.URL, t.TempDir(), "details", "42")
	if code != 1 || !strings.Contains(errOut, "could not be found") {
		t.Fatalf("exit %d, stderr %q", code, errOut)
	}
}

func TestUsageErrors(t *testing.T) {
	proxy := newProxy(t)
	tests := [][]string{
		{},
		{"unknown"},
		{"search"},
		{"fav"},
		{"details"},
	}
	for _, args := range tests {
		if code, _, _ := runCLI(t, proxy.URL, t.TempDir(), args...); code != 2 {
			t.Fatalf("args %v exit %d, want 2", args, code)
		}
	}
}

func TestBlankSearchRejected(t *testing.T) {
	proxy := newProxy(t)
	code, _, errOut := runCLI(t, proxy.URL, t.TempDir(), "search", "  ")
	if code != 1 || !strings.Contains(errOut, "search query cannot be empty") {
		t.Fatalf("exit %d, stderr %q", code, errOut)
	}
}
