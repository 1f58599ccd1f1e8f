package httpserver

import (
	"testing"

	"github.com/Clark-Hu/movie-browser/internal/domain"
)

func FuzzParsePage(f *testing.F) {
	for _, seed := range []string{"", "1", "500", "501", "-1", "abc", " 3 "} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, raw string) {
		page, err := parsePage(raw)
		if err != nil {
			return
		}
		if page < 1 || page > domain.MaxTotalPages {
			t.Fatalf("parsePage(%q) = %d outside 1..%d", raw, page, domain.MaxTotalPages)
		}
	})
}
