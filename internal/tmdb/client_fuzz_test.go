package tmdb

import (
	"testing"
)

func FuzzStatusMessage(f *testing.F) {
	f.Add([]byte(`{"status_message":"Invalid API key: You must be granted a valid key.","status_code":7}`))
	f.Add([]byte(`<html></html>`))
	f.Add([]byte(``))

	f.Fuzz(func(t *testing.T, body []byte) {
		msg := statusMessage(body)
		if msg != "" && (msg[0] == ' ' || msg[len(msg)-1] == ' ') {
			t.Fatalf("status message not trimmed: %q", msg)
		}
	})
}
