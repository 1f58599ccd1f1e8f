package tmdb

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the normalized form of every Gateway failure. Status holds the
// upstream status code when one was received and 500 otherwise.
type Error struct {
	Status  int
	Message string
	Timeout bool
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tmdb: %d %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("tmdb: %d %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// StatusOf returns the status carried by err, or 500 when err is not a Gateway error.
func StatusOf(err error) int {
	var tErr *Error
	if errors.As(err, &tErr) && tErr.Status > 0 {
		return tErr.Status
	}
	return http.StatusInternalServerError
}
