package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/Clark-Hu/movie-browser/internal/domain"
	"github.com/Clark-Hu/movie-browser/internal/tmdb"
)

// handlerFunc is a handler that reports failures instead of writing them.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// requestError is a client input problem detected before any upstream call.
type requestError struct {
	Status  int
	Summary string
	Message string
}

func (e *requestError) Error() string { return e.Summary + ": " + e.Message }

func badRequest(summary, message string) error {
	return &requestError{Status: http.StatusBadRequest, Summary: summary, Message: message}
}

// opError attaches the outward summary of the failed operation.
type opError struct {
	summary string
	err     error
}

func (e *opError) Error() string { return e.summary + ": " + e.err.Error() }
func (e *opError) Unwrap() error { return e.err }

func failed(summary string, err error) error {
	return &opError{summary: summary, err: err}
}

// handle wraps fn in the error boundary: every failure leaves as errorResponse.
func (s *Server) handle(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			s.respondFailure(w, r, err)
		}
	}
}

func (s *Server) respondFailure(w http.ResponseWriter, r *http.Request, err error) {
	summary := "Internal Server Error"
	var op *opError
	if errors.As(err, &op) {
		summary = op.summary
	}

	var (
		reqErr *requestError
		upErr  *tmdb.Error
	)
	switch {
	case errors.As(err, &reqErr):
		s.logger.Printf("rejected %s %s: %s", r.Method, r.URL.Path, reqErr.Message)
		s.respondJSON(w, reqErr.Status, errorResponse{
			Error:   reqErr.Summary,
			Message: reqErr.Message,
		})
	case errors.Is(err, tmdb.ErrEmptyQuery):
		s.respondJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "Search query is required",
			Message: "Please provide a search query using the q parameter",
		})
	case errors.As(err, &upErr):
		status := tmdb.StatusOf(upErr)
		s.logger.Printf("%s: status=%d message=%q err=%v request_id=%s", summary, status, upErr.Message, upErr.Err, middleware.GetReqID(r.Context()))
		s.respondJSON(w, status, errorResponse{
			Error:   summary,
			Message: upErr.Message,
			Stack:   s.diagnostic(err.Error()),
		})
	default:
		s.logger.Printf("unhandled error: %v (method=%s url=%s request_id=%s)", err, r.Method, r.URL.RequestURI(), middleware.GetReqID(r.Context()))
		message := "Something went wrong"
		if !s.cfg.IsProduction() {
			message = err.Error()
		}
		s.respondJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   summary,
			Message: message,
			Stack:   s.diagnostic(err.Error()),
		})
	}
}

// diagnostic returns trace only outside production.
func (s *Server) diagnostic(trace string) string {
	if s.cfg.IsProduction() {
		return ""
	}
	return trace
}

func (s *Server) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			stack := debug.Stack()
			s.logger.Printf("panic: %v (method=%s url=%s request_id=%s)\n%s", rec, r.Method, r.URL.RequestURI(), middleware.GetReqID(r.Context()), stack)

			w.Header().Set("Connection", "close")
			message := "Something went wrong"
			if !s.cfg.IsProduction() {
				message = fmt.Sprint(rec)
			}
			s.respondJSON(w, http.StatusInternalServerError, errorResponse{
				Error:   "Internal Server Error",
				Message: message,
				Stack:   s.diagnostic(string(stack)),
			})
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusNotFound, errorResponse{
		Error:   "Not Found",
		Message: fmt.Sprintf("The requested resource %s was not found", r.URL.RequestURI()),
	})
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusMethodNotAllowed, errorResponse{
		Error:   "Method Not Allowed",
		Message: fmt.Sprintf("The %s method is not supported for %s", r.Method, r.URL.Path),
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Printf("failed to encode response: %v", err)
		}
	}
}

func (s *Server) respondRaw(w http.ResponseWriter, status int, payload json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		s.logger.Printf("failed to write response: %v", err)
	}
}

const maxRequestBody = 1 << 20 // 1 MiB

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return decodeError(err)
	}
	return nil
}

func decodeError(err error) error {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	var maxBytesError *http.MaxBytesError
	unprocessable := func(message string) error {
		return &requestError{Status: http.StatusUnprocessableEntity, Summary: "Invalid request body", Message: message}
	}
	switch {
	case errors.As(err, &syntaxError):
		return unprocessable("Malformed JSON payload")
	case errors.As(err, &typeError):
		return unprocessable(fmt.Sprintf("Invalid value for field %s", typeError.Field))
	case errors.Is(err, domain.ErrInvalidMovie):
		return unprocessable(err.Error())
	case errors.Is(err, io.EOF):
		return unprocessable("Request body cannot be empty")
	case errors.As(err, &maxBytesError):
		return &requestError{Status: http.StatusRequestEntityTooLarge, Summary: "Invalid request body", Message: "Request body is too large"}
	default:
		return badRequest("Invalid request body", "Unable to parse request body")
	}
}
