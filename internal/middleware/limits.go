package middleware

import (
	"net/http"
	"time"
)

const (
	KB = 1 << 10
	MB = 1 << 20

	// DefaultMaxBodySize bounds every request body the server accepts.
	DefaultMaxBodySize = 1 * MB

	// DefaultTimeout bounds request processing.
	DefaultTimeout = 30 * time.Second
)

// MaxBodySize rejects requests that declare a body larger than maxBytes
// with 413 and caps the bytes a handler can read from the rest.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
