package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/telemetry"
)

// Recover turns a panic into a 500 response and reports it.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				err := fmt.Errorf("panic: %v", v)
				GetLogger(r.Context()).Error("recovered from panic",
					"panic", v,
					"stack", string(debug.Stack()),
				)
				telemetry.CaptureError(err, map[string]any{
					"path":       r.URL.Path,
					"request_id": GetRequestID(r.Context()),
				})
				respondWithError(w, r, domain.Internal(err, "http.recover", "An unexpected error occurred"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
