// Package middleware holds the HTTP middleware shared by the server's
// routes: request ids, request-scoped loggers, panic recovery, body limits
// and Prometheus request metrics.
package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
)

type contextKey string

var statusByCode = map[string]int{
	domain.EINVALID:      http.StatusBadRequest,
	domain.EUNAUTHORIZED: http.StatusUnauthorized,
	domain.EPAYMENT:      http.StatusPaymentRequired,
	domain.EFORBIDDEN:    http.StatusForbidden,
	domain.ENOTFOUND:     http.StatusNotFound,
	domain.ECONFLICT:     http.StatusConflict,
	domain.EGONE:         http.StatusGone,
	domain.ERATELIMIT:    http.StatusTooManyRequests,
	domain.ENOTIMPL:      http.StatusNotImplemented,
}

// HTTPStatus maps a domain error code to a response status. Unknown codes
// are 500.
func HTTPStatus(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// respondWithError writes err in the same JSON shape as
// handler.ErrorResponse, which this package cannot import.
func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	status := HTTPStatus(code)

	log := GetLogger(r.Context()).Info
	if status >= http.StatusInternalServerError {
		log = GetLogger(r.Context()).Error
	}
	log("middleware error", "error", err, "code", code, "status", status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]map[string]string{
		"error": {"code": code, "message": domain.ErrorMessage(err)},
	})
}
