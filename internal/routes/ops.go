package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/handler"
)

// RegisterOpsRoutes registers health and metrics endpoints. /metrics has no
// auth and should be reachable only from the scraper's network.
func RegisterOpsRoutes(r chi.Router, deps OpsDeps) {
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if deps.Ready != nil {
			if err := deps.Ready(req); err != nil {
				handler.ErrorResponse(w, req, domain.Internal(err, "healthz", "database unavailable"))
				return
			}
		}
		handler.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}
}
