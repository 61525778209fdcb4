package routes

import "net/http"

// WebhookDeps contains dependencies for webhook routes.
type WebhookDeps struct {
	StripeHandler http.HandlerFunc
}

// OpsDeps contains dependencies for operational routes.
type OpsDeps struct {
	// Metrics serves the Prometheus registry.
	Metrics http.Handler

	// Ready reports whether the database is reachable.
	Ready func(r *http.Request) error
}
