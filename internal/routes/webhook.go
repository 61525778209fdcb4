package routes

import (
	"github.com/go-chi/chi/v5"
)

// RegisterWebhookRoutes mounts the gateway webhook endpoint. It carries no
// authentication middleware: the handler verifies the gateway signature
// itself.
func RegisterWebhookRoutes(r chi.Router, deps WebhookDeps) {
	r.Post("/webhooks/stripe", deps.StripeHandler)
}
