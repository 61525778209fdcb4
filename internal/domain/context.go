// Package domain provides the core subscription types, their state
// transitions and the context helpers shared by the command and webhook paths.
//
// Context helpers centralize request-scoped data access so that the actor
// behind a change and the webhook event being processed travel with the
// request instead of through globals.
package domain

import (
	"context"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const (
	// actorContextKey stores the actor that initiated the request.
	actorContextKey contextKey = iota

	// eventContextKey stores the webhook event being processed.
	eventContextKey

	// requestIDContextKey stores the request ID for tracing.
	requestIDContextKey
)

// EventRef identifies the webhook event a request is processing.
type EventRef struct {
	ID   string
	Type string
	Mode PaymentMode
}

// --- Actor Context Helpers ---

// NewContextWithActor returns a new context with the actor attached.
func NewContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

// ActorFromContext retrieves the actor from context.
// Returns fallback if no actor is present.
func ActorFromContext(ctx context.Context, fallback Actor) Actor {
	if actor, ok := ctx.Value(actorContextKey).(Actor); ok && actor != "" {
		return actor
	}
	return fallback
}

// --- Event Context Helpers ---

// NewContextWithEvent returns a new context with the event reference attached.
func NewContextWithEvent(ctx context.Context, ref EventRef) context.Context {
	return context.WithValue(ctx, eventContextKey, ref)
}

// EventFromContext retrieves the event reference from context.
func EventFromContext(ctx context.Context) (EventRef, bool) {
	ref, ok := ctx.Value(eventContextKey).(EventRef)
	return ref, ok
}

// --- Request ID Context Helpers ---

// NewContextWithRequestID returns a new context with the request ID attached.
func NewContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if no request ID is present.
func RequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDContextKey).(string)
	return requestID
}

// IsWebhook returns true if the context carries a webhook event.
func IsWebhook(ctx context.Context) bool {
	_, ok := EventFromContext(ctx)
	return ok
}
