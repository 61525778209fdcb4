package domain

import (
	"context"
	"testing"
)

func TestActorContext(t *testing.T) {
	t.Run("ActorFromContext returns fallback when no actor", func(t *testing.T) {
		ctx := context.Background()
		if got := ActorFromContext(ctx, ActorSystem); got != ActorSystem {
			t.Errorf("expected %q, got %q", ActorSystem, got)
		}
	})

	t.Run("ActorFromContext returns actor when set", func(t *testing.T) {
		ctx := NewContextWithActor(context.Background(), ActorAdmin)
		if got := ActorFromContext(ctx, ActorWebhook); got != ActorAdmin {
			t.Errorf("expected %q, got %q", ActorAdmin, got)
		}
	})

	t.Run("empty actor falls back", func(t *testing.T) {
		ctx := NewContextWithActor(context.Background(), "")
		if got := ActorFromContext(ctx, ActorWebhook); got != ActorWebhook {
			t.Errorf("expected %q, got %q", ActorWebhook, got)
		}
	})
}

func TestEventContext(t *testing.T) {
	t.Run("EventFromContext reports absence", func(t *testing.T) {
		_, ok := EventFromContext(context.Background())
		if ok {
			t.Error("expected no event")
		}
		if IsWebhook(context.Background()) {
			t.Error("expected IsWebhook false")
		}
	})

	t.Run("EventFromContext returns event when set", func(t *testing.T) {
		expected := EventRef{ID: "evt_123", Type: EventInvoicePaid, Mode: ModeTest}
		ctx := NewContextWithEvent(context.Background(), expected)

		ref, ok := EventFromContext(ctx)
		if !ok {
			t.Fatal("expected event, got none")
		}
		if ref != expected {
			t.Errorf("expected %+v, got %+v", expected, ref)
		}
		if !IsWebhook(ctx) {
			t.Error("expected IsWebhook true")
		}
	})
}

func TestRequestIDContext(t *testing.T) {
	t.Run("RequestIDFromContext returns empty when not set", func(t *testing.T) {
		if id := RequestIDFromContext(context.Background()); id != "" {
			t.Errorf("expected empty string, got %q", id)
		}
	})

	t.Run("RequestIDFromContext returns ID when set", func(t *testing.T) {
		ctx := NewContextWithRequestID(context.Background(), "req-123")
		if id := RequestIDFromContext(ctx); id != "req-123" {
			t.Errorf("expected %q, got %q", "req-123", id)
		}
	})
}
