// Package modifier remembers who initiated a subscription change so the
// webhook that echoes the change back can be attributed to them.
package modifier

import (
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
)

// DefaultTTL is how long a mark waits for its webhook.
const DefaultTTL = 10 * time.Minute

// Tracker maps (event, subscription) to the actor that initiated it.
// It is safe for concurrent use.
type Tracker struct {
	cache *cache.Cache
}

// NewTracker creates a Tracker whose marks expire after ttl.
func NewTracker(ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{cache: cache.New(ttl, 2*ttl)}
}

// Mark records actor as the initiator of event on a subscription.
func (t *Tracker) Mark(event string, subscriptionID int64, actor domain.Actor) {
	t.cache.SetDefault(domain.ModifierKey(event, subscriptionID), actor)
}

// Peek returns the recorded actor without removing it.
func (t *Tracker) Peek(event string, subscriptionID int64) (domain.Actor, bool) {
	v, ok := t.cache.Get(domain.ModifierKey(event, subscriptionID))
	if !ok {
		return "", false
	}
	return v.(domain.Actor), true
}

// Consume returns and removes the recorded actor.
func (t *Tracker) Consume(event string, subscriptionID int64) (domain.Actor, bool) {
	key := domain.ModifierKey(event, subscriptionID)
	v, ok := t.cache.Get(key)
	if !ok {
		return "", false
	}
	t.cache.Delete(key)
	return v.(domain.Actor), true
}

// ActorFor returns the recorded actor for any of events, or fallback.
func (t *Tracker) ActorFor(subscriptionID int64, fallback domain.Actor, events ...string) domain.Actor {
	for _, e := range events {
		if a, ok := t.Peek(e, subscriptionID); ok {
			return a
		}
	}
	return fallback
}
