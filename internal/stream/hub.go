// Package stream is the push distribution channel: a fan-out hub holding one
// single-slot queue per viewer, and the server-sent events framing and HTTP
// handler that drain those queues onto long-lived connections.
package stream

import (
	"sync"

	"github.com/google/uuid"

	"github.com/Clark-Hu/rating-pulse/internal/domain"
)

// Subscription is one viewer's queue. It holds at most one undelivered
// aggregate; a newer publish replaces it.
type Subscription struct {
	ID uuid.UUID
	ch chan domain.Aggregate
}

// C yields aggregates for this subscription. It is closed by Unsubscribe or
// when the hub shuts down.
func (s *Subscription) C() <-chan domain.Aggregate {
	return s.ch
}

// Hub broadcasts aggregates to every current subscription.
type Hub struct {
	mu     sync.Mutex
	subs   map[uuid.UUID]*Subscription
	latest *domain.Aggregate
	closed bool
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uuid.UUID]*Subscription)}
}

// Subscribe registers a new viewer. If an aggregate has already been
// published the subscription starts with it queued.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{ID: uuid.New(), ch: make(chan domain.Aggregate, 1)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.ch)
		return sub
	}
	if h.latest != nil {
		sub.ch <- *h.latest
	}
	h.subs[sub.ID] = sub
	subscribersActive.Set(float64(len(h.subs)))
	return sub
}

// Unsubscribe removes sub and closes its channel. Safe to call more than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub.ID]; !ok {
		return
	}
	delete(h.subs, sub.ID)
	close(sub.ch)
	subscribersActive.Set(float64(len(h.subs)))
}

// Publish records agg as the latest aggregate and offers it to every
// subscription without blocking.
func (h *Hub) Publish(agg domain.Aggregate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.latest = &agg
	published.Inc()
	for _, sub := range h.subs {
		offer(sub.ch, agg)
	}
}

// Latest returns the most recently published aggregate.
func (h *Hub) Latest() (domain.Aggregate, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.latest == nil {
		return domain.Aggregate{}, false
	}
	return *h.latest, true
}

// Len reports the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.ch)
	}
	subscribersActive.Set(0)
}

// offer must be called with the hub lock held; only the hub sends on ch.
func offer(ch chan domain.Aggregate, agg domain.Aggregate) {
	select {
	case ch <- agg:
		return
	default:
	}
	select {
	case <-ch:
		dropped.Inc()
	default:
	}
	select {
	case ch <- agg:
	default:
	}
}
