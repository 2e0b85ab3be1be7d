package realtime

import (
	"context"
	"errors"
	"sync"
)

var ErrClosed = errors.New("feed closed")

// Hub is an in-process Feed. It serves offline sessions and tests, and fans
// Redis events out inside one process.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[chan Event]struct{}
	closed bool
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan Event]struct{})}
}

// Subscribe implements Feed.
func (h *Hub) Subscribe(ctx context.Context, slideID string) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}
	ch := make(chan Event, subscriberBuffer)
	if h.subs[slideID] == nil {
		h.subs[slideID] = make(map[chan Event]struct{})
	}
	h.subs[slideID][ch] = struct{}{}
	return newSubscription(slideID, ch, func() { h.remove(slideID, ch) }), nil
}

// Publish implements Publisher.
func (h *Hub) Publish(ctx context.Context, ev Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	for ch := range h.subs[ev.SlideID] {
		offer(ch, ev)
	}
	return nil
}

// Subscribers returns the number of live subscriptions for slideID.
func (h *Hub) Subscribers(slideID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[slideID])
}

// Close releases every subscription.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for slideID, set := range h.subs {
		for ch := range set {
			close(ch)
		}
		delete(h.subs, slideID)
	}
	return nil
}

func (h *Hub) remove(slideID string, ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[slideID]
	if !ok {
		return
	}
	if _, ok := set[ch]; !ok {
		return
	}
	delete(set, ch)
	close(ch)
	if len(set) == 0 {
		delete(h.subs, slideID)
	}
}
