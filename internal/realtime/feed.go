// Package realtime carries comment change notifications. Events only say
// that a slide's comment set changed; subscribers reload the list.
package realtime

import (
	"context"
	"sync"
	"time"
)

// Kind is the mutation that produced an event.
type Kind string

const (
	Insert Kind = "insert"
	Update Kind = "update"
	Delete Kind = "delete"
)

// Event reports a change to one comment of one slide.
type Event struct {
	SlideID   string    `json:"slideId"`
	CommentID string    `json:"commentId"`
	Kind      Kind      `json:"kind"`
	At        time.Time `json:"at"`
}

// Publisher emits comment change events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Feed is a comment change feed filtered by slide.
type Feed interface {
	Publisher
	Subscribe(ctx context.Context, slideID string) (*Subscription, error)
}

// Subscription is one live registration on a Feed. Events is closed once the
// subscription is released. Close is safe to call more than once and from
// any goroutine.
type Subscription struct {
	slideID string
	events  <-chan Event
	once    sync.Once
	release func()
}

func newSubscription(slideID string, events <-chan Event, release func()) *Subscription {
	return &Subscription{slideID: slideID, events: events, release: release}
}

// SlideID is the slide the subscription filters on.
func (s *Subscription) SlideID() string { return s.slideID }

// Events delivers change notifications in arrival order.
func (s *Subscription) Events() <-chan Event { return s.events }

// Close releases the registration.
func (s *Subscription) Close() {
	s.once.Do(func() {
		if s.release != nil {
			s.release()
		}
	})
}

// Buffered events per subscriber. A full buffer drops the new event: any
// pending event already triggers a reload of the whole list.
const subscriberBuffer = 16

func offer(ch chan<- Event, ev Event) {
	select {
	case ch <- ev:
	default:
	}
}
