package realtime

import (
	"context"
	"log"
	"time"

	"slidedeck/internal/slide"
	"slidedeck/internal/store"
)

// Notifying wraps a comment store and publishes an event after every
// successful mutation. A failed publish is logged; the write already
// happened.
type Notifying struct {
	store.CommentStore
	pub Publisher
	now func() time.Time
}

// Notify decorates cs with change events sent to pub.
func Notify(cs store.CommentStore, pub Publisher) *Notifying {
	return &Notifying{CommentStore: cs, pub: pub, now: time.Now}
}

// AddComment implements store.CommentStore.
func (n *Notifying) AddComment(ctx context.Context, c slide.Comment) (slide.Comment, error) {
	added, err := n.CommentStore.AddComment(ctx, c)
	if err != nil {
		return added, err
	}
	n.publish(ctx, Event{SlideID: added.SlideID, CommentID: added.ID, Kind: Insert})
	return added, nil
}

// UpdateComment implements store.CommentStore.
func (n *Notifying) UpdateComment(ctx context.Context, c slide.Comment) error {
	if err := n.CommentStore.UpdateComment(ctx, c); err != nil {
		return err
	}
	n.publish(ctx, Event{SlideID: c.SlideID, CommentID: c.ID, Kind: Update})
	return nil
}

// DeleteComment implements store.CommentStore.
func (n *Notifying) DeleteComment(ctx context.Context, c slide.Comment) error {
	if err := n.CommentStore.DeleteComment(ctx, c); err != nil {
		return err
	}
	n.publish(ctx, Event{SlideID: c.SlideID, CommentID: c.ID, Kind: Delete})
	return nil
}

func (n *Notifying) publish(ctx context.Context, ev Event) {
	ev.At = n.now()
	if err := n.pub.Publish(ctx, ev); err != nil {
		log.Printf("[feed] publish %s %s: %v", ev.Kind, ev.CommentID, err)
	}
}
