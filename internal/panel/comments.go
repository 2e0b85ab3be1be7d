// Package panel holds the side panels shown next to a slide while editing:
// comments, driven by the change feed, and version history, reloaded by
// hand. Panels keep no cache across slides.
package panel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"slidedeck/internal/realtime"
	"slidedeck/internal/slide"
	"slidedeck/internal/store"
)

var (
	ErrNotAuthor  = errors.New("only the author can change this comment")
	ErrClosed     = errors.New("panel is closed")
	ErrSuperseded = errors.New("panel was reopened")
	ErrUnchanged  = errors.New("panel already shows this slide")
	ErrEmpty      = errors.New("comment is empty")
)

// Comments is the comment panel for one slide at a time. While open it
// holds a feed subscription for that slide; every path that leaves the
// slide or fails releases it. Writes do not touch the list: it changes when
// a feed event triggers Refresh. Methods are safe for concurrent use.
type Comments struct {
	store  store.CommentStore
	feed   realtime.Feed
	userID string

	mu       sync.Mutex
	gen      int
	open     bool
	loading  bool
	slideID  string
	sub      *realtime.Subscription
	items    []slide.Comment
	selected int
}

func NewComments(cs store.CommentStore, feed realtime.Feed, userID string) *Comments {
	return &Comments{store: cs, feed: feed, userID: userID}
}

// Open subscribes to slideID's changes and loads its comments. A panel
// already open on another slide is released first.
func (c *Comments) Open(ctx context.Context, slideID string) error {
	c.mu.Lock()
	c.releaseLocked()
	c.gen++
	gen := c.gen
	c.open, c.loading, c.slideID = true, true, slideID
	c.mu.Unlock()

	sub, err := c.feed.Subscribe(ctx, slideID)
	if err != nil {
		c.fail(gen)
		return fmt.Errorf("subscribe comments: %w", err)
	}
	items, err := c.store.Comments(ctx, slideID)
	if err != nil {
		sub.Close()
		c.fail(gen)
		return fmt.Errorf("load comments: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		sub.Close()
		return ErrSuperseded
	}
	c.sub, c.items, c.loading, c.selected = sub, items, false, 0
	return nil
}

// SetSlide follows the editor to another slide. A closed panel stays closed
// (ErrClosed) and a panel already on slideID keeps its subscription
// (ErrUnchanged).
func (c *Comments) SetSlide(ctx context.Context, slideID string) error {
	c.mu.Lock()
	same := c.slideID == slideID
	open := c.open
	c.mu.Unlock()
	switch {
	case !open:
		return ErrClosed
	case same:
		return ErrUnchanged
	}
	return c.Open(ctx, slideID)
}

// Close releases the subscription and drops the list.
func (c *Comments) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked()
	c.gen++
	c.open, c.loading = false, false
}

// Refresh reloads the list after a feed event. Results for a slide the
// panel has since left are discarded.
func (c *Comments) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if !c.open || c.loading {
		c.mu.Unlock()
		return nil
	}
	gen, slideID := c.gen, c.slideID
	c.mu.Unlock()

	items, err := c.store.Comments(ctx, slideID)
	if err != nil {
		return fmt.Errorf("reload comments: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == gen {
		c.items = items
		c.selected = clamp(c.selected, len(items))
	}
	return nil
}

// Events returns the live subscription's channel with the generation it
// belongs to. The channel is nil while the panel is closed or loading.
func (c *Comments) Events() (<-chan realtime.Event, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub == nil {
		return nil, c.gen
	}
	return c.sub.Events(), c.gen
}

// Current reports whether gen is still the live generation.
func (c *Comments) Current(gen int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open && c.gen == gen
}

// Add posts a new comment as the current user.
func (c *Comments) Add(ctx context.Context, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmpty
	}
	c.mu.Lock()
	open, slideID := c.open, c.slideID
	c.mu.Unlock()
	if !open {
		return ErrClosed
	}
	_, err := c.store.AddComment(ctx, slide.Comment{SlideID: slideID, AuthorID: c.userID, Content: content})
	return err
}

// ToggleResolved flips the resolved flag of one of the user's comments.
func (c *Comments) ToggleResolved(ctx context.Context, commentID string) error {
	cur, err := c.owned(commentID)
	if err != nil {
		return err
	}
	cur.Resolved = !cur.Resolved
	return c.store.UpdateComment(ctx, cur)
}

// Edit replaces the text of one of the user's comments.
func (c *Comments) Edit(ctx context.Context, commentID, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmpty
	}
	cur, err := c.owned(commentID)
	if err != nil {
		return err
	}
	cur.Content = content
	return c.store.UpdateComment(ctx, cur)
}

// Delete removes one of the user's comments.
func (c *Comments) Delete(ctx context.Context, commentID string) error {
	cur, err := c.owned(commentID)
	if err != nil {
		return err
	}
	return c.store.DeleteComment(ctx, cur)
}

// IsOpen reports whether the panel is showing a slide.
func (c *Comments) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Loading reports whether Open is still in flight.
func (c *Comments) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// SlideID is the slide the panel is on.
func (c *Comments) SlideID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slideID
}

// Items returns a copy of the loaded comments, oldest first.
func (c *Comments) Items() []slide.Comment {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]slide.Comment, len(c.items))
	copy(out, c.items)
	return out
}

// Move shifts the selection.
func (c *Comments) Move(delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = clamp(c.selected+delta, len(c.items))
}

// Selected returns the highlighted comment.
func (c *Comments) Selected() (slide.Comment, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected < 0 || c.selected >= len(c.items) {
		return slide.Comment{}, false
	}
	return c.items[c.selected], true
}

// Mine reports whether the current user wrote cm.
func (c *Comments) Mine(cm slide.Comment) bool {
	return cm.AuthorID == c.userID
}

func (c *Comments) owned(commentID string) (slide.Comment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return slide.Comment{}, ErrClosed
	}
	for _, cm := range c.items {
		if cm.ID == commentID {
			if cm.AuthorID != c.userID {
				return slide.Comment{}, ErrNotAuthor
			}
			return cm, nil
		}
	}
	return slide.Comment{}, fmt.Errorf("comment %s: %w", commentID, store.ErrNotFound)
}

func (c *Comments) fail(gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == gen {
		c.open, c.loading, c.items = false, false, nil
	}
}

func (c *Comments) releaseLocked() {
	if c.sub != nil {
		c.sub.Close()
		c.sub = nil
	}
	c.items = nil
	c.selected = 0
}

func clamp(i, n int) int {
	if n == 0 {
		return 0
	}
	return min(max(i, 0), n-1)
}
