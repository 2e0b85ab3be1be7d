// Package nav tracks the current slide of a deck.
package nav

import "slidedeck/internal/slide"

// Controller holds the current index into a deck sorted by order. The index
// is always in [0, count) when count > 0 and 0 otherwise; requests that
// would leave that range are ignored.
type Controller struct {
	current int
	count   int
}

// New returns a controller over count slides starting at start. An invalid
// start (e.g. a stale last-viewed index) falls back to 0.
func New(count, start int) *Controller {
	c := &Controller{}
	c.SetCount(count)
	c.GoTo(start)
	return c
}

// GoTo moves to index i and reports whether it did.
func (c *Controller) GoTo(i int) bool {
	if i < 0 || i >= c.count {
		return false
	}
	c.current = i
	return true
}

// Next advances one slide. No wraparound at the last slide.
func (c *Controller) Next() bool { return c.GoTo(c.current + 1) }

// Previous goes back one slide. No wraparound at the first slide.
func (c *Controller) Previous() bool { return c.GoTo(c.current - 1) }

// First jumps to the first slide.
func (c *Controller) First() bool { return c.GoTo(0) }

// Last jumps to the last slide.
func (c *Controller) Last() bool { return c.GoTo(c.count - 1) }

// SetCount updates the slide count after the deck changed, clamping the
// current index into the new range.
func (c *Controller) SetCount(n int) {
	if n < 0 {
		n = 0
	}
	c.count = n
	switch {
	case n == 0:
		c.current = 0
	case c.current >= n:
		c.current = n - 1
	}
}

// Current returns the current index.
func (c *Controller) Current() int { return c.current }

// Count returns the number of slides.
func (c *Controller) Count() int { return c.count }

// Empty reports whether there is nothing to navigate.
func (c *Controller) Empty() bool { return c.count == 0 }

// AtStart reports whether the first slide is current.
func (c *Controller) AtStart() bool { return c.current == 0 }

// AtEnd reports whether the last slide is current.
func (c *Controller) AtEnd() bool { return c.count == 0 || c.current == c.count-1 }

// Progress returns (current+1)/count, or 0 for an empty deck.
func (c *Controller) Progress() float64 {
	if c.count == 0 {
		return 0
	}
	return float64(c.current+1) / float64(c.count)
}

// Active returns the slide selected by index from slides, which must already
// be sorted by order.
func Active(index int, slides []slide.Slide) (slide.Slide, bool) {
	if index < 0 || index >= len(slides) {
		return slide.Slide{}, false
	}
	return slides[index], true
}
