package editor

import (
	"sync"

	"slidedeck/internal/slide"
)

type fieldKey struct {
	slideID string
	field   slide.Field
}

// Token identifies one generation request for a slide field.
type Token struct {
	SlideID string
	Field   slide.Field
	n       uint64
}

// Guard hands out monotonically increasing request tokens per slide field.
// Only the most recently issued token is accepted, and a manual edit
// invalidates every outstanding token for its field.
type Guard struct {
	mu     sync.Mutex
	next   uint64
	latest map[fieldKey]uint64
}

func NewGuard() *Guard {
	return &Guard{latest: make(map[fieldKey]uint64)}
}

// Issue starts a request and supersedes any earlier one for the field.
func (g *Guard) Issue(slideID string, field slide.Field) Token {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	g.latest[fieldKey{slideID, field}] = g.next
	return Token{SlideID: slideID, Field: field, n: g.next}
}

// Accept reports whether t is still the newest request for its field.
func (g *Guard) Accept(t Token) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return t.n != 0 && g.latest[fieldKey{t.SlideID, t.Field}] == t.n
}

// Invalidate rejects every outstanding token for the field.
func (g *Guard) Invalidate(slideID string, field slide.Field) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	g.latest[fieldKey{slideID, field}] = g.next
}
