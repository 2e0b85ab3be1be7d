package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"slidedeck/internal/slide"
)

// Memory is an in-process Store. It backs offline sessions (seeded from a
// slides directory) and tests.
type Memory struct {
	mu       sync.RWMutex
	decks    map[string]slide.Deck
	slides   map[string]slide.Slide
	comments map[string]slide.Comment
	versions map[string][]slide.Version
	now      func() time.Time
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		decks:    make(map[string]slide.Deck),
		slides:   make(map[string]slide.Slide),
		comments: make(map[string]slide.Comment),
		versions: make(map[string][]slide.Version),
		now:      time.Now,
	}
}

// Deck implements DeckReader.
func (m *Memory) Deck(ctx context.Context, deckID string) (slide.Deck, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.decks[deckID]
	if !ok {
		return slide.Deck{}, fmt.Errorf("deck %s: %w", deckID, ErrNotFound)
	}
	return m.withSlides(d), nil
}

// DeckBySlug implements Store.
func (m *Memory) DeckBySlug(ctx context.Context, slug string) (slide.Deck, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if slug == "" {
		return slide.Deck{}, fmt.Errorf("empty slug: %w", ErrNotFound)
	}
	for _, d := range m.decks {
		if d.ShareSlug == slug && d.IsPublic {
			return m.withSlides(d), nil
		}
	}
	return slide.Deck{}, fmt.Errorf("shared deck %s: %w", slug, ErrNotFound)
}

// CreateDeck implements Store.
func (m *Memory) CreateDeck(ctx context.Context, d slide.Deck) (slide.Deck, error) {
	if err := d.Validate(); err != nil {
		return slide.Deck{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if _, exists := m.decks[d.ID]; exists {
		return slide.Deck{}, fmt.Errorf("deck %s already exists", d.ID)
	}
	for _, s := range d.Slides {
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		s.DeckID = d.ID
		m.slides[s.ID] = s
	}
	stored := d
	stored.Slides = nil
	m.decks[d.ID] = stored
	return m.withSlides(stored), nil
}

// UpdateSlideField implements SlideWriter.
func (m *Memory) UpdateSlideField(ctx context.Context, slideID string, field slide.Field, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slides[slideID]
	if !ok {
		return fmt.Errorf("slide %s: %w", slideID, ErrNotFound)
	}
	next, err := s.With(field, value)
	if err != nil {
		return err
	}
	m.slides[slideID] = next
	return nil
}

// SetVisibility implements Store.
func (m *Memory) SetVisibility(ctx context.Context, deckID string, public bool, slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.decks[deckID]
	if !ok {
		return fmt.Errorf("deck %s: %w", deckID, ErrNotFound)
	}
	d.IsPublic = public
	d.ShareSlug = slug
	if err := d.Validate(); err != nil {
		return err
	}
	m.decks[deckID] = d
	return nil
}

// Comments implements CommentStore, oldest first.
func (m *Memory) Comments(ctx context.Context, slideID string) ([]slide.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []slide.Comment
	for _, c := range m.comments {
		if c.SlideID == slideID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// AddComment implements CommentStore.
func (m *Memory) AddComment(ctx context.Context, c slide.Comment) (slide.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.slides[c.SlideID]; !ok {
		return slide.Comment{}, fmt.Errorf("slide %s: %w", c.SlideID, ErrNotFound)
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = m.now()
	}
	m.comments[c.ID] = c
	return c, nil
}

// UpdateComment implements CommentStore.
func (m *Memory) UpdateComment(ctx context.Context, c slide.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.comments[c.ID]
	if !ok || cur.AuthorID != c.AuthorID {
		return fmt.Errorf("comment %s: %w", c.ID, ErrNotFound)
	}
	cur.Content = c.Content
	cur.Resolved = c.Resolved
	m.comments[c.ID] = cur
	return nil
}

// DeleteComment implements CommentStore.
func (m *Memory) DeleteComment(ctx context.Context, c slide.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.comments[c.ID]
	if !ok || cur.AuthorID != c.AuthorID {
		return fmt.Errorf("comment %s: %w", c.ID, ErrNotFound)
	}
	delete(m.comments, c.ID)
	return nil
}

// Versions implements VersionStore, newest first.
func (m *Memory) Versions(ctx context.Context, slideID string) ([]slide.Version, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.versions[slideID]
	out := make([]slide.Version, len(src))
	for i, v := range src {
		out[len(src)-1-i] = v
	}
	return out, nil
}

// AppendVersion implements VersionStore.
func (m *Memory) AppendVersion(ctx context.Context, v slide.Version) (slide.Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.slides[v.SlideID]; !ok {
		return slide.Version{}, fmt.Errorf("slide %s: %w", v.SlideID, ErrNotFound)
	}
	list := m.versions[v.SlideID]
	v.ID = uuid.NewString()
	v.VersionNumber = len(list) + 1
	v.CreatedAt = m.now()
	m.versions[v.SlideID] = append(list, v)
	return v, nil
}

// withSlides attaches the deck's slides sorted by order. Caller holds mu.
func (m *Memory) withSlides(d slide.Deck) slide.Deck {
	var slides []slide.Slide
	for _, s := range m.slides {
		if s.DeckID == d.ID {
			slides = append(slides, s)
		}
	}
	sort.Slice(slides, func(i, j int) bool {
		if slides[i].Order == slides[j].Order {
			return slides[i].ID < slides[j].ID
		}
		return slides[i].Order < slides[j].Order
	})
	d.Slides = slides
	return d
}
