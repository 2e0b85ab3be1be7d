// Package share toggles public read-only access to a deck. A deck is public
// exactly when it carries a share slug.
package share

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"slidedeck/internal/slide"
	"slidedeck/internal/store"
)

// Visibility is the store surface the share toggle needs.
type Visibility interface {
	SetVisibility(ctx context.Context, deckID string, public bool, slug string) error
}

// Resolver looks decks up by slug.
type Resolver interface {
	DeckBySlug(ctx context.Context, slug string) (slide.Deck, error)
}

// NewSlug returns an opaque, unguessable share token.
func NewSlug() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Publish makes d public. An already public deck keeps its slug.
func Publish(ctx context.Context, v Visibility, d slide.Deck) (slide.Deck, error) {
	if d.IsPublic && d.ShareSlug != "" {
		return d, nil
	}
	slug := NewSlug()
	if err := v.SetVisibility(ctx, d.ID, true, slug); err != nil {
		return d, fmt.Errorf("publish %s: %w", d.ID, err)
	}
	d.IsPublic, d.ShareSlug = true, slug
	return d, nil
}

// Unpublish revokes public access. The old slug stops resolving.
func Unpublish(ctx context.Context, v Visibility, d slide.Deck) (slide.Deck, error) {
	if err := v.SetVisibility(ctx, d.ID, false, ""); err != nil {
		return d, fmt.Errorf("unpublish %s: %w", d.ID, err)
	}
	d.IsPublic, d.ShareSlug = false, ""
	return d, nil
}

// Resolve returns the public deck for slug. Unknown and private decks are
// both store.ErrNotFound.
func Resolve(ctx context.Context, r Resolver, slug string) (slide.Deck, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return slide.Deck{}, store.ErrNotFound
	}
	d, err := r.DeckBySlug(ctx, slug)
	if err != nil {
		return slide.Deck{}, err
	}
	if !d.IsPublic || d.ShareSlug != slug {
		return slide.Deck{}, store.ErrNotFound
	}
	d.Slides = slide.Sorted(d.Slides)
	return d, nil
}

// SharedURL is the public viewer address for slug.
func SharedURL(base, slug string) string {
	return strings.TrimRight(base, "/") + "/shared/" + url.PathEscape(slug)
}

// PresentURL is the owner's presentation address for a deck.
func PresentURL(base, deckID string) string {
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(deckID) + "/present"
}
