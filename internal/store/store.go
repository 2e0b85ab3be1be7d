// Package store adapts the hosted data store the decks live in. The core
// only reads and writes the fields it touches; the schema belongs to the
// store.
package store

import (
	"context"
	"errors"

	"slidedeck/internal/slide"
)

var ErrNotFound = errors.New("not found")

// DeckReader loads a deck with its slides sorted by order.
type DeckReader interface {
	Deck(ctx context.Context, deckID string) (slide.Deck, error)
}

// SlideWriter persists single-field slide edits.
type SlideWriter interface {
	UpdateSlideField(ctx context.Context, slideID string, field slide.Field, value string) error
}

// CommentStore reads and mutates slide comments. UpdateComment and
// DeleteComment match on ID and AuthorID, so only the author's own rows are
// touched.
type CommentStore interface {
	Comments(ctx context.Context, slideID string) ([]slide.Comment, error)
	AddComment(ctx context.Context, c slide.Comment) (slide.Comment, error)
	UpdateComment(ctx context.Context, c slide.Comment) error
	DeleteComment(ctx context.Context, c slide.Comment) error
}

// VersionStore reads and appends slide snapshots. AppendVersion assigns the
// next version number for the slide.
type VersionStore interface {
	Versions(ctx context.Context, slideID string) ([]slide.Version, error)
	AppendVersion(ctx context.Context, v slide.Version) (slide.Version, error)
}

// Store is the full collaborator surface used by the editor.
type Store interface {
	DeckReader
	SlideWriter
	CommentStore
	VersionStore

	// DeckBySlug resolves a share slug. Private decks resolve to ErrNotFound.
	DeckBySlug(ctx context.Context, slug string) (slide.Deck, error)
	// CreateDeck stores a new deck and its slides, assigning missing ids.
	CreateDeck(ctx context.Context, d slide.Deck) (slide.Deck, error)
	// SetVisibility writes isPublic and shareSlug together.
	SetVisibility(ctx context.Context, deckID string, public bool, slug string) error
}
