// Package editor is the editing side of a deck: field edits with undo and
// redo, AI generation guarded against stale responses, version snapshots,
// sharing and export, plus the terminal editor built on them.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"slidedeck/internal/ai"
	"slidedeck/internal/export"
	"slidedeck/internal/history"
	"slidedeck/internal/share"
	"slidedeck/internal/slide"
	"slidedeck/internal/store"
)

var (
	// ErrStale rejects a generated value that a newer request or a manual
	// edit has superseded.
	ErrStale   = errors.New("response superseded by a newer edit")
	ErrNoAI    = errors.New("AI generation is not configured")
	ErrNoMedia = errors.New("image storage is not configured")
)

// Generator is the generative AI collaborator.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	GenerateImage(ctx context.Context, prompt string) (ai.Image, error)
	GenerateOutline(ctx context.Context, topic string, slides int) (slide.Deck, error)
}

// ImageStore keeps generated images and returns their URL.
type ImageStore interface {
	PutImage(ctx context.Context, slideID string, data []byte, contentType string) (string, error)
}

// Session edits one deck. Writes are persisted before local state changes;
// a failed write leaves the session untouched. All methods are safe to call
// from concurrent goroutines.
type Session struct {
	store  store.Store
	gen    Generator
	images ImageStore
	userID string
	guard  *Guard

	// writeMu serializes store writes with the local state changes that
	// follow them; mu guards the state itself.
	writeMu sync.Mutex
	mu      sync.Mutex
	deck    slide.Deck
	history *history.Stack
}

// Option configures a Session.
type Option func(*Session)

func WithGenerator(g Generator) Option { return func(s *Session) { s.gen = g } }
func WithImageStore(is ImageStore) Option { return func(s *Session) { s.images = is } }
func WithHistoryCapacity(n int) Option {
	return func(s *Session) { s.history = history.New(n) }
}

// Open loads deckID for userID.
func Open(ctx context.Context, st store.Store, deckID, userID string, opts ...Option) (*Session, error) {
	d, err := st.Deck(ctx, deckID)
	if err != nil {
		return nil, err
	}
	s := &Session{
		store:   st,
		userID:  userID,
		guard:   NewGuard(),
		deck:    d,
		history: history.New(history.DefaultCapacity),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.deck.Slides = slide.Sorted(s.deck.Slides)
	return s, nil
}

// Deck returns a copy of the deck being edited.
func (s *Session) Deck() slide.Deck {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.deck
	d.Slides = append([]slide.Slide(nil), s.deck.Slides...)
	return d
}

// Slide returns the current state of one slide.
func (s *Session) Slide(slideID string) (slide.Slide, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.deck.Index(slideID); i >= 0 {
		return s.deck.Slides[i], true
	}
	return slide.Slide{}, false
}

func (s *Session) UserID() string { return s.userID }

func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo()
}

func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo()
}

// Edit sets one field. The store write comes first; on success the value is
// applied, recorded for undo, and any generation in flight for the field is
// invalidated. Setting a field to its current value is a no-op.
func (s *Session) Edit(ctx context.Context, slideID string, field slide.Field, value string) (slide.Slide, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	out, err := s.commit(ctx, slideID, field, value)
	if err != nil {
		return out, err
	}
	s.guard.Invalidate(slideID, field)
	return out, nil
}

// Undo reverts the most recent edit. If the write fails the entry stays on
// the undo stack.
func (s *Session) Undo(ctx context.Context) (history.Entry, bool, error) {
	return s.step(ctx, (*history.Stack).Undo, (*history.Stack).Redo, func(e history.Entry) string { return e.OldValue })
}

// Redo reapplies the most recently undone edit. If the write fails the entry
// stays on the redo stack.
func (s *Session) Redo(ctx context.Context) (history.Entry, bool, error) {
	return s.step(ctx, (*history.Stack).Redo, (*history.Stack).Undo, func(e history.Entry) string { return e.NewValue })
}

func (s *Session) step(ctx context.Context, move, revert func(*history.Stack) (history.Entry, bool), value func(history.Entry) string) (history.Entry, bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	e, ok := move(s.history)
	s.mu.Unlock()
	if !ok {
		return history.Entry{}, false, nil
	}

	v := value(e)
	if err := s.store.UpdateSlideField(ctx, e.SlideID, e.Field, v); err != nil {
		s.mu.Lock()
		revert(s.history)
		s.mu.Unlock()
		return e, true, fmt.Errorf("save %s: %w", e.Field, err)
	}
	s.guard.Invalidate(e.SlideID, e.Field)
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.deck.Index(e.SlideID); i >= 0 {
		if next, err := s.deck.Slides[i].With(e.Field, v); err == nil {
			s.deck.Slides[i] = next
		}
	}
	return e, true, nil
}

// GenerateText asks the AI for a new value of field and applies it unless a
// newer request or edit for the same field happened meanwhile.
func (s *Session) GenerateText(ctx context.Context, slideID string, field slide.Field, instruction string) (slide.Slide, error) {
	if s.gen == nil {
		return slide.Slide{}, ErrNoAI
	}
	if !field.Valid() || field == slide.FieldImageURL || field == slide.FieldLayout {
		return slide.Slide{}, fmt.Errorf("field %q cannot be generated", field)
	}
	cur, ok := s.Slide(slideID)
	if !ok {
		return slide.Slide{}, fmt.Errorf("slide %s: %w", slideID, store.ErrNotFound)
	}
	tok := s.guard.Issue(slideID, field)
	txt, err := s.gen.GenerateText(ctx, ai.FieldPrompt(cur, field, instruction))
	if err != nil {
		return slide.Slide{}, fmt.Errorf("generate %s: %w", field, err)
	}
	txt = strings.TrimSpace(txt)
	if txt == "" {
		return slide.Slide{}, ai.ErrMalformed
	}
	return s.Settle(ctx, tok, txt)
}

// GenerateImage generates an illustration, stores it and points imageUrl at
// it.
func (s *Session) GenerateImage(ctx context.Context, slideID string) (slide.Slide, error) {
	if s.gen == nil {
		return slide.Slide{}, ErrNoAI
	}
	if s.images == nil {
		return slide.Slide{}, ErrNoMedia
	}
	cur, ok := s.Slide(slideID)
	if !ok {
		return slide.Slide{}, fmt.Errorf("slide %s: %w", slideID, store.ErrNotFound)
	}
	tok := s.guard.Issue(slideID, slide.FieldImageURL)
	img, err := s.gen.GenerateImage(ctx, ai.ImagePrompt(cur))
	if err != nil {
		return slide.Slide{}, fmt.Errorf("generate image: %w", err)
	}
	if !s.guard.Accept(tok) {
		return slide.Slide{}, ErrStale
	}
	url, err := s.images.PutImage(ctx, slideID, img.Data, img.MIMEType)
	if err != nil {
		return slide.Slide{}, fmt.Errorf("store image: %w", err)
	}
	return s.Settle(ctx, tok, url)
}

// Settle applies a response for tok if tok is still current. It is the
// single path through which generated values reach a slide.
func (s *Session) Settle(ctx context.Context, tok Token, value string) (slide.Slide, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if !s.guard.Accept(tok) {
		return slide.Slide{}, ErrStale
	}
	out, err := s.commit(ctx, tok.SlideID, tok.Field, value)
	if err != nil {
		return out, err
	}
	s.guard.Invalidate(tok.SlideID, tok.Field)
	return out, nil
}

// Issue starts a generation request for a field. Callers that produce the
// value themselves hand it to Settle.
func (s *Session) Issue(slideID string, field slide.Field) Token {
	return s.guard.Issue(slideID, field)
}

// commit writes and applies one field. Caller holds writeMu.
func (s *Session) commit(ctx context.Context, slideID string, field slide.Field, value string) (slide.Slide, error) {
	cur, ok := s.Slide(slideID)
	if !ok {
		return slide.Slide{}, fmt.Errorf("slide %s: %w", slideID, store.ErrNotFound)
	}
	next, err := cur.With(field, value)
	if err != nil {
		return cur, err
	}
	oldValue, newValue := cur.Get(field), next.Get(field)
	if oldValue == newValue {
		return cur, nil
	}
	if err := s.store.UpdateSlideField(ctx, slideID, field, newValue); err != nil {
		return cur, fmt.Errorf("save %s: %w", field, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.deck.Index(slideID); i >= 0 {
		s.deck.Slides[i] = next
	}
	s.history.Push(history.Entry{SlideID: slideID, Field: field, OldValue: oldValue, NewValue: newValue})
	return next, nil
}

// SaveVersion appends a snapshot of the slide's current text fields.
func (s *Session) SaveVersion(ctx context.Context, slideID string) (slide.Version, error) {
	cur, ok := s.Slide(slideID)
	if !ok {
		return slide.Version{}, fmt.Errorf("slide %s: %w", slideID, store.ErrNotFound)
	}
	v, err := s.store.AppendVersion(ctx, slide.SnapshotOf(cur, s.userID))
	if err != nil {
		return slide.Version{}, fmt.Errorf("save version: %w", err)
	}
	return v, nil
}

// Restore brings a slide back to v as forward edits, so it can itself be
// undone field by field, and records the result as a new version. Nothing
// is deleted. Either every differing field is written or none is: after a
// failed write the fields already written are put back and local state is
// left alone.
func (s *Session) Restore(ctx context.Context, v slide.Version) (slide.Version, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cur, ok := s.Slide(v.SlideID)
	if !ok {
		return slide.Version{}, fmt.Errorf("slide %s: %w", v.SlideID, store.ErrNotFound)
	}
	next := cur
	var changed []slide.Field
	for _, f := range slide.VersionedFields {
		if cur.Get(f) == v.Get(f) {
			continue
		}
		n, err := next.With(f, v.Get(f))
		if err != nil {
			return slide.Version{}, fmt.Errorf("restore version %d: %w", v.VersionNumber, err)
		}
		if n.Get(f) != cur.Get(f) {
			next = n
			changed = append(changed, f)
		}
	}

	for i, f := range changed {
		if err := s.store.UpdateSlideField(ctx, v.SlideID, f, next.Get(f)); err != nil {
			err = fmt.Errorf("save %s: %w", f, err)
			for _, w := range changed[:i] {
				if rerr := s.store.UpdateSlideField(ctx, v.SlideID, w, cur.Get(w)); rerr != nil {
					err = errors.Join(err, fmt.Errorf("roll back %s: %w", w, rerr))
				}
			}
			return slide.Version{}, fmt.Errorf("restore version %d: %w", v.VersionNumber, err)
		}
	}

	s.mu.Lock()
	if i := s.deck.Index(v.SlideID); i >= 0 {
		s.deck.Slides[i] = next
	}
	for _, f := range changed {
		s.history.Push(history.Entry{SlideID: v.SlideID, Field: f, OldValue: cur.Get(f), NewValue: next.Get(f)})
	}
	s.mu.Unlock()
	for _, f := range changed {
		s.guard.Invalidate(v.SlideID, f)
	}
	return s.SaveVersion(ctx, v.SlideID)
}

// Publish makes the deck public and returns its share slug.
func (s *Session) Publish(ctx context.Context) (string, error) {
	d, err := share.Publish(ctx, s.store, s.Deck())
	if err != nil {
		return "", err
	}
	s.setShare(d)
	return d.ShareSlug, nil
}

// Unpublish revokes public access.
func (s *Session) Unpublish(ctx context.Context) error {
	d, err := share.Unpublish(ctx, s.store, s.Deck())
	if err != nil {
		return err
	}
	s.setShare(d)
	return nil
}

func (s *Session) setShare(d slide.Deck) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deck.IsPublic, s.deck.ShareSlug = d.IsPublic, d.ShareSlug
}

// ExportPDF writes the deck as it currently stands.
func (s *Session) ExportPDF(w io.Writer, opts export.Options) error {
	return export.PDF(w, s.Deck(), opts)
}

// NewDeck drafts a deck about topic with the AI and stores it for owner.
func NewDeck(ctx context.Context, st store.Store, gen Generator, owner, topic string, slides int) (slide.Deck, error) {
	if gen == nil {
		return slide.Deck{}, ErrNoAI
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return slide.Deck{}, errors.New("topic is required")
	}
	d, err := gen.GenerateOutline(ctx, topic, slides)
	if err != nil {
		return slide.Deck{}, fmt.Errorf("generate outline: %w", err)
	}
	d.OwnerID = owner
	d.IsPublic, d.ShareSlug = false, ""
	return st.CreateDeck(ctx, d)
}
