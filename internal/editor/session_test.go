package editor

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidedeck/internal/ai"
	"slidedeck/internal/export"
	"slidedeck/internal/slide"
	"slidedeck/internal/store"
)

// flakyStore fails slide writes while fail is set, and the failOn-th write
// attempt when failOn is non-zero.
type flakyStore struct {
	*store.Memory
	fail     atomic.Bool
	failOn   atomic.Int32
	attempts atomic.Int32
	writes   atomic.Int32
}

func (f *flakyStore) UpdateSlideField(ctx context.Context, id string, field slide.Field, v string) error {
	n := f.attempts.Add(1)
	if f.fail.Load() || n == f.failOn.Load() {
		return errors.New("store unavailable")
	}
	f.writes.Add(1)
	return f.Memory.UpdateSlideField(ctx, id, field, v)
}

type fakeGen struct {
	text    func(ctx context.Context, prompt string) (string, error)
	image   ai.Image
	outline slide.Deck
}

func (g *fakeGen) GenerateText(ctx context.Context, prompt string) (string, error) {
	return g.text(ctx, prompt)
}

func (g *fakeGen) GenerateImage(context.Context, string) (ai.Image, error) { return g.image, nil }

func (g *fakeGen) GenerateOutline(context.Context, string, int) (slide.Deck, error) {
	return g.outline, nil
}

type fakeImages struct{ urls int }

func (f *fakeImages) PutImage(_ context.Context, slideID string, data []byte, _ string) (string, error) {
	f.urls++
	return "https://img.example.com/" + slideID + ".png", nil
}

func newSession(t *testing.T, opts ...Option) (*Session, *flakyStore) {
	t.Helper()
	mem := store.NewMemory()
	_, err := mem.CreateDeck(context.Background(), slide.Deck{ID: "d", Title: "Deck", Slides: []slide.Slide{
		{ID: "s1", Order: 0, Title: "One", Content: "first"},
		{ID: "s2", Order: 1, Title: "Two"},
	}})
	require.NoError(t, err)
	fs := &flakyStore{Memory: mem}
	s, err := Open(context.Background(), fs, "d", "me", opts...)
	require.NoError(t, err)
	return s, fs
}

func TestEditPersistsBeforeApplying(t *testing.T) {
	ctx := context.Background()
	s, fs := newSession(t)

	out, err := s.Edit(ctx, "s1", slide.FieldTitle, "Uno")
	require.NoError(t, err)
	assert.Equal(t, "Uno", out.Title)
	assert.True(t, s.CanUndo())

	stored, _ := fs.Deck(ctx, "d")
	assert.Equal(t, "Uno", stored.Slides[0].Title)

	fs.fail.Store(true)
	_, err = s.Edit(ctx, "s1", slide.FieldTitle, "Eins")
	require.Error(t, err)
	cur, _ := s.Slide("s1")
	assert.Equal(t, "Uno", cur.Title, "failed write leaves local state alone")
	assert.True(t, s.CanUndo())
	assert.False(t, s.CanRedo())
}

func TestEditSameValueIsNoop(t *testing.T) {
	s, fs := newSession(t)
	_, err := s.Edit(context.Background(), "s1", slide.FieldTitle, "One")
	require.NoError(t, err)
	assert.False(t, s.CanUndo())
	assert.Zero(t, fs.writes.Load())
}

func TestUndoRedoWriteThrough(t *testing.T) {
	ctx := context.Background()
	s, fs := newSession(t)
	_, err := s.Edit(ctx, "s1", slide.FieldContent, "second")
	require.NoError(t, err)

	e, ok, err := s.Undo(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first", e.OldValue)
	cur, _ := s.Slide("s1")
	assert.Equal(t, "first", cur.Content)
	stored, _ := fs.Deck(ctx, "d")
	assert.Equal(t, "first", stored.Slides[0].Content)

	_, ok, err = s.Redo(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	cur, _ = s.Slide("s1")
	assert.Equal(t, "second", cur.Content)

	_, ok, err = s.Redo(ctx)
	assert.NoError(t, err)
	assert.False(t, ok, "nothing to redo")
}

func TestUndoFailureKeepsEntry(t *testing.T) {
	ctx := context.Background()
	s, fs := newSession(t)
	_, err := s.Edit(ctx, "s1", slide.FieldContent, "second")
	require.NoError(t, err)

	fs.fail.Store(true)
	_, _, err = s.Undo(ctx)
	require.Error(t, err)
	assert.True(t, s.CanUndo())
	assert.False(t, s.CanRedo())
	cur, _ := s.Slide("s1")
	assert.Equal(t, "second", cur.Content)

	fs.fail.Store(false)
	_, ok, err := s.Undo(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGenerateTextApplies(t *testing.T) {
	gen := &fakeGen{text: func(context.Context, string) (string, error) { return "  - generated  ", nil }}
	s, _ := newSession(t, WithGenerator(gen))

	out, err := s.GenerateText(context.Background(), "s1", slide.FieldContent, "")
	require.NoError(t, err)
	assert.Equal(t, "- generated", out.Content)
	assert.True(t, s.CanUndo())
}

func TestGenerateTextMalformedAndUnconfigured(t *testing.T) {
	s, _ := newSession(t)
	_, err := s.GenerateText(context.Background(), "s1", slide.FieldContent, "")
	assert.ErrorIs(t, err, ErrNoAI)

	gen := &fakeGen{text: func(context.Context, string) (string, error) { return " ", nil }}
	s, _ = newSession(t, WithGenerator(gen))
	_, err = s.GenerateText(context.Background(), "s1", slide.FieldContent, "")
	assert.ErrorIs(t, err, ai.ErrMalformed)
	cur, _ := s.Slide("s1")
	assert.Equal(t, "first", cur.Content)

	_, err = s.GenerateText(context.Background(), "s1", slide.FieldLayout, "")
	assert.Error(t, err)
}

func TestManualEditBeatsInFlightGeneration(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	started := make(chan struct{})
	gen := &fakeGen{text: func(context.Context, string) (string, error) {
		close(started)
		<-release
		return "stale ai text", nil
	}}
	s, _ := newSession(t, WithGenerator(gen))

	errc := make(chan error, 1)
	go func() {
		_, err := s.GenerateText(ctx, "s1", slide.FieldContent, "")
		errc <- err
	}()
	<-started
	_, err := s.Edit(ctx, "s1", slide.FieldContent, "typed by hand")
	require.NoError(t, err)
	close(release)

	assert.ErrorIs(t, <-errc, ErrStale)
	cur, _ := s.Slide("s1")
	assert.Equal(t, "typed by hand", cur.Content)
}

func TestOlderResponseSettlingLastIsRejected(t *testing.T) {
	ctx := context.Background()
	s, _ := newSession(t)

	older := s.Issue("s1", slide.FieldNotes)
	newer := s.Issue("s1", slide.FieldNotes)
	other := s.Issue("s2", slide.FieldNotes)

	_, err := s.Settle(ctx, newer, "newer")
	require.NoError(t, err)
	_, err = s.Settle(ctx, older, "older")
	assert.ErrorIs(t, err, ErrStale)
	_, err = s.Settle(ctx, newer, "again")
	assert.ErrorIs(t, err, ErrStale, "a token applies once")

	_, err = s.Settle(ctx, other, "independent field")
	assert.NoError(t, err)

	cur, _ := s.Slide("s1")
	assert.Equal(t, "newer", cur.Notes)
}

// For any interleaving of requests, manual edits and settling responses, a
// response is applied only if it belongs to the newest request and nothing
// was written to the field since that request was issued.
func TestStaleResponsesNeverOverwriteNewerEdits(t *testing.T) {
	property := func(seed int64, steps uint8) bool {
		ctx := context.Background()
		s, _ := newSession(t)
		r := rand.New(rand.NewSource(seed))

		type pending struct {
			tok    Token
			issued int
		}
		var inflight []pending
		lastIssue, lastWrite := -1, -1
		want := "first"

		for step := 0; step < int(steps)%40+5; step++ {
			switch op := r.Intn(3); {
			case op == 0:
				inflight = append(inflight, pending{tok: s.Issue("s1", slide.FieldContent), issued: step})
				lastIssue = step
			case op == 1:
				v := "edit-" + string(rune('a'+step%26)) + string(rune('a'+step/26))
				if _, err := s.Edit(ctx, "s1", slide.FieldContent, v); err != nil {
					return false
				}
				want, lastWrite = v, step
			case len(inflight) > 0:
				i := r.Intn(len(inflight))
				p := inflight[i]
				inflight = append(inflight[:i], inflight[i+1:]...)
				v := "ai-" + string(rune('a'+step%26)) + string(rune('a'+step/26))
				_, err := s.Settle(ctx, p.tok, v)
				fresh := p.issued == lastIssue && lastWrite < p.issued
				if fresh != (err == nil) {
					return false
				}
				if err == nil {
					want, lastWrite = v, step
				}
			}
			cur, _ := s.Slide("s1")
			if cur.Content != want {
				return false
			}
		}
		return true
	}
	require.NoError(t, quick.Check(property, &quick.Config{MaxCount: 300}))
}

func TestGenerateImage(t *testing.T) {
	gen := &fakeGen{image: ai.Image{Data: []byte{1, 2, 3}, MIMEType: "image/png"}}
	s, _ := newSession(t, WithGenerator(gen))
	_, err := s.GenerateImage(context.Background(), "s2")
	assert.ErrorIs(t, err, ErrNoMedia)

	imgs := &fakeImages{}
	s, _ = newSession(t, WithGenerator(gen), WithImageStore(imgs))
	out, err := s.GenerateImage(context.Background(), "s2")
	require.NoError(t, err)
	assert.Equal(t, "https://img.example.com/s2.png", out.ImageURL)
	assert.Equal(t, 1, imgs.urls)
}

func TestRestoreIsForwardEdit(t *testing.T) {
	ctx := context.Background()
	s, fs := newSession(t)

	v1, err := s.SaveVersion(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, v1.VersionNumber)
	assert.Equal(t, "me", v1.AuthorID)

	_, err = s.Edit(ctx, "s1", slide.FieldTitle, "Changed")
	require.NoError(t, err)
	_, err = s.Edit(ctx, "s1", slide.FieldContent, "changed too")
	require.NoError(t, err)

	v, err := s.Restore(ctx, v1)
	require.NoError(t, err)
	assert.Equal(t, 2, v.VersionNumber)

	cur, _ := s.Slide("s1")
	assert.Equal(t, "One", cur.Title)
	assert.Equal(t, "first", cur.Content)

	versions, _ := fs.Versions(ctx, "s1")
	assert.Len(t, versions, 2, "restore never deletes history")

	_, ok, err := s.Undo(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	cur, _ = s.Slide("s1")
	assert.Equal(t, "changed too", cur.Content, "restore can be undone field by field")
}

func TestRestoreFailureLeavesSlideWhole(t *testing.T) {
	ctx := context.Background()
	s, fs := newSession(t)

	v1, err := s.SaveVersion(ctx, "s1")
	require.NoError(t, err)
	_, err = s.Edit(ctx, "s1", slide.FieldTitle, "Changed")
	require.NoError(t, err)
	_, err = s.Edit(ctx, "s1", slide.FieldContent, "changed")
	require.NoError(t, err)

	fs.attempts.Store(0)
	fs.failOn.Store(2)
	_, err = s.Restore(ctx, v1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store unavailable")

	cur, _ := s.Slide("s1")
	assert.Equal(t, "Changed", cur.Title)
	assert.Equal(t, "changed", cur.Content)

	stored, err := fs.Deck(ctx, "d")
	require.NoError(t, err)
	assert.Equal(t, "Changed", stored.Slides[0].Title, "written fields are put back")
	assert.Equal(t, "changed", stored.Slides[0].Content)

	versions, _ := fs.Versions(ctx, "s1")
	assert.Len(t, versions, 1)

	e, ok, err := s.Undo(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, slide.FieldContent, e.Field, "history holds only the manual edits")
	assert.Equal(t, "first", e.OldValue)

	fs.failOn.Store(0)
	_, err = s.Restore(ctx, v1)
	require.NoError(t, err)
	cur, _ = s.Slide("s1")
	assert.Equal(t, "One", cur.Title)
	assert.Equal(t, "first", cur.Content)
}

func TestPublishUnpublish(t *testing.T) {
	ctx := context.Background()
	s, fs := newSession(t)

	slug, err := s.Publish(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, slug)
	assert.True(t, s.Deck().IsPublic)
	_, err = fs.DeckBySlug(ctx, slug)
	require.NoError(t, err)

	require.NoError(t, s.Unpublish(ctx))
	assert.False(t, s.Deck().IsPublic)
	assert.Empty(t, s.Deck().ShareSlug)
	_, err = fs.DeckBySlug(ctx, slug)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestExportPDF(t *testing.T) {
	s, _ := newSession(t)
	var buf bytes.Buffer
	require.NoError(t, s.ExportPDF(&buf, export.Options{}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestNewDeck(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	gen := &fakeGen{outline: slide.Deck{Title: "Go", IsPublic: true, Slides: []slide.Slide{{Title: "Intro"}, {Title: "More", Order: 1}}}}

	_, err := NewDeck(ctx, mem, nil, "me", "go", 5)
	assert.ErrorIs(t, err, ErrNoAI)
	_, err = NewDeck(ctx, mem, gen, "me", " ", 5)
	assert.Error(t, err)

	d, err := NewDeck(ctx, mem, gen, "me", "go", 5)
	require.NoError(t, err)
	assert.Equal(t, "me", d.OwnerID)
	assert.False(t, d.IsPublic, "new decks start private")
	loaded, err := mem.Deck(ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Slides, 2)
}
