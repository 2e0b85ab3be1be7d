package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidedeck/internal/slide"
)

func seeded(t *testing.T) (*Memory, slide.Deck) {
	t.Helper()
	m := NewMemory()
	d, err := m.CreateDeck(context.Background(), slide.Deck{
		ID:    "deck",
		Title: "Demo",
		Slides: []slide.Slide{
			{ID: "b", Order: 1, Title: "Second"},
			{ID: "a", Order: 0, Title: "First"},
		},
	})
	require.NoError(t, err)
	return m, d
}

func TestMemoryDeckSortedByOrder(t *testing.T) {
	m, created := seeded(t)
	require.Len(t, created.Slides, 2)

	d, err := m.Deck(context.Background(), "deck")
	require.NoError(t, err)
	assert.Equal(t, "First", d.Slides[0].Title)
	assert.Equal(t, "Second", d.Slides[1].Title)
	assert.Equal(t, "deck", d.Slides[0].DeckID)

	_, err = m.Deck(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryCreateDeckLeavesInputAlone(t *testing.T) {
	m := NewMemory()
	in := []slide.Slide{{Title: "x"}}
	d, err := m.CreateDeck(context.Background(), slide.Deck{Slides: in})
	require.NoError(t, err)
	assert.NotEmpty(t, d.ID)
	assert.NotEmpty(t, d.Slides[0].ID)
	assert.Empty(t, in[0].ID)
}

func TestMemoryUpdateSlideField(t *testing.T) {
	m, _ := seeded(t)
	ctx := context.Background()

	require.NoError(t, m.UpdateSlideField(ctx, "a", slide.FieldContent, "body"))
	d, _ := m.Deck(ctx, "deck")
	assert.Equal(t, "body", d.Slides[0].Content)

	assert.ErrorIs(t, m.UpdateSlideField(ctx, "zz", slide.FieldContent, "x"), ErrNotFound)
	assert.Error(t, m.UpdateSlideField(ctx, "a", slide.Field("bogus"), "x"))
}

func TestMemoryShareState(t *testing.T) {
	m, _ := seeded(t)
	ctx := context.Background()

	_, err := m.DeckBySlug(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, m.SetVisibility(ctx, "deck", true, ""), slide.ErrShareState)
	require.NoError(t, m.SetVisibility(ctx, "deck", true, "abc"))
	d, err := m.DeckBySlug(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "deck", d.ID)

	require.NoError(t, m.SetVisibility(ctx, "deck", false, ""))
	_, err = m.DeckBySlug(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryCommentsAuthorOnly(t *testing.T) {
	m, _ := seeded(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	second, err := m.AddComment(ctx, slide.Comment{SlideID: "a", AuthorID: "u1", Content: "later", CreatedAt: base.Add(time.Minute)})
	require.NoError(t, err)
	_, err = m.AddComment(ctx, slide.Comment{SlideID: "a", AuthorID: "u2", Content: "earlier", CreatedAt: base})
	require.NoError(t, err)

	list, err := m.Comments(ctx, "a")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "earlier", list[0].Content)

	edit := second
	edit.AuthorID = "u2"
	edit.Content = "hijack"
	assert.ErrorIs(t, m.UpdateComment(ctx, edit), ErrNotFound)
	assert.ErrorIs(t, m.DeleteComment(ctx, edit), ErrNotFound)

	second.Resolved = true
	require.NoError(t, m.UpdateComment(ctx, second))
	require.NoError(t, m.DeleteComment(ctx, second))
	list, _ = m.Comments(ctx, "a")
	assert.Len(t, list, 1)

	_, err = m.AddComment(ctx, slide.Comment{SlideID: "nope", AuthorID: "u1"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryVersionsNumberedNewestFirst(t *testing.T) {
	m, _ := seeded(t)
	ctx := context.Background()

	for _, title := range []string{"v1", "v2", "v3"} {
		_, err := m.AppendVersion(ctx, slide.Version{SlideID: "a", Title: title})
		require.NoError(t, err)
	}
	list, err := m.Versions(ctx, "a")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, 3, list[0].VersionNumber)
	assert.Equal(t, "v3", list[0].Title)
	assert.Equal(t, 1, list[2].VersionNumber)

	_, err = m.AppendVersion(ctx, slide.Version{SlideID: "nope"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParseSlide(t *testing.T) {
	s := ParseSlide("---\nlayout: quote\nbackground: #112233\nsection: Intro\n---\n# Hello\n## World\n\nBody text\n???\nSay hi\n")
	assert.Equal(t, slide.LayoutQuote, s.Layout)
	assert.Equal(t, "#112233", s.BackgroundColor)
	assert.Equal(t, "Intro", s.SectionName)
	assert.Equal(t, "Hello", s.Title)
	assert.Equal(t, "World", s.Subtitle)
	assert.Equal(t, "Body text", s.Content)
	assert.Equal(t, "Say hi", s.Notes)

	plain := ParseSlide("just text")
	assert.Equal(t, slide.LayoutContent, plain.Layout)
	assert.Equal(t, "just text", plain.Content)
	assert.Empty(t, plain.Title)
}

func TestParseSlideCRLF(t *testing.T) {
	s := ParseSlide("---\r\nlayout: quote\r\n---\r\n# Hello\r\n## World\r\n\r\nBody\r\n???\r\nSay hi\r\n")
	assert.Equal(t, slide.LayoutQuote, s.Layout)
	assert.Equal(t, "Hello", s.Title)
	assert.Equal(t, "World", s.Subtitle)
	assert.Equal(t, "Body", s.Content)
	assert.Equal(t, "Say hi", s.Notes)
}

func TestParseSlideKeepsLongLines(t *testing.T) {
	long := strings.Repeat("x", 2<<20)
	s := ParseSlide("# Big\n" + long + "\nafter")
	assert.Equal(t, "Big", s.Title)
	assert.Equal(t, long+"\nafter", s.Content)
}

func TestDirLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "talk")
	require.NoError(t, os.Mkdir(dir, 0o755))
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("_title.md", "My Talk\n")
	write("02-end.md", "# End")
	write("01-start.md", "# Start\nhello")
	write("notes.txt", "ignored")

	d := NewDir(dir)
	deck, err := d.Deck(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "talk", deck.ID)
	assert.Equal(t, "My Talk", deck.Title)
	require.Len(t, deck.Slides, 2)
	assert.Equal(t, "Start", deck.Slides[0].Title)
	assert.Equal(t, 1, deck.Slides[1].Order)
	assert.Equal(t, "talk/02-end", deck.Slides[1].ID)

	_, err = d.Deck(context.Background(), "other")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = NewDir(filepath.Join(dir, "missing")).Load()
	assert.ErrorIs(t, err, ErrNotFound)
}
