package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"slidedeck/internal/slide"
)

// postgresDeck opens TEST_DATABASE_URL and seeds a two-slide deck with
// fresh ids. Rows are removed when the test ends.
func postgresDeck(t *testing.T) (*Postgres, slide.Deck) {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	p := NewPostgres(db)
	require.NoError(t, p.Migrate())
	t.Cleanup(func() { p.Close() })

	ctx := context.Background()
	d, err := p.CreateDeck(ctx, slide.Deck{
		ID:      "deck-" + uuid.NewString(),
		OwnerID: "owner",
		Title:   "Hosted",
		Slides: []slide.Slide{
			{ID: uuid.NewString(), Order: 1, Title: "Second", Layout: slide.LayoutQuote},
			{ID: uuid.NewString(), Order: 0, Title: "First"},
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		ids := []string{d.Slides[0].ID, d.Slides[1].ID}
		db.Where("slide_id IN ?", ids).Delete(&versionRow{})
		db.Where("slide_id IN ?", ids).Delete(&commentRow{})
		db.Where("deck_id = ?", d.ID).Delete(&slideRow{})
		db.Where("id = ?", d.ID).Delete(&deckRow{})
	})
	return p, d
}

func TestPostgresDeckRoundTrip(t *testing.T) {
	p, created := postgresDeck(t)
	ctx := context.Background()

	d, err := p.Deck(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hosted", d.Title)
	require.Len(t, d.Slides, 2)
	assert.Equal(t, "First", d.Slides[0].Title)
	assert.Equal(t, slide.LayoutQuote, d.Slides[1].Layout)
	assert.Equal(t, created.ID, d.Slides[0].DeckID)

	_, err = p.Deck(ctx, "missing-"+uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresUpdateSlideField(t *testing.T) {
	p, d := postgresDeck(t)
	ctx := context.Background()
	first := d.Slides[0].ID

	require.NoError(t, p.UpdateSlideField(ctx, first, slide.FieldContent, "body"))
	require.NoError(t, p.UpdateSlideField(ctx, first, slide.FieldImageURL, "https://img.example.com/a.png"))
	require.NoError(t, p.UpdateSlideField(ctx, first, slide.FieldLayout, "bogus"))
	got, err := p.Deck(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "body", got.Slides[0].Content)
	assert.Equal(t, "https://img.example.com/a.png", got.Slides[0].ImageURL)
	assert.Equal(t, slide.LayoutContent, got.Slides[0].Layout, "unknown layouts are stored as content")

	assert.ErrorIs(t, p.UpdateSlideField(ctx, "missing-"+uuid.NewString(), slide.FieldContent, "x"), ErrNotFound)
	assert.Error(t, p.UpdateSlideField(ctx, first, slide.Field("bogus"), "x"))
}

func TestPostgresShareState(t *testing.T) {
	p, d := postgresDeck(t)
	ctx := context.Background()
	slug := uuid.NewString()

	_, err := p.DeckBySlug(ctx, slug)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, p.SetVisibility(ctx, d.ID, true, ""), slide.ErrShareState)
	require.NoError(t, p.SetVisibility(ctx, d.ID, true, slug))
	shared, err := p.DeckBySlug(ctx, slug)
	require.NoError(t, err)
	assert.Equal(t, d.ID, shared.ID)
	assert.True(t, shared.IsPublic)

	require.NoError(t, p.SetVisibility(ctx, d.ID, false, ""))
	_, err = p.DeckBySlug(ctx, slug)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, p.SetVisibility(ctx, "missing-"+uuid.NewString(), false, ""), ErrNotFound)
}

func TestPostgresCommentsAuthorOnly(t *testing.T) {
	p, d := postgresDeck(t)
	ctx := context.Background()
	slideID := d.Slides[0].ID
	base := time.Now().UTC().Truncate(time.Second)

	mine, err := p.AddComment(ctx, slide.Comment{SlideID: slideID, AuthorID: "u1", Content: "later", CreatedAt: base.Add(time.Minute)})
	require.NoError(t, err)
	_, err = p.AddComment(ctx, slide.Comment{SlideID: slideID, AuthorID: "u2", Content: "earlier", CreatedAt: base})
	require.NoError(t, err)

	list, err := p.Comments(ctx, slideID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "earlier", list[0].Content)

	hijack := mine
	hijack.AuthorID = "u2"
	hijack.Content = "hijack"
	assert.ErrorIs(t, p.UpdateComment(ctx, hijack), ErrNotFound)
	assert.ErrorIs(t, p.DeleteComment(ctx, hijack), ErrNotFound)

	mine.Resolved = true
	mine.Content = "edited"
	require.NoError(t, p.UpdateComment(ctx, mine))
	list, _ = p.Comments(ctx, slideID)
	assert.Equal(t, "edited", list[1].Content)
	assert.True(t, list[1].Resolved)

	require.NoError(t, p.DeleteComment(ctx, mine))
	list, _ = p.Comments(ctx, slideID)
	assert.Len(t, list, 1)
	assert.ErrorIs(t, p.DeleteComment(ctx, mine), ErrNotFound)
}

func TestPostgresVersionsNumberedPerSlide(t *testing.T) {
	p, d := postgresDeck(t)
	ctx := context.Background()
	a, b := d.Slides[0].ID, d.Slides[1].ID

	for _, title := range []string{"v1", "v2", "v3"} {
		_, err := p.AppendVersion(ctx, slide.Version{SlideID: a, AuthorID: "u1", Title: title, Layout: slide.LayoutTitle})
		require.NoError(t, err)
	}
	other, err := p.AppendVersion(ctx, slide.Version{SlideID: b, Title: "only"})
	require.NoError(t, err)
	assert.Equal(t, 1, other.VersionNumber, "numbering is per slide")

	list, err := p.Versions(ctx, a)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, 3, list[0].VersionNumber)
	assert.Equal(t, "v3", list[0].Title)
	assert.Equal(t, slide.LayoutTitle, list[0].Layout)
	assert.Equal(t, 1, list[2].VersionNumber)

	_, err = p.AppendVersion(ctx, slide.Version{SlideID: "missing-" + uuid.NewString()})
	assert.ErrorIs(t, err, ErrNotFound)
}
