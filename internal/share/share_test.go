package share

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidedeck/internal/slide"
	"slidedeck/internal/store"
)

func TestPublishResolveUnpublish(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	d, err := m.CreateDeck(ctx, slide.Deck{ID: "d", Slides: []slide.Slide{{Title: "b", Order: 1}, {Title: "a"}}})
	require.NoError(t, err)

	pub, err := Publish(ctx, m, d)
	require.NoError(t, err)
	require.NoError(t, pub.Validate())
	assert.Len(t, pub.ShareSlug, 32)

	again, err := Publish(ctx, m, pub)
	require.NoError(t, err)
	assert.Equal(t, pub.ShareSlug, again.ShareSlug)

	got, err := Resolve(ctx, m, pub.ShareSlug)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Slides[0].Title)

	priv, err := Unpublish(ctx, m, pub)
	require.NoError(t, err)
	assert.False(t, priv.IsPublic)
	assert.Empty(t, priv.ShareSlug)

	_, err = Resolve(ctx, m, pub.ShareSlug)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = Resolve(ctx, m, " ")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

type failingVisibility struct{}

func (failingVisibility) SetVisibility(context.Context, string, bool, string) error {
	return errors.New("offline")
}

func TestPublishFailureLeavesDeck(t *testing.T) {
	d := slide.Deck{ID: "d"}
	out, err := Publish(context.Background(), failingVisibility{}, d)
	assert.Error(t, err)
	assert.False(t, out.IsPublic)
	assert.Empty(t, out.ShareSlug)
}

func TestURLs(t *testing.T) {
	assert.Equal(t, "https://x.io/shared/abc", SharedURL("https://x.io/", "abc"))
	assert.Equal(t, "https://x.io/d1/present", PresentURL("https://x.io", "d1"))
}

func TestNewSlugUnique(t *testing.T) {
	assert.NotEqual(t, NewSlug(), NewSlug())
}
