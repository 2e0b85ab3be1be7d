package panel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidedeck/internal/realtime"
	"slidedeck/internal/slide"
	"slidedeck/internal/store"
)

func fixture(t *testing.T) (*store.Memory, *realtime.Hub) {
	t.Helper()
	m := store.NewMemory()
	_, err := m.CreateDeck(context.Background(), slide.Deck{ID: "d", Slides: []slide.Slide{{ID: "s1"}, {ID: "s2", Order: 1}}})
	require.NoError(t, err)
	h := realtime.NewHub()
	t.Cleanup(func() { h.Close() })
	return m, h
}

func TestCommentsListChangesOnlyThroughFeed(t *testing.T) {
	ctx := context.Background()
	m, h := fixture(t)
	c := NewComments(realtime.Notify(m, h), h, "me")

	require.NoError(t, c.Open(ctx, "s1"))
	assert.Equal(t, 1, h.Subscribers("s1"))
	events, gen := c.Events()
	require.NotNil(t, events)

	require.NoError(t, c.Add(ctx, "  looks good "))
	assert.Empty(t, c.Items(), "the write alone does not touch the list")

	select {
	case ev := <-events:
		assert.Equal(t, realtime.Insert, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("no feed event")
	}
	assert.True(t, c.Current(gen))
	require.NoError(t, c.Refresh(ctx))
	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "looks good", items[0].Content)
	assert.Equal(t, "me", items[0].AuthorID)
}

func TestCommentsSubscriptionFollowsSlide(t *testing.T) {
	ctx := context.Background()
	m, h := fixture(t)
	c := NewComments(m, h, "me")

	assert.ErrorIs(t, c.SetSlide(ctx, "s1"), ErrClosed)
	assert.False(t, c.IsOpen(), "closed panel stays closed")
	assert.Zero(t, h.Subscribers("s1"))

	require.NoError(t, c.Open(ctx, "s1"))
	_, gen := c.Events()
	assert.ErrorIs(t, c.SetSlide(ctx, "s1"), ErrUnchanged)
	assert.True(t, c.Current(gen), "same slide keeps the subscription")
	assert.Equal(t, 1, h.Subscribers("s1"))
	require.NoError(t, c.SetSlide(ctx, "s2"))
	assert.Zero(t, h.Subscribers("s1"))
	assert.Equal(t, 1, h.Subscribers("s2"))
	assert.False(t, c.Current(gen))

	c.Close()
	c.Close()
	assert.Zero(t, h.Subscribers("s2"))
	assert.False(t, c.IsOpen())
}

type brokenComments struct{ store.CommentStore }

func (brokenComments) Comments(context.Context, string) ([]slide.Comment, error) {
	return nil, errors.New("offline")
}

func TestCommentsOpenFailureReleasesSubscription(t *testing.T) {
	m, h := fixture(t)
	c := NewComments(brokenComments{m}, h, "me")

	err := c.Open(context.Background(), "s1")
	require.Error(t, err)
	assert.Zero(t, h.Subscribers("s1"))
	assert.False(t, c.IsOpen())
	assert.ErrorIs(t, c.Add(context.Background(), "x"), ErrClosed)
}

func TestCommentsAuthorOnlyMutations(t *testing.T) {
	ctx := context.Background()
	m, h := fixture(t)
	theirs, err := m.AddComment(ctx, slide.Comment{SlideID: "s1", AuthorID: "them", Content: "hi"})
	require.NoError(t, err)
	mine, err := m.AddComment(ctx, slide.Comment{SlideID: "s1", AuthorID: "me", Content: "mine", CreatedAt: theirs.CreatedAt.Add(time.Second)})
	require.NoError(t, err)

	c := NewComments(m, h, "me")
	require.NoError(t, c.Open(ctx, "s1"))

	assert.ErrorIs(t, c.ToggleResolved(ctx, theirs.ID), ErrNotAuthor)
	assert.ErrorIs(t, c.Edit(ctx, theirs.ID, "changed"), ErrNotAuthor)
	assert.ErrorIs(t, c.Delete(ctx, theirs.ID), ErrNotAuthor)
	assert.ErrorIs(t, c.Edit(ctx, mine.ID, " "), ErrEmpty)

	require.NoError(t, c.ToggleResolved(ctx, mine.ID))
	require.NoError(t, c.Edit(ctx, mine.ID, "edited"))
	require.NoError(t, c.Refresh(ctx))
	c.Move(5)
	sel, ok := c.Selected()
	require.True(t, ok)
	assert.Equal(t, mine.ID, sel.ID)
	assert.True(t, sel.Resolved)
	assert.Equal(t, "edited", sel.Content)

	require.NoError(t, c.Delete(ctx, mine.ID))
	require.NoError(t, c.Refresh(ctx))
	assert.Len(t, c.Items(), 1)
}

func TestVersionsReloadAndSelection(t *testing.T) {
	ctx := context.Background()
	m, _ := fixture(t)
	v := NewVersions(m)

	assert.ErrorIs(t, v.Reload(ctx), ErrClosed)
	require.NoError(t, v.Open(ctx, "s1"))
	assert.Empty(t, v.Items())

	_, err := m.AppendVersion(ctx, slide.Version{SlideID: "s1", Title: "one"})
	require.NoError(t, err)
	_, err = m.AppendVersion(ctx, slide.Version{SlideID: "s1", Title: "two"})
	require.NoError(t, err)
	assert.Empty(t, v.Items(), "no feed for versions")

	require.NoError(t, v.Reload(ctx))
	items := v.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 2, items[0].VersionNumber)

	v.Move(1)
	sel, ok := v.Selected()
	require.True(t, ok)
	assert.Equal(t, "one", sel.Title)

	require.NoError(t, v.SetSlide(ctx, "s2"))
	assert.Empty(t, v.Items())
	v.Close()
	assert.False(t, v.IsOpen())
}
