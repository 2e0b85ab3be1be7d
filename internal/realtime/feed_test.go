package realtime

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidedeck/internal/slide"
	"slidedeck/internal/store"
)

func recv(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestHubFiltersBySlide(t *testing.T) {
	h := NewHub()
	defer h.Close()
	ctx := context.Background()

	a, err := h.Subscribe(ctx, "a")
	require.NoError(t, err)
	b, err := h.Subscribe(ctx, "b")
	require.NoError(t, err)

	require.NoError(t, h.Publish(ctx, Event{SlideID: "a", CommentID: "c1", Kind: Insert}))
	assert.Equal(t, "c1", recv(t, a).CommentID)

	select {
	case ev := <-b.Events():
		t.Fatalf("unexpected event for b: %+v", ev)
	default:
	}
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	h := NewHub()
	sub, err := h.Subscribe(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 1, h.Subscribers("a"))

	sub.Close()
	sub.Close()
	assert.Zero(t, h.Subscribers("a"))
	_, ok := <-sub.Events()
	assert.False(t, ok)

	require.NoError(t, h.Close())
	_, err = h.Subscribe(context.Background(), "a")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestHubFullBufferDropsNewest(t *testing.T) {
	h := NewHub()
	defer h.Close()
	ctx := context.Background()
	sub, _ := h.Subscribe(ctx, "a")

	for i := 0; i < subscriberBuffer+5; i++ {
		require.NoError(t, h.Publish(ctx, Event{SlideID: "a"}))
	}
	assert.Len(t, sub.Events(), subscriberBuffer)
}

func TestNotifyPublishesAfterWrites(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	_, err := mem.CreateDeck(ctx, slide.Deck{ID: "d", Slides: []slide.Slide{{ID: "s1"}}})
	require.NoError(t, err)

	h := NewHub()
	defer h.Close()
	sub, _ := h.Subscribe(ctx, "s1")
	cs := Notify(mem, h)

	c, err := cs.AddComment(ctx, slide.Comment{SlideID: "s1", AuthorID: "u", Content: "hi"})
	require.NoError(t, err)
	ev := recv(t, sub)
	assert.Equal(t, Insert, ev.Kind)
	assert.Equal(t, c.ID, ev.CommentID)

	c.Resolved = true
	require.NoError(t, cs.UpdateComment(ctx, c))
	assert.Equal(t, Update, recv(t, sub).Kind)

	require.NoError(t, cs.DeleteComment(ctx, c))
	assert.Equal(t, Delete, recv(t, sub).Kind)

	c.AuthorID = "someone-else"
	assert.ErrorIs(t, cs.DeleteComment(ctx, c), store.ErrNotFound)
	assert.Len(t, sub.Events(), 0, "failed writes publish nothing")
}

func TestRedisRoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	r, err := NewRedis(RedisConfig{Addr: addr})
	require.NoError(t, err)
	defer r.Close()

	ctx := context.Background()
	sub, err := r.Subscribe(ctx, "slide-rt")
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, r.Publish(ctx, Event{SlideID: "slide-rt", CommentID: "c", Kind: Insert}))
	assert.Equal(t, "c", recv(t, sub).CommentID)
}

func TestRedisFansOutAcrossClients(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	sub, err := NewRedis(RedisConfig{Addr: addr})
	require.NoError(t, err)
	defer sub.Close()
	pub := NewRedisClient(redis.NewClient(&redis.Options{Addr: addr}))
	defer pub.Close()

	ctx := context.Background()
	s, err := sub.Subscribe(ctx, "slide-fanout")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, pub.Publish(ctx, Event{SlideID: "slide-other", CommentID: "skip", Kind: Insert}))
	require.NoError(t, pub.Publish(ctx, Event{SlideID: "slide-fanout", CommentID: "c1", Kind: Delete}))
	ev := recv(t, s)
	assert.Equal(t, "c1", ev.CommentID)
	assert.Equal(t, Delete, ev.Kind)
}
