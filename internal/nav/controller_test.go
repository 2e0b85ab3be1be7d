package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"slidedeck/internal/slide"
)

func TestGoToSucceedsOnlyInRange(t *testing.T) {
	for n := 0; n <= 5; n++ {
		c := New(n, 0)
		for i := -2; i <= n+2; i++ {
			before := c.Current()
			ok := c.GoTo(i)
			assert.Equal(t, i >= 0 && i < n, ok, "n=%d i=%d", n, i)
			if ok {
				assert.Equal(t, i, c.Current())
			} else {
				assert.Equal(t, before, c.Current())
			}
		}
	}
}

func TestEmptyDeckIsNoOp(t *testing.T) {
	c := New(0, 3)
	assert.True(t, c.Empty())
	assert.False(t, c.Next())
	assert.False(t, c.Previous())
	assert.False(t, c.First())
	assert.False(t, c.Last())
	assert.Equal(t, 0, c.Current())
	assert.Zero(t, c.Progress())

	_, ok := Active(c.Current(), nil)
	assert.False(t, ok)
}

func TestNoWraparound(t *testing.T) {
	c := New(3, 0)
	assert.False(t, c.Previous())
	assert.Equal(t, 0, c.Current())

	assert.True(t, c.Last())
	assert.False(t, c.Next())
	assert.Equal(t, 2, c.Current())
}

func TestRepeatedNextClampsAtLastSlide(t *testing.T) {
	c := New(3, 0)
	for i := 0; i < 4; i++ {
		c.Next()
	}
	assert.Equal(t, 2, c.Current())
	assert.True(t, c.AtEnd())
	assert.InDelta(t, 1.0, c.Progress(), 1e-9)
}

func TestRestoreStartIndex(t *testing.T) {
	assert.Equal(t, 2, New(4, 2).Current())
	assert.Equal(t, 0, New(4, 9).Current())
	assert.Equal(t, 0, New(4, -1).Current())
}

func TestSetCountClamps(t *testing.T) {
	c := New(5, 4)
	c.SetCount(2)
	assert.Equal(t, 1, c.Current())
	c.SetCount(0)
	assert.Equal(t, 0, c.Current())
	assert.True(t, c.Empty())
}

func TestActiveSelectsSortedSlide(t *testing.T) {
	slides := slide.Sorted([]slide.Slide{{ID: "b", Order: 1}, {ID: "a", Order: 0}})
	s, ok := Active(1, slides)
	assert.True(t, ok)
	assert.Equal(t, "b", s.ID)
}
