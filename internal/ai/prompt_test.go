package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidedeck/internal/slide"
)

func TestParseOutline(t *testing.T) {
	raw := "```json\n" + `{"title":"Go","slides":[
		{"title":"Intro","layout":"title"},
		{"title":"Why","content":"- fast","layout":"wat","notes":"pause"}]}` + "\n```"

	d, err := ParseOutline([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "Go", d.Title)
	require.Len(t, d.Slides, 2)
	assert.Equal(t, slide.LayoutTitle, d.Slides[0].Layout)
	assert.Equal(t, slide.LayoutContent, d.Slides[1].Layout, "unknown layout falls back")
	assert.Equal(t, 1, d.Slides[1].Order)
	assert.Equal(t, "pause", d.Slides[1].Notes)
}

func TestParseOutlineMalformed(t *testing.T) {
	_, err := ParseOutline([]byte("not json"))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = ParseOutline([]byte(`{"title":"x","slides":[]}`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestParseOutlineTitleFallback(t *testing.T) {
	d, err := ParseOutline([]byte(`{"slides":[{"title":"Only"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "Only", d.Title)
}

func TestFieldPrompt(t *testing.T) {
	s := slide.Slide{Title: "Roadmap", Content: "- q1", Layout: slide.LayoutContent, Notes: "old notes"}

	p := FieldPrompt(s, slide.FieldNotes, "make it shorter")
	assert.Contains(t, p, "speaker notes")
	assert.Contains(t, p, "make it shorter")
	assert.Contains(t, p, "old notes")

	p = FieldPrompt(s, slide.FieldContent, "")
	assert.Contains(t, p, "markdown")
	assert.NotContains(t, p, "Instruction:")
}

func TestImagePrompt(t *testing.T) {
	assert.Equal(t, "a cat", ImagePrompt(slide.Slide{ImagePrompt: " a cat "}))
	assert.Contains(t, ImagePrompt(slide.Slide{Title: "Growth", Content: "- revenue up"}), "revenue up")
}
