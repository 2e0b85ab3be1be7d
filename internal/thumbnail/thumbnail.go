// Package thumbnail defers painting slide thumbnails until they come near
// the visible area of the grid overview.
package thumbnail

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"slidedeck/internal/fit"
	"slidedeck/internal/slide"
)

// Scale is the thumbnail size relative to the full slide canvas.
const Scale = 0.2

// Painter paints the reduced view of a slide.
type Painter interface {
	Thumbnail(s slide.Slide, cols, rows int) string
}

// Thumbnail is one lazily painted slide preview. Visibility is a one-way
// latch: once the thumbnail has intersected the viewport it keeps painting
// real content even after scrolling away.
type Thumbnail struct {
	visible bool
	painted bool
	last    slide.Slide
	scale   float64
	view    string
	paints  int
}

// Observe records an intersection result. Only true has an effect.
func (t *Thumbnail) Observe(intersecting bool) {
	if intersecting {
		t.visible = true
	}
}

// Visible reports whether the thumbnail has ever intersected the viewport.
func (t *Thumbnail) Visible() bool { return t.visible }

// Paints returns how many times the slide content was actually painted.
func (t *Thumbnail) Paints() int { return t.paints }

// View returns the placeholder until the thumbnail is visible, then the
// painted slide. A repaint only happens when the slide changed under
// slide.RenderEqual or the scale changed.
func (t *Thumbnail) View(p Painter, s slide.Slide, scale float64) string {
	size := fit.Fitted(fit.Cells, scale)
	cols, rows := int(size.W), int(size.H)
	if !t.visible {
		return Placeholder(cols, rows)
	}
	if t.painted && t.scale == scale && slide.RenderEqual(t.last, s) {
		return t.view
	}
	t.view = p.Thumbnail(s, cols, rows)
	t.last = s
	t.scale = scale
	t.painted = true
	t.paints++
	return t.view
}

var placeholderStyle = lipgloss.NewStyle().Faint(true)

// Placeholder is an empty block the size of a painted thumbnail.
func Placeholder(cols, rows int) string {
	if cols <= 0 || rows <= 0 {
		return ""
	}
	line := strings.Repeat("·", cols)
	lines := make([]string, rows)
	for i := range lines {
		lines[i] = line
	}
	return placeholderStyle.Render(strings.Join(lines, "\n"))
}
