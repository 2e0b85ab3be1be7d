package thumbnail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"slidedeck/internal/fit"
	"slidedeck/internal/slide"
)

const gap = 1

var (
	cellStyle     = lipgloss.NewStyle().Border(lipgloss.HiddenBorder())
	selectedStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("205"))
	labelStyle    = lipgloss.NewStyle().Faint(true)
)

// Grid is the overview of every slide in a deck. It owns an Observer for
// the lifetime of the overview; Close must be called when the overview is
// dismissed.
type Grid struct {
	painter  Painter
	observer *Observer
	slides   []slide.Slide
	thumbs   []*Thumbnail

	thumbW, thumbH int
	cellW, cellH   int
	perRow         int

	width, height int
	scroll        int
	selected      int
}

// NewGrid opens an overview of slides (sorted by order) with selected
// highlighted.
func NewGrid(p Painter, slides []slide.Slide, selected int) *Grid {
	size := fit.Fitted(fit.Cells, Scale)
	g := &Grid{
		painter: p,
		thumbW:  int(size.W),
		thumbH:  int(size.H),
		perRow:  1,
	}
	g.cellW = g.thumbW + 2 + gap
	g.cellH = g.thumbH + 2 + 1
	g.observer = NewObserver(g.cellH / 2)
	g.SetSlides(slides)
	g.Select(selected)
	return g
}

// SetSlides replaces the slide list. Thumbnails keep their latch by position.
func (g *Grid) SetSlides(slides []slide.Slide) {
	g.slides = slides
	for len(g.thumbs) < len(slides) {
		g.thumbs = append(g.thumbs, &Thumbnail{})
	}
	for _, t := range g.thumbs[len(slides):] {
		g.observer.Unobserve(t)
	}
	g.thumbs = g.thumbs[:len(slides)]
	if g.selected >= len(slides) {
		g.selected = max(len(slides)-1, 0)
	}
	g.layout()
}

// Resize sets the visible area in cells.
func (g *Grid) Resize(width, height int) {
	g.width, g.height = width, height
	g.perRow = max((width+gap)/g.cellW, 1)
	g.layout()
}

// Select highlights slide i if it exists.
func (g *Grid) Select(i int) bool {
	if i < 0 || i >= len(g.slides) {
		return false
	}
	g.selected = i
	g.reveal()
	return true
}

// Move shifts the selection by delta slides, clamped to the deck.
func (g *Grid) Move(delta int) {
	i := min(max(g.selected+delta, 0), max(len(g.slides)-1, 0))
	g.Select(i)
}

// MoveRow shifts the selection by whole rows.
func (g *Grid) MoveRow(delta int) { g.Move(delta * g.perRow) }

// Scroll moves the visible window by rows cells.
func (g *Grid) Scroll(rows int) {
	g.scroll = min(max(g.scroll+rows, 0), g.maxScroll())
	g.check()
}

// Selected returns the highlighted slide index.
func (g *Grid) Selected() int { return g.selected }

// Thumb returns the thumbnail for slide i.
func (g *Grid) Thumb(i int) *Thumbnail {
	if i < 0 || i >= len(g.thumbs) {
		return nil
	}
	return g.thumbs[i]
}

// At maps a point in the visible area to a slide index.
func (g *Grid) At(x, y int) (int, bool) {
	if x < 0 || y < 0 || x >= g.width || y >= g.height {
		return 0, false
	}
	y += g.scroll
	col, row := x/g.cellW, y/g.cellH
	if col >= g.perRow || x%g.cellW >= g.cellW-gap {
		return 0, false
	}
	i := row*g.perRow + col
	if i >= len(g.slides) {
		return 0, false
	}
	return i, true
}

// View paints the visible part of the grid.
func (g *Grid) View() string {
	if len(g.slides) == 0 {
		return lipgloss.Place(g.width, g.height, lipgloss.Center, lipgloss.Center, "No slides")
	}
	var rows []string
	for start := 0; start < len(g.slides); start += g.perRow {
		end := min(start+g.perRow, len(g.slides))
		cells := make([]string, 0, 2*(end-start))
		for i := start; i < end; i++ {
			cells = append(cells, g.cell(i), strings.Repeat(" ", gap))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	lines := strings.Split(strings.Join(rows, "\n"), "\n")
	from := min(g.scroll, len(lines))
	to := min(from+g.height, len(lines))
	return strings.Join(lines[from:to], "\n")
}

// Close disconnects the observer. The grid must not be used afterwards.
func (g *Grid) Close() {
	g.observer.Disconnect()
}

// Observer exposes the grid's observer.
func (g *Grid) Observer() *Observer { return g.observer }

func (g *Grid) cell(i int) string {
	thumb := g.thumbs[i].View(g.painter, g.slides[i], Scale)
	style := cellStyle
	if i == g.selected {
		style = selectedStyle
	}
	label := labelStyle.Render(fmt.Sprintf(" %d %s", i+1, g.slides[i].Title))
	label = lipgloss.NewStyle().MaxWidth(g.thumbW + 2).Render(label)
	return lipgloss.JoinVertical(lipgloss.Left, style.Render(thumb), label)
}

func (g *Grid) layout() {
	for i, t := range g.thumbs {
		row, col := i/g.perRow, i%g.perRow
		g.observer.Observe(t, Rect{X: col * g.cellW, Y: row * g.cellH, W: g.cellW - gap, H: g.cellH})
	}
	g.scroll = min(g.scroll, g.maxScroll())
	g.reveal()
}

func (g *Grid) reveal() {
	if g.height > 0 {
		top := (g.selected / g.perRow) * g.cellH
		switch {
		case top < g.scroll:
			g.scroll = top
		case top+g.cellH > g.scroll+g.height:
			g.scroll = top + g.cellH - g.height
		}
		g.scroll = max(g.scroll, 0)
	}
	g.check()
}

func (g *Grid) check() {
	if g.width <= 0 || g.height <= 0 {
		return
	}
	g.observer.Check(Rect{X: 0, Y: g.scroll, W: g.width, H: g.height})
}

func (g *Grid) maxScroll() int {
	rows := (len(g.slides) + g.perRow - 1) / g.perRow
	return max(rows*g.cellH-g.height, 0)
}
