// Package render paints slides into terminal cells. Markdown goes through
// glamour, layout templates through lipgloss, and painted output is cached
// by the fields and size that produced it.
package render

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
	lru "github.com/hashicorp/golang-lru/v2"

	"slidedeck/internal/slide"
)

const defaultCacheSize = 256

// Renderer paints slides at arbitrary cell sizes. It is safe for concurrent use.
type Renderer struct {
	style     string
	cacheSize int

	mu     sync.Mutex
	md     map[int]*glamour.TermRenderer
	paints int

	cache *lru.Cache[string, string]
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithStyle selects a glamour standard style ("dark", "light", "notty", ...).
// The default "auto" detects the terminal background.
func WithStyle(style string) Option {
	return func(r *Renderer) { r.style = style }
}

// WithCacheSize bounds the number of painted slides kept.
func WithCacheSize(n int) Option {
	return func(r *Renderer) { r.cacheSize = n }
}

// New returns a Renderer.
func New(opts ...Option) (*Renderer, error) {
	r := &Renderer{
		style:     "auto",
		cacheSize: defaultCacheSize,
		md:        make(map[int]*glamour.TermRenderer),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cacheSize <= 0 {
		r.cacheSize = defaultCacheSize
	}
	cache, err := lru.New[string, string](r.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("render cache: %w", err)
	}
	r.cache = cache
	return r, nil
}

// Slide paints s into a cols x rows block.
func (r *Renderer) Slide(s slide.Slide, cols, rows int) string {
	if cols <= 0 || rows <= 0 {
		return ""
	}
	key := cacheKey("slide", s, cols, rows)
	if out, ok := r.cache.Get(key); ok {
		return out
	}
	out := r.paint(s, cols, rows)
	r.cache.Add(key, out)
	return out
}

// Thumbnail paints the reduced view of s. Only the fields compared by
// slide.RenderEqual reach the painter, so equal slides paint identically.
func (r *Renderer) Thumbnail(s slide.Slide, cols, rows int) string {
	return r.Slide(thumbnailView(s), cols, rows)
}

// Markdown renders md wrapped to width. Rendering errors are shown inline.
func (r *Renderer) Markdown(md string, width int) string {
	if strings.TrimSpace(md) == "" || width <= 0 {
		return ""
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tr, err := r.termRenderer(width)
	if err != nil {
		return "Error rendering markdown: " + err.Error()
	}
	out, err := tr.Render(md)
	if err != nil {
		return "Error rendering markdown: " + err.Error()
	}
	return strings.Trim(out, "\n")
}

// Paints returns how many slides were painted rather than served from cache.
func (r *Renderer) Paints() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paints
}

func (r *Renderer) termRenderer(width int) (*glamour.TermRenderer, error) {
	if tr, ok := r.md[width]; ok {
		return tr, nil
	}
	style := glamour.WithStandardStyle(r.style)
	if r.style == "" || r.style == "auto" {
		style = glamour.WithAutoStyle()
	}
	tr, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return nil, err
	}
	r.md[width] = tr
	return tr, nil
}

func (r *Renderer) paint(s slide.Slide, cols, rows int) string {
	r.mu.Lock()
	r.paints++
	r.mu.Unlock()

	var body string
	switch s.Layout {
	case slide.LayoutTitle:
		body = r.titleLayout(s, cols, rows)
	case slide.LayoutSection:
		body = r.sectionLayout(s, cols, rows)
	case slide.LayoutQuote:
		body = r.quoteLayout(s, cols)
	case slide.LayoutTwoColumn:
		body = r.twoColumnLayout(s, cols)
	case slide.LayoutImageLeft, slide.LayoutImageRight:
		body = r.imageLayout(s, cols, rows)
	default:
		body = r.contentLayout(s, cols)
	}
	return frame(body, s.BackgroundColor, cols, rows)
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	subtitleStyle = lipgloss.NewStyle().Faint(true)
	sectionStyle  = lipgloss.NewStyle().Faint(true).Italic(true)
	quoteStyle    = lipgloss.NewStyle().Italic(true).
			Border(lipgloss.ThickBorder(), false, false, false, true).
			PaddingLeft(2)
	imageStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Faint(true)
)

func (r *Renderer) titleLayout(s slide.Slide, cols, rows int) string {
	parts := []string{titleStyle.Render(strings.ToUpper(s.Title))}
	if s.Subtitle != "" {
		parts = append(parts, "", subtitleStyle.Render(s.Subtitle))
	}
	if s.Content != "" {
		parts = append(parts, "", r.Markdown(s.Content, cols-4))
	}
	block := lipgloss.JoinVertical(lipgloss.Center, parts...)
	return lipgloss.Place(cols, rows, lipgloss.Center, lipgloss.Center, block)
}

func (r *Renderer) sectionLayout(s slide.Slide, cols, rows int) string {
	parts := []string{}
	if s.SectionName != "" {
		parts = append(parts, sectionStyle.Render(s.SectionName), "")
	}
	parts = append(parts, titleStyle.Render(s.Title))
	block := lipgloss.JoinVertical(lipgloss.Center, parts...)
	return lipgloss.Place(cols, rows, lipgloss.Center, lipgloss.Center, block)
}

func (r *Renderer) quoteLayout(s slide.Slide, cols int) string {
	quote := quoteStyle.Width(max(cols-6, 1)).Render(strings.TrimSpace(s.Content))
	if s.Title == "" {
		return quote
	}
	return lipgloss.JoinVertical(lipgloss.Left, quote, "", subtitleStyle.Render("— "+s.Title))
}

func (r *Renderer) contentLayout(s slide.Slide, cols int) string {
	parts := []string{}
	if s.Title != "" {
		parts = append(parts, titleStyle.Render(s.Title))
	}
	if md := r.Markdown(s.Content, cols-2); md != "" {
		parts = append(parts, md)
	}
	return strings.Join(parts, "\n")
}

func (r *Renderer) twoColumnLayout(s slide.Slide, cols int) string {
	left, right := splitColumns(s.Content)
	half := max(cols/2-1, 1)
	columns := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(half).Render(r.Markdown(left, half-2)),
		lipgloss.NewStyle().Width(half).Render(r.Markdown(right, half-2)),
	)
	if s.Title == "" {
		return columns
	}
	return lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(s.Title), columns)
}

func (r *Renderer) imageLayout(s slide.Slide, cols, rows int) string {
	third := max(cols/3, 4)
	label := "no image"
	if s.ImageURL != "" {
		label = "image: " + s.ImageURL
	}
	img := imageStyle.Width(third - 2).Height(max(rows-4, 1)).Render(label)
	text := lipgloss.NewStyle().Width(max(cols-third-1, 1)).Render(r.contentLayout(s, cols-third-1))
	if s.Layout == slide.LayoutImageRight {
		return lipgloss.JoinHorizontal(lipgloss.Top, text, " ", img)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, img, " ", text)
}

// frame clips body to cols x rows and pads it out, painting the background
// when the slide carries a usable color.
func frame(body, background string, cols, rows int) string {
	lines := strings.Split(body, "\n")
	if len(lines) > rows {
		lines = lines[:rows]
	}
	for i, line := range lines {
		lines[i] = xansi.Truncate(line, cols, "")
	}
	box := lipgloss.NewStyle().Width(cols).Height(rows).MaxHeight(rows)
	if c, ok := Color(background); ok {
		box = box.Background(c)
	}
	return box.Render(strings.Join(lines, "\n"))
}

// Color converts a stored color value into a terminal color. Hex values
// (#rgb, #rrggbb) and ANSI indexes are accepted.
func Color(v string) (lipgloss.TerminalColor, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, false
	}
	if strings.HasPrefix(v, "#") && (len(v) == 4 || len(v) == 7) {
		return lipgloss.Color(v), true
	}
	for _, c := range v {
		if c < '0' || c > '9' {
			return nil, false
		}
	}
	return lipgloss.Color(v), true
}

// splitColumns splits content on a line holding only "||"; without one the
// paragraphs are divided in half.
func splitColumns(content string) (string, string) {
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		if strings.TrimSpace(l) == "||" {
			return strings.Join(lines[:i], "\n"), strings.Join(lines[i+1:], "\n")
		}
	}
	paras := strings.Split(content, "\n\n")
	mid := (len(paras) + 1) / 2
	return strings.Join(paras[:mid], "\n\n"), strings.Join(paras[mid:], "\n\n")
}

func thumbnailView(s slide.Slide) slide.Slide {
	return slide.Slide{
		Title:           s.Title,
		Content:         s.Content,
		Layout:          s.Layout,
		BackgroundColor: s.BackgroundColor,
		ImageURL:        s.ImageURL,
	}
}

func cacheKey(kind string, s slide.Slide, cols, rows int) string {
	return strings.Join([]string{
		kind, fmt.Sprint(cols), fmt.Sprint(rows),
		s.Title, s.Subtitle, s.Content, string(s.Layout),
		s.ImageURL, s.BackgroundColor, s.SectionName,
	}, "\x00")
}
