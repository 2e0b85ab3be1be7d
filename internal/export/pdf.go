// Package export writes decks to portable formats.
package export

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"slidedeck/internal/slide"
)

// 16:9 page in millimetres (13.333in x 7.5in).
const (
	pageW  = 338.67
	pageH  = 190.5
	margin = 18.0
)

type Options struct {
	// Notes prints speaker notes in a footer band.
	Notes bool
	// PageNumbers prints "n / total" in the bottom right corner.
	PageNumbers bool
}

// PDF writes one landscape page per slide, in slide order.
func PDF(w io.Writer, d slide.Deck, opts Options) error {
	p := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "L",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: pageW, Ht: pageH},
	})
	p.SetTitle(d.Title, true)
	p.SetAutoPageBreak(false, 0)
	p.SetMargins(margin, margin, margin)
	tr := p.UnicodeTranslatorFromDescriptor("")

	slides := slide.Sorted(d.Slides)
	for i, s := range slides {
		p.AddPageFormat("L", gofpdf.SizeType{Wd: pageW, Ht: pageH})
		page(p, tr, s)
		if opts.Notes && strings.TrimSpace(s.Notes) != "" {
			notes(p, tr, s.Notes)
		}
		if opts.PageNumbers {
			p.SetFont("Helvetica", "", 9)
			setText(p, s.BackgroundColor, 0.6)
			p.SetXY(pageW-margin-30, pageH-10)
			p.CellFormat(30, 5, fmt.Sprintf("%d / %d", i+1, len(slides)), "", 0, "R", false, 0, "")
		}
	}
	if len(slides) == 0 {
		p.AddPage()
		p.SetFont("Helvetica", "I", 14)
		p.SetXY(margin, pageH/2)
		p.CellFormat(pageW-2*margin, 10, "No slides", "", 0, "C", false, 0, "")
	}
	if err := p.Error(); err != nil {
		return fmt.Errorf("pdf: %w", err)
	}
	return p.Output(w)
}

func page(p *gofpdf.Fpdf, tr func(string) string, s slide.Slide) {
	r, g, b := RGB(s.BackgroundColor, [3]int{255, 255, 255})
	p.SetFillColor(r, g, b)
	p.Rect(0, 0, pageW, pageH, "F")
	setText(p, s.BackgroundColor, 1)

	width := pageW - 2*margin
	switch s.Layout {
	case slide.LayoutTitle, slide.LayoutSection:
		if s.Layout == slide.LayoutSection && s.SectionName != "" {
			p.SetFont("Helvetica", "", 14)
			p.SetXY(margin, pageH/2-30)
			p.CellFormat(width, 8, tr(strings.ToUpper(s.SectionName)), "", 0, "C", false, 0, "")
		}
		p.SetFont("Helvetica", "B", 40)
		p.SetXY(margin, pageH/2-18)
		p.MultiCell(width, 16, tr(s.Title), "", "C", false)
		if s.Subtitle != "" {
			p.SetFont("Helvetica", "", 20)
			p.SetX(margin)
			p.MultiCell(width, 10, tr(s.Subtitle), "", "C", false)
		}
		if s.Layout == slide.LayoutTitle && s.Content != "" {
			p.SetFont("Helvetica", "", 14)
			p.SetX(margin)
			p.MultiCell(width, 7, tr(StripMarkdown(s.Content)), "", "C", false)
		}
	case slide.LayoutQuote:
		p.SetFont("Helvetica", "I", 28)
		p.SetXY(margin+20, pageH/2-24)
		p.MultiCell(width-40, 13, tr("“"+StripMarkdown(s.Content)+"”"), "", "C", false)
		if s.Title != "" {
			p.SetFont("Helvetica", "", 16)
			p.SetX(margin + 20)
			p.MultiCell(width-40, 9, tr("- "+s.Title), "", "R", false)
		}
	default:
		heading(p, tr, s)
		top := p.GetY() + 6
		switch s.Layout {
		case slide.LayoutTwoColumn:
			left, right := splitColumns(s.Content)
			col := (width - 10) / 2
			body(p, tr, margin, top, col, left)
			body(p, tr, margin+col+10, top, col, right)
		case slide.LayoutImageLeft, slide.LayoutImageRight:
			col := (width - 10) / 2
			imgX, textX := margin, margin+col+10
			if s.Layout == slide.LayoutImageRight {
				imgX, textX = textX, margin
			}
			imageBox(p, tr, imgX, top, col, pageH-top-margin, s.ImageURL)
			body(p, tr, textX, top, col, s.Content)
		default:
			body(p, tr, margin, top, width, s.Content)
		}
	}
}

func heading(p *gofpdf.Fpdf, tr func(string) string, s slide.Slide) {
	width := pageW - 2*margin
	p.SetFont("Helvetica", "B", 28)
	p.SetXY(margin, margin)
	p.MultiCell(width, 12, tr(s.Title), "", "L", false)
	if s.Subtitle != "" {
		p.SetFont("Helvetica", "", 16)
		p.SetX(margin)
		p.MultiCell(width, 8, tr(s.Subtitle), "", "L", false)
	}
}

func body(p *gofpdf.Fpdf, tr func(string) string, x, y, w float64, md string) {
	p.SetFont("Helvetica", "", 16)
	p.SetXY(x, y)
	for _, line := range strings.Split(StripMarkdown(md), "\n") {
		p.SetX(x)
		if strings.TrimSpace(line) == "" {
			p.Ln(4)
			continue
		}
		p.MultiCell(w, 8, tr(line), "", "L", false)
	}
}

func imageBox(p *gofpdf.Fpdf, tr func(string) string, x, y, w, h float64, url string) {
	p.SetDrawColor(160, 160, 160)
	p.Rect(x, y, w, h, "D")
	p.SetFont("Helvetica", "I", 10)
	p.SetXY(x+4, y+h/2-4)
	label := "image"
	if url != "" {
		label = url
	}
	p.MultiCell(w-8, 5, tr(label), "", "C", false)
}

func notes(p *gofpdf.Fpdf, tr func(string) string, text string) {
	const band = 26.0
	p.SetFillColor(245, 245, 245)
	p.Rect(0, pageH-band, pageW, band, "F")
	p.SetTextColor(60, 60, 60)
	p.SetFont("Helvetica", "", 9)
	p.SetXY(margin, pageH-band+3)
	p.MultiCell(pageW-2*margin-40, 4.5, tr(StripMarkdown(text)), "", "L", false)
}

// setText picks black or white text for the given background, scaled by
// alpha towards the background.
func setText(p *gofpdf.Fpdf, bg string, alpha float64) {
	r, g, b := RGB(bg, [3]int{255, 255, 255})
	fg := 0
	if luminance(r, g, b) < 0.5 {
		fg = 255
	}
	mix := func(c int) int { return int(float64(fg)*alpha + float64(c)*(1-alpha)) }
	p.SetTextColor(mix(r), mix(g), mix(b))
}

func luminance(r, g, b int) float64 {
	return (0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(b)) / 255
}

// RGB parses #rgb or #rrggbb. Anything else yields def.
func RGB(s string, def [3]int) (int, int, int) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return def[0], def[1], def[2]
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return def[0], def[1], def[2]
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)
}

var (
	reHeading = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	reBullet  = regexp.MustCompile(`(?m)^(\s*)[-*+]\s+`)
	reEmph    = regexp.MustCompile(`(\*\*|__|\*|_|~~|` + "`" + `)([^*_~` + "`" + `\n]+)(\*\*|__|\*|_|~~|` + "`" + `)`)
	reLink    = regexp.MustCompile(`!?\[([^\]]*)\]\([^)]*\)`)
	reFence   = regexp.MustCompile("(?m)^```.*$\n?")
)

// StripMarkdown reduces markdown to plain text for print. Bullets become
// "•" and links keep their label.
func StripMarkdown(md string) string {
	s := reFence.ReplaceAllString(md, "")
	s = reHeading.ReplaceAllString(s, "")
	s = reBullet.ReplaceAllString(s, "$1• ")
	s = reLink.ReplaceAllString(s, "$1")
	s = reEmph.ReplaceAllString(s, "$2")
	return strings.TrimSpace(s)
}

func splitColumns(content string) (string, string) {
	var left, right []string
	cur := &left
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "||" && cur == &left {
			cur = &right
			continue
		}
		*cur = append(*cur, line)
	}
	return strings.Join(left, "\n"), strings.Join(right, "\n")
}
