package slide

import (
	"fmt"
	"sort"
	"strings"
)

// Layout selects the template a slide is rendered with.
type Layout string

const (
	LayoutTitle      Layout = "title"
	LayoutContent    Layout = "content"
	LayoutTwoColumn  Layout = "two-column"
	LayoutImageLeft  Layout = "image-left"
	LayoutImageRight Layout = "image-right"
	LayoutQuote      Layout = "quote"
	LayoutSection    Layout = "section"
)

var layouts = []Layout{
	LayoutTitle,
	LayoutContent,
	LayoutTwoColumn,
	LayoutImageLeft,
	LayoutImageRight,
	LayoutQuote,
	LayoutSection,
}

// Layouts returns every known layout tag in display order.
func Layouts() []Layout {
	out := make([]Layout, len(layouts))
	copy(out, layouts)
	return out
}

// ParseLayout maps a stored tag to a Layout. Unknown tags fall back to content.
func ParseLayout(s string) Layout {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, l := range layouts {
		if string(l) == s {
			return l
		}
	}
	return LayoutContent
}

// Slide is one unit of deck content. Values are treated as immutable; edits
// produce a new Slide through With.
type Slide struct {
	ID              string `json:"id"`
	DeckID          string `json:"deckId"`
	Order           int    `json:"order"`
	Title           string `json:"title"`
	Subtitle        string `json:"subtitle,omitempty"`
	Content         string `json:"content"`
	Layout          Layout `json:"layout"`
	ImageURL        string `json:"imageUrl,omitempty"`
	BackgroundColor string `json:"backgroundColor"`
	SectionName     string `json:"sectionName"`
	Notes           string `json:"notes,omitempty"`
	ImagePrompt     string `json:"imagePrompt,omitempty"`
}

// Field names one editable slide attribute.
type Field string

const (
	FieldTitle           Field = "title"
	FieldSubtitle        Field = "subtitle"
	FieldContent         Field = "content"
	FieldLayout          Field = "layout"
	FieldImageURL        Field = "image_url"
	FieldBackgroundColor Field = "background_color"
	FieldSectionName     Field = "section_name"
	FieldNotes           Field = "notes"
	FieldImagePrompt     Field = "image_prompt"
)

var editable = []Field{
	FieldTitle,
	FieldSubtitle,
	FieldContent,
	FieldLayout,
	FieldNotes,
	FieldSectionName,
	FieldBackgroundColor,
	FieldImagePrompt,
	FieldImageURL,
}

// Fields lists the editable fields in editor order.
func Fields() []Field {
	out := make([]Field, len(editable))
	copy(out, editable)
	return out
}

// Valid reports whether f names a known field.
func (f Field) Valid() bool {
	for _, e := range editable {
		if e == f {
			return true
		}
	}
	return false
}

// Get returns the value of field f.
func (s Slide) Get(f Field) string {
	switch f {
	case FieldTitle:
		return s.Title
	case FieldSubtitle:
		return s.Subtitle
	case FieldContent:
		return s.Content
	case FieldLayout:
		return string(s.Layout)
	case FieldImageURL:
		return s.ImageURL
	case FieldBackgroundColor:
		return s.BackgroundColor
	case FieldSectionName:
		return s.SectionName
	case FieldNotes:
		return s.Notes
	case FieldImagePrompt:
		return s.ImagePrompt
	}
	return ""
}

// With returns a copy of s with field f set to value.
func (s Slide) With(f Field, value string) (Slide, error) {
	switch f {
	case FieldTitle:
		s.Title = value
	case FieldSubtitle:
		s.Subtitle = value
	case FieldContent:
		s.Content = value
	case FieldLayout:
		s.Layout = ParseLayout(value)
	case FieldImageURL:
		s.ImageURL = value
	case FieldBackgroundColor:
		s.BackgroundColor = value
	case FieldSectionName:
		s.SectionName = value
	case FieldNotes:
		s.Notes = value
	case FieldImagePrompt:
		s.ImagePrompt = value
	default:
		return s, fmt.Errorf("unknown slide field %q", f)
	}
	return s, nil
}

// RenderEqual reports whether two slides paint identically as thumbnails.
// Only content, title, layout, background color and image URL take part;
// changes to any other field must not trigger a repaint.
func RenderEqual(a, b Slide) bool {
	return a.Content == b.Content &&
		a.Title == b.Title &&
		a.Layout == b.Layout &&
		a.BackgroundColor == b.BackgroundColor &&
		a.ImageURL == b.ImageURL
}

// Sorted returns a copy of slides ordered by Order. Ties keep input order.
func Sorted(slides []Slide) []Slide {
	out := make([]Slide, len(slides))
	copy(out, slides)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
