package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"slidedeck/internal/slide"
)

// FieldPrompt builds the request for rewriting one field of s.
func FieldPrompt(s slide.Slide, field slide.Field, instruction string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are editing one slide of a presentation. Write the new %s.\n", fieldLabel(field))
	b.WriteString("Reply with the text only, no preamble and no surrounding quotes.\n")
	if field == slide.FieldContent {
		b.WriteString("Use concise markdown bullet points.\n")
	}
	if instruction = strings.TrimSpace(instruction); instruction != "" {
		fmt.Fprintf(&b, "\nInstruction: %s\n", instruction)
	}
	b.WriteString("\n[SLIDE]\n")
	fmt.Fprintf(&b, "layout: %s\n", s.Layout)
	if s.SectionName != "" {
		fmt.Fprintf(&b, "section: %s\n", s.SectionName)
	}
	fmt.Fprintf(&b, "title: %s\n", s.Title)
	if s.Subtitle != "" {
		fmt.Fprintf(&b, "subtitle: %s\n", s.Subtitle)
	}
	fmt.Fprintf(&b, "content:\n%s\n", s.Content)
	if cur := s.Get(field); cur != "" && field != slide.FieldTitle && field != slide.FieldContent && field != slide.FieldSubtitle {
		fmt.Fprintf(&b, "current %s:\n%s\n", fieldLabel(field), cur)
	}
	return b.String()
}

// ImagePrompt picks the prompt for a slide illustration.
func ImagePrompt(s slide.Slide) string {
	if p := strings.TrimSpace(s.ImagePrompt); p != "" {
		return p
	}
	return fmt.Sprintf("A clean presentation illustration for a slide titled %q. %s", s.Title, firstLine(s.Content))
}

// OutlinePrompt builds the JSON-mode request for a new deck.
func OutlinePrompt(topic string, slides int) string {
	if slides <= 0 {
		slides = 8
	}
	layouts := make([]string, 0, len(slide.Layouts()))
	for _, l := range slide.Layouts() {
		layouts = append(layouts, string(l))
	}
	return fmt.Sprintf(`Create a presentation outline about: %s

Return a JSON object {"title": string, "slides": [...]} with about %d slides.
Each slide has "title", "subtitle", "content" (markdown), "layout" (one of %s),
"sectionName", "notes" (speaker notes) and "imagePrompt" (empty unless the layout shows an image).
Start with a "title" layout slide.`, topic, slides, strings.Join(layouts, ", "))
}

type outline struct {
	Title  string `json:"title"`
	Slides []struct {
		Title       string `json:"title"`
		Subtitle    string `json:"subtitle"`
		Content     string `json:"content"`
		Layout      string `json:"layout"`
		SectionName string `json:"sectionName"`
		Notes       string `json:"notes"`
		ImagePrompt string `json:"imagePrompt"`
	} `json:"slides"`
}

// ParseOutline decodes a JSON outline into an unsaved deck. Slides are
// numbered in response order.
func ParseOutline(raw []byte) (slide.Deck, error) {
	raw = []byte(stripFence(string(raw)))
	var o outline
	if err := json.Unmarshal(raw, &o); err != nil {
		return slide.Deck{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(o.Slides) == 0 {
		return slide.Deck{}, fmt.Errorf("%w: no slides", ErrMalformed)
	}
	d := slide.Deck{Title: strings.TrimSpace(o.Title)}
	for i, s := range o.Slides {
		d.Slides = append(d.Slides, slide.Slide{
			Order:       i,
			Title:       s.Title,
			Subtitle:    s.Subtitle,
			Content:     s.Content,
			Layout:      slide.ParseLayout(s.Layout),
			SectionName: s.SectionName,
			Notes:       s.Notes,
			ImagePrompt: s.ImagePrompt,
		})
	}
	if d.Title == "" {
		d.Title = d.Slides[0].Title
	}
	return d, nil
}

func fieldLabel(f slide.Field) string {
	switch f {
	case slide.FieldNotes:
		return "speaker notes"
	case slide.FieldImagePrompt:
		return "image prompt"
	case slide.FieldSectionName:
		return "section name"
	}
	return string(f)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimLeft(line, "-*# ")
}

// stripFence removes a ```json fence some models wrap JSON mode output in.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
