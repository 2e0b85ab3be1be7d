package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"slidedeck/internal/slide"
)

// Dir is a read-only deck kept as markdown files in a directory: one file
// per slide, ordered by file name, with the deck title in _title.md. Files
// starting with an underscore are skipped.
//
// A slide file may open with a front matter block:
//
//	---
//	layout: quote
//	background: #1e293b
//	section: Intro
//	image: https://example.com/a.png
//	---
//
// The first "# " heading becomes the title, a "## " heading directly after
// it the subtitle, and everything after a line holding only "???" the
// speaker notes.
type Dir struct {
	path string
}

// NewDir returns a store reading from path.
func NewDir(path string) *Dir {
	return &Dir{path: path}
}

// ID is the deck id the directory is served under.
func (d *Dir) ID() string {
	return filepath.Base(filepath.Clean(d.path))
}

// Deck implements DeckReader. Any id other than the directory's own is not
// found.
func (d *Dir) Deck(ctx context.Context, deckID string) (slide.Deck, error) {
	if deckID != "" && deckID != d.ID() {
		return slide.Deck{}, fmt.Errorf("deck %s: %w", deckID, ErrNotFound)
	}
	return d.Load()
}

// Load reads every slide file.
func (d *Dir) Load() (slide.Deck, error) {
	files, err := os.ReadDir(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return slide.Deck{}, fmt.Errorf("slides dir %s: %w", d.path, ErrNotFound)
		}
		return slide.Deck{}, err
	}

	deck := slide.Deck{ID: d.ID()}
	if titleContent, err := os.ReadFile(filepath.Join(d.path, "_title.md")); err == nil {
		deck.Title = strings.TrimSpace(string(titleContent))
	}

	var filenames []string
	for _, file := range files {
		if filepath.Ext(file.Name()) == ".md" && !strings.HasPrefix(file.Name(), "_") {
			filenames = append(filenames, file.Name())
		}
	}
	sort.Strings(filenames)

	for i, filename := range filenames {
		content, err := os.ReadFile(filepath.Join(d.path, filename))
		if err != nil {
			return slide.Deck{}, err
		}
		s := ParseSlide(string(content))
		s.ID = deck.ID + "/" + strings.TrimSuffix(filename, ".md")
		s.DeckID = deck.ID
		s.Order = i
		deck.Slides = append(deck.Slides, s)
	}
	return deck, nil
}

// ParseSlide reads one slide file's content. CRLF line endings are
// accepted.
func ParseSlide(content string) slide.Slide {
	s := slide.Slide{Layout: slide.LayoutContent}
	content = strings.ReplaceAll(content, "\r\n", "\n")
	body, notes, _ := strings.Cut(content, "\n???\n")
	s.Notes = strings.TrimSpace(notes)

	lines := strings.Split(body, "\n")
	if len(lines) > 0 && strings.TrimSpace(lines[0]) == "---" {
		for i := 1; i < len(lines); i++ {
			if strings.TrimSpace(lines[i]) == "---" {
				applyFrontMatter(&s, lines[1:i])
				lines = lines[i+1:]
				break
			}
		}
	}

	var rest []string
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		switch {
		case s.Title == "" && strings.HasPrefix(line, "# "):
			s.Title = strings.TrimSpace(strings.TrimPrefix(line, "# "))
			if i+1 < len(lines) && strings.HasPrefix(lines[i+1], "## ") {
				s.Subtitle = strings.TrimSpace(strings.TrimPrefix(lines[i+1], "## "))
				i++
			}
		default:
			rest = append(rest, line)
		}
	}
	s.Content = strings.TrimSpace(strings.Join(rest, "\n"))
	return s
}

func applyFrontMatter(s *slide.Slide, lines []string) {
	for _, line := range lines {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "layout":
			s.Layout = slide.ParseLayout(value)
		case "background":
			s.BackgroundColor = value
		case "section":
			s.SectionName = value
		case "image":
			s.ImageURL = value
		case "prompt":
			s.ImagePrompt = value
		}
	}
}
