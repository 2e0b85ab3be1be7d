package slide

import (
	"errors"
	"time"
)

// Deck is an ordered collection of slides forming one presentation.
type Deck struct {
	ID        string  `json:"id"`
	OwnerID   string  `json:"ownerId,omitempty"`
	Title     string  `json:"title"`
	IsPublic  bool    `json:"isPublic"`
	ShareSlug string  `json:"shareSlug,omitempty"`
	Slides    []Slide `json:"slides"`
}

var ErrShareState = errors.New("share slug must be set exactly when the deck is public")

// Validate checks the isPublic/shareSlug pairing.
func (d Deck) Validate() error {
	if d.IsPublic != (d.ShareSlug != "") {
		return ErrShareState
	}
	return nil
}

// Index returns the position of the slide with the given id, or -1.
func (d Deck) Index(slideID string) int {
	for i, s := range d.Slides {
		if s.ID == slideID {
			return i
		}
	}
	return -1
}

// Comment is a collaborator note attached to one slide.
type Comment struct {
	ID        string    `json:"id"`
	SlideID   string    `json:"slideId"`
	AuthorID  string    `json:"authorId"`
	Content   string    `json:"content"`
	Resolved  bool      `json:"resolved"`
	CreatedAt time.Time `json:"createdAt"`
}

// Version is an immutable snapshot of a slide's text fields.
type Version struct {
	ID            string    `json:"id"`
	SlideID       string    `json:"slideId"`
	AuthorID      string    `json:"authorId"`
	Title         string    `json:"title"`
	Subtitle      string    `json:"subtitle,omitempty"`
	Content       string    `json:"content"`
	Layout        Layout    `json:"layout"`
	Notes         string    `json:"notes,omitempty"`
	VersionNumber int       `json:"versionNumber"`
	CreatedAt     time.Time `json:"createdAt"`
}

// SnapshotOf captures the versioned fields of s. ID, VersionNumber and
// CreatedAt are assigned by the store.
func SnapshotOf(s Slide, authorID string) Version {
	return Version{
		SlideID:  s.ID,
		AuthorID: authorID,
		Title:    s.Title,
		Subtitle: s.Subtitle,
		Content:  s.Content,
		Layout:   s.Layout,
		Notes:    s.Notes,
	}
}

// VersionedFields lists the fields a Version restores.
var VersionedFields = []Field{FieldTitle, FieldSubtitle, FieldContent, FieldLayout, FieldNotes}

// Get returns the snapshot value of a versioned field.
func (v Version) Get(f Field) string {
	switch f {
	case FieldTitle:
		return v.Title
	case FieldSubtitle:
		return v.Subtitle
	case FieldContent:
		return v.Content
	case FieldLayout:
		return string(v.Layout)
	case FieldNotes:
		return v.Notes
	}
	return ""
}
