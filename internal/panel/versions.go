package panel

import (
	"context"
	"fmt"
	"sync"

	"slidedeck/internal/slide"
	"slidedeck/internal/store"
)

// Versions is the append-only history of one slide, newest first. It has no
// feed; Reload refreshes it after a save or restore.
type Versions struct {
	store store.VersionStore

	mu       sync.Mutex
	gen      int
	open     bool
	slideID  string
	items    []slide.Version
	selected int
}

func NewVersions(vs store.VersionStore) *Versions {
	return &Versions{store: vs}
}

// Open loads slideID's history.
func (v *Versions) Open(ctx context.Context, slideID string) error {
	v.mu.Lock()
	v.gen++
	gen := v.gen
	v.open, v.slideID, v.items, v.selected = true, slideID, nil, 0
	v.mu.Unlock()
	return v.load(ctx, gen, slideID)
}

// Reload fetches the list again for the current slide.
func (v *Versions) Reload(ctx context.Context) error {
	v.mu.Lock()
	if !v.open {
		v.mu.Unlock()
		return ErrClosed
	}
	gen, slideID := v.gen, v.slideID
	v.mu.Unlock()
	return v.load(ctx, gen, slideID)
}

// SetSlide follows the editor to another slide. A closed panel stays closed.
func (v *Versions) SetSlide(ctx context.Context, slideID string) error {
	v.mu.Lock()
	open, same := v.open, v.slideID == slideID
	v.mu.Unlock()
	if !open || same {
		return nil
	}
	return v.Open(ctx, slideID)
}

func (v *Versions) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gen++
	v.open, v.items, v.selected = false, nil, 0
}

func (v *Versions) IsOpen() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.open
}

// Items returns a copy of the loaded versions, newest first.
func (v *Versions) Items() []slide.Version {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]slide.Version, len(v.items))
	copy(out, v.items)
	return out
}

func (v *Versions) Move(delta int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.selected = clamp(v.selected+delta, len(v.items))
}

// Selected returns the highlighted version.
func (v *Versions) Selected() (slide.Version, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.selected < 0 || v.selected >= len(v.items) {
		return slide.Version{}, false
	}
	return v.items[v.selected], true
}

func (v *Versions) load(ctx context.Context, gen int, slideID string) error {
	items, err := v.store.Versions(ctx, slideID)
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.gen != gen {
		return ErrSuperseded
	}
	if err != nil {
		return fmt.Errorf("load versions: %w", err)
	}
	v.items = items
	v.selected = clamp(v.selected, len(items))
	return nil
}
