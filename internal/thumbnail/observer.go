package thumbnail

// Rect is an area in grid cell coordinates.
type Rect struct {
	X, Y, W, H int
}

// Intersects reports whether r and o overlap.
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.X+o.W && o.X < r.X+r.W && r.Y < o.Y+o.H && o.Y < r.Y+r.H
}

// Grow expands r by margin on every side.
func (r Rect) Grow(margin int) Rect {
	return Rect{X: r.X - margin, Y: r.Y - margin, W: r.W + 2*margin, H: r.H + 2*margin}
}

// Observer reports viewport intersections to registered thumbnails. The
// viewport is grown by a pre-load margin so thumbnails paint slightly before
// they scroll into view.
type Observer struct {
	margin       int
	targets      map[*Thumbnail]Rect
	disconnected bool
}

// NewObserver returns an observer with the given pre-load margin.
func NewObserver(margin int) *Observer {
	return &Observer{margin: margin, targets: make(map[*Thumbnail]Rect)}
}

// Observe registers t at area r, replacing any earlier area.
func (o *Observer) Observe(t *Thumbnail, r Rect) {
	if o.disconnected {
		return
	}
	o.targets[t] = r
}

// Unobserve drops t.
func (o *Observer) Unobserve(t *Thumbnail) {
	delete(o.targets, t)
}

// Check notifies every target of whether it intersects viewport.
func (o *Observer) Check(viewport Rect) {
	if o.disconnected {
		return
	}
	area := viewport.Grow(o.margin)
	for t, r := range o.targets {
		t.Observe(r.Intersects(area))
	}
}

// Disconnect stops all observation. Later calls are no-ops.
func (o *Observer) Disconnect() {
	o.disconnected = true
	o.targets = nil
}

// Connected reports whether the observer still delivers checks.
func (o *Observer) Connected() bool { return !o.disconnected }

// Len returns the number of observed thumbnails.
func (o *Observer) Len() int { return len(o.targets) }
