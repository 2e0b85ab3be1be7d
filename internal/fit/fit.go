// Package fit computes the uniform scale that fits a fixed-resolution slide
// canvas into an arbitrary container.
package fit

import "math"

// Size is a width/height pair in any unit (pixels, terminal cells).
type Size struct {
	W float64
	H float64
}

var (
	// Reference is the design resolution of a slide.
	Reference = Size{W: 1920, H: 1080}
	// Cells is the slide canvas in terminal cells. Cells are roughly twice as
	// tall as they are wide, so 160x45 keeps the 16:9 shape.
	Cells = Size{W: 160, H: 45}
)

// Scale returns min(container.W/canvas.W, container.H/canvas.H). Degenerate
// sizes yield 0.
func Scale(container, canvas Size) float64 {
	if container.W <= 0 || container.H <= 0 || canvas.W <= 0 || canvas.H <= 0 {
		return 0
	}
	return math.Min(container.W/canvas.W, container.H/canvas.H)
}

// Fitted returns canvas scaled by s, floored to whole units.
func Fitted(canvas Size, s float64) Size {
	return Size{W: math.Floor(canvas.W * s), H: math.Floor(canvas.H * s)}
}

// Tracker holds the derived scale for one container. The scale is only
// recomputed when the observed container size changes.
type Tracker struct {
	canvas    Size
	container Size
	scale     float64
	mounted   bool
	computes  int
}

// NewTracker returns a tracker for the given canvas.
func NewTracker(canvas Size) *Tracker {
	return &Tracker{canvas: canvas}
}

// Resize records a container size observation and reports whether the scale
// was recomputed.
func (t *Tracker) Resize(container Size) bool {
	if t.mounted && container == t.container {
		return false
	}
	t.mounted = true
	t.container = container
	t.scale = Scale(container, t.canvas)
	t.computes++
	return true
}

// Scale returns the last computed scale; 0 before the first Resize.
func (t *Tracker) Scale() float64 { return t.scale }

// Canvas returns the reference canvas size.
func (t *Tracker) Canvas() Size { return t.canvas }

// Container returns the last observed container size.
func (t *Tracker) Container() Size { return t.container }

// Fitted returns the displayed canvas size at the current scale.
func (t *Tracker) Fitted() Size { return Fitted(t.canvas, t.scale) }

// Computes returns how many times the scale has been derived.
func (t *Tracker) Computes() int { return t.computes }
