// Package sampler resolves a timeline at one instant into the ordered list
// of drawable states consumed by the compositor.
package sampler

import (
	"image"
	"math"

	"golang.org/x/image/math/f64"

	"github.com/ivlev/timeline2video/internal/animation"
	"github.com/ivlev/timeline2video/internal/timeline"
)

// State is one active clip resolved at a timeline instant.
type State struct {
	Layer int
	Clip  int

	Object    timeline.Object
	LocalTime float64
	animation.Transform

	// Width and Height are the unscaled object size; Pivot is the anchor
	// offset from the object's center.
	Width, Height float64
	Pivot         animation.Vec2

	// ToScreen maps object-local pixels (origin at the object's top-left)
	// to frame pixels. Origin is where the local origin lands.
	ToScreen f64.Aff3
	Origin   animation.Vec2
	// Bounds is the frame-space bounding box of the transformed object,
	// not clipped to the frame.
	Bounds image.Rectangle
}

// Visible reports whether drawing the state can change any pixel.
func (s *State) Visible() bool {
	return s.Opacity > 0 && s.Scale.X != 0 && s.Scale.Y != 0 && !s.Bounds.Empty()
}

// Sample returns one State per clip active at t, ordered by layer and then by
// clip order within the layer. It reads the timeline only and is a pure
// function of (tl, t).
func Sample(tl *timeline.Timeline, t float64) []State {
	var states []State
	for li, layer := range tl.Layers {
		for ci, clip := range layer.Clips {
			local, ok := clip.LocalTime(t)
			if !ok {
				continue
			}
			states = append(states, resolve(tl, li, ci, clip, local))
		}
	}
	return states
}

func resolve(tl *timeline.Timeline, li, ci int, clip *timeline.Clip, local float64) State {
	tr := clip.Transform.Evaluate(local)
	w, h := clip.Object.Size()
	pivot := clip.Transform.Anchor.Offset(w, h)

	// The anchor point lands on the resolved position; positions are
	// relative to the frame center with +y up.
	px := float64(tl.Width)/2 + tr.Position.X
	py := float64(tl.Height)/2 - tr.Position.Y

	sin, cos := math.Sincos(tr.Rotation * math.Pi / 180)
	sx, sy := tr.Scale.X, tr.Scale.Y
	ox, oy := -w/2-pivot.X, -h/2-pivot.Y

	m := f64.Aff3{
		cos * sx, -sin * sy, px + cos*sx*ox - sin*sy*oy,
		sin * sx, cos * sy, py + sin*sx*ox + cos*sy*oy,
	}

	return State{
		Layer:     li,
		Clip:      ci,
		Object:    clip.Object,
		LocalTime: local,
		Transform: tr,
		Width:     w,
		Height:    h,
		Pivot:     pivot,
		ToScreen:  m,
		Origin:    animation.Vec2{X: m[2], Y: m[5]},
		Bounds:    bounds(m, w, h),
	}
}

// Apply maps an object-local point to frame space.
func Apply(m f64.Aff3, x, y float64) (float64, float64) {
	return m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]
}

// Invert returns the inverse of m, or false when m is singular.
func Invert(m f64.Aff3) (f64.Aff3, bool) {
	det := m[0]*m[4] - m[1]*m[3]
	if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return f64.Aff3{}, false
	}
	a, b := m[4]/det, -m[1]/det
	d, e := -m[3]/det, m[0]/det
	return f64.Aff3{
		a, b, -(a*m[2] + b*m[5]),
		d, e, -(d*m[2] + e*m[5]),
	}, true
}

// snap keeps rounding noise from trig functions from growing the bounds by
// a whole pixel.
const snap = 1e-9

func bounds(m f64.Aff3, w, h float64) image.Rectangle {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range [4][2]float64{{0, 0}, {w, 0}, {0, h}, {w, h}} {
		x, y := Apply(m, p[0], p[1])
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	if math.IsNaN(minX) || math.IsNaN(minY) || math.IsInf(minX, 0) || math.IsInf(maxX, 0) ||
		math.IsInf(minY, 0) || math.IsInf(maxY, 0) {
		return image.Rectangle{}
	}
	return image.Rect(
		int(math.Floor(minX+snap)), int(math.Floor(minY+snap)),
		int(math.Ceil(maxX-snap)), int(math.Ceil(maxY-snap)),
	)
}
