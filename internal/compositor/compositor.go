// Package compositor turns sampled states into RGBA frames.
//
// Blending is straight-alpha "over" in the 8-bit space the inputs come in:
// out = src*a + dst*(1-a), where a is the object's own alpha times the
// sampled opacity. The frame starts opaque, so it stays opaque and its
// premultiplied and straight representations coincide.
package compositor

import (
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/ivlev/timeline2video/internal/sampler"
	"github.com/ivlev/timeline2video/internal/timeline"
)

// Composite allocates a width x height frame and draws states onto it,
// back to front.
func Composite(states []sampler.State, width, height int, background color.NRGBA) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	CompositeInto(dst, states, background)
	return dst
}

// CompositeInto overwrites dst with the background and draws states onto it.
// dst must have its origin at (0,0).
func CompositeInto(dst *image.RGBA, states []sampler.State, background color.NRGBA) {
	fill(dst, background)
	for i := range states {
		drawState(dst, &states[i])
	}
}

func fill(dst *image.RGBA, c color.NRGBA) {
	px := [4]uint8{c.R, c.G, c.B, 255}
	pix := dst.Pix
	if len(pix) < 4 {
		return
	}
	copy(pix[:4], px[:])
	// Doubling copy fills the rest of the buffer.
	for n := 4; n < len(pix); n *= 2 {
		copy(pix[n:], pix[:n])
	}
}

func drawState(dst *image.RGBA, s *sampler.State) {
	if !s.Visible() {
		return
	}
	switch o := s.Object.(type) {
	case *timeline.Rect:
		drawShape(dst, s, o.Color, rectDistance(o.Width, o.Height))
	case *timeline.VideoPlaceholder:
		drawShape(dst, s, o.Color, rectDistance(o.Width, o.Height))
	case *timeline.Circle:
		drawShape(dst, s, o.Color, circleDistance(o.Radius))
	case *timeline.Line:
		a, b := o.Endpoints()
		drawShape(dst, s, o.Color, segmentDistance(a.X, a.Y, b.X, b.Y, o.Thickness/2))
	case timeline.Sprite:
		drawSprite(dst, s, o.Raster())
	}
}

// drawSprite maps the pixel source through the state's affine transform with
// bilinear sampling. Opacity below 1 is applied as a uniform source mask.
func drawSprite(dst *image.RGBA, s *sampler.State, src *image.NRGBA) {
	if src == nil {
		return
	}
	var opts *xdraw.Options
	if s.Opacity < 1 {
		opts = &xdraw.Options{
			SrcMask: image.NewUniform(color.Alpha16{A: uint16(math.Round(s.Opacity * 0xffff))}),
		}
	}
	m := s.ToScreen
	if b := src.Bounds(); b.Min != (image.Point{}) {
		m[2], m[5] = sampler.Apply(m, -float64(b.Min.X), -float64(b.Min.Y))
	}
	xdraw.BiLinear.Transform(dst, m, src, src.Bounds(), xdraw.Over, opts)
}

// blend applies out = src*a + dst*(1-a) to one pixel at offset i.
func blend(pix []uint8, i int, c color.NRGBA, a float64) {
	if a <= 0 {
		return
	}
	if a >= 1 {
		pix[i+0], pix[i+1], pix[i+2], pix[i+3] = c.R, c.G, c.B, 255
		return
	}
	inv := 1 - a
	pix[i+0] = channel(c.R, pix[i+0], a, inv)
	pix[i+1] = channel(c.G, pix[i+1], a, inv)
	pix[i+2] = channel(c.B, pix[i+2], a, inv)
	pix[i+3] = uint8(math.Round(255*a + float64(pix[i+3])*inv))
}

func channel(src, dst uint8, a, inv float64) uint8 {
	return uint8(math.Round(float64(src)*a + float64(dst)*inv))
}
