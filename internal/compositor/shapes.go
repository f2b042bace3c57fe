package compositor

import (
	"image"
	"image/color"
	"math"

	"github.com/ivlev/timeline2video/internal/sampler"
)

// distanceFunc returns the signed distance, in object-local pixels, from a
// point relative to the object's center to the shape outline. Negative is
// inside.
type distanceFunc func(x, y float64) float64

// drawShape rasterizes an analytic shape inside the state's bounds. Each
// frame pixel center is mapped back to object space; coverage ramps over one
// frame pixel across the outline.
func drawShape(dst *image.RGBA, s *sampler.State, c color.NRGBA, dist distanceFunc) {
	inv, ok := sampler.Invert(s.ToScreen)
	if !ok {
		return
	}
	area := s.Bounds.Intersect(dst.Bounds())
	if area.Empty() {
		return
	}

	// Frame pixels per object pixel, for the anti-aliasing ramp.
	det := math.Abs(s.ToScreen[0]*s.ToScreen[4] - s.ToScreen[1]*s.ToScreen[3])
	pxScale := math.Sqrt(det)

	alpha := float64(c.A) / 255 * s.Opacity
	hw, hh := s.Width/2, s.Height/2

	for y := area.Min.Y; y < area.Max.Y; y++ {
		i := dst.PixOffset(area.Min.X, y)
		for x := area.Min.X; x < area.Max.X; x, i = x+1, i+4 {
			lx, ly := sampler.Apply(inv, float64(x)+0.5, float64(y)+0.5)
			d := dist(lx-hw, ly-hh) * pxScale
			cov := 0.5 - d
			if cov <= 0 {
				continue
			}
			if cov > 1 {
				cov = 1
			}
			blend(dst.Pix, i, c, alpha*cov)
		}
	}
}

func rectDistance(w, h float64) distanceFunc {
	hw, hh := w/2, h/2
	return func(x, y float64) float64 {
		return math.Max(math.Abs(x)-hw, math.Abs(y)-hh)
	}
}

func circleDistance(r float64) distanceFunc {
	return func(x, y float64) float64 {
		return math.Hypot(x, y) - r
	}
}

// segmentDistance is a capsule of radius r around the segment a-b.
func segmentDistance(ax, ay, bx, by, r float64) distanceFunc {
	dx, dy := bx-ax, by-ay
	lenSq := dx*dx + dy*dy
	return func(x, y float64) float64 {
		t := 0.0
		if lenSq > 0 {
			t = ((x-ax)*dx + (y-ay)*dy) / lenSq
			t = math.Max(0, math.Min(1, t))
		}
		return math.Hypot(x-(ax+t*dx), y-(ay+t*dy)) - r
	}
}
