package effects

import (
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/ivlev/timeline2video/internal/animation"
)

// TourMode is the zoom mode name of a Tour.
const TourMode = "tour"

// Tour is a camera path over regions of an object: it starts on the whole
// object, visits every block in reading order, zoomed so the block fills
// most of the frame, and returns to the whole object.
type Tour struct {
	// Blocks are in object-local pixels, y down.
	Blocks []image.Rectangle
	// FrameW and FrameH are the frame size in pixels.
	FrameW, FrameH float64

	// Intro is the full view held before the first block and after the
	// last one.
	Intro float64
	// MinDwell and MaxDwell bound the time spent per block.
	MinDwell, MaxDwell float64
	// Travel is the share of a dwell spent moving to the block.
	Travel float64
	// Padding is the share of the frame a focused block may fill.
	Padding float64
	MaxZoom float64
}

// NewTour returns a tour with the default pacing.
func NewTour(blocks []image.Rectangle, frameW, frameH float64) Tour {
	return Tour{
		Blocks:   blocks,
		FrameW:   frameW,
		FrameH:   frameH,
		Intro:    1,
		MinDwell: 1,
		MaxDwell: 3,
		Travel:   0.4,
		Padding:  0.9,
		MaxZoom:  3,
	}
}

// rowThreshold is how far apart two block tops may be and still count as
// the same row.
const rowThreshold = 20

// ReadingOrder sorts blocks top to bottom, then left to right within a row.
func ReadingOrder(blocks []image.Rectangle) []image.Rectangle {
	sorted := make([]image.Rectangle, len(blocks))
	copy(sorted, blocks)
	sort.SliceStable(sorted, func(i, j int) bool {
		dy := sorted[i].Min.Y - sorted[j].Min.Y
		if dy > rowThreshold || dy < -rowThreshold {
			return dy < 0
		}
		return sorted[i].Min.X < sorted[j].Min.X
	})
	return sorted
}

// Plan returns the dwell per block and how many blocks fit in duration.
func (tr Tour) Plan(duration float64) (intro, dwell float64, n int) {
	intro = tr.Intro
	available := duration - 2*intro
	if available <= 0 {
		intro = duration / 4
		available = duration / 2
	}
	n = len(tr.Blocks)
	if n == 0 {
		return intro, 0, 0
	}
	dwell = math.Max(tr.MinDwell, math.Min(tr.MaxDwell, available/float64(n)))
	if dwell*float64(n) > available {
		n = int(available / dwell)
		if n == 0 {
			n, dwell = 1, available
		}
	}
	return intro, dwell, n
}

// Apply writes the tour into spec for an object of w x h pixels shown for
// duration seconds. Position and scale must be constant. The anchor becomes
// the object's center, with the position shifted to keep the unrotated
// object in place.
func (tr Tour) Apply(spec *animation.TransformSpec, w, h, duration float64) error {
	if !(duration > 0) {
		return fmt.Errorf("tour: clip duration must be positive, got %v", duration)
	}
	if len(tr.Blocks) == 0 {
		return fmt.Errorf("tour: no blocks to visit")
	}
	base, ok := spec.Scale.ConstantValue()
	if !ok {
		return fmt.Errorf("tour: scale is already animated")
	}
	if _, ok := spec.Position.ConstantValue(); !ok {
		return fmt.Errorf("tour: position is already animated")
	}

	from := spec.Anchor.Offset(w, h)
	centered, err := Translate(spec.Position, animation.Vec2{X: -base.X * from.X, Y: base.Y * from.Y})
	if err != nil {
		return fmt.Errorf("tour: %w", err)
	}
	home, _ := centered.ConstantValue()

	intro, dwell, n := tr.Plan(duration)
	blocks := ReadingOrder(tr.Blocks)[:n]

	scaleKeys := []animation.Keyframe[animation.Vec2]{{Time: 0, Value: base}}
	posKeys := []animation.Keyframe[animation.Vec2]{{Time: 0, Value: home}}
	add := func(t float64, scale, pos animation.Vec2, easing animation.Easing) {
		scaleKeys = append(scaleKeys, animation.Keyframe[animation.Vec2]{Time: t, Value: scale, Easing: easing})
		posKeys = append(posKeys, animation.Keyframe[animation.Vec2]{Time: t, Value: pos, Easing: easing})
	}
	add(intro, base, home, animation.Linear)

	for i, blk := range blocks {
		z := tr.zoom(blk, base)
		scale := animation.Vec2{X: base.X * z, Y: base.Y * z}
		// Put the block center on the frame center; offsets are y-down,
		// positions y-up.
		cx := (float64(blk.Min.X+blk.Max.X))/2 - w/2
		cy := (float64(blk.Min.Y+blk.Max.Y))/2 - h/2
		focus := animation.Vec2{X: -scale.X * cx, Y: scale.Y * cy}

		start := intro + float64(i)*dwell
		add(start+tr.Travel*dwell, scale, focus, animation.EaseInOutQuad)
		add(start+dwell, scale, focus, animation.Linear)
	}

	end := intro + float64(n)*dwell
	add(math.Min(duration, end+intro), base, home, animation.EaseInOutQuad)

	if spec.Scale, err = animation.Keyframed(dedupe(scaleKeys)...); err != nil {
		return fmt.Errorf("tour: %w", err)
	}
	if spec.Position, err = animation.Keyframed(dedupe(posKeys)...); err != nil {
		return fmt.Errorf("tour: %w", err)
	}
	spec.Anchor = animation.AnchorCenter
	return nil
}

// zoom fits blk into the padded frame at the object's base scale.
func (tr Tour) zoom(blk image.Rectangle, base animation.Vec2) float64 {
	bw, bh := float64(blk.Dx())*math.Abs(base.X), float64(blk.Dy())*math.Abs(base.Y)
	if bw == 0 || bh == 0 {
		return 1
	}
	z := math.Min(tr.FrameW*tr.Padding/bw, tr.FrameH*tr.Padding/bh)
	return math.Max(1, math.Min(tr.MaxZoom, z))
}

// dedupe drops keyframes that do not advance in time, which happens when
// the tour fills the clip exactly.
func dedupe[T animation.Value](keys []animation.Keyframe[T]) []animation.Keyframe[T] {
	out := keys[:1]
	for _, k := range keys[1:] {
		if k.Time > out[len(out)-1].Time {
			out = append(out, k)
		}
	}
	return out
}
