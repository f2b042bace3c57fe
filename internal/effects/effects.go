// Package effects turns the classic slideshow moves (a slow zoom towards a
// corner, a tour over the blocks of a page, fade in and out) into keyframe
// tracks on a clip's transform. Times are clip-local.
package effects

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/ivlev/timeline2video/internal/animation"
)

const (
	// DefaultZoomSpeed is in scale units per second.
	DefaultZoomSpeed = 0.03
	MaxZoom          = 1.5
)

var zoomOrigins = map[string]animation.Anchor{
	"center":       animation.AnchorCenter,
	"top-left":     animation.AnchorTopLeft,
	"top-right":    animation.AnchorTopRight,
	"bottom-left":  animation.AnchorBottomLeft,
	"bottom-right": animation.AnchorBottomRight,
}

var randomOrigins = []string{"center", "top-left", "top-right", "bottom-left", "bottom-right"}

// ZoomModes lists the accepted zoom modes; TourMode is handled by Tour.
var ZoomModes = []string{
	"center", "top-left", "top-right", "bottom-left", "bottom-right",
	"random", "out-center", "out-random", TourMode,
}

// Zoom pushes in towards an origin, holds at the peak and optionally
// returns to 1:1 during the last Outro seconds. The "out-" modes pull out
// from the peak instead.
type Zoom struct {
	Mode  string
	Speed float64
	Outro float64
}

// Apply writes the zoom into spec for an object of w x h pixels shown for
// duration seconds. seed picks the origin of the random modes, so the same
// clip always gets the same move.
//
// The zoom origin becomes the clip's anchor; the position is shifted so the
// object stays where it was at scale 1.
func (z Zoom) Apply(spec *animation.TransformSpec, w, h, duration float64, seed int64) error {
	if !(duration > 0) {
		return fmt.Errorf("zoom: clip duration must be positive, got %v", duration)
	}
	base, ok := spec.Scale.ConstantValue()
	if !ok {
		return fmt.Errorf("zoom: scale is already animated")
	}

	mode := strings.ToLower(strings.TrimSpace(z.Mode))
	if mode == "" {
		mode = "center"
	}
	out := strings.HasPrefix(mode, "out-")
	origin := strings.TrimPrefix(mode, "out-")
	if origin == "random" {
		r := rand.New(rand.NewSource(seed))
		origin = randomOrigins[r.Intn(len(randomOrigins))]
	}
	anchor, ok := zoomOrigins[origin]
	if !ok {
		return fmt.Errorf("zoom: unknown mode %q", z.Mode)
	}

	speed := z.Speed
	if speed <= 0 {
		speed = DefaultZoomSpeed
	}
	scaled := func(f float64) animation.Vec2 {
		return animation.Vec2{X: base.X * f, Y: base.Y * f}
	}

	var keys []animation.Keyframe[animation.Vec2]
	if out {
		peak := math.Min(1+speed*duration, MaxZoom)
		keys = []animation.Keyframe[animation.Vec2]{
			{Time: 0, Value: scaled(peak)},
			{Time: duration, Value: scaled(1), Easing: animation.EaseOutCubic},
		}
	} else {
		outro := math.Max(0, math.Min(z.Outro, duration/2))
		room := duration - outro
		peakAt := math.Min(0.5/speed, room/2)
		peak := math.Min(1+speed*peakAt, MaxZoom)

		keys = []animation.Keyframe[animation.Vec2]{
			{Time: 0, Value: scaled(1)},
			{Time: peakAt, Value: scaled(peak), Easing: animation.EaseInOutQuad},
			{Time: room, Value: scaled(peak)},
		}
		if outro > 0 {
			keys = append(keys, animation.Keyframe[animation.Vec2]{
				Time: duration, Value: scaled(1), Easing: animation.EaseInOutQuad,
			})
		}
	}

	scale, err := animation.Keyframed(keys...)
	if err != nil {
		return fmt.Errorf("zoom: %w", err)
	}

	// Object offsets are y-down, positions y-up.
	from, to := spec.Anchor.Offset(w, h), anchor.Offset(w, h)
	shift := animation.Vec2{X: to.X - from.X, Y: -(to.Y - from.Y)}
	position, err := Translate(spec.Position, shift)
	if err != nil {
		return fmt.Errorf("zoom: %w", err)
	}

	spec.Scale = scale
	spec.Position = position
	spec.Anchor = anchor
	return nil
}

// Translate returns ch moved by d.
func Translate(ch animation.Channel[animation.Vec2], d animation.Vec2) (animation.Channel[animation.Vec2], error) {
	add := func(v animation.Vec2) animation.Vec2 {
		return animation.Vec2{X: v.X + d.X, Y: v.Y + d.Y}
	}
	switch ch.Kind() {
	case animation.ChannelConstant:
		v, _ := ch.ConstantValue()
		return animation.Constant(add(v)), nil
	case animation.ChannelKeyframed:
		kfs := ch.Keyframes()
		for i := range kfs {
			kfs[i].Value = add(kfs[i].Value)
		}
		return animation.Keyframed(kfs...)
	default:
		return animation.Func(func(t float64) animation.Vec2 {
			return add(ch.Evaluate(t))
		}), nil
	}
}

// Fade ramps opacity from 0 over the first In seconds and back to 0 over the
// last Out seconds. When In+Out exceeds the clip both are shrunk in
// proportion.
type Fade struct {
	In  float64
	Out float64
}

func (f Fade) Apply(spec *animation.TransformSpec, duration float64) error {
	if f.In < 0 || f.Out < 0 {
		return fmt.Errorf("fade: durations must be >= 0, got in=%v out=%v", f.In, f.Out)
	}
	if f.In == 0 && f.Out == 0 {
		return nil
	}
	if !(duration > 0) {
		return fmt.Errorf("fade: clip duration must be positive, got %v", duration)
	}
	base, ok := spec.Opacity.ConstantValue()
	if !ok {
		return fmt.Errorf("fade: opacity is already animated")
	}

	in, out := f.In, f.Out
	if total := in + out; total > duration {
		in, out = in*duration/total, out*duration/total
	}

	var keys []animation.Keyframe[float64]
	if in > 0 {
		keys = append(keys, animation.Keyframe[float64]{Time: 0, Value: 0})
	}
	keys = append(keys, animation.Keyframe[float64]{Time: in, Value: base})
	if duration-out > in {
		keys = append(keys, animation.Keyframe[float64]{Time: duration - out, Value: base})
	}
	if out > 0 {
		keys = append(keys, animation.Keyframe[float64]{Time: duration, Value: 0})
	}

	opacity, err := animation.Keyframed(keys...)
	if err != nil {
		return fmt.Errorf("fade: %w", err)
	}
	spec.Opacity = opacity
	return nil
}
