package animation

import (
	"fmt"
	"strings"
)

// Anchor is a normalized point inside an object's bounds; (0,0) is the
// top-left corner and (1,1) the bottom-right one.
type Anchor struct {
	U, V float64
}

var (
	AnchorCenter      = Anchor{0.5, 0.5}
	AnchorTopLeft     = Anchor{0, 0}
	AnchorTop         = Anchor{0.5, 0}
	AnchorTopRight    = Anchor{1, 0}
	AnchorLeft        = Anchor{0, 0.5}
	AnchorRight       = Anchor{1, 0.5}
	AnchorBottomLeft  = Anchor{0, 1}
	AnchorBottom      = Anchor{0.5, 1}
	AnchorBottomRight = Anchor{1, 1}
)

var anchorPresets = map[string]Anchor{
	"center":       AnchorCenter,
	"top-left":     AnchorTopLeft,
	"top":          AnchorTop,
	"top-right":    AnchorTopRight,
	"left":         AnchorLeft,
	"right":        AnchorRight,
	"bottom-left":  AnchorBottomLeft,
	"bottom":       AnchorBottom,
	"bottom-right": AnchorBottomRight,
}

// ParseAnchor resolves a preset name. Underscores are accepted in place of
// dashes; an empty name is the center.
func ParseAnchor(name string) (Anchor, error) {
	n := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
	if n == "" {
		return AnchorCenter, nil
	}
	a, ok := anchorPresets[n]
	if !ok {
		return Anchor{}, fmt.Errorf("unknown anchor preset %q", name)
	}
	return a, nil
}

func (a Anchor) Valid() bool {
	return a.U >= 0 && a.U <= 1 && a.V >= 0 && a.V <= 1
}

// Offset maps the anchor to a pixel offset from the center of a w x h object.
func (a Anchor) Offset(w, h float64) Vec2 {
	return Vec2{X: (a.U - 0.5) * w, Y: (a.V - 0.5) * h}
}

// TransformSpec animates the placement of one clip.
type TransformSpec struct {
	Position Channel[Vec2]
	Scale    Channel[Vec2]
	Rotation Channel[float64]
	Opacity  Channel[float64]
	Anchor   Anchor
}

// Transform is a TransformSpec resolved at one instant.
type Transform struct {
	Position Vec2
	Scale    Vec2
	Rotation float64
	Opacity  float64
}

// Identity places the object centered on the frame, unscaled and opaque.
func Identity() TransformSpec {
	return TransformSpec{
		Position: Constant(Vec2{}),
		Scale:    Constant(Vec2{X: 1, Y: 1}),
		Rotation: Constant(0.0),
		Opacity:  Constant(1.0),
		Anchor:   AnchorCenter,
	}
}

// Evaluate resolves every channel at clip-local time t. Opacity is clamped
// to [0,1].
func (s TransformSpec) Evaluate(t float64) Transform {
	return Transform{
		Position: s.Position.Evaluate(t),
		Scale:    s.Scale.Evaluate(t),
		Rotation: s.Rotation.Evaluate(t),
		Opacity:  clamp01(s.Opacity.Evaluate(t)),
	}
}
