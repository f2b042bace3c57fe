package animation

import (
	"fmt"
	"strings"
)

// Easing names the curve used to approach a keyframe.
type Easing int

const (
	Linear Easing = iota
	EaseInOutQuad
	EaseOutCubic
)

var easingNames = map[Easing]string{
	Linear:        "linear",
	EaseInOutQuad: "ease_in_out_quad",
	EaseOutCubic:  "ease_out_cubic",
}

func (e Easing) String() string {
	if name, ok := easingNames[e]; ok {
		return name
	}
	return fmt.Sprintf("easing(%d)", int(e))
}

// ParseEasing accepts the snake_case names and their kebab-case variants.
// An empty name means Linear.
func ParseEasing(name string) (Easing, error) {
	n := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	if n == "" {
		return Linear, nil
	}
	for e, s := range easingNames {
		if s == n {
			return e, nil
		}
	}
	return Linear, fmt.Errorf("unknown easing %q", name)
}

// Apply clamps u to [0,1] and maps it through the curve.
func (e Easing) Apply(u float64) float64 {
	u = clamp01(u)
	switch e {
	case EaseInOutQuad:
		return easeInOutQuad(u)
	case EaseOutCubic:
		return easeOutCubic(u)
	default:
		return u
	}
}

func easeInOutQuad(u float64) float64 {
	if u < 0.5 {
		return 2 * u * u
	}
	v := -2*u + 2
	return 1 - v*v/2
}

func easeOutCubic(u float64) float64 {
	v := 1 - u
	return 1 - v*v*v
}

func clamp01(u float64) float64 {
	if u < 0 || u != u {
		return 0
	}
	if u > 1 {
		return 1
	}
	return u
}
