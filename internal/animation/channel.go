package animation

import (
	"fmt"
	"sort"
)

// Vec2 is a 2D value in pixels (position) or factors (scale).
type Vec2 struct {
	X, Y float64
}

// Value is the set of types a Channel can carry.
type Value interface {
	float64 | Vec2
}

// Keyframe fixes a channel value at a clip-local time. Easing governs the
// approach to this keyframe from the previous one.
type Keyframe[T Value] struct {
	Time   float64
	Value  T
	Easing Easing
}

// ChannelKind tags the variant held by a Channel.
type ChannelKind int

const (
	ChannelConstant ChannelKind = iota
	ChannelKeyframed
	ChannelFunc
)

// Channel is a time-to-value mapping: a constant, a keyframe track or a
// caller supplied function of clip-local time.
type Channel[T Value] struct {
	kind      ChannelKind
	constant  T
	keyframes []Keyframe[T]
	fn        func(t float64) T
}

func Constant[T Value](v T) Channel[T] {
	return Channel[T]{kind: ChannelConstant, constant: v}
}

// Keyframed builds a keyframe track. Times must be strictly increasing and
// at least one keyframe is required.
func Keyframed[T Value](keyframes ...Keyframe[T]) (Channel[T], error) {
	if len(keyframes) == 0 {
		return Channel[T]{}, fmt.Errorf("keyframed channel needs at least one keyframe")
	}
	for i := 1; i < len(keyframes); i++ {
		if keyframes[i].Time <= keyframes[i-1].Time {
			return Channel[T]{}, fmt.Errorf("keyframe %d: time %.6f is not after %.6f",
				i, keyframes[i].Time, keyframes[i-1].Time)
		}
	}
	kfs := make([]Keyframe[T], len(keyframes))
	copy(kfs, keyframes)
	return Channel[T]{kind: ChannelKeyframed, keyframes: kfs}, nil
}

func Func[T Value](fn func(t float64) T) Channel[T] {
	return Channel[T]{kind: ChannelFunc, fn: fn}
}

func (c Channel[T]) Kind() ChannelKind {
	return c.kind
}

// Keyframes returns a copy of the keyframe track (nil for other kinds).
func (c Channel[T]) Keyframes() []Keyframe[T] {
	if c.kind != ChannelKeyframed {
		return nil
	}
	out := make([]Keyframe[T], len(c.keyframes))
	copy(out, c.keyframes)
	return out
}

// ConstantValue reports the constant value, if the channel is constant.
func (c Channel[T]) ConstantValue() (T, bool) {
	return c.constant, c.kind == ChannelConstant
}

// Evaluate returns the channel value at clip-local time t.
func (c Channel[T]) Evaluate(t float64) T {
	switch c.kind {
	case ChannelKeyframed:
		return evaluateKeyframes(c.keyframes, t)
	case ChannelFunc:
		if c.fn == nil {
			var zero T
			return zero
		}
		return c.fn(t)
	default:
		return c.constant
	}
}

func evaluateKeyframes[T Value](kfs []Keyframe[T], t float64) T {
	first, last := kfs[0], kfs[len(kfs)-1]
	if t <= first.Time {
		return first.Value
	}
	if t >= last.Time {
		return last.Value
	}

	// Index of the first keyframe strictly after t; never 0 or len here.
	i := sort.Search(len(kfs), func(i int) bool { return kfs[i].Time > t })
	k0, k1 := kfs[i-1], kfs[i]

	span := k1.Time - k0.Time
	if span == 0 {
		return k0.Value
	}
	u := k1.Easing.Apply((t - k0.Time) / span)
	return lerp(k0.Value, k1.Value, u)
}

func lerp[T Value](a, b T, u float64) T {
	switch av := any(a).(type) {
	case float64:
		bv := any(b).(float64)
		return any(av + (bv-av)*u).(T)
	case Vec2:
		bv := any(b).(Vec2)
		return any(Vec2{
			X: av.X + (bv.X-av.X)*u,
			Y: av.Y + (bv.Y-av.Y)*u,
		}).(T)
	}
	return a
}
