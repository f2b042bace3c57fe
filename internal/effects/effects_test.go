package effects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/timeline2video/internal/animation"
)

func TestZoomCenterPeakAndOutro(t *testing.T) {
	spec := animation.Identity()
	require.NoError(t, Zoom{Mode: "center", Speed: 0.1, Outro: 2}.Apply(&spec, 100, 50, 10, 0))

	kfs := spec.Scale.Keyframes()
	require.Len(t, kfs, 4)
	times := []float64{kfs[0].Time, kfs[1].Time, kfs[2].Time, kfs[3].Time}
	assert.Equal(t, []float64{0, 4, 8, 10}, times)

	at := func(tt float64) float64 { return spec.Scale.Evaluate(tt).X }
	assert.InDelta(t, 1.0, at(0), 1e-12)
	assert.InDelta(t, 1.2, at(2), 1e-12) // ease-in-out midpoint
	assert.InDelta(t, 1.4, at(4), 1e-12)
	assert.InDelta(t, 1.4, at(6), 1e-12)
	assert.InDelta(t, 1.0, at(10), 1e-12)

	assert.Equal(t, animation.AnchorCenter, spec.Anchor)
	pos, ok := spec.Position.ConstantValue()
	require.True(t, ok)
	assert.Equal(t, animation.Vec2{}, pos)
}

func TestZoomDefaultSpeedCapsAtHalfClip(t *testing.T) {
	spec := animation.Identity()
	require.NoError(t, Zoom{}.Apply(&spec, 10, 10, 10, 0))

	kfs := spec.Scale.Keyframes()
	require.Len(t, kfs, 3)
	assert.Equal(t, 5.0, kfs[1].Time)
	assert.InDelta(t, 1.15, kfs[1].Value.X, 1e-12)
	assert.InDelta(t, 1.15, kfs[2].Value.Y, 1e-12)
}

func TestZoomPeakIsCapped(t *testing.T) {
	spec := animation.Identity()
	require.NoError(t, Zoom{Mode: "out-center", Speed: 1}.Apply(&spec, 10, 10, 4, 0))
	kfs := spec.Scale.Keyframes()
	require.Len(t, kfs, 2)
	assert.Equal(t, MaxZoom, kfs[0].Value.X)
	assert.Equal(t, 1.0, kfs[1].Value.X)
	assert.Equal(t, animation.EaseOutCubic, kfs[1].Easing)
}

func TestZoomCornerKeepsObjectInPlace(t *testing.T) {
	spec := animation.Identity()
	spec.Position = animation.Constant(animation.Vec2{X: 10, Y: 20})
	require.NoError(t, Zoom{Mode: "top-left"}.Apply(&spec, 100, 50, 6, 0))

	assert.Equal(t, animation.AnchorTopLeft, spec.Anchor)
	pos, _ := spec.Position.ConstantValue()
	// The top-left corner sat 50px left and 25px up from the center.
	assert.Equal(t, animation.Vec2{X: -40, Y: 45}, pos)
}

func TestZoomKeepsBaseScale(t *testing.T) {
	spec := animation.Identity()
	spec.Scale = animation.Constant(animation.Vec2{X: 2, Y: 0.5})
	require.NoError(t, Zoom{Mode: "center", Speed: 0.1}.Apply(&spec, 10, 10, 10, 0))
	assert.Equal(t, animation.Vec2{X: 2, Y: 0.5}, spec.Scale.Evaluate(0))
	assert.InDelta(t, 3.0, spec.Scale.Evaluate(5).X, 1e-12)
}

func TestZoomRandomIsDeterministic(t *testing.T) {
	pick := func(seed int64) animation.Anchor {
		spec := animation.Identity()
		require.NoError(t, Zoom{Mode: "random"}.Apply(&spec, 10, 10, 3, seed))
		return spec.Anchor
	}
	for seed := int64(0); seed < 5; seed++ {
		assert.Equal(t, pick(seed), pick(seed))
	}
}

func TestZoomErrors(t *testing.T) {
	spec := animation.Identity()
	assert.Error(t, Zoom{Mode: "sideways"}.Apply(&spec, 10, 10, 3, 0))
	assert.Error(t, Zoom{}.Apply(&spec, 10, 10, 0, 0))

	keyed, err := animation.Keyframed(
		animation.Keyframe[animation.Vec2]{Time: 0, Value: animation.Vec2{X: 1, Y: 1}},
		animation.Keyframe[animation.Vec2]{Time: 1, Value: animation.Vec2{X: 2, Y: 2}},
	)
	require.NoError(t, err)
	spec.Scale = keyed
	assert.Error(t, Zoom{}.Apply(&spec, 10, 10, 3, 0))
}

func TestTranslate(t *testing.T) {
	d := animation.Vec2{X: 1, Y: -1}

	keyed, err := animation.Keyframed(
		animation.Keyframe[animation.Vec2]{Time: 0, Value: animation.Vec2{}},
		animation.Keyframe[animation.Vec2]{Time: 2, Value: animation.Vec2{X: 4, Y: 4}},
	)
	require.NoError(t, err)
	moved, err := Translate(keyed, d)
	require.NoError(t, err)
	assert.Equal(t, animation.Vec2{X: 3, Y: 1}, moved.Evaluate(1))

	fn := animation.Func(func(t float64) animation.Vec2 { return animation.Vec2{X: t} })
	moved, err = Translate(fn, d)
	require.NoError(t, err)
	assert.Equal(t, animation.Vec2{X: 3.5, Y: -1}, moved.Evaluate(2.5))
}

func TestFade(t *testing.T) {
	tests := []struct {
		name   string
		fade   Fade
		dur    float64
		checks map[float64]float64
	}{
		{"in and out", Fade{In: 1, Out: 2}, 10, map[float64]float64{0: 0, 0.5: 0.5, 1: 1, 5: 1, 8: 1, 9: 0.5, 10: 0}},
		{"in only", Fade{In: 2}, 4, map[float64]float64{0: 0, 1: 0.5, 2: 1, 4: 1}},
		{"out only", Fade{Out: 1}, 3, map[float64]float64{0: 1, 2: 1, 2.5: 0.5, 3: 0}},
		{"shrunk", Fade{In: 3, Out: 3}, 2, map[float64]float64{0: 0, 1: 1, 1.5: 0.5, 2: 0}},
		{"whole clip", Fade{In: 4}, 4, map[float64]float64{0: 0, 2: 0.5, 4: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := animation.Identity()
			require.NoError(t, tt.fade.Apply(&spec, tt.dur))
			for at, want := range tt.checks {
				assert.InDelta(t, want, spec.Opacity.Evaluate(at), 1e-12, "t=%v", at)
			}
		})
	}
}

func TestFadeScalesBaseOpacity(t *testing.T) {
	spec := animation.Identity()
	spec.Opacity = animation.Constant(0.5)
	require.NoError(t, Fade{In: 1}.Apply(&spec, 2))
	assert.InDelta(t, 0.25, spec.Opacity.Evaluate(0.5), 1e-12)
	assert.InDelta(t, 0.5, spec.Opacity.Evaluate(2), 1e-12)
}

func TestFadeErrors(t *testing.T) {
	spec := animation.Identity()
	assert.Error(t, Fade{In: -1}.Apply(&spec, 2))

	require.NoError(t, Fade{}.Apply(&spec, 2))
	assert.Equal(t, animation.ChannelConstant, spec.Opacity.Kind())

	require.NoError(t, Fade{In: 1}.Apply(&spec, 2))
	assert.Error(t, Fade{Out: 1}.Apply(&spec, 2))
}
