package effects

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/timeline2video/internal/animation"
	"github.com/ivlev/timeline2video/internal/sampler"
	"github.com/ivlev/timeline2video/internal/timeline"
)

func TestReadingOrder(t *testing.T) {
	blocks := []image.Rectangle{
		image.Rect(200, 105, 260, 140), // second row, right
		image.Rect(10, 300, 50, 320),   // third row
		image.Rect(20, 100, 80, 130),   // second row, left (tops within 20px)
		image.Rect(0, 0, 10, 10),       // first row
	}
	got := ReadingOrder(blocks)
	assert.Equal(t, []image.Rectangle{blocks[3], blocks[2], blocks[0], blocks[1]}, got)
	assert.Equal(t, image.Rect(200, 105, 260, 140), blocks[0], "input is not reordered")
}

func TestTourPlan(t *testing.T) {
	tests := []struct {
		name     string
		blocks   int
		duration float64
		intro    float64
		dwell    float64
		n        int
	}{
		{"capped dwell", 2, 10, 1, 3, 2},
		{"even split", 4, 10, 1, 2, 4},
		{"too many blocks", 5, 5, 1, 1, 3},
		{"short clip keeps one block", 2, 3, 1, 1, 1},
		{"very short clip", 2, 1.5, 0.375, 0.75, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTour(make([]image.Rectangle, tt.blocks), 320, 180)
			intro, dwell, n := tr.Plan(tt.duration)
			assert.InDelta(t, tt.intro, intro, 1e-12)
			assert.InDelta(t, tt.dwell, dwell, 1e-12)
			assert.Equal(t, tt.n, n)
		})
	}
}

func TestTourCentersEachBlock(t *testing.T) {
	const w, h = 320.0, 180.0
	first := image.Rect(20, 20, 120, 70)
	second := image.Rect(150, 100, 310, 170)

	spec := animation.Identity()
	tr := NewTour([]image.Rectangle{second, first}, w, h)
	require.NoError(t, tr.Apply(&spec, w, h, 10))

	times := func(kfs []animation.Keyframe[animation.Vec2]) []float64 {
		var out []float64
		for _, k := range kfs {
			out = append(out, k.Time)
		}
		return out
	}
	want := []float64{0, 1, 2.2, 4, 5.2, 7, 8}
	assert.InDeltaSlice(t, want, times(spec.Scale.Keyframes()), 1e-12)
	assert.InDeltaSlice(t, want, times(spec.Position.Keyframes()), 1e-12)

	// first: 100x50 block, zoom min(288/100, 162/50) = 2.88
	assert.InDelta(t, 2.88, spec.Scale.Evaluate(3).X, 1e-12)
	// second: 160x70 block, zoom min(288/160, 162/70) = 1.8
	assert.InDelta(t, 1.8, spec.Scale.Evaluate(6).X, 1e-12)
	assert.InDelta(t, 1.0, spec.Scale.Evaluate(9).X, 1e-12)

	obj := &timeline.Rect{Width: w, Height: h, Color: color.NRGBA{A: 255}}
	tl, err := timeline.New(timeline.Settings{Width: int(w), Height: int(h), FPS: 10, Duration: 10},
		[]*timeline.Layer{{Clips: []*timeline.Clip{{Start: 0, End: 10, Object: obj, Transform: spec}}}},
		timeline.AudioSchedule{})
	require.NoError(t, err)

	for _, tc := range []struct {
		at  float64
		blk image.Rectangle
	}{{3, first}, {6, second}} {
		states := sampler.Sample(tl, tc.at)
		require.Len(t, states, 1)
		cx := float64(tc.blk.Min.X+tc.blk.Max.X) / 2
		cy := float64(tc.blk.Min.Y+tc.blk.Max.Y) / 2
		x, y := sampler.Apply(states[0].ToScreen, cx, cy)
		assert.InDelta(t, w/2, x, 1e-9, "t=%v", tc.at)
		assert.InDelta(t, h/2, y, 1e-9, "t=%v", tc.at)
	}

	// Full view before and after the tour.
	states := sampler.Sample(tl, 0.5)
	require.Len(t, states, 1)
	assert.Equal(t, image.Rect(0, 0, int(w), int(h)), states[0].Bounds)
}

func TestTourKeepsCornerAnchoredObjectInPlace(t *testing.T) {
	spec := animation.Identity()
	spec.Anchor = animation.AnchorTopLeft
	spec.Position = animation.Constant(animation.Vec2{X: -100, Y: 50})
	spec.Scale = animation.Constant(animation.Vec2{X: 2, Y: 2})

	require.NoError(t, NewTour([]image.Rectangle{image.Rect(0, 0, 10, 10)}, 320, 180).Apply(&spec, 40, 20, 6))
	assert.Equal(t, animation.AnchorCenter, spec.Anchor)
	// Top-left pivot is (-20, -10) from the center; at scale 2 the center
	// sits 40 right and 20 down of the old position.
	assert.Equal(t, animation.Vec2{X: -60, Y: 30}, spec.Position.Evaluate(0))
	assert.Equal(t, animation.Vec2{X: 2, Y: 2}, spec.Scale.Evaluate(0))
}

func TestTourErrors(t *testing.T) {
	blocks := []image.Rectangle{image.Rect(0, 0, 10, 10)}

	spec := animation.Identity()
	assert.Error(t, NewTour(nil, 320, 180).Apply(&spec, 40, 20, 5))
	assert.Error(t, NewTour(blocks, 320, 180).Apply(&spec, 40, 20, 0))

	var err error
	spec.Position, err = animation.Keyframed(
		animation.Keyframe[animation.Vec2]{Time: 0},
		animation.Keyframe[animation.Vec2]{Time: 1, Value: animation.Vec2{X: 1}},
	)
	require.NoError(t, err)
	assert.Error(t, NewTour(blocks, 320, 180).Apply(&spec, 40, 20, 5))

	spec = animation.Identity()
	spec.Scale = animation.Func(func(t float64) animation.Vec2 { return animation.Vec2{X: t, Y: t} })
	assert.Error(t, NewTour(blocks, 320, 180).Apply(&spec, 40, 20, 5))
}
