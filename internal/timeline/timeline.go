// Package timeline holds the declarative description of a video: an ordered
// stack of layers, each a sequence of timed clips, plus an audio schedule.
//
// A Timeline is validated once by New and is read-only afterwards, so it can
// be shared by any number of goroutines sampling different instants.
package timeline

import (
	"image/color"
	"math"

	"github.com/ivlev/timeline2video/internal/animation"
)

// Settings are the global properties of a timeline.
type Settings struct {
	Width      int
	Height     int
	FPS        int
	Duration   float64
	Background color.NRGBA
}

type Timeline struct {
	Settings
	Layers []*Layer
	Audio  AudioSchedule
}

// Layer is a z-ordered track; later layers are drawn on top.
type Layer struct {
	Name  string
	Clips []*Clip
}

// Clip places one Object on a layer for [Start, End).
type Clip struct {
	Name      string
	Start     float64
	End       float64
	Object    Object
	Transform animation.TransformSpec
}

// Active reports whether the clip is visible at timeline time t.
func (c *Clip) Active(t float64) bool {
	return t >= c.Start && t < c.End
}

// LocalTime returns t relative to the clip start, or false when the clip is
// not active at t.
func (c *Clip) LocalTime(t float64) (float64, bool) {
	if !c.Active(t) {
		return 0, false
	}
	return t - c.Start, true
}

// AudioSchedule lists everything audible in the timeline.
type AudioSchedule struct {
	Music []MusicTrack
	Sfx   []SfxEvent
}

// MusicTrack plays File during [Start, End). Duration is the length of the
// file in seconds, 0 when unknown.
type MusicTrack struct {
	File     string
	Start    float64
	End      float64
	Loop     bool
	Volume   float64
	Duration float64
}

// SfxEvent plays File once, starting at Time.
type SfxEvent struct {
	File     string
	Time     float64
	Volume   float64
	Duration float64
}

// frameEpsilon absorbs binary representation error in (end-start)*fps so
// that e.g. 0.3s at 10fps yields 3 frames and not 2.
const frameEpsilon = 1e-9

// FrameCount is the single place the number of frames in [start, end) is
// computed: floor((end - start) * fps).
func FrameCount(start, end float64, fps int) int {
	if fps <= 0 || end <= start {
		return 0
	}
	return int(math.Floor((end-start)*float64(fps) + frameEpsilon))
}

// FrameTime is the timeline instant of frame index i in a range starting at
// start.
func FrameTime(start float64, i, fps int) float64 {
	return start + float64(i)/float64(fps)
}

// Frames returns the frame count for [start, end) at the timeline's fps.
func (tl *Timeline) Frames(start, end float64) int {
	return FrameCount(start, end, tl.FPS)
}
