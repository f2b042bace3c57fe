// Package engine drives a timeline through time. Render produces every frame
// of a range for offline encoding; Preview follows the wall clock for live
// display. Both share the sampler, compositor and audio collector and differ
// only in how t advances.
package engine

import (
	"context"
	"errors"
	"image"

	"github.com/ivlev/timeline2video/internal/audio"
)

// Signal is a frame sink's answer to a delivered frame.
type Signal int

const (
	Continue Signal = iota
	Stop
)

func (s Signal) String() string {
	if s == Stop {
		return "stop"
	}
	return "continue"
}

// FrameSink receives rendered frames in strictly increasing index order,
// exactly once each. The frame buffer is only valid during the call.
type FrameSink interface {
	Accept(ctx context.Context, index int, frame *image.RGBA) (Signal, error)
}

// AudioMixSink receives the audio instructions for a render range before any
// frame is produced. duration is the range length in seconds.
type AudioMixSink interface {
	Mix(ctx context.Context, entries []audio.Entry, duration float64) error
}

// LiveSink shows frames and plays audio during preview.
type LiveSink interface {
	// Present displays frame. Returning ErrDisplayClosed ends the preview
	// normally.
	Present(ctx context.Context, frame *image.RGBA) error
	PlayInstant(ctx context.Context, instant audio.Instant) error
}

// ErrDisplayClosed is returned by a LiveSink once its window is gone.
var ErrDisplayClosed = errors.New("display closed")
