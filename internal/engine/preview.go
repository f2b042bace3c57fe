package engine

import (
	"context"
	"errors"
	"image"
	"math"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/ivlev/timeline2video/internal/audio"
	"github.com/ivlev/timeline2video/internal/compositor"
	"github.com/ivlev/timeline2video/internal/sampler"
	"github.com/ivlev/timeline2video/internal/timeline"
)

// Clock is the time source of a preview.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

func (wallClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PreviewOptions control a Preview call.
type PreviewOptions struct {
	Start, End float64
	// Clock defaults to the wall clock.
	Clock  Clock
	Logger hclog.Logger
}

// PreviewStats summarize a finished preview.
type PreviewStats struct {
	Presented int
	// Skipped counts frame ticks missed because a frame took too long.
	Skipped int
}

// Preview plays tl in real time from Start: every tick shows the frame at
// Start + elapsed wall time and resolves the audio of that instant. Once
// End is reached the last instant before End is held. Preview returns nil
// when the sink reports ErrDisplayClosed or ctx is cancelled; a frame being
// drawn at that point is finished first.
func Preview(ctx context.Context, tl *timeline.Timeline, sink LiveSink, opt PreviewOptions) (PreviewStats, error) {
	var stats PreviewStats
	if err := timeline.ValidateSettings(tl.Settings); err != nil {
		return stats, err
	}
	if err := timeline.ValidateRange(opt.Start, opt.End, tl.Duration); err != nil {
		return stats, err
	}
	clock := opt.Clock
	if clock == nil {
		clock = wallClock{}
	}
	logger := opt.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	logger = logger.Named("preview")

	frame := image.NewRGBA(image.Rect(0, 0, tl.Width, tl.Height))
	collector := audio.NewCollector(tl.Audio)
	interval := time.Second / time.Duration(tl.FPS)
	last := math.Nextafter(opt.End, math.Inf(-1))

	logger.Info("preview started", "start", opt.Start, "end", opt.End, "fps", tl.FPS)
	began := clock.Now()
	tick := 0
	for ctx.Err() == nil {
		elapsed := clock.Now().Sub(began)
		t := math.Min(opt.Start+elapsed.Seconds(), last)

		compositor.CompositeInto(frame, sampler.Sample(tl, t), tl.Background)
		if err := sink.Present(ctx, frame); err != nil {
			if errors.Is(err, ErrDisplayClosed) || ctx.Err() != nil {
				break
			}
			return stats, sinkError("display", -1, err)
		}
		stats.Presented++

		// Sent every tick, so the sink also learns when tracks stop.
		if err := sink.PlayInstant(ctx, collector.ResolveInstant(t)); err != nil {
			if ctx.Err() != nil {
				break
			}
			return stats, sinkError("audio", -1, err)
		}

		// Next tick is the first frame boundary after now; late frames
		// are dropped instead of replayed.
		next := int(clock.Now().Sub(began)/interval) + 1
		if next <= tick {
			next = tick + 1
		}
		stats.Skipped += next - tick - 1
		tick = next
		if err := clock.Sleep(ctx, began.Add(time.Duration(tick)*interval).Sub(clock.Now())); err != nil {
			break
		}
	}

	logger.Info("preview finished", "presented", stats.Presented, "skipped", stats.Skipped)
	return stats, nil
}
