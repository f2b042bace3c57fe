package engine

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/ivlev/timeline2video/internal/audio"
	"github.com/ivlev/timeline2video/internal/compositor"
	"github.com/ivlev/timeline2video/internal/failure"
	"github.com/ivlev/timeline2video/internal/sampler"
	"github.com/ivlev/timeline2video/internal/system"
	"github.com/ivlev/timeline2video/internal/timeline"
)

// RenderOptions control a Render call.
type RenderOptions struct {
	// Start and End bound the rendered range; 0 <= Start < End <= duration.
	Start, End float64
	// Workers is the number of frames composited in parallel; 0 sizes the
	// pool from the machine.
	Workers int
	// Window caps frames rendered but not yet delivered; 0 derives it from
	// available memory.
	Window int
	// ProgressEvery logs progress after every N delivered frames; 0 disables.
	ProgressEvery int
	Logger        hclog.Logger

	now func() time.Time
}

// RenderStats summarize a finished render.
type RenderStats struct {
	RunID     string
	Frames    int
	Delivered int
	// Stopped is set when the frame sink asked for no more frames.
	Stopped bool
	Elapsed time.Duration
	// Buffers is how many frame buffers the render allocated.
	Buffers int
}

// FPS is the effective delivery rate.
func (s RenderStats) FPS() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Delivered) / s.Elapsed.Seconds()
}

type rendered struct {
	index int
	frame *image.RGBA
}

// Render produces the floor((End-Start)*fps) frames of tl and hands them
// to frames in index order. When mix is non-nil it first receives the audio
// of the range. Frames are composited in parallel but every frame depends
// only on its own instant, so the output does not depend on scheduling.
//
// A Stop from the sink ends the render early without error. Errors from
// either sink are returned as *failure.SinkError; frames delivered before a
// failure stay delivered.
func Render(ctx context.Context, tl *timeline.Timeline, frames FrameSink, mix AudioMixSink, opt RenderOptions) (RenderStats, error) {
	if err := timeline.ValidateSettings(tl.Settings); err != nil {
		return RenderStats{}, err
	}
	if err := timeline.ValidateRange(opt.Start, opt.End, tl.Duration); err != nil {
		return RenderStats{}, err
	}
	now := opt.now
	if now == nil {
		now = time.Now
	}
	logger := opt.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	stats := RenderStats{
		RunID:  uuid.NewString(),
		Frames: tl.Frames(opt.Start, opt.End),
	}
	logger = logger.Named("render").With("run", stats.RunID)
	began := now()

	if mix != nil {
		entries := audio.ResolveRange(tl.Audio, opt.Start, opt.End)
		logger.Debug("audio resolved", "entries", len(entries))
		if err := mix.Mix(ctx, entries, opt.End-opt.Start); err != nil {
			return finish(stats, began, now), sinkError("audio", -1, err)
		}
	}
	if stats.Frames == 0 {
		logger.Warn("range shorter than one frame", "start", opt.Start, "end", opt.End)
		return finish(stats, began, now), nil
	}

	rect := image.Rect(0, 0, tl.Width, tl.Height)
	budget := system.RecommendedBudget(ctx, 4*tl.Width*tl.Height, opt.Workers)
	if opt.Window > 0 {
		budget.Window = opt.Window
	}
	if budget.Workers > stats.Frames {
		budget.Workers = stats.Frames
	}
	logger.Info("render started",
		"frames", stats.Frames, "start", opt.Start, "end", opt.End,
		"size", rect.Size().String(), "fps", tl.FPS,
		"workers", budget.Workers, "window", budget.Window)

	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(workCtx)

	pool := system.NewFramePool(rect)
	inflight := semaphore.NewWeighted(int64(budget.Window))
	jobs := make(chan int)
	results := make(chan rendered, budget.Window)

	g.Go(func() error {
		defer close(jobs)
		for i := 0; i < stats.Frames; i++ {
			if err := inflight.Acquire(gctx, 1); err != nil {
				return err
			}
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < budget.Workers; w++ {
		g.Go(func() error {
			for i := range jobs {
				t := timeline.FrameTime(opt.Start, i, tl.FPS)
				frame := pool.Get()
				compositor.CompositeInto(frame, sampler.Sample(tl, t), tl.Background)
				select {
				case results <- rendered{index: i, frame: frame}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	var workErr error
	workDone := make(chan struct{})
	go func() {
		workErr = g.Wait()
		close(results)
		close(workDone)
	}()

	prog := newProgress(logger, stats.Frames, opt.ProgressEvery, tl.FPS, now)
	pending := make(map[int]*image.RGBA, budget.Window)
	deliverErr := func() error {
		for r := range results {
			pending[r.index] = r.frame
			for {
				frame, ok := pending[stats.Delivered]
				if !ok {
					break
				}
				// Cancellation is only observed between frames.
				if err := ctx.Err(); err != nil {
					return err
				}
				sig, err := frames.Accept(ctx, stats.Delivered, frame)
				if err != nil {
					return sinkError("frames", stats.Delivered, err)
				}
				delete(pending, stats.Delivered)
				pool.Put(frame)
				inflight.Release(1)
				stats.Delivered++
				prog.delivered(stats.Delivered)
				if sig == Stop {
					stats.Stopped = true
					return nil
				}
			}
		}
		return nil
	}()

	cancel()
	<-workDone

	stats = finish(stats, began, now)
	stats.Buffers = pool.Allocated()
	switch {
	case deliverErr != nil:
		logger.Error("render failed", "delivered", stats.Delivered, "error", deliverErr)
		return stats, deliverErr
	case stats.Stopped:
		logger.Info("render stopped by sink", "delivered", stats.Delivered, "frames", stats.Frames)
		return stats, nil
	case stats.Delivered < stats.Frames:
		// Workers ended early without the consumer noticing first.
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		return stats, workErr
	}
	logger.Info("render finished",
		"frames", stats.Delivered,
		"elapsed", stats.Elapsed.Round(time.Millisecond).String(),
		"fps", stats.FPS(),
		"buffers", stats.Buffers)
	return stats, nil
}

func finish(stats RenderStats, began time.Time, now func() time.Time) RenderStats {
	stats.Elapsed = now().Sub(began)
	return stats
}

func sinkError(sink string, frame int, err error) error {
	var se *failure.SinkError
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return failure.Sink(sink, frame, err)
}
