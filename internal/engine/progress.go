package engine

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
)

// etaWindow is how many recent frames the throughput estimate looks at.
const etaWindow = 100

// progress logs render progress every `every` delivered frames.
type progress struct {
	logger hclog.Logger
	total  int
	every  int
	fps    int
	now    func() time.Time

	start time.Time
	ring  [etaWindow]time.Time
}

func newProgress(logger hclog.Logger, total, every, fps int, now func() time.Time) *progress {
	return &progress{logger: logger, total: total, every: every, fps: fps, now: now, start: now()}
}

// delivered records that `done` frames (1-based count) have been handed to
// the sink.
func (p *progress) delivered(done int) {
	if p.every <= 0 {
		return
	}
	now := p.now()
	slot := done % etaWindow
	oldest := p.ring[slot]
	p.ring[slot] = now

	if done%p.every != 0 && done != p.total {
		return
	}

	// Before the first full window the rate is the overall average.
	var rate float64
	if done > etaWindow {
		rate = etaWindow / now.Sub(oldest).Seconds()
	} else if elapsed := now.Sub(p.start).Seconds(); elapsed > 0 {
		rate = float64(done) / elapsed
	}
	eta := "unknown"
	if rate > 0 {
		eta = (time.Duration(float64(p.total-done)/rate*float64(time.Second))).Round(time.Second).String()
	}

	p.logger.Info("progress",
		"frames", fmt.Sprintf("%d/%d", done, p.total),
		"percent", fmt.Sprintf("%.1f", 100*float64(done)/float64(p.total)),
		"time", fmt.Sprintf("%s / %s", clock(float64(done)/float64(p.fps)), clock(float64(p.total)/float64(p.fps))),
		"fps", fmt.Sprintf("%.1f", rate),
		"eta", eta,
	)
}

// clock formats seconds as HH:MM:SS.
func clock(seconds float64) string {
	s := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, s/60%60, s%60)
}
