package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"sync"
	"syscall"

	"github.com/hashicorp/go-hclog"

	"github.com/ivlev/timeline2video/internal/audio"
	"github.com/ivlev/timeline2video/internal/engine"
)

// FFplayDisplay shows preview frames in an ffplay window and plays audio
// through one ffplay process per sound. Closing the window ends the
// preview.
type FFplayDisplay struct {
	Width, Height int
	FPS           int
	Title         string
	Logger        hclog.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	exited chan struct{}
	music  map[int]*exec.Cmd
	sfx    []*exec.Cmd
}

func (d *FFplayDisplay) logger() hclog.Logger {
	if d.Logger == nil {
		return hclog.NewNullLogger()
	}
	return d.Logger.Named("ffplay")
}

func (d *FFplayDisplay) Present(ctx context.Context, frame *image.RGBA) error {
	if d.cmd == nil {
		if err := d.open(ctx); err != nil {
			return err
		}
	}
	select {
	case <-d.exited:
		return engine.ErrDisplayClosed
	default:
	}
	if err := writeRawRGBA(d.stdin, frame); err != nil {
		select {
		case <-d.exited:
			return engine.ErrDisplayClosed
		default:
		}
		// A broken pipe means the window went away.
		if errors.Is(err, syscall.EPIPE) {
			return engine.ErrDisplayClosed
		}
		return fmt.Errorf("write raw error: %w", err)
	}
	return nil
}

func (d *FFplayDisplay) open(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "ffplay", displayArgs(d.Width, d.Height, d.FPS, d.Title)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffplay start error: %w", err)
	}
	d.cmd, d.stdin = cmd, stdin
	d.exited = make(chan struct{})
	go func() {
		err := cmd.Wait()
		d.logger().Debug("display exited", "error", err)
		close(d.exited)
	}()
	return nil
}

// PlayInstant starts fired sound effects, starts music that became active
// at its offset and stops music that is no longer active.
func (d *FFplayDisplay) PlayInstant(ctx context.Context, inst audio.Instant) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.music == nil {
		d.music = make(map[int]*exec.Cmd)
	}

	active := make(map[int]bool, len(inst.Tracks))
	for _, tr := range inst.Tracks {
		if tr.Ended {
			continue
		}
		active[tr.Index] = true
		if _, playing := d.music[tr.Index]; playing {
			continue
		}
		cmd, err := d.play(ctx, musicArgs(tr))
		if err != nil {
			return err
		}
		d.music[tr.Index] = cmd
	}
	for idx, cmd := range d.music {
		if !active[idx] {
			kill(cmd)
			delete(d.music, idx)
		}
	}

	for _, f := range inst.Fired {
		cmd, err := d.play(ctx, sfxArgs(f.Event.File, f.Event.Volume))
		if err != nil {
			return err
		}
		d.sfx = append(d.sfx, cmd)
	}
	return nil
}

func (d *FFplayDisplay) play(ctx context.Context, args []string) (*exec.Cmd, error) {
	cmd := exec.CommandContext(ctx, "ffplay", args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffplay start error: %w", err)
	}
	go cmd.Wait()
	return cmd, nil
}

// Close stops every sound and the window.
func (d *FFplayDisplay) Close() error {
	d.mu.Lock()
	for _, cmd := range d.music {
		kill(cmd)
	}
	for _, cmd := range d.sfx {
		kill(cmd)
	}
	d.music, d.sfx = nil, nil
	d.mu.Unlock()

	if d.cmd == nil {
		return nil
	}
	d.stdin.Close()
	kill(d.cmd)
	<-d.exited
	return nil
}

func kill(cmd *exec.Cmd) {
	if cmd.Process != nil {
		cmd.Process.Kill()
	}
}

func displayArgs(w, h, fps int, title string) []string {
	if title == "" {
		title = "timeline2video"
	}
	return []string{
		"-loglevel", "error",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", w, h),
		"-framerate", fmt.Sprintf("%d", fps),
		"-window_title", title,
		"-fflags", "nobuffer",
		"-i", "-",
	}
}

func musicArgs(tr audio.ActiveTrack) []string {
	args := []string{"-nodisp", "-loglevel", "quiet", "-autoexit"}
	if tr.Track.Loop {
		args = append(args, "-loop", "0")
	}
	if tr.Offset > 0 {
		args = append(args, "-ss", seconds(tr.Offset))
	}
	return append(args, "-volume", volume(tr.Track.Volume), tr.Track.File)
}

func sfxArgs(file string, vol float64) []string {
	return []string{"-nodisp", "-loglevel", "quiet", "-autoexit", "-volume", volume(vol), file}
}

// volume maps a gain to ffplay's 0..100 scale.
func volume(v float64) string {
	p := int(v*100 + 0.5)
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	return fmt.Sprintf("%d", p)
}
