// Package video holds the sinks that take frames and audio out of the
// engine: ffmpeg for encoded files, image sequences on disk and ffplay for
// live preview.
package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/ivlev/timeline2video/internal/audio"
	"github.com/ivlev/timeline2video/internal/engine"
	"github.com/ivlev/timeline2video/internal/failure"
	"github.com/ivlev/timeline2video/internal/system"
)

// EncodeOptions describe the file written by an FFmpegEncoder.
type EncodeOptions struct {
	Output        string
	Width, Height int
	FPS           int
	Encoder       string
	Quality       int
}

// FFmpegEncoder pipes raw RGBA frames into ffmpeg. It is both the frame
// sink and the audio mix sink of a render: the mix is written to a
// temporary file first and muxed in when the first frame starts ffmpeg.
type FFmpegEncoder struct {
	opts   EncodeOptions
	logger hclog.Logger
	mixer  *Mixer
	tmpDir string

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
}

func NewFFmpegEncoder(opts EncodeOptions, logger hclog.Logger) *FFmpegEncoder {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &FFmpegEncoder{opts: opts, logger: logger.Named("ffmpeg")}
}

// Mix renders the audio of the range into a temporary AAC file.
func (e *FFmpegEncoder) Mix(ctx context.Context, entries []audio.Entry, duration float64) error {
	if len(entries) == 0 {
		return nil
	}
	dir, err := os.MkdirTemp("", "timeline2video_")
	if err != nil {
		return err
	}
	e.tmpDir = dir
	e.mixer = &Mixer{Output: filepath.Join(dir, "mix.m4a"), Logger: e.logger}
	return e.mixer.Mix(ctx, entries, duration)
}

// Accept starts ffmpeg on the first frame and writes the frame to it.
func (e *FFmpegEncoder) Accept(ctx context.Context, index int, frame *image.RGBA) (engine.Signal, error) {
	if e.cmd == nil {
		if err := e.start(ctx); err != nil {
			return engine.Stop, err
		}
	}
	if err := writeRawRGBA(e.stdin, frame); err != nil {
		return engine.Stop, fmt.Errorf("write raw error: %w: %s", err, tail(e.stderr.String()))
	}
	return engine.Continue, nil
}

func (e *FFmpegEncoder) start(ctx context.Context) error {
	audioPath := ""
	if e.mixer != nil && e.mixer.Written() {
		audioPath = e.mixer.Output
	}
	if err := os.MkdirAll(filepath.Dir(e.opts.Output), 0755); err != nil {
		return err
	}
	args := encodeArgs(e.opts, audioPath)
	e.logger.Debug("starting ffmpeg", "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stderr = &e.stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start error: %w", err)
	}
	e.cmd, e.stdin = cmd, stdin
	return nil
}

// Close finishes the file and removes temporary audio. Call it once after
// Render returns, whatever the outcome.
func (e *FFmpegEncoder) Close() error {
	if e.tmpDir != "" {
		defer os.RemoveAll(e.tmpDir)
	}
	if e.cmd == nil {
		return nil
	}
	e.stdin.Close()
	if err := e.cmd.Wait(); err != nil {
		return failure.Sink("ffmpeg", -1, fmt.Errorf("ffmpeg wait error: %w: %s", err, tail(e.stderr.String())))
	}
	return nil
}

func encodeArgs(opts EncodeOptions, audioPath string) []string {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"-framerate", fmt.Sprintf("%d", opts.FPS),
		"-i", "-",
	}
	if audioPath != "" {
		args = append(args, "-i", audioPath, "-map", "0:v", "-map", "1:a", "-c:a", "aac", "-shortest")
	}
	args = append(args,
		"-pix_fmt", "yuv420p",
		"-c:v", opts.Encoder,
	)
	args = append(args, system.QualityArgs(opts.Encoder, opts.Quality)...)
	args = append(args, opts.Output)
	return args
}

func writeRawRGBA(w io.Writer, img *image.RGBA) error {
	b := img.Bounds()
	if img.Stride == b.Dx()*4 {
		_, err := w.Write(img.Pix[:b.Dx()*b.Dy()*4])
		return err
	}
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		if _, err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// tail keeps the end of ffmpeg's log, where the actual error is.
func tail(log string) string {
	const max = 2000
	log = strings.TrimSpace(log)
	if len(log) > max {
		return "..." + log[len(log)-max:]
	}
	return log
}
