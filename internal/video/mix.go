package video

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/ivlev/timeline2video/internal/audio"
)

// Mixer writes the audio of a render range to Output with ffmpeg. An empty
// entry list writes nothing.
type Mixer struct {
	Output string
	Logger hclog.Logger

	written bool
}

// Written reports whether the last Mix produced a file.
func (m *Mixer) Written() bool {
	return m.written
}

func (m *Mixer) Mix(ctx context.Context, entries []audio.Entry, duration float64) error {
	m.written = false
	args := mixArgs(entries, duration, m.Output)
	if args == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(m.Output), 0755); err != nil {
		return err
	}
	logger := m.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	logger.Debug("mixing audio", "entries", len(entries), "output", m.Output)

	out, err := exec.CommandContext(ctx, "ffmpeg", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg mix error: %w, output: %s", err, tail(string(out)))
	}
	m.written = true
	return nil
}

// mixArgs builds one ffmpeg input per entry: looping music repeats its
// input, every entry is seeked to its file offset, cut to its length,
// delayed to its onset and scaled by its volume. The sum is padded and cut
// to the range duration.
func mixArgs(entries []audio.Entry, duration float64, output string) []string {
	args := []string{"-y"}
	var filters, labels []string
	n := 0
	for _, e := range entries {
		if e.Length <= 0 {
			continue
		}
		if e.Loop {
			args = append(args, "-stream_loop", "-1")
		}
		if e.Offset > 0 {
			args = append(args, "-ss", seconds(e.Offset))
		}
		args = append(args, "-i", e.File)

		delay := int64(e.Onset*1000 + 0.5)
		label := fmt.Sprintf("[a%d]", n)
		filters = append(filters, fmt.Sprintf(
			"[%d:a]atrim=0:%s,asetpts=PTS-STARTPTS,volume=%s,adelay=%d:all=1%s",
			n, seconds(e.Length), seconds(e.Volume), delay, label))
		labels = append(labels, label)
		n++
	}
	if n == 0 {
		return nil
	}
	filters = append(filters, fmt.Sprintf(
		"%samix=inputs=%d:duration=longest:normalize=0,apad=whole_dur=%s,atrim=0:%s[aout]",
		strings.Join(labels, ""), n, seconds(duration), seconds(duration)))

	args = append(args,
		"-filter_complex", strings.Join(filters, ";"),
		"-map", "[aout]",
		"-c:a", "aac",
		output,
	)
	return args
}

func seconds(v float64) string {
	return fmt.Sprintf("%.6f", v)
}
